package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
)

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.IsType(t, &Normaliser{}, normaliser)
}

func TestSupportedExtensions(t *testing.T) {
	assert.Equal(t, []string{".md", ".markdown"}, New().SupportedExtensions())
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_Success(t *testing.T) {
	content := "# Checkout\n\nDiscount code `SAVE15` gives 15% off.\n\n- Applies to [all items](https://example.com/items)\n"

	result, err := New().Normalise(context.Background(), "product_specs.md", []byte(content))
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "product_specs.md", result.Document.Filename)
	assert.Equal(t, "# Checkout\n\nDiscount code `SAVE15` gives 15% off.\n\n- Applies to all items", result.Document.Content)
	assert.Empty(t, result.Markup)
}

func TestNormalise_EmptyFilename(t *testing.T) {
	result, err := New().Normalise(context.Background(), "", []byte("# x"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestSimplify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "image alt text",
			input:    "![Pay button](pay.png)",
			expected: "Pay button",
		},
		{
			name:     "link label",
			input:    "See [the rules](rules.md).",
			expected: "See the rules.",
		},
		{
			name:     "html comment",
			input:    "before<!-- hidden\nnote -->after",
			expected: "beforeafter",
		},
		{
			name:     "blank line runs",
			input:    "a\n\n\n\n\nb",
			expected: "a\n\nb",
		},
		{
			name:     "trailing whitespace",
			input:    "a   \nb\t",
			expected: "a\nb",
		},
		{
			name:     "emphasis kept",
			input:    "**Required** field",
			expected: "**Required** field",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, simplify(tc.input))
		})
	}
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}
