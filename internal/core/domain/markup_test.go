package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestMarkupElementDescriptor_String tests the locator line format per kind
func TestMarkupElementDescriptor_String(t *testing.T) {
	tests := []struct {
		desc     MarkupElementDescriptor
		expected string
	}{
		{MarkupElementDescriptor{Kind: ElementInput, ID: "email", Name: "email", TypeAttr: "email"}, "Input: id='email', name='email', type='email'"},
		{MarkupElementDescriptor{Kind: ElementButton, ID: "pay", Text: "Pay Now"}, "Button: id='pay', text='Pay Now'"},
		{MarkupElementDescriptor{Kind: ElementSelect, Name: "shipping"}, "Select: id='', name='shipping'"},
		{MarkupElementDescriptor{Kind: ElementContainer, ID: "cart"}, "Div: id='cart'"},
	}

	for _, tt := range tests {
		t.Run(string(tt.desc.Kind), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.desc.String())
		})
	}
}

// TestPageStructure_String tests rendering with and without elements
func TestPageStructure_String(t *testing.T) {
	assert.Equal(t, MarkerNoElements, PageStructure{}.String())
	assert.Equal(t, MarkerExtractionFailed, PageStructure{Failed: true, Marker: MarkerExtractionFailed}.String())

	p := PageStructure{Elements: []MarkupElementDescriptor{
		{Kind: ElementInput, ID: "q", TypeAttr: "text"},
		{Kind: ElementContainer, ID: "summary"},
	}}
	assert.Equal(t, "Input: id='q', name='', type='text'\nDiv: id='summary'", p.String())
	assert.Equal(t, 1, p.Count(ElementInput))
	assert.Equal(t, 0, p.Count(ElementButton))
}
