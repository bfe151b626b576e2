package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestGeneration_Constructors tests the tagged result constructors
func TestGeneration_Constructors(t *testing.T) {
	g := Generated("ok")
	assert.Equal(t, "ok", g.Text)
	assert.False(t, g.Fallback)
	assert.Empty(t, g.Reason)

	f := FallbackUsed("synthetic", "timeout")
	assert.Equal(t, "synthetic", f.Text)
	assert.True(t, f.Fallback)
	assert.Equal(t, "timeout", f.Reason)
}

// TestSession_Helpers tests markup and filename helpers
func TestSession_Helpers(t *testing.T) {
	var nilSession *Session
	assert.False(t, nilSession.HasMarkup())
	assert.Nil(t, nilSession.Filenames())

	s := &Session{Documents: []SourceDocument{{Filename: "a.md"}, {Filename: "b.json"}}}
	assert.False(t, s.HasMarkup())
	assert.Equal(t, []string{"a.md", "b.json"}, s.Filenames())

	s.Markup = "<html></html>"
	assert.True(t, s.HasMarkup())
}
