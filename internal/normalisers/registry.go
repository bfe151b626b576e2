package normalisers

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
	"github.com/custodia-labs/qagent/internal/normalisers/html"
	"github.com/custodia-labs/qagent/internal/normalisers/jsondoc"
	"github.com/custodia-labs/qagent/internal/normalisers/markdown"
	"github.com/custodia-labs/qagent/internal/normalisers/pdf"
	"github.com/custodia-labs/qagent/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches files to normalisers by extension.
// When several normalisers claim an extension the highest priority wins.
// Files no normaliser claims go to the lowest priority normaliser, which
// should be a text fallback.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
}

// NewRegistry creates a registry holding the given normalisers.
func NewRegistry(normalisers ...driven.Normaliser) *Registry {
	r := &Registry{}
	for _, n := range normalisers {
		r.Register(n)
	}
	return r
}

// Default returns a registry with every built-in normaliser.
func Default() *Registry {
	return NewRegistry(
		plaintext.New(),
		markdown.New(),
		jsondoc.New(),
		html.New(),
		pdf.New(),
	)
}

// Register adds a normaliser to the registry.
func (r *Registry) Register(normaliser driven.Normaliser) {
	if normaliser == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.normalisers = append(r.normalisers, normaliser)
	sort.SliceStable(r.normalisers, func(i, j int) bool {
		return r.normalisers[i].Priority() > r.normalisers[j].Priority()
	})
}

// Normalise decodes a file using the best matching normaliser.
func (r *Registry) Normalise(ctx context.Context, filename string, content []byte) (*driven.NormaliseResult, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("%w: filename required", domain.ErrInvalidInput)
	}

	n := r.lookup(filename)
	if n == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, filename)
	}

	result, err := n.Normalise(ctx, filename, content)
	if err != nil {
		return nil, fmt.Errorf("normalise %s: %w", filename, err)
	}
	return result, nil
}

// SupportedExtensions returns all extensions that can be normalised, sorted.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var exts []string
	for _, n := range r.normalisers {
		for _, ext := range n.SupportedExtensions() {
			if !slices.Contains(exts, ext) {
				exts = append(exts, ext)
			}
		}
	}
	sort.Strings(exts)
	return exts
}

// Supports reports whether filename has an extension a normaliser claims.
func (r *Registry) Supports(filename string) bool {
	return slices.Contains(r.SupportedExtensions(), Extension(filename))
}

func (r *Registry) lookup(filename string) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.normalisers) == 0 {
		return nil
	}

	ext := Extension(filename)
	for _, n := range r.normalisers {
		if slices.Contains(n.SupportedExtensions(), ext) {
			return n
		}
	}
	return r.normalisers[len(r.normalisers)-1]
}

// Extension returns the lower-case extension of filename, including the dot.
func Extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
