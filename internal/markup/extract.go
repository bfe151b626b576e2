package markup

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
	"github.com/custodia-labs/qagent/internal/logger"
)

// Limits caps how many elements of each kind are examined.
// Caps apply to the elements found in the page, before filtering.
type Limits struct {
	Inputs     int
	Buttons    int
	Selects    int
	Containers int
}

// DefaultLimits returns the standard element caps.
func DefaultLimits() Limits {
	return Limits{Inputs: 30, Buttons: 15, Selects: 10, Containers: 20}
}

// maxButtonText is the rune limit for button labels.
const maxButtonText = 50

// reservedIDs are framework mount points that say nothing about the page.
var reservedIDs = map[string]bool{"root": true, "app": true}

// Extract parses src and returns its interactive elements using DefaultLimits.
func Extract(src string) (structure domain.PageStructure) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Warn("HTML extraction failed: %v", rec)
			structure = failed()
		}
	}()

	doc, err := Parse(src)
	if err != nil {
		logger.Warn("HTML extraction failed: %v", err)
		return failed()
	}
	return FromDocument(doc, DefaultLimits())
}

// Parse builds a goquery document from src.
func Parse(src string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// FromDocument lists the interactive elements of doc in the order inputs,
// buttons, selects, containers.
func FromDocument(doc *goquery.Document, limits Limits) domain.PageStructure {
	var elements []domain.MarkupElementDescriptor

	each(doc.Find("input"), limits.Inputs, func(s *goquery.Selection) {
		id, name := attr(s, "id"), attr(s, "name")
		if id == "" && name == "" {
			return
		}
		typ := attr(s, "type")
		if typ == "" {
			typ = "text"
		}
		elements = append(elements, domain.MarkupElementDescriptor{
			Kind: domain.ElementInput, ID: id, Name: name, TypeAttr: typ,
		})
	})

	each(doc.Find("button"), limits.Buttons, func(s *goquery.Selection) {
		id := attr(s, "id")
		text := truncate(strings.TrimSpace(s.Text()), maxButtonText)
		if id == "" && text == "" {
			return
		}
		elements = append(elements, domain.MarkupElementDescriptor{
			Kind: domain.ElementButton, ID: id, Text: text,
		})
	})

	each(doc.Find("select"), limits.Selects, func(s *goquery.Selection) {
		id, name := attr(s, "id"), attr(s, "name")
		if id == "" && name == "" {
			return
		}
		elements = append(elements, domain.MarkupElementDescriptor{
			Kind: domain.ElementSelect, ID: id, Name: name,
		})
	})

	each(doc.Find("div[id]"), limits.Containers, func(s *goquery.Selection) {
		id := attr(s, "id")
		if id == "" || reservedIDs[id] {
			return
		}
		elements = append(elements, domain.MarkupElementDescriptor{
			Kind: domain.ElementContainer, ID: id,
		})
	})

	if len(elements) == 0 {
		return domain.PageStructure{Marker: domain.MarkerNoElements}
	}
	return domain.PageStructure{Elements: elements}
}

// Extractor adapts Extract to driven.StructureExtractor.
type Extractor struct{}

// Ensure Extractor implements the interface.
var _ driven.StructureExtractor = Extractor{}

// Extract implements driven.StructureExtractor.
func (Extractor) Extract(markup string) domain.PageStructure {
	return Extract(markup)
}

func failed() domain.PageStructure {
	return domain.PageStructure{Failed: true, Marker: domain.MarkerExtractionFailed}
}

// each calls fn for the first limit elements of sel.
func each(sel *goquery.Selection, limit int, fn func(*goquery.Selection)) {
	sel.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= limit {
			return false
		}
		fn(s)
		return true
	})
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return strings.TrimSpace(v)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
