package domain

import (
	"fmt"
	"strings"
)

// ElementKind identifies the kind of an interactive page element.
type ElementKind string

// Extracted element kinds.
const (
	ElementInput     ElementKind = "input"
	ElementButton    ElementKind = "button"
	ElementSelect    ElementKind = "select"
	ElementContainer ElementKind = "container"
)

// Structure markers used when no element list is available.
const (
	// MarkerExtractionFailed is reported when markup could not be parsed.
	MarkerExtractionFailed = "HTML structure extraction failed"

	// MarkerNoElements is reported when parsing found nothing usable.
	MarkerNoElements = "No elements extracted"
)

// MarkupElementDescriptor describes one interactive element of a page.
type MarkupElementDescriptor struct {
	Kind     ElementKind `json:"kind"`
	ID       string      `json:"id,omitempty"`
	Name     string      `json:"name,omitempty"`
	TypeAttr string      `json:"type,omitempty"`
	Text     string      `json:"text,omitempty"`
}

// String renders the descriptor as a single locator reference line.
func (d MarkupElementDescriptor) String() string {
	switch d.Kind {
	case ElementInput:
		return fmt.Sprintf("Input: id='%s', name='%s', type='%s'", d.ID, d.Name, d.TypeAttr)
	case ElementButton:
		return fmt.Sprintf("Button: id='%s', text='%s'", d.ID, d.Text)
	case ElementSelect:
		return fmt.Sprintf("Select: id='%s', name='%s'", d.ID, d.Name)
	case ElementContainer:
		return fmt.Sprintf("Div: id='%s'", d.ID)
	default:
		return fmt.Sprintf("%s: id='%s'", d.Kind, d.ID)
	}
}

// PageStructure is the extracted element list of a page.
// When Failed is set, or no elements were found, Marker explains why.
type PageStructure struct {
	Elements []MarkupElementDescriptor `json:"elements"`
	Failed   bool                      `json:"failed,omitempty"`
	Marker   string                    `json:"marker,omitempty"`
}

// Count returns the number of elements of the given kind.
func (p PageStructure) Count(kind ElementKind) int {
	n := 0
	for _, e := range p.Elements {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// String renders one line per element, or the marker if there are none.
func (p PageStructure) String() string {
	if len(p.Elements) == 0 {
		if p.Marker != "" {
			return p.Marker
		}
		return MarkerNoElements
	}
	lines := make([]string, len(p.Elements))
	for i, e := range p.Elements {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}

// GeneratedScript is browser-automation source text.
type GeneratedScript string

// ScriptResult is a generated script together with how it was produced.
type ScriptResult struct {
	Script    GeneratedScript `json:"script"`
	TestID    string          `json:"test_id"`
	Structure PageStructure   `json:"structure"`
	Fallback  bool            `json:"fallback"`
	Reason    string          `json:"reason,omitempty"`
}
