package driven

import "github.com/custodia-labs/qagent/internal/core/domain"

// StructureExtractor lists the interactive elements of a page.
// Implementations never fail: unparsable markup yields a PageStructure
// with Failed set and an explanatory marker.
type StructureExtractor interface {
	Extract(markup string) domain.PageStructure
}
