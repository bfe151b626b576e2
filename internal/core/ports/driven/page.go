package driven

import "context"

// PageFetcher retrieves the rendered markup of a live page.
type PageFetcher interface {
	// Fetch loads url and returns the page's outer HTML once it is ready.
	Fetch(ctx context.Context, url string) (string, error)

	// Close releases resources.
	Close() error
}
