package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/qagent/internal/core/domain"
)

// sourceFlags are the inputs shared by commands that work on a session.
type sourceFlags struct {
	docs       []string
	page       string
	pageURL    string
	collection string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.docs, "docs", "d", nil, "documentation files or directories")
	cmd.Flags().StringVar(&f.page, "page", "", "HTML file of the page under test")
	cmd.Flags().StringVar(&f.pageURL, "page-url", "", "URL of the page under test, rendered with headless Chrome")
	cmd.Flags().StringVarP(&f.collection, "collection", "c", "", "named knowledge base to reuse (requires index.backend=sqlite to persist)")
	cmd.MarkFlagsMutuallyExclusive("page", "page-url")
}

// openSession opens a session and loads the documents and markup named by f.
// The knowledge base is rebuilt when anything new was loaded.
func openSession(ctx context.Context, cmd *cobra.Command, f *sourceFlags) (id string, closeFn func(), err error) {
	if cfg.Sessions == nil {
		return "", nil, errors.New("session service not configured")
	}

	var session *domain.Session
	if f.collection != "" {
		if !cfg.Persistent {
			cmd.PrintErrln("Warning: index.backend is memory, the collection will not be kept after this command.")
		}
		session, err = cfg.Sessions.OpenNamed(ctx, f.collection)
	} else {
		session, err = cfg.Sessions.Open()
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to open session: %w", err)
	}
	id = session.ID
	closeFn = func() {
		cfg.Sessions.Close(id) //nolint:errcheck
	}

	loaded, err := loadSources(ctx, cmd, id, f)
	if err != nil {
		closeFn()
		return "", nil, err
	}

	if loaded {
		chunks, err := cfg.Sessions.Build(ctx, id)
		if err != nil {
			closeFn()
			return "", nil, fmt.Errorf("failed to build knowledge base: %w", err)
		}
		cmd.PrintErrf("Indexed %d chunks\n", chunks)
	}

	return id, closeFn, nil
}

// loadSources ingests documents and page markup. It reports whether anything was added.
func loadSources(ctx context.Context, cmd *cobra.Command, id string, f *sourceFlags) (bool, error) {
	loaded := false

	if len(f.docs) > 0 {
		if cfg.Loader == nil {
			return false, errors.New("document loader not configured")
		}
		report, err := cfg.Loader.Load(ctx, cfg.Sessions, id, f.docs...)
		if err != nil {
			return false, fmt.Errorf("failed to load documents: %w", err)
		}
		cmd.PrintErrf("Loaded %d documents", len(report.Documents))
		if len(report.Skipped) > 0 {
			cmd.PrintErrf(" (%d skipped)", len(report.Skipped))
		}
		cmd.PrintErrln()
		loaded = len(report.Documents) > 0
	}

	switch {
	case f.page != "":
		data, err := os.ReadFile(f.page)
		if err != nil {
			return false, fmt.Errorf("failed to read page: %w", err)
		}
		if err := cfg.Sessions.SetMarkup(ctx, id, string(data), filepath.Base(f.page)); err != nil {
			return false, fmt.Errorf("failed to set page markup: %w", err)
		}
		loaded = true
	case f.pageURL != "":
		if cfg.Pages == nil {
			return false, errors.New("page fetcher not configured")
		}
		html, err := cfg.Pages.Fetch(ctx, f.pageURL)
		if err != nil {
			return false, fmt.Errorf("failed to fetch page: %w", err)
		}
		if err := cfg.Sessions.SetMarkup(ctx, id, html, f.pageURL); err != nil {
			return false, fmt.Errorf("failed to set page markup: %w", err)
		}
		cmd.PrintErrf("Fetched %s (%d bytes)\n", f.pageURL, len(html))
		loaded = true
	}

	return loaded, nil
}

// hint adds a next step to errors a user can fix from the command line.
func hint(err error) error {
	switch {
	case errors.Is(err, domain.ErrNoDocuments):
		return fmt.Errorf("%w\nPass documentation with --docs <file|dir>", err)
	case errors.Is(err, domain.ErrKnowledgeBaseNotBuilt):
		return fmt.Errorf("%w\nPass --docs, or --collection with a knowledge base built by 'qagent kb build'", err)
	case errors.Is(err, domain.ErrNoMarkup):
		return fmt.Errorf("%w\nPass the page under test with --page <file.html> or --page-url <url>", err)
	default:
		return err
	}
}
