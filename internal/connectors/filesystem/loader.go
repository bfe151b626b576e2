package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/logger"
)

// DefaultMaxFileSize is the largest file the loader reads.
const DefaultMaxFileSize int64 = 20 << 20

// Ingester accepts file content for a session.
type Ingester interface {
	Ingest(ctx context.Context, id, filename string, content []byte) (*domain.SourceDocument, error)
}

// File is a file selected for loading.
type File struct {
	// Name is the document name: the path relative to the walked
	// directory, or the base name for files given explicitly.
	Name string

	// Path is the filesystem path.
	Path string
}

// Report summarises a load.
type Report struct {
	Documents []string
	Skipped   []string
}

// Loader reads local files into a session.
type Loader struct {
	extensions  []string
	maxFileSize int64
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithMaxFileSize sets the largest file that is read. Larger files are skipped.
func WithMaxFileSize(n int64) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.maxFileSize = n
		}
	}
}

// NewLoader creates a loader that picks files with the given extensions
// when walking directories.
func NewLoader(extensions []string, opts ...LoaderOption) *Loader {
	l := &Loader{maxFileSize: DefaultMaxFileSize}
	for _, ext := range extensions {
		l.extensions = append(l.extensions, strings.ToLower(ext))
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Files expands paths into files. Directories are walked recursively and
// contribute files with a known extension. Files named explicitly are
// always included.
func (l *Loader) Files(paths ...string) ([]File, error) {
	var files []File
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("root path error: %w", err)
		}
		if !info.IsDir() {
			files = append(files, File{Name: filepath.Base(p), Path: p})
			continue
		}

		walked, err := l.walk(p)
		if err != nil {
			return nil, err
		}
		files = append(files, walked...)
	}
	return files, nil
}

func (l *Loader) walk(root string) ([]File, error) {
	var files []File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if rel != "." && isHidden(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !l.Accepts(path) {
			return nil
		}
		files = append(files, File{Name: filepath.ToSlash(rel), Path: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Accepts reports whether a file found while walking would be loaded.
func (l *Loader) Accepts(path string) bool {
	if isHidden(filepath.Base(path)) {
		return false
	}
	return slices.Contains(l.extensions, strings.ToLower(filepath.Ext(path)))
}

// Load reads the files under paths into the session through sink.
// Files that are too large or fail to decode are skipped with a warning.
// A cancelled context stops the load.
func (l *Loader) Load(ctx context.Context, sink Ingester, sessionID string, paths ...string) (*Report, error) {
	files, err := l.Files(paths...)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, domain.ErrNoDocuments
	}

	report := &Report{}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		content, err := l.read(f.Path)
		if err != nil {
			logger.Warn("skipping %s: %v", f.Path, err)
			report.Skipped = append(report.Skipped, f.Name)
			continue
		}

		if _, err := sink.Ingest(ctx, sessionID, f.Name, content); err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) || ctx.Err() != nil {
				return report, err
			}
			logger.Warn("skipping %s: %v", f.Path, err)
			report.Skipped = append(report.Skipped, f.Name)
			continue
		}
		logger.Debug("loaded %s", f.Name)
		report.Documents = append(report.Documents, f.Name)
	}
	return report, nil
}

func (l *Loader) read(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > l.maxFileSize {
		return nil, fmt.Errorf("file is %d bytes, limit is %d", info.Size(), l.maxFileSize)
	}
	return os.ReadFile(path)
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
