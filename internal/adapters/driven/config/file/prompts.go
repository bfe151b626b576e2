package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/qagent/internal/core/ports/driven"
	"github.com/custodia-labs/qagent/internal/logger"
	"github.com/custodia-labs/qagent/internal/prompts"
)

var _ driven.PromptStore = (*PromptStore)(nil)

const promptReadme = `# qagent prompts

Templates used when generating test cases and Selenium scripts.

test_cases.txt
  %[1]d  number of test cases requested
  %[2]s  retrieved knowledge base context
  %[3]s  the user's request

script.txt
  %[1]s  the test case as JSON
  %[2]s  extracted page structure
  %[3]s  retrieved context

Edits apply to the next command, or immediately while 'qagent serve' is
running. A file missing any placeholder is ignored with a warning and the
built-in version is used. Delete a file to restore the built-in version.
`

// PromptStore serves templates from files in a directory, seeded with the
// built-in versions the first time a prompt is loaded. Loaded prompts are
// cached until Reload.
type PromptStore struct {
	dir string
	log logger.Component

	seedOnce sync.Once
	seedErr  error

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore returns a store over promptDir, or ~/.qagent/prompts
// when empty. Nothing touches the disk until the first Load.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := HomeDir()
		if err != nil {
			return nil, err
		}
		promptDir = filepath.Join(home, "prompts")
	}
	return &PromptStore{
		dir:   promptDir,
		log:   logger.For("prompts"),
		cache: make(map[string]string),
	}, nil
}

// Load returns the template for name. Missing, unreadable or incomplete
// files fall back to the built-in template.
func (s *PromptStore) Load(name string) (string, error) {
	s.seedOnce.Do(s.seed)

	s.mu.RLock()
	cached, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	tmpl, err := s.read(name)
	if err != nil {
		def, ok := prompts.Default(name)
		if !ok {
			if s.seedErr != nil {
				return "", fmt.Errorf("load prompt %q: prompt store init failed: %w", name, s.seedErr)
			}
			return "", fmt.Errorf("load prompt %q: %w", name, err)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("%v; using built-in %s prompt", err, name)
		}
		tmpl = def
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.cache[name]; ok {
		return existing, nil
	}
	s.cache[name] = tmpl
	return tmpl, nil
}

// Reload drops cached prompts so the next Load reads the files again.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

func (s *PromptStore) read(name string) (string, error) {
	path := filepath.Join(s.dir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	tmpl := strings.TrimSpace(string(data))
	if missing := prompts.Missing(name, tmpl); len(missing) > 0 {
		return "", fmt.Errorf("%s lacks %s", path, strings.Join(missing, ", "))
	}
	return tmpl, nil
}

// seed writes each built-in template and the README unless a file of that
// name already exists.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		s.seedErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	files := map[string]string{"README.md": promptReadme}
	for _, name := range prompts.Names() {
		files[name+".txt"], _ = prompts.Default(name)
	}
	for file, content := range files {
		path := filepath.Join(s.dir, file)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err == nil {
			_, err = f.WriteString(content)
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
		}
		if err != nil {
			s.seedErr = fmt.Errorf("write %s: %w", file, err)
			return
		}
	}
}
