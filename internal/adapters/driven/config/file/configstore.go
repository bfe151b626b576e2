package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/qagent/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore persists settings to config.toml. Dot keys map to tables on
// disk, so "llm.model" is written as model under [llm].
type ConfigStore struct {
	*memory.ConfigStore

	// writeMu serialises read-modify-write cycles against the file.
	writeMu  sync.Mutex
	filePath string
}

// NewConfigStore opens configDir/config.toml, creating the directory if
// needed. An empty configDir means ~/.qagent.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		dir, err := HomeDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	s := &ConfigStore{
		ConfigStore: memory.NewConfigStore(),
		filePath:    filepath.Join(configDir, "config.toml"),
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Set writes value through to disk. On failure the file and the
// in-memory values are left as they were.
func (s *ConfigStore) Set(key string, value any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := s.Snapshot()
	next[key] = value
	if err := s.write(next); err != nil {
		return err
	}
	s.Replace(next)
	return nil
}

// Load replaces the in-memory values with the file's contents. A missing
// file loads as empty.
func (s *ConfigStore) Load() error {
	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		s.Replace(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var tables map[string]any
	if err := toml.Unmarshal(data, &tables); err != nil {
		return fmt.Errorf("parse %s: %w", s.filePath, err)
	}
	s.Replace(flattenMap(tables, ""))
	return nil
}

// Path returns the config file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// write replaces the file atomically so a crash never leaves it
// half-written.
func (s *ConfigStore) write(values map[string]any) error {
	tables, err := nestMap(values)
	if err != nil {
		return err
	}
	data, err := toml.Marshal(tables)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.filePath), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.filePath); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// flattenMap turns {"a": {"b": 1}} into {"a.b": 1}.
func flattenMap(m map[string]any, prefix string) map[string]any {
	out := make(map[string]any)
	for key, value := range m {
		if prefix != "" {
			key = prefix + "." + key
		}
		if table, ok := value.(map[string]any); ok {
			for k, v := range flattenMap(table, key) {
				out[k] = v
			}
			continue
		}
		out[key] = value
	}
	return out
}

// nestMap turns {"a.b": 1} into {"a": {"b": 1}}. A key that is both a
// value and a table prefix is an error.
func nestMap(flat map[string]any) (map[string]any, error) {
	root := make(map[string]any)
	for key, value := range flat {
		parts := strings.Split(key, ".")
		table := root
		for _, part := range parts[:len(parts)-1] {
			existing, present := table[part]
			next, isTable := existing.(map[string]any)
			if present && !isTable {
				return nil, fmt.Errorf("config key %q conflicts with a value at %q", key, part)
			}
			if !present {
				next = make(map[string]any)
				table[part] = next
			}
			table = next
		}

		leaf := parts[len(parts)-1]
		if _, taken := table[leaf]; taken {
			return nil, fmt.Errorf("config key %q conflicts with a table", key)
		}
		table[leaf] = value
	}
	return root, nil
}

// HomeDir returns ~/.qagent.
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".qagent"), nil
}
