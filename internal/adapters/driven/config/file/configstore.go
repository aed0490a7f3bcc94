package file

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// FileName is the configuration file inside the configuration directory.
const FileName = "config.toml"

// EnvPrefix prefixes environment variables that override config keys.
// The key "llm.api_key" is overridden by RECALL_LLM_API_KEY.
const EnvPrefix = "RECALL_"

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps dotted keys in memory and writes them to a TOML file
// with one table per section. Environment variables take precedence over
// the file but are never written to it.
type ConfigStore struct {
	path   string
	getenv func(string) (string, bool)

	mu     sync.RWMutex
	values map[string]any
}

// DefaultDir is ~/.recall.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, ".recall"), nil
}

// NewConfigStore opens the configuration of dir, DefaultDir when empty.
// A missing file is an empty configuration.
func NewConfigStore(dir string) (*ConfigStore, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	s := &ConfigStore{
		path:   filepath.Join(dir, FileName),
		getenv: os.LookupEnv,
		values: map[string]any{},
	}
	if err := s.read(); err != nil {
		return nil, err
	}
	return s, nil
}

// EnvKey returns the environment variable overriding key.
func EnvKey(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Lookup returns the value of key. An environment override is a string.
func (s *ConfigStore) Lookup(key string) (any, bool) {
	if v, ok := s.getenv(EnvKey(key)); ok && v != "" {
		return v, true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *ConfigStore) String(key string) (string, bool) {
	v, ok := s.Lookup(key)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// Int accepts TOML integers and numeric strings.
func (s *ConfigStore) Int(key string) (int, bool) {
	v, ok := s.Lookup(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int:
		return n, true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}

// Bool accepts TOML booleans and strings strconv.ParseBool understands.
func (s *ConfigStore) Bool(key string) (bool, bool) {
	v, ok := s.Lookup(key)
	if !ok {
		return false, false
	}
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return parsed, err == nil
	}
	return false, false
}

func (s *ConfigStore) Set(key string, value any) error {
	return s.Update(map[string]any{key: value})
}

func (s *ConfigStore) Update(values map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.values)
	maps.Copy(next, values)
	if err := s.write(next); err != nil {
		return err
	}
	s.values = next
	return nil
}

func (s *ConfigStore) Path() string {
	return s.path
}

func (s *ConfigStore) read() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", s.path, err)
	}

	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("parsing %s: %w", s.path, err)
	}
	s.values = flatten(tree, "", map[string]any{})
	return nil
}

// write replaces the file through a rename so readers never see a
// partial configuration.
func (s *ConfigStore) write(values map[string]any) error {
	data, err := toml.Marshal(nest(values))
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), FileName+".*")
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// flatten turns {"a": {"b": 1}} into {"a.b": 1}.
func flatten(tree map[string]any, prefix string, into map[string]any) map[string]any {
	for k, v := range tree {
		if prefix != "" {
			k = prefix + "." + k
		}
		if table, ok := v.(map[string]any); ok {
			flatten(table, k, into)
			continue
		}
		into[k] = v
	}
	return into
}

// nest is the inverse of flatten. Keys are placed in order so a value
// precedes the keys below it; such keys stay at the top level under
// their dotted name.
func nest(flat map[string]any) map[string]any {
	tree := map[string]any{}
	for _, key := range slices.Sorted(maps.Keys(flat)) {
		if !place(tree, strings.Split(key, "."), flat[key]) {
			tree[key] = flat[key]
		}
	}
	return tree
}

func place(node map[string]any, path []string, v any) bool {
	for _, part := range path[:len(path)-1] {
		child, exists := node[part]
		if !exists {
			child = map[string]any{}
			node[part] = child
		}
		table, ok := child.(map[string]any)
		if !ok {
			return false
		}
		node = table
	}
	node[path[len(path)-1]] = v
	return true
}
