package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, dir string) *ConfigStore {
	t.Helper()
	s, err := NewConfigStore(dir)
	require.NoError(t, err)
	s.getenv = func(string) (string, bool) { return "", false }
	return s
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o600))
}

func TestNewConfigStore_MissingFileIsEmpty(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "config")
	s := newStore(t, dir)

	assert.Equal(t, filepath.Join(dir, FileName), s.Path())
	assert.DirExists(t, dir)
	assert.NoFileExists(t, s.Path(), "nothing is written until a value is set")

	_, ok := s.Lookup("index.name")
	assert.False(t, ok)
}

func TestNewConfigStore_Errors(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	_, err := NewConfigStore(filepath.Join(blocker, "sub"))
	assert.ErrorContains(t, err, "creating config directory")

	dir := t.TempDir()
	writeConfig(t, dir, "[index\nname = ")
	_, err = NewConfigStore(dir)
	assert.ErrorContains(t, err, "parsing")
}

func TestConfigStore_ReadsTables(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[index]
name = "mail"
window_size = 0

[retrieval]
top_k = 8
shared_missing_source_id = true

[scheduler]
poll_interval = "500ms"
`)
	s := newStore(t, dir)

	name, ok := s.String("index.name")
	assert.True(t, ok)
	assert.Equal(t, "mail", name)

	window, ok := s.Int("index.window_size")
	assert.True(t, ok, "an explicit zero is set")
	assert.Zero(t, window)

	topK, _ := s.Int("retrieval.top_k")
	assert.Equal(t, 8, topK)

	shared, ok := s.Bool("retrieval.shared_missing_source_id")
	assert.True(t, ok)
	assert.True(t, shared)

	interval, _ := s.String("scheduler.poll_interval")
	assert.Equal(t, "500ms", interval)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	s := newStore(t, t.TempDir())
	require.NoError(t, s.Update(map[string]any{
		"str":     "hello",
		"num":     42,
		"numstr":  " 7 ",
		"flag":    true,
		"flagstr": "false",
		"list":    []string{"a"},
	}))

	tests := []struct {
		key     string
		wantStr bool
		wantInt int
		intOK   bool
		boolOK  bool
	}{
		{key: "str", wantStr: true},
		{key: "num", wantInt: 42, intOK: true},
		{key: "numstr", wantStr: true, wantInt: 7, intOK: true},
		{key: "flag", boolOK: true},
		{key: "flagstr", wantStr: true, boolOK: true},
		{key: "list"},
		{key: "missing"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			_, ok := s.String(tt.key)
			assert.Equal(t, tt.wantStr, ok, "String")

			n, ok := s.Int(tt.key)
			assert.Equal(t, tt.intOK, ok, "Int")
			assert.Equal(t, tt.wantInt, n)

			_, ok = s.Bool(tt.key)
			assert.Equal(t, tt.boolOK, ok, "Bool")
		})
	}
}

func TestConfigStore_UpdatePersists(t *testing.T) {
	dir := t.TempDir()
	s := newStore(t, dir)

	require.NoError(t, s.Update(map[string]any{
		"index.name":      "records",
		"retrieval.top_k": 5,
		"llm.provider":    "ollama",
	}))
	require.NoError(t, s.Set("index.name", "mail"))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[index]")
	assert.Contains(t, string(data), "[retrieval]")
	assert.NotContains(t, string(data), "records")

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")

	reopened := newStore(t, dir)
	name, _ := reopened.String("index.name")
	assert.Equal(t, "mail", name)
	topK, _ := reopened.Int("retrieval.top_k")
	assert.Equal(t, 5, topK)
	provider, _ := reopened.String("llm.provider")
	assert.Equal(t, "ollama", provider)
}

func TestConfigStore_FailedUpdateKeepsValues(t *testing.T) {
	s := newStore(t, t.TempDir())
	require.NoError(t, s.Set("index.name", "mail"))

	err := s.Update(map[string]any{
		"index.name": "other",
		"bad":        make(chan int),
	})
	require.Error(t, err)

	name, _ := s.String("index.name")
	assert.Equal(t, "mail", name)
	_, ok := s.Lookup("bad")
	assert.False(t, ok)
}

func TestConfigStore_EnvironmentOverride(t *testing.T) {
	s := newStore(t, t.TempDir())
	require.NoError(t, s.Update(map[string]any{"llm.api_key": "from-file", "retrieval.top_k": 5}))

	env := map[string]string{
		"RECALL_LLM_API_KEY":     "from-env",
		"RECALL_RETRIEVAL_TOP_K": "9",
		"RECALL_INDEX_NAME":      "",
	}
	s.getenv = func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	key, _ := s.String("llm.api_key")
	assert.Equal(t, "from-env", key)
	topK, _ := s.Int("retrieval.top_k")
	assert.Equal(t, 9, topK)
	_, ok := s.Lookup("index.name")
	assert.False(t, ok, "an empty variable is no override")

	require.NoError(t, s.Set("index.name", "mail"))
	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "from-file")
	assert.NotContains(t, string(data), "from-env")
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	s := newStore(t, t.TempDir())

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Set(fmt.Sprintf("worker.k%d", i), i))
		}()
		go func() {
			defer wg.Done()
			s.Int("worker.k0")
		}()
	}
	wg.Wait()

	for i := range 8 {
		n, ok := s.Int(fmt.Sprintf("worker.k%d", i))
		assert.True(t, ok)
		assert.Equal(t, i, n)
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "RECALL_LLM_API_KEY", EnvKey("llm.api_key"))
	assert.Equal(t, "RECALL_NAME", EnvKey("name"))
}

func TestNestAndFlatten(t *testing.T) {
	flat := map[string]any{
		"a":     1,
		"a.b":   2,
		"x.y.z": "deep",
		"x.w":   true,
	}

	tree := nest(flat)
	assert.Equal(t, map[string]any{
		"a":   1,
		"a.b": 2,
		"x": map[string]any{
			"w": true,
			"y": map[string]any{"z": "deep"},
		},
	}, tree)

	assert.Equal(t, map[string]any{"x.w": true, "x.y.z": "deep"},
		flatten(map[string]any{"x": tree["x"]}, "", map[string]any{}))
}
