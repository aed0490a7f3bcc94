package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// writePrompt writes a prompt file with an explicit modification time, so
// a rewrite within the file system's time resolution is still noticed.
func writePrompt(t *testing.T, dir, name, content string, mod time.Time) {
	t.Helper()
	path := filepath.Join(dir, name+".txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestPromptStore_DefaultsWithoutFiles(t *testing.T) {
	s := NewPromptStore(filepath.Join(t.TempDir(), "missing"))

	got, err := s.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAnswerSystemPrompt, got)

	got, err = s.Load(driven.PromptAnswerContext)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAnswerContextPrompt, got)

	_, err = s.Load("summary")
	assert.ErrorIs(t, err, ErrUnknownPrompt)
	assert.NoDirExists(t, s.Dir(), "loading does not create the directory")
}

func TestPromptStore_WriteDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")
	s := NewPromptStore(dir)
	require.NoError(t, s.WriteDefaults())

	for _, name := range []string{"answer_system.txt", "answer_context.txt", "README.md"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), name)
	}

	data, err := os.ReadFile(filepath.Join(dir, "answer_context.txt"))
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAnswerContextPrompt+"\n", string(data))

	got, err := s.Load(driven.PromptAnswerContext)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAnswerContextPrompt, got, "the trailing newline is trimmed")
}

func TestPromptStore_WriteDefaultsKeepsEdits(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, driven.PromptAnswerSystem, "Answer in French.", time.Now())

	s := NewPromptStore(dir)
	require.NoError(t, s.WriteDefaults())
	require.NoError(t, s.WriteDefaults(), "running twice is harmless")

	got, err := s.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)
	assert.Equal(t, "Answer in French.", got)
}

func TestPromptStore_WriteDefaultsError(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	err := NewPromptStore(filepath.Join(blocker, "prompts")).WriteDefaults()
	assert.ErrorContains(t, err, "creating prompt directory")
}

func TestPromptStore_PicksUpEdits(t *testing.T) {
	dir := t.TempDir()
	s := NewPromptStore(dir)
	mod := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	writePrompt(t, dir, driven.PromptAnswerSystem, "  Be brief.\n", mod)
	got, err := s.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)
	assert.Equal(t, "Be brief.", got)

	writePrompt(t, dir, driven.PromptAnswerSystem, "Be thorough.", mod.Add(time.Second))
	got, err = s.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)
	assert.Equal(t, "Be thorough.", got)

	writePrompt(t, dir, driven.PromptAnswerSystem, "\n\n", mod.Add(2*time.Second))
	got, err = s.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAnswerSystemPrompt, got, "a blank file restores the default")

	require.NoError(t, os.Remove(filepath.Join(dir, driven.PromptAnswerSystem+".txt")))
	got, err = s.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAnswerSystemPrompt, got)
}

func TestPromptStore_CachesUnchangedFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewPromptStore(dir)
	mod := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	writePrompt(t, dir, driven.PromptAnswerSystem, "first", mod)
	_, err := s.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)

	// Same size and modification time: the cached text is served.
	writePrompt(t, dir, driven.PromptAnswerSystem, "FIRST", mod)
	got, err := s.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)
	assert.Equal(t, "first", got)
}

func TestPromptStore_CustomPromptWithoutDefault(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "summary", "Summarise %s", time.Now())

	got, err := NewPromptStore(dir).Load("summary")
	require.NoError(t, err)
	assert.Equal(t, "Summarise %s", got)
}

func TestPromptStore_ConcurrentLoads(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, driven.PromptAnswerContext, "DOCS %s Q %s", time.Now())
	s := NewPromptStore(dir)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := s.Load(driven.PromptAnswerContext)
			assert.NoError(t, err)
			assert.Equal(t, "DOCS %s Q %s", got)
		}()
	}
	wg.Wait()
}
