package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// ErrUnknownPrompt is returned for a name with neither a file nor a default.
var ErrUnknownPrompt = errors.New("unknown prompt")

// DefaultPrompts are used when a prompt file is missing or empty.
var DefaultPrompts = map[string]string{
	driven.PromptAnswerSystem:  domain.DefaultAnswerSystemPrompt,
	driven.PromptAnswerContext: domain.DefaultAnswerContextPrompt,
}

const promptReadme = `# Recall prompts

answer_system.txt is the system message of every answer.

answer_context.txt is the last user turn. It takes two %s placeholders:
the retrieved documents first, then the query. A template without
exactly two placeholders is ignored in favour of the built-in one.

Edits apply to the next answer, also in a running 'recall serve'.
Delete a file to restore the built-in prompt.
`

var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore serves templates from <dir>/<name>.txt. A file is read again
// when its modification time or size changes.
type PromptStore struct {
	dir string

	mu    sync.Mutex
	cache map[string]cachedPrompt
}

type cachedPrompt struct {
	text    string
	modTime time.Time
	size    int64
}

// NewPromptStore creates a store for dir. It does no I/O.
func NewPromptStore(dir string) *PromptStore {
	return &PromptStore{dir: dir, cache: map[string]cachedPrompt{}}
}

// Dir is the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// WriteDefaults creates the directory with a file for every default prompt
// and a README. Existing files are left alone.
func (s *PromptStore) WriteDefaults() error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating prompt directory: %w", err)
	}

	files := map[string]string{"README.md": promptReadme}
	for name, text := range DefaultPrompts {
		files[name+".txt"] = text + "\n"
	}
	for name, content := range files {
		f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		_, err = f.WriteString(content)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}

// Load returns the trimmed content of the prompt file, or the default
// when the file is missing or blank.
func (s *PromptStore) Load(name string) (string, error) {
	def, hasDefault := DefaultPrompts[name]
	path := filepath.Join(s.dir, name+".txt")

	info, err := os.Stat(path)
	if err != nil {
		if hasDefault {
			return def, nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrUnknownPrompt, name)
		}
		return "", fmt.Errorf("loading prompt %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.cache[name]; ok && c.modTime.Equal(info.ModTime()) && c.size == info.Size() {
		return c.orDefault(def), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if hasDefault {
			return def, nil
		}
		return "", fmt.Errorf("loading prompt %s: %w", name, err)
	}
	c := cachedPrompt{text: strings.TrimSpace(string(data)), modTime: info.ModTime(), size: info.Size()}
	s.cache[name] = c
	return c.orDefault(def), nil
}

func (c cachedPrompt) orDefault(def string) string {
	if c.text == "" {
		return def
	}
	return c.text
}
