package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/core/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReader_ReadFolder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.json", `{"source_id":"b"}`)
	writeFile(t, dir, "a.md", "# A")
	writeFile(t, dir, ".hidden", "secret")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "in_database"), 0o750))
	writeFile(t, filepath.Join(dir, "in_database"), "old.json", "{}")

	docs, err := NewReader().ReadFolder(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, filepath.Join(dir, "a.md"), docs[0].URI)
	assert.Equal(t, "text/markdown", docs[0].MIMEType)
	assert.Equal(t, "# A", string(docs[0].Content))
	assert.Equal(t, "a.md", docs[0].Metadata[domain.MetaFileName])

	assert.Equal(t, "application/json", docs[1].MIMEType)
	assert.Equal(t, "json", docs[1].Metadata["extension"])
	assert.False(t, docs[1].ModTime.IsZero())
}

func TestReader_ReadFolder_Empty(t *testing.T) {
	docs, err := NewReader().ReadFolder(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestReader_ReadFolder_Missing(t *testing.T) {
	_, err := NewReader().ReadFolder(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "root path error")
}

func TestReader_ReadFolder_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReader().ReadFolder(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReader_ReadFile_Directory(t *testing.T) {
	_, err := NewReader().ReadFile(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"README", "text/plain"},
		{"notes.txt", "text/plain"},
		{"notes.md", "text/markdown"},
		{"notes.markdown", "text/markdown"},
		{"NOTES.MD", "text/markdown"},
		{"mail.eml", "message/rfc822"},
		{"record.json", "application/json"},
		{"report.PDF", "application/pdf"},
		{"blob.zzzunknown", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, detectMIMEType(tt.name))
		})
	}
}

func TestDetectMIMEType_StripsParameters(t *testing.T) {
	// .html maps to "text/html; charset=utf-8" on most platforms.
	assert.NotContains(t, detectMIMEType("page.html"), ";")
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"file.txt", false},
		{".env", true},
		{"dir/.git/config", true},
		{"./file.txt", false},
		{"../file.txt", false},
		{"/tmp/staging/record.json", false},
		{"/tmp/.staging/record.json", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, isHidden(tt.path))
		})
	}
}
