package filesystem

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// Ensure Reader implements the interface.
var _ driven.FolderReader = (*Reader)(nil)

// MaxFileSize bounds the size of a single ingested file.
const MaxFileSize = 32 << 20

// Reader reads files from local folders.
type Reader struct{}

// NewReader creates a folder reader.
func NewReader() *Reader {
	return &Reader{}
}

// ReadFolder returns every visible regular file directly inside dir,
// ordered by file name.
func (r *Reader) ReadFolder(ctx context.Context, dir string) ([]domain.RawDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}

	// os.ReadDir sorts by file name already; keep the guarantee explicit.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	docs := make([]domain.RawDocument, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.Type().IsRegular() || isHidden(entry.Name()) {
			continue
		}

		doc, err := r.ReadFile(ctx, filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	return docs, nil
}

// ReadFile reads a single file.
func (r *Reader) ReadFile(ctx context.Context, path string) (*domain.RawDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrInvalidInput, path, MaxFileSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	name := filepath.Base(path)
	return &domain.RawDocument{
		URI:      path,
		MIMEType: detectMIMEType(name),
		Content:  content,
		ModTime:  info.ModTime(),
		Metadata: map[string]any{
			domain.MetaFileName: name,
			"extension":         strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."),
			"size":              info.Size(),
		},
	}, nil
}

// fallbackMIMETypes covers extensions the platform MIME table may not know.
var fallbackMIMETypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".eml":      "message/rfc822",
	".json":     "application/json",
	".pdf":      "application/pdf",
	".txt":      "text/plain",
	".text":     "text/plain",
}

// detectMIMEType returns the MIME type for a file name without parameters.
// Files without an extension are treated as plain text.
func detectMIMEType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return "text/plain"
	}
	if mimeType, ok := fallbackMIMETypes[ext]; ok {
		return mimeType
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		return "application/octet-stream"
	}
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return mimeType
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
