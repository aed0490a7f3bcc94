// Package markdown normalises Markdown files.
//
// A leading YAML front matter block may set source_id and timestamp;
// otherwise the file name and modification time are used.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

// frontMatter holds the recognised front matter keys.
type frontMatter struct {
	SourceID  string `yaml:"source_id"`
	Timestamp any    `yaml:"timestamp"`
	Title     string `yaml:"title"`
}

// Normalise converts a markdown document to a normalised document with
// formatting stripped.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	fm, body, err := splitFrontMatter(raw.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: front matter: %w", domain.ErrMalformedRecord, raw.URI, err)
	}

	doc := normalisers.NewDocument(raw, stripMarkdown(string(body)))
	doc.Metadata["format"] = "markdown"

	title := fm.Title
	if title == "" {
		title = extractMarkdownTitle(string(body))
	}
	if title != "" {
		doc.Metadata["title"] = title
	}
	if fm.SourceID != "" {
		doc.Metadata[domain.MetaSourceID] = fm.SourceID
	}
	switch ts := fm.Timestamp.(type) {
	case nil:
	case time.Time:
		doc.Metadata[domain.MetaTimestamp] = normalisers.FormatTimestamp(ts)
	case int:
		doc.Metadata[domain.MetaTimestamp] = float64(ts)
	default:
		doc.Metadata[domain.MetaTimestamp] = ts
	}

	return &driven.NormaliseResult{Document: doc}, nil
}

var frontMatterDelim = []byte("---")

// splitFrontMatter separates a leading "---" delimited YAML block from
// the body. Content without front matter is returned unchanged.
func splitFrontMatter(content []byte) (frontMatter, []byte, error) {
	var fm frontMatter

	trimmed := bytes.TrimPrefix(content, []byte("\ufeff"))
	if !bytes.HasPrefix(trimmed, frontMatterDelim) {
		return fm, content, nil
	}

	rest := trimmed[len(frontMatterDelim):]
	nl := bytes.IndexByte(rest, '\n')
	if nl < 0 || len(bytes.TrimSpace(rest[:nl])) != 0 {
		// "---" followed by text is a horizontal rule, not front matter.
		return fm, content, nil
	}
	rest = rest[nl+1:]

	end := bytes.Index(rest, append([]byte("\n"), frontMatterDelim...))
	var block, body []byte
	switch {
	case bytes.HasPrefix(rest, frontMatterDelim):
		block, body = nil, rest[len(frontMatterDelim):]
	case end >= 0:
		block, body = rest[:end], rest[end+1+len(frontMatterDelim):]
	default:
		return fm, content, nil
	}

	if err := yaml.Unmarshal(block, &fm); err != nil {
		return fm, nil, err
	}
	return fm, bytes.TrimLeft(body, "\r\n"), nil
}

// extractMarkdownTitle returns the text of the first H1 heading.
func extractMarkdownTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	return ""
}

// strip rules run in order: code goes first so its contents are never
// mistaken for emphasis or links.
var strip = []struct {
	re   *regexp.Regexp
	with string
}{
	{regexp.MustCompile("(?s)```[^`]*```"), ""},
	{regexp.MustCompile("`[^`]+`"), ""},
	{regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`), ""},
	{regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`), "$1"},
	{regexp.MustCompile(`(?m)^#{1,6}\s+`), ""},
	{regexp.MustCompile(`\*\*|__|\*`), ""},
	{regexp.MustCompile(`_`), " "},
	{regexp.MustCompile(`(?m)^>\s*`), ""},
	{regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`), ""},
	{regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+\.)\s+`), ""},
	{regexp.MustCompile(`\n{3,}`), "\n\n"},
}

// stripMarkdown leaves the prose of a Markdown document.
func stripMarkdown(content string) string {
	for _, r := range strip {
		content = r.re.ReplaceAllString(content, r.with)
	}
	return strings.TrimSpace(content)
}
