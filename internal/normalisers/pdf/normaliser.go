// Package pdf extracts the text of PDF files with poppler's pdftotext.
// source_id is the file name and timestamp the modification time, as for
// plain text.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/normalisers"
)

var _ driven.Normaliser = (*Normaliser)(nil)

const tool = "pdftotext"

// maxTitleLen is the longest first line still taken as a title.
const maxTitleLen = 200

var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// CommandRunner runs an external command and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if errors.Is(err, exec.ErrNotFound) {
		return nil, ErrPDFToolNotFound
	}
	if err != nil && stderr.Len() > 0 {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, err
}

type Normaliser struct {
	runner CommandRunner
}

func New() *Normaliser {
	return NewWithRunner(execRunner{})
}

// NewWithRunner uses runner in place of executing pdftotext.
func NewWithRunner(runner CommandRunner) *Normaliser {
	return &Normaliser{runner: runner}
}

// CheckAvailable reports ErrPDFToolNotFound when pdftotext is not installed.
func CheckAvailable() error {
	if _, err := exec.LookPath(tool); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions tells the user how to get pdftotext.
func InstallInstructions() string {
	return `PDF files need pdftotext from poppler:
  macOS:          brew install poppler
  Debian/Ubuntu:  apt install poppler-utils
  Fedora:         dnf install poppler-utils`
}

func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

func (n *Normaliser) Priority() int {
	return 50
}

// Normalise writes the content to a temporary file, since pdftotext needs
// to seek, and joins the extracted pages with line breaks.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	tmp, err := os.CreateTemp("", "recall-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("staging pdf: %w", err)
	}
	defer os.Remove(tmp.Name())
	_, err = tmp.Write(raw.Content)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("staging pdf: %w", err)
	}

	out, err := n.runner.Run(ctx, tool, "-enc", "UTF-8", "-q", tmp.Name(), "-")
	if err != nil {
		return nil, fmt.Errorf("%s: pdftotext failed: %w", raw.URI, err)
	}

	text := strings.ReplaceAll(string(out), "\f", "\n")
	text = strings.TrimSpace(strings.ToValidUTF8(text, "�"))

	doc := normalisers.NewDocument(raw, text)
	doc.Metadata["format"] = "pdf"
	doc.Metadata["title"] = extractTitle(text, raw.URI)
	return &driven.NormaliseResult{Document: doc}, nil
}

// extractTitle returns the first non-empty line of a reasonable length, or
// the file name with separators turned into spaces.
func extractTitle(content, uri string) string {
	for line := range strings.Lines(content) {
		line = strings.TrimSpace(strings.ReplaceAll(line, "\x00", ""))
		if line != "" && len(line) <= maxTitleLen {
			return line
		}
	}
	name := strings.TrimSuffix(filepath.Base(uri), filepath.Ext(uri))
	return strings.Join(strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	}), " ")
}
