package pdf

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// fakeRunner records the call and returns canned output.
type fakeRunner struct {
	output []byte
	err    error

	name    string
	args    []string
	content []byte
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.name, f.args = name, args
	// the input file is the argument before "-"
	if len(args) >= 2 {
		f.content, _ = os.ReadFile(args[len(args)-2])
	}
	return f.output, f.err
}

func pdfDocument() *domain.RawDocument {
	return &domain.RawDocument{
		URI:      "/staging/quarterly_report.pdf",
		MIMEType: "application/pdf",
		Content:  []byte("%PDF-1.4 fake"),
		ModTime:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestSupportedMIMETypes(t *testing.T) {
	assert.Equal(t, []string{"application/pdf"}, New().SupportedMIMETypes())
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_ExtractsText(t *testing.T) {
	runner := &fakeRunner{output: []byte("Quarterly Report\n\nRevenue grew.\fPage two.\n")}

	result, err := NewWithRunner(runner).Normalise(context.Background(), pdfDocument())
	require.NoError(t, err)

	assert.Equal(t, "pdftotext", runner.name)
	assert.Equal(t, "-", runner.args[len(runner.args)-1])
	assert.Equal(t, []byte("%PDF-1.4 fake"), runner.content, "the content is handed over as a file")

	doc := result.Document
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "Quarterly Report\n\nRevenue grew.\nPage two.", doc.Content)
	assert.Equal(t, "quarterly_report.pdf", doc.Metadata[domain.MetaSourceID])
	assert.Equal(t, "2024-03-01T10:00:00Z", doc.Metadata[domain.MetaTimestamp])
	assert.Equal(t, "Quarterly Report", doc.Metadata["title"])
	assert.Equal(t, "pdf", doc.Metadata["format"])
	assert.Equal(t, "application/pdf", doc.Metadata["mime_type"])
}

func TestNormalise_RemovesTemporaryFile(t *testing.T) {
	runner := &fakeRunner{output: []byte("text")}

	_, err := NewWithRunner(runner).Normalise(context.Background(), pdfDocument())
	require.NoError(t, err)

	_, statErr := os.Stat(runner.args[len(runner.args)-2])
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestNormalise_RunnerError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("syntax error")}

	result, err := NewWithRunner(runner).Normalise(context.Background(), pdfDocument())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
	assert.Contains(t, err.Error(), "quarterly_report.pdf")
	assert.Nil(t, result)
}

func TestNormalise_ToolMissing(t *testing.T) {
	runner := &fakeRunner{err: ErrPDFToolNotFound}

	_, err := NewWithRunner(runner).Normalise(context.Background(), pdfDocument())
	assert.ErrorIs(t, err, ErrPDFToolNotFound)
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		uri     string
		want    string
	}{
		{"first line", "Document Title\n\nBody.", "/doc.pdf", "Document Title"},
		{"skips blank lines", "\n\n  \nActual Title\nBody", "/doc.pdf", "Actual Title"},
		{"skips long lines", strings.Repeat("x", 250) + "\nShort Title", "/doc.pdf", "Short Title"},
		{"falls back to file name", "", "/path/to/my_document-v2.pdf", "my document v2"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractTitle(tc.content, tc.uri))
		})
	}
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "pdftotext")
	assert.Contains(t, instructions, "brew install poppler")
	assert.Contains(t, instructions, "apt install poppler-utils")
}

func TestCheckAvailable(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	assert.ErrorIs(t, CheckAvailable(), ErrPDFToolNotFound)
}
