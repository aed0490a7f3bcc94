package eml

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/core/domain"
)

func rawEmail(content string) *domain.RawDocument {
	return &domain.RawDocument{
		URI:      "/staging/message.eml",
		MIMEType: "message/rfc822",
		Content:  []byte(content),
		ModTime:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Metadata: map[string]any{domain.MetaFileName: "message.eml", "folder": "inbox"},
	}
}

func normalise(t *testing.T, content string) domain.Document {
	t.Helper()
	result, err := New().Normalise(context.Background(), rawEmail(content))
	require.NoError(t, err)
	return result.Document
}

func TestNormaliser_Claims(t *testing.T) {
	n := New()
	assert.Equal(t, []string{"message/rfc822"}, n.SupportedMIMETypes())
	assert.Equal(t, 50, n.Priority())
}

func TestNormalise_Headers(t *testing.T) {
	doc := normalise(t, "From: Ann <ann@example.com>\r\n"+
		"To: ops@example.com\r\n"+
		"Subject: Boiler service\r\n"+
		"Message-ID: <svc-9@example.com>\r\n"+
		"Date: Mon, 01 Jan 2024 10:00:00 +0200\r\n"+
		"\r\n"+
		"The engineer comes on Tuesday.\r\n"+
		"Leave the side door open.\r\n")

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "/staging/message.eml", doc.URI)
	assert.Equal(t, "Subject: Boiler service.\nThe engineer comes on Tuesday.\nLeave the side door open.", doc.Content)
	assert.Equal(t, "svc-9@example.com", doc.Metadata[domain.MetaSourceID])
	assert.Equal(t, "2024-01-01T08:00:00Z", doc.Metadata[domain.MetaTimestamp])
	assert.Equal(t, "Boiler service", doc.Metadata["title"])
	assert.Equal(t, "Ann <ann@example.com>", doc.Metadata["from"])
	assert.Equal(t, "ops@example.com", doc.Metadata["to"])
	assert.Equal(t, "eml", doc.Metadata["format"])
	assert.Equal(t, "message/rfc822", doc.Metadata["mime_type"])
	assert.Equal(t, "inbox", doc.Metadata["folder"])
	assert.NotContains(t, doc.Metadata, "thread")
}

func TestNormalise_FileFallbacks(t *testing.T) {
	doc := normalise(t, "From: ann@example.com\n\nNo subject, id or date.\n")

	assert.Equal(t, "No subject, id or date.", doc.Content)
	assert.Equal(t, "message.eml", doc.Metadata[domain.MetaSourceID])
	assert.Equal(t, "2024-06-01T12:00:00Z", doc.Metadata[domain.MetaTimestamp])
	assert.NotContains(t, doc.Metadata, "title")
}

func TestNormalise_Errors(t *testing.T) {
	_, err := New().Normalise(context.Background(), rawEmail("not a valid email"))
	assert.ErrorIs(t, err, domain.ErrMalformedRecord)

	_, err = New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_Bodies(t *testing.T) {
	tests := []struct {
		name    string
		eml     string
		want    []string
		notWant []string
	}{
		{
			name:    "html only",
			eml:     "Content-Type: text/html\n\n<html><body><h1>Hello</h1><p>This is <b>HTML</b> content.</p></body></html>\n",
			want:    []string{"Hello", "This is HTML content."},
			notWant: []string{"<h1>", "<p>"},
		},
		{
			name: "alternative prefers plain",
			eml: "Content-Type: multipart/alternative; boundary=\"b1\"\n\n" +
				"--b1\nContent-Type: text/plain\n\nPlain version.\n" +
				"--b1\nContent-Type: text/html\n\n<p>HTML version</p>\n" +
				"--b1--\n",
			want:    []string{"Plain version."},
			notWant: []string{"HTML version"},
		},
		{
			name: "nested multipart",
			eml: "Content-Type: multipart/mixed; boundary=\"outer\"\n\n" +
				"--outer\nContent-Type: multipart/alternative; boundary=\"inner\"\n\n" +
				"--inner\nContent-Type: text/plain\n\nInner text.\n--inner--\n" +
				"--outer\nContent-Type: image/png\n\nPNGDATA\n" +
				"--outer--\n",
			want:    []string{"Inner text."},
			notWant: []string{"PNGDATA"},
		},
		{
			name:    "multipart without boundary",
			eml:     "Content-Type: multipart/mixed\n\nlost\n",
			notWant: []string{"lost"},
		},
		{
			name: "unparsable content type reads as text",
			eml:  "Content-Type: ;;;\n\nStill readable.\n",
			want: []string{"Still readable."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := normalise(t, "From: a@example.com\n"+tt.eml)
			for _, s := range tt.want {
				assert.Contains(t, doc.Content, s)
			}
			for _, s := range tt.notWant {
				assert.NotContains(t, doc.Content, s)
			}
		})
	}
}

func TestDecodeHeader(t *testing.T) {
	for in, want := range map[string]string{
		"":                             "",
		"Simple Subject":               "Simple Subject",
		"=?UTF-8?B?SGVsbG8gV29ybGQ=?=": "Hello World",
		"=?UTF-8?Q?Hello_World?=":      "Hello World",
		"=?x-unknown?Q?kept_as_is?=":   "=?x-unknown?Q?kept_as_is?=",
	} {
		assert.Equal(t, want, decodeHeader(in), in)
	}
}

func TestMessageID(t *testing.T) {
	assert.Equal(t, "abc@host", messageID(" <abc@host> "))
	assert.Equal(t, "plain", messageID("plain"))
	assert.Empty(t, messageID(""))
}

func TestNormalise_ReplyDropsQuotedText(t *testing.T) {
	emlContent := "From: b@example.com\r\n" +
		"Subject: Re: Lunch\r\n" +
		"Message-ID: <reply-1@example.com>\r\n" +
		"In-Reply-To: <lunch-1@example.com>\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"Noon works for me.\r\n" +
		"\r\n" +
		"On Mon, Alice wrote:\r\n" +
		"> Lunch at eleven?\r\n"

	result, err := New().Normalise(context.Background(), rawEmail(emlContent))
	require.NoError(t, err)

	doc := result.Document
	assert.Equal(t, "Subject: Re: Lunch.\nNoon works for me.", doc.Content)
	assert.Equal(t, "reply-1@example.com", doc.Metadata[domain.MetaSourceID])
	assert.Equal(t, "lunch-1@example.com", doc.Metadata["thread"])
}

func TestNormalise_ThreadFromReferences(t *testing.T) {
	emlContent := "From: b@example.com\n" +
		"References: <root@example.com> <middle@example.com>\n" +
		"\n" +
		"Body.\n"

	result, err := New().Normalise(context.Background(), rawEmail(emlContent))
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", result.Document.Metadata["thread"])
}

func TestNormalise_TransferEncodings(t *testing.T) {
	emlContent := `From: sender@example.com
Subject: Encoded
Content-Type: multipart/mixed; boundary="outer"

--outer
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: quoted-printable

The caf=C3=A9 opens at nine.
--outer
Content-Type: text/plain
Content-Transfer-Encoding: base64

VGhlIG1lZXRp
bmcgaXMgb24gRnJpZGF5Lg==
--outer
Content-Type: text/plain
Content-Disposition: attachment; filename="notes.txt"

Attached notes.
--outer--
`

	result, err := New().Normalise(context.Background(), rawEmail(emlContent))
	require.NoError(t, err)

	content := result.Document.Content
	assert.Contains(t, content, "The café opens at nine.")
	assert.Contains(t, content, "The meeting is on Friday.")
	assert.NotContains(t, content, "Attached notes.")
}
