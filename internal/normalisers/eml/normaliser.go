// Package eml normalises RFC 822 email messages.
//
// The Message-ID header becomes source_id and the Date header timestamp,
// so a re-sent message replaces the earlier copy at query time. Replies
// carry the id of the message they answer as "thread".
package eml

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/mail"
	"strings"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/normalisers"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles EML (email) documents.
type Normaliser struct{}

// New creates a new EML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"message/rfc822"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// headers are the envelope fields copied into document metadata.
type headers struct {
	subject   string
	from      string
	to        string
	messageID string
	thread    string
}

func readHeaders(h mail.Header) headers {
	hs := headers{
		subject:   decodeHeader(h.Get("Subject")),
		from:      decodeHeader(h.Get("From")),
		to:        decodeHeader(h.Get("To")),
		messageID: messageID(h.Get("Message-ID")),
	}
	if id := messageID(h.Get("In-Reply-To")); id != "" {
		hs.thread = id
	} else if refs := strings.Fields(h.Get("References")); len(refs) > 0 {
		hs.thread = messageID(refs[0])
	}
	return hs
}

// Normalise converts an EML document to a normalised document. Quoted
// reply lines are dropped so a reply indexes only what it adds.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	msg, err := mail.ReadMessage(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrMalformedRecord, raw.URI, err)
	}

	hs := readHeaders(msg.Header)
	body, err := messageText(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrMalformedRecord, raw.URI, err)
	}

	content := dropQuoted(strings.ReplaceAll(body, "\r\n", "\n"))
	if hs.subject != "" {
		content = "Subject: " + hs.subject + ".\n" + content
	}

	doc := normalisers.NewDocument(raw, strings.TrimSpace(content))
	meta := doc.Metadata
	meta["format"] = "eml"
	if hs.messageID != "" {
		meta[domain.MetaSourceID] = hs.messageID
	}
	if sent, err := mail.ParseDate(msg.Header.Get("Date")); err == nil {
		meta[domain.MetaTimestamp] = normalisers.FormatTimestamp(sent)
	}
	for key, value := range map[string]string{
		"title":  hs.subject,
		"from":   hs.from,
		"to":     hs.to,
		"thread": hs.thread,
	} {
		if value != "" {
			meta[key] = value
		}
	}

	return &driven.NormaliseResult{Document: doc}, nil
}

// messageID strips the angle brackets from a message id header.
func messageID(header string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(header), "<>"))
}

// decodeHeader decodes RFC 2047 encoded words, returning the input when
// it cannot be decoded.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	decoded, err := new(mime.WordDecoder).DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// dropQuoted removes "> " quoted lines and the attribution line that
// introduces them.
func dropQuoted(body string) string {
	lines := strings.Split(body, "\n")
	kept := make([]string, 0, len(lines))
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, ">") {
			continue
		}
		if strings.HasSuffix(trimmed, "wrote:") && nextIsQuote(lines[i+1:]) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func nextIsQuote(lines []string) bool {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		return strings.HasPrefix(trimmed, ">")
	}
	return false
}
