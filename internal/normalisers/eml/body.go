package eml

import (
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"

	"github.com/custodia-labs/recall/internal/normalisers"
)

// maxDepth bounds nested multipart recursion.
const maxDepth = 8

// partText is the readable content found in a MIME tree.
type partText struct {
	plain []string
	html  []string
}

// best prefers plain text parts over HTML ones.
func (p *partText) best() string {
	if len(p.plain) > 0 {
		return strings.Join(p.plain, "\n")
	}
	return strings.Join(p.html, "\n")
}

// messageText extracts the readable body of msg.
func messageText(msg *mail.Message) (string, error) {
	var text partText
	header := textproto.MIMEHeader(msg.Header)
	if err := text.collect(header, msg.Body, 0); err != nil {
		return "", err
	}
	return text.best(), nil
}

// collect walks one MIME entity. Bodies with an unparsable content type
// are read as plain text.
func (p *partText) collect(header textproto.MIMEHeader, body io.Reader, depth int) error {
	contentType := header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		if depth >= maxDepth || params["boundary"] == "" {
			return nil
		}
		return p.collectParts(body, params["boundary"], depth+1)
	}
	if mediaType != "text/plain" && mediaType != "text/html" {
		return nil
	}
	if disposition, _, err := mime.ParseMediaType(header.Get("Content-Disposition")); err == nil && disposition == "attachment" {
		return nil
	}

	data, err := io.ReadAll(transferDecoder(header.Get("Content-Transfer-Encoding"), body))
	if err != nil {
		return err
	}
	if mediaType == "text/html" {
		p.html = append(p.html, normalisers.HTMLText(string(data)))
	} else {
		p.plain = append(p.plain, string(data))
	}
	return nil
}

// collectParts walks the parts of a multipart body. A truncated body
// keeps whatever parts were read before the break.
func (p *partText) collectParts(body io.Reader, boundary string, depth int) error {
	mr := multipart.NewReader(body, boundary)
	for {
		part, err := mr.NextRawPart()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return nil //nolint:nilerr // keep the parts read so far
		}
		err = p.collect(part.Header, part, depth)
		part.Close()
		if err != nil {
			return err
		}
	}
}

// transferDecoder undoes a Content-Transfer-Encoding. Unknown encodings
// pass through.
func transferDecoder(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, &lineJoiner{r: r})
	default:
		return r
	}
}

// lineJoiner drops line breaks so wrapped base64 decodes.
type lineJoiner struct {
	r io.Reader
}

func (l *lineJoiner) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	out := p[:0]
	for _, b := range p[:n] {
		if b != '\r' && b != '\n' {
			out = append(out, b)
		}
	}
	return len(out), err
}
