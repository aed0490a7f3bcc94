package domain

import "time"

// RawDocument is one file as read from an ingestion folder, before a
// normaliser turns it into a Document.
type RawDocument struct {
	URI      string // file path
	MIMEType string
	Content  []byte
	ModTime  time.Time
	Metadata map[string]any // loader-specific
}
