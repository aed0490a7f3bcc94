// Package mcp provides an MCP (Model Context Protocol) server adapter for recall.
// It lets AI assistants ask questions against the index and manage its contents.
package mcp

import "errors"

// ErrMissingAnswerService is returned when the answer service is not provided.
var ErrMissingAnswerService = errors.New("mcp: answer service is required")
