// Package driving holds the interfaces the command line, TUI, MCP server
// and HTTP API call into. internal/core/services implements them.
package driving
