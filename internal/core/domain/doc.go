// Package domain defines recall's entities: documents and the chunks
// cut from them, scored retrieval results, answers, settings and the
// poller's tasks. It imports only the standard library.
package domain
