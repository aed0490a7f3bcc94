// Package normalisers turns files read from an ingestion folder into
// documents. Each sub-package handles one family of MIME types; the
// Registry in this package dispatches on MIME type and priority.
//
// Every normaliser sets the two metadata keys the index relies on:
// source_id (deletion and deduplication) and timestamp (recency).
package normalisers
