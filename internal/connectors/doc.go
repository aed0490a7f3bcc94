// Package connectors holds the sources documents are read from.
//
// The filesystem connector reads staging folders and watches them for
// arrivals so the poller can ingest new files without waiting a full tick.
package connectors
