// Package filesystem reads ingestion folders and watches them for new files.
//
// Only the top level of a folder is read: processed and rejected files are
// moved into subdirectories, so they must not be picked up again. Hidden
// files are ignored.
package filesystem
