package domain

// IngestReport summarises one pass over a staging folder.
type IngestReport struct {
	// Files is the number of files examined.
	Files int

	// Documents is the number of documents handed to the index.
	Documents int

	// Chunks is the number of chunks inserted.
	Chunks int

	// Rejected lists files that failed to normalise.
	Rejected []string

	// Moved lists files relocated into the in-database folder.
	Moved []string
}

// Empty reports whether the pass found nothing to do.
func (r IngestReport) Empty() bool {
	return r.Files == 0
}
