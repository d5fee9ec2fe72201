package model

import "time"

// Target is a single download request supplied by the caller
type Target struct {
	URL       string // Remote ZIP archive location
	OutputDir string // Directory receiving the archive and the extracted entries
}

// ExtractionRequest is handed from the fetch step to the extraction step
type ExtractionRequest struct {
	ArchivePath string // Path of the saved archive
	OutputDir   string // Directory where entries are extracted
}

// ExtractResult represents the outcome of extracting an archive
type ExtractResult struct {
	ArchivePath    string   // Archive that was read
	Files          []string // Entry names extracted, in archive order
	ArchiveRemoved bool     // Whether the archive was deleted afterwards
}

// Count returns the number of extracted entries
func (r *ExtractResult) Count() int {
	if r == nil {
		return 0
	}
	return len(r.Files)
}

// FetchStatus describes how a fetch ended
type FetchStatus string

const (
	FetchStatusExtracted         FetchStatus = "extracted"
	FetchStatusBadStatus         FetchStatus = "bad_status"
	FetchStatusWrongContentType  FetchStatus = "wrong_content_type"
	FetchStatusNoMatchingEntries FetchStatus = "no_matching_entries"
)

// FetchResult represents the outcome of a fetch that did not fail.
// Soft failures (bad status, wrong content type, no matching entries) are
// reported through Status rather than an error.
type FetchResult struct {
	ID          string      // Correlation ID used in logs
	Target      Target      // Target as supplied by the caller
	Status      FetchStatus // How the fetch ended
	StatusCode  int         // HTTP status code of the final response
	ContentType string      // Content-Type header of the final response
	Filename    string      // Derived archive filename, empty if nothing was saved
	ArchivePath string      // Path where the archive was saved, empty if nothing was saved
	Extract     *ExtractResult
}

// Saved reports whether the response body was written to disk
func (r *FetchResult) Saved() bool {
	return r != nil && r.ArchivePath != ""
}

// FetchReport pairs a target with its result or error when many targets run concurrently
type FetchReport struct {
	Target  Target
	Result  *FetchResult
	Err     error
	Elapsed time.Duration
}
