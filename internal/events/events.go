package events

import "time"

// IngestionCompleteEvent is sent when an ingestion run for one document
// generation finishes, whatever its outcome.
type IngestionCompleteEvent struct {
	DocumentID string        // Document that was ingested
	Generation int64         // Generation the run was started for
	Status     string        // "ready", "failed", or "" when the run was stale
	Pages      int           // Pages in the PDF
	Chunks     int           // Chunks indexed
	Duration   time.Duration // How long ingestion took
	Error      string        // Failure reason when Status is "failed"
	Stale      bool          // Run was superseded or cancelled and wrote nothing
}

// FetchCompleteEvent is sent when a remote crawl has finished collecting PDFs.
type FetchCompleteEvent struct {
	SourceURL string    // URL the crawl started from
	PDFsFound int       // Number of PDF responses collected
	Timestamp time.Time // When the crawl completed
}
