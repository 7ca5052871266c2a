package ingest

import (
	"time"
)

// ProcessingStatus is the lineage outcome state.
type ProcessingStatus string

const (
	LineageProcessing ProcessingStatus = "PROCESSING"
	LineageCompleted  ProcessingStatus = "COMPLETED"
	LineageFailed     ProcessingStatus = "FAILED"
)

// LineageRecord is the one-to-one audit companion of an ImportBatch.
// At most one non-FAILED record may exist per (source, content hash); that
// pair is the import deduplication key, enforced by a partial unique index.
type LineageRecord struct {
	ID               int64            `json:"id"`
	BatchID          int64            `json:"batch_id"`
	SourceID         int64            `json:"source_id"`
	FilePath         string           `json:"file_path"`
	ContentHash      string           `json:"content_hash"`
	ByteSize         int64            `json:"byte_size"`
	FileModifiedAt   time.Time        `json:"file_modified_at"`
	RecordsInFile    int64            `json:"records_in_file"`
	RecordsImported  int64            `json:"records_imported"`
	ProcessingStatus ProcessingStatus `json:"processing_status"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
}
