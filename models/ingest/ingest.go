package ingest

import (
	"github.com/google/uuid"
)

type State string

const (
	Queued  State = "Queued"
	Running State = "Running"
	Done    State = "Done"
	Error   State = "Error"
)

type IngestRequest struct {
	Id        uuid.UUID `json:"id"`
	Filename  string    `json:"filename"`
	FileId    string    `json:"fileId,omitempty"`
	State     State     `json:"state"`
	Message   string    `json:"message"`
	CreatedAt string    `json:"createdAt"`
	UpdatedAt string    `json:"updatedAt"`
}

type IngestResponseDTO struct {
	Id       uuid.UUID `json:"id"`
	Filename string    `json:"filename"`
	State    State     `json:"state"`
	Message  string    `json:"message"`
}

// FileStats summarises the ingestion of one file.
type FileStats struct {
	Filename         string `json:"filename"`
	FileId           string `json:"fileId"`
	Rows             int    `json:"rows"`
	Indexed          int    `json:"indexed"`
	SkippedGenotypes int    `json:"skippedGenotypes"`
	ColumnErrors     int    `json:"columnErrors"`
	BulkItemFailures int    `json:"bulkItemFailures"`
	Flushes          int    `json:"flushes"`
}

type IngestStatsDTO struct {
	NumAdded   uint64 `json:"numAdded"`
	NumFlushed uint64 `json:"numFlushed"`
	NumFailed  uint64 `json:"numFailed"`
	NumIndexed uint64 `json:"numIndexed"`
	NumFiles   uint64 `json:"numFiles"`
}
