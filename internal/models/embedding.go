package models

import "time"

// JobStatus is the lifecycle state of an embedding job.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transition can happen.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// EmbeddingJob tracks one repository indexing request for the lifetime of
// the client process. Jobs are never persisted.
type EmbeddingJob struct {
	ID        string    `json:"id"`
	Repo      string    `json:"repo"`
	Status    JobStatus `json:"status"`
	Vectors   *int      `json:"vectors,omitempty"`
	Attempts  int       `json:"attempts"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EmbeddingStatus is the remote answer to an embedding status check.
type EmbeddingStatus struct {
	Embedded   bool   `json:"embedded"`
	Vectors    *int   `json:"vectors,omitempty"`
	Collection string `json:"collection,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// EmbeddingAck is returned when an embedding request is accepted.
type EmbeddingAck struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Note    string `json:"note,omitempty"`
}
