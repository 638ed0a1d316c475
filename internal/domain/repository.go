package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Section is one indexed slice of a source document.
type Section struct {
	ID         string
	Content    string
	Category   string
	SourcePage string
	SourceFile string
	Embedding  []float32
	OIDs       []string
	Groups     []string
}

// SectionIndex is the write side of a search index.
type SectionIndex interface {
	// EnsureIndex creates the index or table when it does not exist yet.
	EnsureIndex(ctx context.Context) error
	// Upsert stores sections, replacing any with the same ID.
	Upsert(ctx context.Context, sections []Section) error
	// RemoveBySourceFile deletes every section produced from sourceFile.
	RemoveBySourceFile(ctx context.Context, sourceFile string) (int, error)
	// RemoveAll empties the index.
	RemoveAll(ctx context.Context) (int, error)
}

// Ingestion job statuses.
const (
	JobStatusNew        = "new"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// JobTypeIngestFile is the job type enqueued by the upload endpoint.
const JobTypeIngestFile = "ingest_file"

// IngestionJob is a queued unit of ingestion work.
type IngestionJob struct {
	ID           uuid.UUID
	JobType      string
	Payload      map[string]interface{}
	Status       string
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IngestionJobRepository is a durable FIFO of ingestion jobs.
type IngestionJobRepository interface {
	Enqueue(ctx context.Context, job *IngestionJob) error
	// AcquireNextJob marks the oldest new job as processing and returns it.
	// Returns nil, nil when the queue is empty.
	AcquireNextJob(ctx context.Context) (*IngestionJob, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error
	// Get returns ErrJobNotFound when no job has the id.
	Get(ctx context.Context, id uuid.UUID) (*IngestionJob, error)
}

// TransactionManager runs fn inside a database transaction carried on ctx.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
