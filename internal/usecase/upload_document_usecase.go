package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"rubric-orchestrator/internal/domain"

	"github.com/google/uuid"
)

// Upload job payload keys.
const (
	payloadStorageKey = "storage_key"
	payloadFilename   = "filename"
	payloadCategory   = "category"
	payloadOIDs       = "oids"
	payloadGroups     = "groups"
)

// UploadDocumentInput is a file posted to /upload.
type UploadDocumentInput struct {
	Filename string
	Content  io.Reader
	Category string
	Claims   domain.AuthClaims
}

type UploadDocumentOutput struct {
	JobID  uuid.UUID
	Status string
}

// UploadDocumentUsecase stores an upload and queues it for ingestion.
type UploadDocumentUsecase interface {
	Execute(ctx context.Context, input UploadDocumentInput) (*UploadDocumentOutput, error)
}

type uploadDocumentUsecase struct {
	store  domain.DocumentStore
	jobs   domain.IngestionJobRepository
	logger *slog.Logger
}

func NewUploadDocumentUsecase(store domain.DocumentStore, jobs domain.IngestionJobRepository, logger *slog.Logger) UploadDocumentUsecase {
	return &uploadDocumentUsecase{store: store, jobs: jobs, logger: logger}
}

func (u *uploadDocumentUsecase) Execute(ctx context.Context, input UploadDocumentInput) (*UploadDocumentOutput, error) {
	name := filepath.Base(strings.TrimSpace(input.Filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("%w: filename is required", domain.ErrInvalidRequest)
	}

	key, err := u.store.Save(ctx, name, input.Content)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	// The uploader owns the document when their identity is known.
	var oids []string
	if input.Claims.OID != "" {
		oids = []string{input.Claims.OID}
	}

	now := time.Now()
	job := &domain.IngestionJob{
		ID:      uuid.New(),
		JobType: domain.JobTypeIngestFile,
		Payload: map[string]interface{}{
			payloadStorageKey: key,
			payloadFilename:   name,
			payloadCategory:   input.Category,
			payloadOIDs:       oids,
			payloadGroups:     []string(nil),
		},
		Status:    domain.JobStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.jobs.Enqueue(ctx, job); err != nil {
		_ = u.store.Delete(ctx, key)
		return nil, fmt.Errorf("enqueue ingestion job: %w", err)
	}

	u.logger.InfoContext(ctx, "upload_enqueued",
		slog.String("job_id", job.ID.String()),
		slog.String("file", name))

	return &UploadDocumentOutput{JobID: job.ID, Status: job.Status}, nil
}

// UploadStatusUsecase reports the state of an ingestion job.
type UploadStatusUsecase interface {
	Execute(ctx context.Context, id uuid.UUID) (*domain.IngestionJob, error)
}

type uploadStatusUsecase struct {
	jobs domain.IngestionJobRepository
}

func NewUploadStatusUsecase(jobs domain.IngestionJobRepository) UploadStatusUsecase {
	return &uploadStatusUsecase{jobs: jobs}
}

func (u *uploadStatusUsecase) Execute(ctx context.Context, id uuid.UUID) (*domain.IngestionJob, error) {
	return u.jobs.Get(ctx, id)
}

// IngestUploadUsecase runs the ingestion described by a queued upload job.
type IngestUploadUsecase interface {
	Execute(ctx context.Context, payload map[string]interface{}) (*IngestDocumentsOutput, error)
}

type ingestUploadUsecase struct {
	store     domain.DocumentStore
	ingest    IngestDocumentsUsecase
	batchSize int
	logger    *slog.Logger
}

func NewIngestUploadUsecase(store domain.DocumentStore, ingest IngestDocumentsUsecase, batchSize int, logger *slog.Logger) IngestUploadUsecase {
	return &ingestUploadUsecase{store: store, ingest: ingest, batchSize: batchSize, logger: logger}
}

func (u *ingestUploadUsecase) Execute(ctx context.Context, payload map[string]interface{}) (*IngestDocumentsOutput, error) {
	key, ok := payload[payloadStorageKey].(string)
	if !ok || key == "" {
		return nil, fmt.Errorf("missing or invalid %s", payloadStorageKey)
	}
	name, ok := payload[payloadFilename].(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("missing or invalid %s", payloadFilename)
	}
	category, _ := payload[payloadCategory].(string)

	content, err := u.store.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load upload %s: %w", key, err)
	}

	out, err := u.ingest.Execute(ctx, IngestDocumentsInput{
		Files: []IngestFile{{Name: name, Content: content}},
		Options: IngestOptions{
			Action:             IngestActionAdd,
			Category:           category,
			OIDs:               stringSlice(payload[payloadOIDs]),
			Groups:             stringSlice(payload[payloadGroups]),
			EmbeddingBatchSize: u.batchSize,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := u.store.Delete(ctx, key); err != nil {
		u.logger.WarnContext(ctx, "upload_cleanup_failed",
			slog.String("storage_key", key),
			slog.String("error", err.Error()))
	}
	return out, nil
}

// stringSlice accepts both []string and the []interface{} produced by a JSON round trip.
func stringSlice(v interface{}) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []interface{}:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
