package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rubric-orchestrator/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const jobColumns = `id, job_type, payload, status, error_message, created_at, updated_at`

type IngestionJobRepository struct {
	db *pgxpool.Pool
}

func NewIngestionJobRepository(db *pgxpool.Pool) *IngestionJobRepository {
	return &IngestionJobRepository{db: db}
}

// EnsureSchema creates the job table when it does not exist yet.
func (r *IngestionJobRepository) EnsureSchema(ctx context.Context) error {
	return execAll(ctx, r.db, ingestionJobsDDL)
}

func (r *IngestionJobRepository) Enqueue(ctx context.Context, job *domain.IngestionJob) error {
	query := `
		INSERT INTO ingestion_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	payloadBytes, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	_, err = executor(ctx, r.db).Exec(ctx, query,
		job.ID,
		job.JobType,
		payloadBytes,
		job.Status,
		job.ErrorMessage,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// AcquireNextJob claims the oldest new job in one statement so concurrent
// workers never receive the same row.
func (r *IngestionJobRepository) AcquireNextJob(ctx context.Context) (*domain.IngestionJob, error) {
	query := `
		WITH next_job AS (
			SELECT id
			FROM ingestion_jobs
			WHERE status = 'new'
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE ingestion_jobs
		SET status = 'processing', updated_at = $1
		FROM next_job
		WHERE ingestion_jobs.id = next_job.id
		RETURNING ingestion_jobs.id, ingestion_jobs.job_type, ingestion_jobs.payload, ingestion_jobs.status,
			ingestion_jobs.error_message, ingestion_jobs.created_at, ingestion_jobs.updated_at
	`

	job, err := scanJob(executor(ctx, r.db).QueryRow(ctx, query, time.Now()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to acquire next job: %w", err)
	}
	return job, nil
}

func (r *IngestionJobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error {
	query := `
		UPDATE ingestion_jobs
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`
	tag, err := executor(ctx, r.db).Exec(ctx, query, status, errorMessage, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *IngestionJobRepository) Get(ctx context.Context, id uuid.UUID) (*domain.IngestionJob, error) {
	query := `SELECT ` + jobColumns + ` FROM ingestion_jobs WHERE id = $1`

	job, err := scanJob(executor(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func scanJob(row pgx.Row) (*domain.IngestionJob, error) {
	var job domain.IngestionJob
	var payloadBytes []byte

	if err := row.Scan(
		&job.ID,
		&job.JobType,
		&payloadBytes,
		&job.Status,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(payloadBytes, &job.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &job, nil
}

var _ domain.IngestionJobRepository = (*IngestionJobRepository)(nil)
