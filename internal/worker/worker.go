package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rubric-orchestrator/internal/domain"
	"rubric-orchestrator/internal/infra/logger"
	"rubric-orchestrator/internal/usecase"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultJobTimeout   = 5 * time.Minute
	initialBackoff      = 1 * time.Second
	maxBackoff          = 5 * time.Minute
	statusUpdateTimeout = 10 * time.Second
)

// Config tunes the ingestion worker. Zero values fall back to the defaults.
type Config struct {
	PollInterval time.Duration
	JobTimeout   time.Duration
}

// JobWorker drains the ingestion job queue one job at a time.
type JobWorker struct {
	jobRepo      domain.IngestionJobRepository
	ingest       usecase.IngestUploadUsecase
	logger       *slog.Logger
	pollInterval time.Duration
	jobTimeout   time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
	backoff      time.Duration
}

func NewJobWorker(
	jobRepo domain.IngestionJobRepository,
	ingest usecase.IngestUploadUsecase,
	cfg Config,
	logger *slog.Logger,
) *JobWorker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultJobTimeout
	}
	return &JobWorker{
		jobRepo:      jobRepo,
		ingest:       ingest,
		logger:       logger,
		pollInterval: cfg.PollInterval,
		jobTimeout:   cfg.JobTimeout,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

func (w *JobWorker) Start() {
	w.logger.Info("ingest_worker_starting", slog.Duration("poll_interval", w.pollInterval))
	go w.run()
}

// Stop signals the loop and waits for the job in flight to finish.
func (w *JobWorker) Stop() {
	w.logger.Info("ingest_worker_stopping")
	close(w.stopChan)
	<-w.doneChan
}

func (w *JobWorker) run() {
	defer close(w.doneChan)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.processNextJob()
			if w.backoff > 0 {
				ticker.Reset(w.backoff)
			} else {
				ticker.Reset(w.pollInterval)
			}
		}
	}
}

func (w *JobWorker) processNextJob() {
	ctx, cancel := context.WithTimeout(context.Background(), w.jobTimeout)
	defer cancel()

	job, err := w.jobRepo.AcquireNextJob(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "ingest_job_acquire_failed", slog.String("error", err.Error()))
		return
	}
	if job == nil {
		return
	}

	ctx = logger.WithJobID(ctx, job.ID.String())
	w.logger.InfoContext(ctx, "ingest_job_processing", slog.String("type", job.JobType))

	var processErr error
	switch job.JobType {
	case domain.JobTypeIngestFile:
		processErr = w.processIngestFile(ctx, job)
	default:
		processErr = fmt.Errorf("unknown job type: %s", job.JobType)
	}

	status := domain.JobStatusCompleted
	var errMsg *string
	if processErr != nil {
		status = domain.JobStatusFailed
		msg := processErr.Error()
		errMsg = &msg
		w.backoff = w.nextBackoff(w.backoff)
		w.logger.WarnContext(ctx, "ingest_worker_backing_off",
			slog.Duration("backoff", w.backoff),
			slog.String("error", msg))
	} else {
		w.backoff = 0
		w.logger.InfoContext(ctx, "ingest_job_completed")
	}

	// The job context may already be past its deadline.
	statusCtx, statusCancel := context.WithTimeout(context.WithoutCancel(ctx), statusUpdateTimeout)
	defer statusCancel()
	if err := w.jobRepo.UpdateStatus(statusCtx, job.ID, status, errMsg); err != nil {
		w.logger.ErrorContext(ctx, "ingest_job_status_update_failed", slog.String("error", err.Error()))
	}
}

func (w *JobWorker) nextBackoff(current time.Duration) time.Duration {
	if current == 0 {
		return initialBackoff
	}
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func (w *JobWorker) processIngestFile(ctx context.Context, job *domain.IngestionJob) error {
	out, err := w.ingest.Execute(ctx, job.Payload)
	if err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "ingest_job_indexed",
		slog.Int("files", out.Files),
		slog.Int("sections", out.Sections))
	return nil
}
