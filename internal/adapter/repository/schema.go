package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	sectionsTable = "search_sections"
	textConfig    = "english"
)

func sectionsDDL(dimensions int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id          TEXT PRIMARY KEY,
			content     TEXT NOT NULL,
			category    TEXT,
			sourcepage  TEXT NOT NULL,
			sourcefile  TEXT NOT NULL,
			embedding   vector(%d),
			oids        TEXT[] NOT NULL DEFAULT '{}',
			groups      TEXT[] NOT NULL DEFAULT '{}',
			content_tsv tsvector GENERATED ALWAYS AS (to_tsvector('%s', content)) STORED,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, sectionsTable, dimensions, textConfig),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_tsv_idx ON %[1]s USING GIN (content_tsv)`, sectionsTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_embedding_idx ON %[1]s USING hnsw (embedding vector_cosine_ops)`, sectionsTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_sourcefile_idx ON %[1]s (sourcefile)`, sectionsTable),
	}
}

var ingestionJobsDDL = []string{
	`CREATE TABLE IF NOT EXISTS ingestion_jobs (
		id            UUID PRIMARY KEY,
		job_type      TEXT NOT NULL,
		payload       JSONB NOT NULL,
		status        TEXT NOT NULL,
		error_message TEXT,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ingestion_jobs_status_created_idx ON ingestion_jobs (status, created_at)`,
}

func execAll(ctx context.Context, pool *pgxpool.Pool, statements []string) error {
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
