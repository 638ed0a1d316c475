package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rubric-orchestrator/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// SectionIndexRepository implements domain.SectionIndex on the search_sections table.
type SectionIndexRepository struct {
	pool       *pgxpool.Pool
	txManager  domain.TransactionManager
	dimensions int
	logger     *slog.Logger
}

func NewSectionIndexRepository(pool *pgxpool.Pool, txManager domain.TransactionManager, dimensions int, logger *slog.Logger) *SectionIndexRepository {
	if dimensions <= 0 {
		dimensions = 1536
	}
	return &SectionIndexRepository{pool: pool, txManager: txManager, dimensions: dimensions, logger: logger}
}

func (r *SectionIndexRepository) EnsureIndex(ctx context.Context) error {
	if err := execAll(ctx, r.pool, sectionsDDL(r.dimensions)); err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "pg_section_table_ready", slog.Int("dimensions", r.dimensions))
	return nil
}

// Upsert writes all sections in one transaction.
func (r *SectionIndexRepository) Upsert(ctx context.Context, sections []domain.Section) error {
	if len(sections) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, content, category, sourcepage, sourcefile, embedding, oids, groups, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			category = EXCLUDED.category,
			sourcepage = EXCLUDED.sourcepage,
			sourcefile = EXCLUDED.sourcefile,
			embedding = EXCLUDED.embedding,
			oids = EXCLUDED.oids,
			groups = EXCLUDED.groups,
			updated_at = EXCLUDED.updated_at
	`, sectionsTable)

	now := time.Now()
	return r.txManager.RunInTx(ctx, func(ctx context.Context) error {
		batch := &pgx.Batch{}
		for _, s := range sections {
			var embedding *pgvector.Vector
			if len(s.Embedding) > 0 {
				v := pgvector.NewVector(s.Embedding)
				embedding = &v
			}
			batch.Queue(query, s.ID, s.Content, s.Category, s.SourcePage, s.SourceFile,
				embedding, nonNil(s.OIDs), nonNil(s.Groups), now)
		}

		results := executor(ctx, r.pool).SendBatch(ctx, batch)
		for range sections {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("failed to upsert section: %w", err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("failed to upsert sections: %w", err)
		}

		r.logger.InfoContext(ctx, "pg_sections_upserted", slog.Int("count", len(sections)))
		return nil
	})
}

func (r *SectionIndexRepository) RemoveBySourceFile(ctx context.Context, sourceFile string) (int, error) {
	tag, err := executor(ctx, r.pool).Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE sourcefile = $1`, sectionsTable), sourceFile)
	if err != nil {
		return 0, fmt.Errorf("failed to remove sections of %s: %w", sourceFile, err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *SectionIndexRepository) RemoveAll(ctx context.Context) (int, error) {
	tag, err := executor(ctx, r.pool).Exec(ctx, fmt.Sprintf(`DELETE FROM %s`, sectionsTable))
	if err != nil {
		return 0, fmt.Errorf("failed to remove all sections: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

var _ domain.SectionIndex = (*SectionIndexRepository)(nil)
