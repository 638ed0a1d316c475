package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"time"

	"rubric-orchestrator/internal/domain"
)

// IngestAction selects what an ingestion run does with its files.
type IngestAction string

const (
	IngestActionAdd       IngestAction = "add"
	IngestActionRemove    IngestAction = "remove"
	IngestActionRemoveAll IngestAction = "removeall"
)

// IngestOptions are the per-run ingestion settings.
type IngestOptions struct {
	Action    IngestAction
	Category  string
	NoVectors bool
	OIDs      []string
	Groups    []string
	// EmbeddingBatchSize is the number of sections embedded per request. 1 disables batching.
	EmbeddingBatchSize int
}

// IngestFile is one source document.
type IngestFile struct {
	Name    string
	Content []byte
}

// IngestDocumentsInput defines the input for an ingestion run.
type IngestDocumentsInput struct {
	Files   []IngestFile
	Options IngestOptions
}

// IngestDocumentsOutput reports what the run changed.
type IngestDocumentsOutput struct {
	Files    int
	Sections int
	Removed  int
}

// IngestDocumentsUsecase splits, embeds and indexes documents, or removes them.
type IngestDocumentsUsecase interface {
	Execute(ctx context.Context, input IngestDocumentsInput) (*IngestDocumentsOutput, error)
}

type ingestDocumentsUsecase struct {
	index     domain.SectionIndex
	encoder   domain.VectorEncoder
	extractor domain.TextExtractor
	splitter  domain.SectionSplitter
	// content is optional; when set, ingested files are published for citations.
	content domain.ContentStore
	logger  *slog.Logger
}

func NewIngestDocumentsUsecase(
	index domain.SectionIndex,
	encoder domain.VectorEncoder,
	extractor domain.TextExtractor,
	splitter domain.SectionSplitter,
	content domain.ContentStore,
	logger *slog.Logger,
) IngestDocumentsUsecase {
	return &ingestDocumentsUsecase{
		index:     index,
		encoder:   encoder,
		extractor: extractor,
		splitter:  splitter,
		content:   content,
		logger:    logger,
	}
}

func (u *ingestDocumentsUsecase) Execute(ctx context.Context, input IngestDocumentsInput) (*IngestDocumentsOutput, error) {
	opts := input.Options
	if opts.Action == "" {
		opts.Action = IngestActionAdd
	}
	if opts.EmbeddingBatchSize < 1 {
		opts.EmbeddingBatchSize = 1
	}

	switch opts.Action {
	case IngestActionRemoveAll:
		removed, err := u.index.RemoveAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("remove all sections: %w", err)
		}
		if u.content != nil {
			if err := u.content.RemoveAll(ctx); err != nil {
				return nil, fmt.Errorf("remove all content: %w", err)
			}
		}
		u.logger.InfoContext(ctx, "index_cleared", slog.Int("removed", removed))
		return &IngestDocumentsOutput{Removed: removed}, nil

	case IngestActionRemove:
		out := &IngestDocumentsOutput{}
		for _, f := range input.Files {
			name := filepath.Base(f.Name)
			removed, err := u.index.RemoveBySourceFile(ctx, name)
			if err != nil {
				return out, fmt.Errorf("remove %s: %w", name, err)
			}
			if u.content != nil {
				if err := u.content.Remove(ctx, name); err != nil {
					return out, fmt.Errorf("remove content %s: %w", name, err)
				}
			}
			out.Files++
			out.Removed += removed
			u.logger.InfoContext(ctx, "document_removed", slog.String("file", name), slog.Int("removed", removed))
		}
		return out, nil

	case IngestActionAdd:
		if err := u.index.EnsureIndex(ctx); err != nil {
			return nil, fmt.Errorf("ensure index: %w", err)
		}
		out := &IngestDocumentsOutput{}
		for _, f := range input.Files {
			n, err := u.addFile(ctx, f, opts)
			if err != nil {
				return out, err
			}
			out.Files++
			out.Sections += n
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: unknown ingest action %q", domain.ErrInvalidRequest, opts.Action)
	}
}

func (u *ingestDocumentsUsecase) addFile(ctx context.Context, f IngestFile, opts IngestOptions) (int, error) {
	start := time.Now()
	name := filepath.Base(f.Name)

	text, err := u.extractor.Extract(name, f.Content)
	if err != nil {
		return 0, fmt.Errorf("extract %s: %w", name, err)
	}

	sections := BuildSections(name, u.splitter.Split(text), opts)
	if len(sections) == 0 {
		return 0, fmt.Errorf("%s: %w", name, domain.ErrEmptyDocument)
	}

	if !opts.NoVectors {
		if err := u.embedSections(ctx, sections, opts.EmbeddingBatchSize); err != nil {
			return 0, fmt.Errorf("embed %s: %w", name, err)
		}
	}

	if err := u.index.Upsert(ctx, sections); err != nil {
		return 0, fmt.Errorf("index %s: %w", name, err)
	}

	if u.content != nil {
		if err := u.content.Put(ctx, name, f.Content); err != nil {
			return 0, fmt.Errorf("publish %s: %w", name, err)
		}
	}

	u.logger.InfoContext(ctx, "document_indexed",
		slog.String("file", name),
		slog.Int("sections", len(sections)),
		slog.Bool("vectors", !opts.NoVectors),
		slog.Duration("duration", time.Since(start)))

	return len(sections), nil
}

func (u *ingestDocumentsUsecase) embedSections(ctx context.Context, sections []domain.Section, batchSize int) error {
	for start := 0; start < len(sections); start += batchSize {
		end := min(start+batchSize, len(sections))

		texts := make([]string, 0, end-start)
		for _, s := range sections[start:end] {
			texts = append(texts, s.Content)
		}

		vectors, err := u.encoder.Encode(ctx, texts)
		if err != nil {
			return err
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("%w: got %d vectors for %d sections", domain.ErrEmptyEmbedding, len(vectors), len(texts))
		}
		for i, v := range vectors {
			sections[start+i].Embedding = v
		}
	}
	return nil
}

var unsafeIDChars = regexp.MustCompile(`[^0-9a-zA-Z_-]`)

// SectionID is stable per file and position, so re-ingesting a file overwrites its sections.
func SectionID(filename string, page int) string {
	return fmt.Sprintf("file-%s-page-%d", unsafeIDChars.ReplaceAllString(filename, "_"), page)
}

// BuildSections attaches ids, provenance and ACLs to split text.
func BuildSections(filename string, texts []string, opts IngestOptions) []domain.Section {
	sections := make([]domain.Section, 0, len(texts))
	for i, text := range texts {
		sections = append(sections, domain.Section{
			ID:         SectionID(filename, i),
			Content:    text,
			Category:   opts.Category,
			SourcePage: fmt.Sprintf("%s#page=%d", filename, i+1),
			SourceFile: filename,
			OIDs:       opts.OIDs,
			Groups:     opts.Groups,
		})
	}
	return sections
}
