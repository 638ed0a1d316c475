package usecase

import (
	"context"
	"fmt"
	"strings"

	"rubric-orchestrator/internal/domain"
)

const citationPageMarker = "#page="

// CitationContent is the source file behind a citation.
type CitationContent struct {
	Name string
	Data []byte
}

// CitationContentUsecase resolves a citation such as "plan.txt#page=2" to its file.
type CitationContentUsecase interface {
	Execute(ctx context.Context, citation string) (*CitationContent, error)
}

type citationContentUsecase struct {
	store domain.ContentStore
}

func NewCitationContentUsecase(store domain.ContentStore) CitationContentUsecase {
	return &citationContentUsecase{store: store}
}

func (u *citationContentUsecase) Execute(ctx context.Context, citation string) (*CitationContent, error) {
	name := CitationFile(citation)
	if name == "" {
		return nil, fmt.Errorf("%w: empty citation", domain.ErrInvalidRequest)
	}
	data, err := u.store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return &CitationContent{Name: name, Data: data}, nil
}

// CitationFile strips the "#page=<n>" suffix from a citation.
func CitationFile(citation string) string {
	if i := strings.LastIndex(citation, citationPageMarker); i >= 0 {
		citation = citation[:i]
	}
	return strings.TrimSpace(citation)
}
