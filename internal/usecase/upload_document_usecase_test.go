package usecase_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"rubric-orchestrator/internal/domain"
	"rubric-orchestrator/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	files   map[string][]byte
	deleted []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{files: map[string][]byte{}}
}

func (s *memoryStore) Save(_ context.Context, name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := "key-" + name
	s.files[key] = data
	return key, nil
}

func (s *memoryStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func TestUploadDocument_EnqueuesJob(t *testing.T) {
	store := newMemoryStore()
	jobs := new(mockJobRepository)
	var enqueued *domain.IngestionJob
	jobs.On("Enqueue", mock.Anything, mock.AnythingOfType("*domain.IngestionJob")).
		Run(func(args mock.Arguments) { enqueued = args.Get(1).(*domain.IngestionJob) }).
		Return(nil)

	uc := usecase.NewUploadDocumentUsecase(store, jobs, discardLogger())
	out, err := uc.Execute(context.Background(), usecase.UploadDocumentInput{
		Filename: "../../etc/rubric.md",
		Content:  strings.NewReader("# Rubric"),
		Category: "rubrics",
		Claims:   domain.AuthClaims{OID: "OID_X"},
	})

	require.NoError(t, err)
	require.NotNil(t, enqueued)
	assert.Equal(t, enqueued.ID, out.JobID)
	assert.Equal(t, domain.JobStatusNew, out.Status)
	assert.Equal(t, domain.JobTypeIngestFile, enqueued.JobType)
	assert.Equal(t, "rubric.md", enqueued.Payload["filename"])
	assert.Equal(t, "key-rubric.md", enqueued.Payload["storage_key"])
	assert.Equal(t, []string{"OID_X"}, enqueued.Payload["oids"])
	assert.Equal(t, []byte("# Rubric"), store.files["key-rubric.md"])
}

func TestUploadDocument_EnqueueFailureRemovesFile(t *testing.T) {
	store := newMemoryStore()
	jobs := new(mockJobRepository)
	jobs.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("db down"))

	_, err := usecase.NewUploadDocumentUsecase(store, jobs, discardLogger()).Execute(context.Background(), usecase.UploadDocumentInput{
		Filename: "a.txt",
		Content:  strings.NewReader("x"),
	})

	assert.ErrorContains(t, err, "db down")
	assert.Empty(t, store.files)
}

func TestUploadDocument_RequiresFilename(t *testing.T) {
	_, err := usecase.NewUploadDocumentUsecase(newMemoryStore(), new(mockJobRepository), discardLogger()).Execute(context.Background(), usecase.UploadDocumentInput{
		Content: strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestUploadStatus(t *testing.T) {
	jobs := new(mockJobRepository)
	id := uuid.New()
	jobs.On("Get", mock.Anything, id).Return(&domain.IngestionJob{ID: id, Status: domain.JobStatusCompleted}, nil)

	job, err := usecase.NewUploadStatusUsecase(jobs).Execute(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
}

func TestIngestUpload_RunsIngestionAndCleansUp(t *testing.T) {
	store := newMemoryStore()
	store.files["key-doc.txt"] = []byte("line one\nline two")

	index := new(mockSectionIndex)
	index.On("EnsureIndex", mock.Anything).Return(nil)
	index.On("Upsert", mock.Anything, mock.MatchedBy(func(s []domain.Section) bool {
		return len(s) == 2 && s[0].Category == "rubrics" && len(s[0].OIDs) == 1 && s[0].OIDs[0] == "OID_X"
	})).Return(nil)

	encoder := new(mockVectorEncoder)
	encoder.On("Encode", mock.Anything, []string{"line one", "line two"}).Return([][]float32{{1}, {2}}, nil)

	ingest := usecase.NewIngestDocumentsUsecase(index, encoder, plainExtractor{}, lineSplitter{}, nil, discardLogger())
	uc := usecase.NewIngestUploadUsecase(store, ingest, 16, discardLogger())

	// Payload as decoded from the jobs table JSON column.
	out, err := uc.Execute(context.Background(), map[string]interface{}{
		"storage_key": "key-doc.txt",
		"filename":    "doc.txt",
		"category":    "rubrics",
		"oids":        []interface{}{"OID_X"},
		"groups":      nil,
	})

	require.NoError(t, err)
	assert.Equal(t, 2, out.Sections)
	assert.Equal(t, []string{"key-doc.txt"}, store.deleted)
	index.AssertExpectations(t)
}

func TestIngestUpload_InvalidPayload(t *testing.T) {
	uc := usecase.NewIngestUploadUsecase(newMemoryStore(), nil, 16, discardLogger())

	_, err := uc.Execute(context.Background(), map[string]interface{}{"filename": "doc.txt"})
	assert.ErrorContains(t, err, "storage_key")

	_, err = uc.Execute(context.Background(), map[string]interface{}{"storage_key": "missing", "filename": "doc.txt"})
	assert.ErrorContains(t, err, "load upload")
}
