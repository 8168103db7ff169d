package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"finscan/internal/blobstore"
	"finscan/internal/models"
	"finscan/internal/repository"
	"finscan/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingDispatcher struct {
	dispatched []*models.Document
}

func (d *recordingDispatcher) Dispatch(doc *models.Document) {
	d.dispatched = append(d.dispatched, doc)
}

type memoryBlobStore struct {
	objects map[string][]byte
	putErr  error
}

func newMemoryBlobStore() *memoryBlobStore {
	return &memoryBlobStore{objects: make(map[string][]byte)}
}

func (m *memoryBlobStore) Put(ctx context.Context, key string, r io.Reader) error {
	if m.putErr != nil {
		return m.putErr
	}
	if _, exists := m.objects[key]; exists {
		return blobstore.ErrKeyExists
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memoryBlobStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

type failingDocumentRepository struct {
	repository.DocumentRepository
}

func (f failingDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	return errors.New("connection refused")
}

func TestUploadCreatesUploadedDocument(t *testing.T) {
	store := memory.NewStore()
	blobs := newMemoryBlobStore()
	dispatcher := &recordingDispatcher{}
	svc := NewUploadService(store, blobs, dispatcher, zap.NewNop())

	doc, err := svc.Upload(context.Background(), 42, strings.NewReader("jpeg bytes"), "receipt.jpg", "image/jpeg", 10)
	require.NoError(t, err)

	assert.Equal(t, models.StatusUploaded, doc.Status)
	assert.Equal(t, int64(42), doc.OwnerID)
	assert.Equal(t, "receipt.jpg", doc.FileName)
	assert.Equal(t, int64(10), doc.FileSize)
	assert.True(t, strings.HasPrefix(doc.StorageKey, "42/"))
	assert.True(t, strings.HasSuffix(doc.StorageKey, ".jpg"))

	// blob landed under the generated key
	_, stored := blobs.objects[doc.StorageKey]
	assert.True(t, stored)

	// handed off for recognition exactly once
	require.Len(t, dispatcher.dispatched, 1)
	assert.Equal(t, doc.ID, dispatcher.dispatched[0].ID)

	persisted, err := store.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUploaded, persisted.Status)
}

func TestUploadGeneratesUniqueStorageKeys(t *testing.T) {
	store := memory.NewStore()
	blobs := newMemoryBlobStore()
	svc := NewUploadService(store, blobs, &recordingDispatcher{}, zap.NewNop())

	first, err := svc.Upload(context.Background(), 1, strings.NewReader("a"), "a.png", "image/png", 1)
	require.NoError(t, err)
	second, err := svc.Upload(context.Background(), 1, strings.NewReader("b"), "a.png", "image/png", 1)
	require.NoError(t, err)

	assert.NotEqual(t, first.StorageKey, second.StorageKey)
}

func TestUploadRejectsDisallowedMimeType(t *testing.T) {
	store := memory.NewStore()
	blobs := newMemoryBlobStore()
	dispatcher := &recordingDispatcher{}
	svc := NewUploadService(store, blobs, dispatcher, zap.NewNop())

	for _, mime := range []string{"image/gif", "text/plain", "application/zip", ""} {
		_, err := svc.Upload(context.Background(), 1, strings.NewReader("x"), "f", mime, 1)
		assert.ErrorIs(t, err, ErrUnsupportedFileType, mime)
	}
	assert.Empty(t, blobs.objects)
	assert.Empty(t, dispatcher.dispatched)
}

func TestUploadStorageFailureCreatesNoRecord(t *testing.T) {
	store := memory.NewStore()
	blobs := newMemoryBlobStore()
	blobs.putErr = errors.New("disk full")
	dispatcher := &recordingDispatcher{}
	svc := NewUploadService(store, blobs, dispatcher, zap.NewNop())

	_, err := svc.Upload(context.Background(), 1, strings.NewReader("x"), "f.pdf", "application/pdf", 1)
	assert.ErrorIs(t, err, ErrStorageFailure)
	assert.NotErrorIs(t, err, ErrPersistenceFailure)

	docs, listErr := store.ListByOwner(context.Background(), 1, 10, 0)
	require.NoError(t, listErr)
	assert.Empty(t, docs)
	assert.Empty(t, dispatcher.dispatched)
}

func TestUploadPersistenceFailureKeepsOrphanBlob(t *testing.T) {
	blobs := newMemoryBlobStore()
	dispatcher := &recordingDispatcher{}
	svc := NewUploadService(failingDocumentRepository{}, blobs, dispatcher, zap.NewNop())

	_, err := svc.Upload(context.Background(), 1, strings.NewReader("x"), "f.png", "image/png", 1)
	assert.ErrorIs(t, err, ErrPersistenceFailure)
	assert.NotErrorIs(t, err, ErrStorageFailure)

	// the blob write is not rolled back
	assert.Len(t, blobs.objects, 1)
	assert.Empty(t, dispatcher.dispatched)
}

func TestUploadSurvivesCanceledCallerContext(t *testing.T) {
	store := memory.NewStore()
	blobs := newMemoryBlobStore()
	svc := NewUploadService(store, blobs, &recordingDispatcher{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc, err := svc.Upload(ctx, 1, strings.NewReader("x"), "f.jpg", "image/jpeg", 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUploaded, doc.Status)
}
