package service

import (
	"context"
	"fmt"
	"io"

	"finscan/internal/blobstore"
	"finscan/internal/models"
	"finscan/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// allowedMimeTypes maps accepted upload types to the extension used in the
// storage key.
var allowedMimeTypes = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"application/pdf": ".pdf",
}

// Dispatcher receives freshly uploaded documents for asynchronous
// recognition.
type Dispatcher interface {
	Dispatch(doc *models.Document)
}

// UploadService validates and submits one file per call: blob write first,
// then the document record, then a handoff to the dispatcher. Extraction has
// not started when Upload returns.
type UploadService struct {
	docs       repository.DocumentRepository
	blobs      blobstore.Store
	dispatcher Dispatcher
	logger     *zap.Logger
}

func NewUploadService(docs repository.DocumentRepository, blobs blobstore.Store, dispatcher Dispatcher, logger *zap.Logger) *UploadService {
	return &UploadService{
		docs:       docs,
		blobs:      blobs,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Upload stores the file and creates the document record with status
// uploaded. The work is detached from the caller's context so a client
// disconnect mid-upload cannot leave a record without its blob.
func (s *UploadService) Upload(ctx context.Context, ownerID int64, file io.Reader, fileName, mimeType string, size int64) (*models.Document, error) {
	ext, ok := allowedMimeTypes[mimeType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, mimeType)
	}

	ctx = context.WithoutCancel(ctx)

	// Key carries a crypto-random component; the blob store enforces
	// write-once on top.
	key := fmt.Sprintf("%d/%s%s", ownerID, uuid.New().String(), ext)

	if err := s.blobs.Put(ctx, key, file); err != nil {
		s.logger.Error("blob write failed",
			zap.Int64("owner_id", ownerID),
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	doc := &models.Document{
		OwnerID:    ownerID,
		StorageKey: key,
		FileName:   fileName,
		FileSize:   size,
		MimeType:   mimeType,
		Status:     models.StatusUploaded,
	}

	if err := s.docs.Create(ctx, doc); err != nil {
		// No blob rollback; the orphan is accepted.
		s.logger.Error("document record creation failed",
			zap.Int64("owner_id", ownerID),
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	s.dispatcher.Dispatch(doc)

	s.logger.Info("document uploaded",
		zap.Int64("document_id", doc.ID),
		zap.Int64("owner_id", ownerID),
		zap.String("mime_type", mimeType),
		zap.Int64("size", size),
	)
	return doc, nil
}
