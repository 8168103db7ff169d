package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"finscan/internal/models"
	"finscan/internal/notifier"
	"finscan/internal/recognizer"
	"finscan/internal/repository"

	"go.uber.org/zap"
)

const (
	causeTimeout    = "Timeout"
	causeDispatch   = "recognition service unreachable"
	causeValidation = "recognition result failed validation"
)

// DispatchService runs the asynchronous recognition stage. It is the only
// writer of the processing -> parsed/failed transitions. A per-document
// in-flight guard plus the repository's status precondition keep a document
// from being processed twice concurrently. Processing is detached from any
// client connection; results travel through the notifier.
type DispatchService struct {
	docs             repository.DocumentRepository
	recognizer       recognizer.Client
	hub              *notifier.Hub
	timeout          time.Duration
	fallbackCurrency string
	logger           *zap.Logger

	mu       sync.Mutex
	inflight map[int64]struct{}
	wg       sync.WaitGroup
}

func NewDispatchService(
	docs repository.DocumentRepository,
	rec recognizer.Client,
	hub *notifier.Hub,
	timeout time.Duration,
	fallbackCurrency string,
	logger *zap.Logger,
) *DispatchService {
	return &DispatchService{
		docs:             docs,
		recognizer:       rec,
		hub:              hub,
		timeout:          timeout,
		fallbackCurrency: fallbackCurrency,
		logger:           logger,
		inflight:         make(map[int64]struct{}),
	}
}

// Dispatch starts recognition for an uploaded document in the background.
// A document already in flight is skipped.
func (s *DispatchService) Dispatch(doc *models.Document) {
	s.mu.Lock()
	if _, busy := s.inflight[doc.ID]; busy {
		s.mu.Unlock()
		s.logger.Warn("document already in flight, skipping dispatch", zap.Int64("document_id", doc.ID))
		return
	}
	s.inflight[doc.ID] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inflight, doc.ID)
			s.mu.Unlock()
		}()
		s.process(context.Background(), doc)
	}()
}

// Wait blocks until all in-flight documents have finished processing.
func (s *DispatchService) Wait() {
	s.wg.Wait()
}

func (s *DispatchService) process(ctx context.Context, doc *models.Document) {
	err := s.docs.TransitionStatus(ctx, doc.ID, models.StatusUploaded, models.StatusProcessing, nil)
	if err != nil {
		// Someone else claimed the document, or it is gone. Either way this
		// goroutine has nothing left to do.
		s.logger.Warn("could not claim document for processing",
			zap.Int64("document_id", doc.ID),
			zap.Error(err),
		)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type recognition struct {
		resp *recognizer.Response
		err  error
	}
	results := make(chan recognition, 1)
	go func() {
		resp, err := s.recognizer.Recognize(callCtx, recognizer.Request{
			DocumentID: doc.ID,
			StorageKey: doc.StorageKey,
		})
		results <- recognition{resp: resp, err: err}
	}()

	// The deadline is enforced here, not trusted to the client: a call still
	// running when it passes fails the document, and its eventual payload is
	// dropped.
	var resp *recognizer.Response
	select {
	case <-callCtx.Done():
		s.logger.Warn("recognition deadline passed",
			zap.Int64("document_id", doc.ID),
		)
		s.fail(ctx, doc, causeTimeout)
		return
	case res := <-results:
		if res.err != nil {
			cause := causeDispatch
			if errors.Is(res.err, context.DeadlineExceeded) || callCtx.Err() != nil {
				cause = causeTimeout
			}
			s.logger.Warn("recognition failed",
				zap.Int64("document_id", doc.ID),
				zap.String("cause", cause),
				zap.Error(res.err),
			)
			s.fail(ctx, doc, cause)
			return
		}
		resp = res.resp
	}

	if callCtx.Err() != nil {
		s.fail(ctx, doc, causeTimeout)
		return
	}

	ext, err := validateExtraction(resp, s.fallbackCurrency)
	if err != nil {
		s.logger.Warn("recognition result rejected",
			zap.Int64("document_id", doc.ID),
			zap.Error(err),
		)
		s.fail(ctx, doc, causeValidation+": "+err.Error())
		return
	}

	err = s.docs.TransitionStatus(ctx, doc.ID, models.StatusProcessing, models.StatusParsed, &repository.StatusUpdate{Extraction: ext})
	if err != nil {
		// A late success for a document that already timed out to failed is
		// discarded, never reapplied.
		s.logger.Warn("discarding stale recognition result",
			zap.Int64("document_id", doc.ID),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("document parsed",
		zap.Int64("document_id", doc.ID),
		zap.String("vendor", ext.VendorName),
		zap.Float64("confidence", ext.Confidence),
	)
	s.hub.Publish(models.ProcessingEvent{
		DocumentID: doc.ID,
		OwnerID:    doc.OwnerID,
		Result:     ext,
	})
}

func (s *DispatchService) fail(ctx context.Context, doc *models.Document, cause string) {
	err := s.docs.TransitionStatus(ctx, doc.ID, models.StatusProcessing, models.StatusFailed, &repository.StatusUpdate{FailureCause: cause})
	if err != nil {
		s.logger.Warn("could not record processing failure",
			zap.Int64("document_id", doc.ID),
			zap.String("cause", cause),
			zap.Error(err),
		)
		return
	}

	s.hub.Publish(models.ProcessingEvent{
		DocumentID: doc.ID,
		OwnerID:    doc.OwnerID,
		Error:      cause,
	})
}

var _ Dispatcher = (*DispatchService)(nil)
