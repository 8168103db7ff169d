package repository

import (
	"context"
	"errors"

	"finscan/internal/models"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrStatusConflict is returned when a guarded status transition loses
	// against the persisted status, either because the edge is not part of
	// the state machine or because a concurrent writer got there first.
	// The persisted row is left untouched.
	ErrStatusConflict = errors.New("document status conflict")

	// ErrAlreadyMaterialized is returned when a transaction has already been
	// created for the document.
	ErrAlreadyMaterialized = errors.New("document already materialized")
)

// StatusUpdate carries the optional fields written alongside a status
// transition: the extraction result on the way to parsed, the failure cause
// on the way to failed.
type StatusUpdate struct {
	Extraction   *models.ExtractionResult
	FailureCause string
}

// DocumentRepository is the single source of truth for document pipeline
// state. All status writes go through TransitionStatus, which enforces the
// state machine and a compare-and-swap on the current status.
type DocumentRepository interface {
	// Create persists a new document and assigns its ID.
	Create(ctx context.Context, doc *models.Document) error

	GetByID(ctx context.Context, id int64) (*models.Document, error)

	ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*models.Document, error)

	// TransitionStatus moves a document from one status to another. It fails
	// with ErrStatusConflict if the edge is invalid or the persisted status
	// no longer matches from; the row is unchanged in either case.
	TransitionStatus(ctx context.Context, id int64, from, to models.DocumentStatus, update *StatusUpdate) error
}

// TransactionRepository is the materialization boundary to the ledger.
type TransactionRepository interface {
	// Materialize atomically creates the transaction and moves its source
	// document from parsed to transaction_created, recording the outcome
	// link. Concurrent calls for the same document yield exactly one
	// transaction; losers receive ErrAlreadyMaterialized.
	Materialize(ctx context.Context, docID int64, tx *models.Transaction) (int64, error)

	GetByID(ctx context.Context, id int64) (*models.Transaction, error)

	ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*models.Transaction, error)
}
