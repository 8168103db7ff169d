package service

import "errors"

var (
	// ErrUnsupportedFileType is returned for uploads outside the MIME
	// allow-list.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrStorageFailure means the blob write failed; no document record was
	// created and the user may simply re-upload.
	ErrStorageFailure = errors.New("blob storage failure")

	// ErrPersistenceFailure means the document record could not be created
	// after a successful blob write. The orphaned blob is accepted; the user
	// may re-upload.
	ErrPersistenceFailure = errors.New("document persistence failure")

	// ErrInvalidState is returned when materialization is attempted on a
	// document that is not in the parsed state.
	ErrInvalidState = errors.New("document not in a confirmable state")

	// ErrAlreadyMaterialized is returned when the document already has a
	// transaction. The rejection is safe to treat as a no-op.
	ErrAlreadyMaterialized = errors.New("transaction already created for document")

	// ErrNotOwner is returned when a caller addresses a document belonging
	// to someone else.
	ErrNotOwner = errors.New("document does not belong to caller")
)
