package service

import (
	"context"
	"errors"
	"fmt"

	"finscan/internal/models"
	"finscan/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaterializeInput carries the user-adjusted fields for a confirmation.
// Nil fields fall back to the values suggested by the extraction result.
type MaterializeInput struct {
	CategoryID      *int64
	CategoryKind    *string
	PaymentMethodID *int64
	Amount          *decimal.Decimal
	Description     string
}

// TransactionService converts a parsed document into a ledger transaction
// exactly once, on explicit user confirmation. Ground truth lives in the
// repositories; the guarded materialization there decides concurrent races.
type TransactionService struct {
	docs   repository.DocumentRepository
	txs    repository.TransactionRepository
	logger *zap.Logger
}

func NewTransactionService(docs repository.DocumentRepository, txs repository.TransactionRepository, logger *zap.Logger) *TransactionService {
	return &TransactionService{
		docs:   docs,
		txs:    txs,
		logger: logger,
	}
}

// Materialize creates the transaction for a parsed document. A repeat call,
// concurrent or not, leaves exactly one transaction behind and reports
// ErrAlreadyMaterialized to the loser.
func (s *TransactionService) Materialize(ctx context.Context, ownerID, docID int64, in MaterializeInput) (*models.Transaction, error) {
	doc, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != ownerID {
		return nil, ErrNotOwner
	}

	switch doc.Status {
	case models.StatusParsed:
		// confirmable
	case models.StatusTransactionCreated:
		return nil, ErrAlreadyMaterialized
	default:
		return nil, fmt.Errorf("%w: status %s", ErrInvalidState, doc.Status)
	}

	ext := doc.Extraction
	if ext == nil {
		return nil, fmt.Errorf("%w: parsed document has no extraction result", ErrInvalidState)
	}

	tx := &models.Transaction{
		OwnerID:         ownerID,
		DocumentID:      docID,
		CategoryID:      ext.SuggestedCategoryID,
		CategoryKind:    ext.SuggestedCategoryKind,
		PaymentMethodID: ext.SuggestedPaymentMethodID,
		Amount:          ext.TotalAmount,
		Currency:        ext.Currency,
		Kind:            ext.Kind,
		Description:     ext.VendorName,
		Date:            ext.TransactionDate,
	}

	if in.CategoryID != nil {
		tx.CategoryID = *in.CategoryID
	}
	if in.CategoryKind != nil {
		tx.CategoryKind = *in.CategoryKind
	}
	if in.PaymentMethodID != nil {
		tx.PaymentMethodID = in.PaymentMethodID
	}
	if in.Amount != nil {
		if in.Amount.IsNegative() {
			return nil, fmt.Errorf("%w: amount override is negative", ErrInvalidState)
		}
		tx.Amount = *in.Amount
	}
	if in.Description != "" {
		tx.Description = in.Description
	}

	if _, err := s.txs.Materialize(ctx, docID, tx); err != nil {
		if errors.Is(err, repository.ErrAlreadyMaterialized) {
			return nil, ErrAlreadyMaterialized
		}
		return nil, err
	}

	s.logger.Info("transaction materialized",
		zap.Int64("document_id", docID),
		zap.Int64("transaction_id", tx.ID),
		zap.Int64("owner_id", ownerID),
	)
	return tx, nil
}
