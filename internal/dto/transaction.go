package dto

import (
	"time"

	"finscan/internal/models"
)

// ConfirmDocumentRequest carries the user-adjusted fields for turning a
// parsed document into a transaction. Absent fields keep the suggested
// values from the extraction result.
type ConfirmDocumentRequest struct {
	CategoryID      *int64  `json:"category_id"`
	CategoryKind    *string `json:"category_kind"`
	PaymentMethodID *int64  `json:"payment_method_id"`
	Amount          *string `json:"amount"`
	Description     string  `json:"description"`
}

type TransactionResponse struct {
	ID              int64  `json:"id"`
	DocumentID      int64  `json:"document_id"`
	CategoryID      int64  `json:"category_id"`
	CategoryKind    string `json:"category_kind"`
	PaymentMethodID *int64 `json:"payment_method_id,omitempty"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	Kind            string `json:"kind"`
	Description     string `json:"description"`
	Date            string `json:"date"`
	CreatedAt       string `json:"created_at"`
}

func NewTransactionResponse(t *models.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:              t.ID,
		DocumentID:      t.DocumentID,
		CategoryID:      t.CategoryID,
		CategoryKind:    t.CategoryKind,
		PaymentMethodID: t.PaymentMethodID,
		Amount:          t.Amount.String(),
		Currency:        t.Currency,
		Kind:            string(t.Kind),
		Description:     t.Description,
		Date:            t.Date.Format("2006-01-02"),
		CreatedAt:       t.CreatedAt.Format(time.RFC3339),
	}
}
