package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type DocumentStatus string

const (
	StatusUploaded           DocumentStatus = "uploaded"
	StatusProcessing         DocumentStatus = "processing"
	StatusParsed             DocumentStatus = "parsed"
	StatusTransactionCreated DocumentStatus = "transaction_created"
	StatusFailed             DocumentStatus = "failed"
)

// statusTransitions holds the allowed forward edges. The error path may be
// entered from processing only; terminal states have no outgoing edges.
var statusTransitions = map[DocumentStatus][]DocumentStatus{
	StatusUploaded:   {StatusProcessing},
	StatusProcessing: {StatusParsed, StatusFailed},
	StatusParsed:     {StatusTransactionCreated},
}

// CanTransitionTo reports whether moving from s to next is a valid edge.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status has no outgoing transitions.
func (s DocumentStatus) Terminal() bool {
	return len(statusTransitions[s]) == 0
}

func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusUploaded, StatusProcessing, StatusParsed, StatusTransactionCreated, StatusFailed:
		return true
	}
	return false
}

type TransactionKind string

const (
	KindExpense TransactionKind = "expense"
	KindIncome  TransactionKind = "income"
)

// ExtractionResult holds the structured fields returned by the external
// recognition service for a parsed document.
type ExtractionResult struct {
	DocumentType             string          `db:"doc_type" json:"document_type"`
	VendorName               string          `db:"vendor_name" json:"vendor_name"`
	TransactionDate          time.Time       `db:"transaction_date" json:"transaction_date"`
	TotalAmount              decimal.Decimal `db:"total_amount" json:"total_amount"`
	Currency                 string          `db:"currency" json:"currency"`
	Kind                     TransactionKind `db:"kind" json:"kind"`
	SuggestedCategoryID      int64           `db:"suggested_category_id" json:"suggested_category_id"`
	SuggestedCategoryKind    string          `db:"suggested_category_kind" json:"suggested_category_kind"`
	SuggestedPaymentMethodID *int64          `db:"suggested_payment_method_id" json:"suggested_payment_method_id,omitempty"`
	Confidence               float64         `db:"confidence" json:"confidence"`
}

// Document tracks one uploaded file through extraction to, optionally, a
// ledger transaction. Status moves only along the edges in statusTransitions
// and the repository is the sole authority over it.
type Document struct {
	ID            int64             `db:"id"`
	OwnerID       int64             `db:"owner_id"`
	StorageKey    string            `db:"storage_key"`
	FileName      string            `db:"file_name"`
	FileSize      int64             `db:"file_size"`
	MimeType      string            `db:"mime_type"`
	Status        DocumentStatus    `db:"status"`
	Extraction    *ExtractionResult // present only once parsed
	FailureCause  string            `db:"failure_cause"`
	TransactionID *int64            `db:"transaction_id"`
	CreatedAt     time.Time         `db:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at"`
}
