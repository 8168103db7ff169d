package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the ledger record materialized from a parsed document.
// DocumentID is the audit back-reference to the originating upload.
type Transaction struct {
	ID              int64           `db:"id"`
	OwnerID         int64           `db:"owner_id"`
	DocumentID      int64           `db:"document_id"`
	CategoryID      int64           `db:"category_id"`
	CategoryKind    string          `db:"category_kind"`
	PaymentMethodID *int64          `db:"payment_method_id"`
	Amount          decimal.Decimal `db:"amount"`
	Currency        string          `db:"currency"`
	Kind            TransactionKind `db:"kind"`
	Description     string          `db:"description"`
	Date            time.Time       `db:"date"`
	CreatedAt       time.Time       `db:"created_at"`
}
