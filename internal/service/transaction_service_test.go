package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"finscan/internal/models"
	"finscan/internal/repository"
	"finscan/internal/repository/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTransactionFixture(t *testing.T) (*TransactionService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc := NewTransactionService(store, memory.Transactions{Store: store}, zap.NewNop())
	return svc, store
}

func parsedDocument(t *testing.T, store *memory.Store, ownerID int64) *models.Document {
	t.Helper()
	doc := &models.Document{
		OwnerID:    ownerID,
		StorageKey: "1/abc.pdf",
		FileName:   "invoice.pdf",
		MimeType:   "application/pdf",
		Status:     models.StatusUploaded,
	}
	require.NoError(t, store.Create(context.Background(), doc))
	require.NoError(t, store.TransitionStatus(context.Background(), doc.ID, models.StatusUploaded, models.StatusProcessing, nil))

	ext := &models.ExtractionResult{
		DocumentType:          "receipt",
		VendorName:            "Acme Store",
		TransactionDate:       time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		TotalAmount:           decimal.RequireFromString("42.50"),
		Currency:              "USD",
		Kind:                  models.KindExpense,
		SuggestedCategoryID:   7,
		SuggestedCategoryKind: "groceries",
		Confidence:            0.91,
	}
	require.NoError(t, store.TransitionStatus(context.Background(), doc.ID, models.StatusProcessing, models.StatusParsed, &repository.StatusUpdate{Extraction: ext}))

	parsed, err := store.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	return parsed
}

func TestMaterializeUsesSuggestedValues(t *testing.T) {
	svc, store := newTransactionFixture(t)
	doc := parsedDocument(t, store, 1)

	tx, err := svc.Materialize(context.Background(), 1, doc.ID, MaterializeInput{})
	require.NoError(t, err)

	assert.Equal(t, doc.ID, tx.DocumentID)
	assert.Equal(t, int64(7), tx.CategoryID)
	assert.Equal(t, "groceries", tx.CategoryKind)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("42.50")))
	assert.Equal(t, "USD", tx.Currency)
	assert.Equal(t, models.KindExpense, tx.Kind)
	assert.Equal(t, "Acme Store", tx.Description)

	updated, err := store.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusTransactionCreated, updated.Status)
	require.NotNil(t, updated.TransactionID)
	assert.Equal(t, tx.ID, *updated.TransactionID)
}

func TestMaterializeAppliesOverrides(t *testing.T) {
	svc, store := newTransactionFixture(t)
	doc := parsedDocument(t, store, 1)

	categoryID := int64(12)
	amount := decimal.RequireFromString("40.00")
	paymentMethodID := int64(3)

	tx, err := svc.Materialize(context.Background(), 1, doc.ID, MaterializeInput{
		CategoryID:      &categoryID,
		Amount:          &amount,
		PaymentMethodID: &paymentMethodID,
		Description:     "office supplies",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(12), tx.CategoryID)
	assert.True(t, tx.Amount.Equal(amount))
	require.NotNil(t, tx.PaymentMethodID)
	assert.Equal(t, int64(3), *tx.PaymentMethodID)
	assert.Equal(t, "office supplies", tx.Description)
	// untouched fields keep the suggestion
	assert.Equal(t, "groceries", tx.CategoryKind)
}

func TestMaterializeRejectsNegativeAmountOverride(t *testing.T) {
	svc, store := newTransactionFixture(t)
	doc := parsedDocument(t, store, 1)

	amount := decimal.RequireFromString("-1")
	_, err := svc.Materialize(context.Background(), 1, doc.ID, MaterializeInput{Amount: &amount})
	assert.ErrorIs(t, err, ErrInvalidState)

	// the document stays confirmable
	current, getErr := store.GetByID(context.Background(), doc.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.StatusParsed, current.Status)
}

func TestMaterializeRequiresParsedStatus(t *testing.T) {
	svc, store := newTransactionFixture(t)

	doc := &models.Document{
		OwnerID:    1,
		StorageKey: "1/raw.png",
		FileName:   "raw.png",
		MimeType:   "image/png",
		Status:     models.StatusUploaded,
	}
	require.NoError(t, store.Create(context.Background(), doc))

	_, err := svc.Materialize(context.Background(), 1, doc.ID, MaterializeInput{})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestMaterializeTwiceReportsAlreadyMaterialized(t *testing.T) {
	svc, store := newTransactionFixture(t)
	doc := parsedDocument(t, store, 1)

	_, err := svc.Materialize(context.Background(), 1, doc.ID, MaterializeInput{})
	require.NoError(t, err)

	_, err = svc.Materialize(context.Background(), 1, doc.ID, MaterializeInput{})
	assert.ErrorIs(t, err, ErrAlreadyMaterialized)
}

func TestMaterializeRejectsForeignDocument(t *testing.T) {
	svc, store := newTransactionFixture(t)
	doc := parsedDocument(t, store, 1)

	_, err := svc.Materialize(context.Background(), 2, doc.ID, MaterializeInput{})
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestMaterializeUnknownDocument(t *testing.T) {
	svc, _ := newTransactionFixture(t)

	_, err := svc.Materialize(context.Background(), 1, 404, MaterializeInput{})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConcurrentConfirmsProduceOneTransaction(t *testing.T) {
	svc, store := newTransactionFixture(t)
	doc := parsedDocument(t, store, 1)

	const attempts = 8
	results := make(chan error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Materialize(context.Background(), 1, doc.ID, MaterializeInput{})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, duplicated int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, ErrAlreadyMaterialized):
			duplicated++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, duplicated)

	txs := memory.Transactions{Store: store}
	listed, err := txs.ListByOwner(context.Background(), 1, 10, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}
