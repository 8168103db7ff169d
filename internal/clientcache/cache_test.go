package clientcache

import (
	"testing"

	"finscan/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutAndGetReturnCopies(t *testing.T) {
	sc := NewSessionCache()

	doc := &models.Document{ID: 1, OwnerID: 1, FileName: "receipt.jpg", Status: models.StatusUploaded}
	sc.Put(doc)
	doc.FileName = "mutated"

	got, ok := sc.Get(1)
	require.True(t, ok)
	assert.Equal(t, "receipt.jpg", got.FileName)

	got.Status = models.StatusFailed
	again, ok := sc.Get(1)
	require.True(t, ok)
	assert.Equal(t, models.StatusUploaded, again.Status)
}

func TestGetUnknownDocument(t *testing.T) {
	sc := NewSessionCache()

	_, ok := sc.Get(404)
	assert.False(t, ok)
}

func TestApplyEventMergesSuccess(t *testing.T) {
	sc := NewSessionCache()
	sc.Put(&models.Document{ID: 1, Status: models.StatusProcessing})

	sc.ApplyEvent(models.ProcessingEvent{
		DocumentID: 1,
		Result: &models.ExtractionResult{
			VendorName:  "Acme Store",
			TotalAmount: decimal.RequireFromString("42.50"),
			Currency:    "USD",
			Confidence:  0.91,
		},
	})

	got, ok := sc.Get(1)
	require.True(t, ok)
	assert.Equal(t, models.StatusParsed, got.Status)
	require.NotNil(t, got.Extraction)
	assert.Equal(t, "Acme Store", got.Extraction.VendorName)
}

func TestApplyEventMergesFailure(t *testing.T) {
	sc := NewSessionCache()
	sc.Put(&models.Document{ID: 1, Status: models.StatusProcessing})

	sc.ApplyEvent(models.ProcessingEvent{DocumentID: 1, Error: "Timeout"})

	got, ok := sc.Get(1)
	require.True(t, ok)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, "Timeout", got.FailureCause)
}

func TestApplyEventIgnoresUnknownDocument(t *testing.T) {
	sc := NewSessionCache()
	sc.Put(&models.Document{ID: 1, Status: models.StatusProcessing})

	sc.ApplyEvent(models.ProcessingEvent{DocumentID: 99, Error: "Timeout"})

	assert.Len(t, sc.List(), 1)
	_, ok := sc.Get(99)
	assert.False(t, ok)
}

func TestRemoveIsLocalOnly(t *testing.T) {
	sc := NewSessionCache()
	sc.Put(&models.Document{ID: 1, Status: models.StatusParsed})
	sc.Put(&models.Document{ID: 2, Status: models.StatusUploaded})

	sc.Remove(1)

	_, ok := sc.Get(1)
	assert.False(t, ok)
	_, ok = sc.Get(2)
	assert.True(t, ok)

	// A later event for the dismissed document is a no-op.
	sc.ApplyEvent(models.ProcessingEvent{DocumentID: 1, Error: "Timeout"})
	_, ok = sc.Get(1)
	assert.False(t, ok)
}

func TestApplyEventNeverWalksStatusBackward(t *testing.T) {
	sc := NewSessionCache()
	sc.Put(&models.Document{ID: 1, Status: models.StatusProcessing})

	success := models.ProcessingEvent{
		DocumentID: 1,
		Result:     &models.ExtractionResult{VendorName: "Acme Store", Confidence: 0.91},
	}
	sc.ApplyEvent(success)
	sc.MarkMaterialized(1, 50)

	// Redelivery of the success event after confirmation.
	sc.ApplyEvent(success)

	got, ok := sc.Get(1)
	require.True(t, ok)
	assert.Equal(t, models.StatusTransactionCreated, got.Status)
	require.NotNil(t, got.TransactionID)
	assert.Equal(t, int64(50), *got.TransactionID)
}

func TestApplyEventIgnoresConflictingLateOutcome(t *testing.T) {
	sc := NewSessionCache()
	sc.Put(&models.Document{ID: 1, Status: models.StatusProcessing})

	sc.ApplyEvent(models.ProcessingEvent{
		DocumentID: 1,
		Result:     &models.ExtractionResult{VendorName: "Acme Store"},
	})
	sc.ApplyEvent(models.ProcessingEvent{DocumentID: 1, Error: "Timeout"})

	got, ok := sc.Get(1)
	require.True(t, ok)
	assert.Equal(t, models.StatusParsed, got.Status)
	assert.Empty(t, got.FailureCause)
}

func TestRemoveRecordsDismissal(t *testing.T) {
	sc := NewSessionCache()
	sc.Put(&models.Document{ID: 1, Status: models.StatusProcessing})

	assert.False(t, sc.Dismissed(1))
	sc.Remove(1)
	assert.True(t, sc.Dismissed(1))
	assert.False(t, sc.Dismissed(2))
}

func TestMarkMaterializedSignalsDownstreamScopes(t *testing.T) {
	sc := NewSessionCache()
	sc.Put(&models.Document{ID: 1, Status: models.StatusParsed})

	var fired []string
	sc.OnInvalidate(func(scope string) {
		fired = append(fired, scope)
	})

	sc.MarkMaterialized(1, 50)

	got, ok := sc.Get(1)
	require.True(t, ok)
	assert.Equal(t, models.StatusTransactionCreated, got.Status)
	require.NotNil(t, got.TransactionID)
	assert.Equal(t, int64(50), *got.TransactionID)

	assert.ElementsMatch(t, []string{ScopeLedger, ScopeBudgetSpend, ScopeSummary}, fired)
}

func TestMarkMaterializedWithoutEntryStillInvalidates(t *testing.T) {
	sc := NewSessionCache()

	var fired int
	sc.OnInvalidate(func(string) { fired++ })

	sc.MarkMaterialized(99, 50)
	assert.Equal(t, 3, fired)
}
