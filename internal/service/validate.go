package service

import (
	"fmt"
	"time"

	"finscan/internal/models"
	"finscan/internal/recognizer"

	"github.com/Rhymond/go-money"
)

// confidenceTolerance is how far outside [0,1] a confidence score may drift
// before it stops being a rounding artifact and becomes a broken payload.
const confidenceTolerance = 0.01

// validateExtraction turns a raw recognition response into an extraction
// result, or reports why the payload is unusable. Currency falls back to
// fallbackCurrency when absent; an unknown code is an error, not a guess.
func validateExtraction(resp *recognizer.Response, fallbackCurrency string) (*models.ExtractionResult, error) {
	if resp.TotalAmount.IsNegative() {
		return nil, fmt.Errorf("total amount %s is negative", resp.TotalAmount)
	}

	currency := resp.Currency
	if currency == "" {
		currency = fallbackCurrency
	}
	if money.GetCurrency(currency) == nil {
		return nil, fmt.Errorf("unrecognized currency code %q", currency)
	}

	kind := models.TransactionKind(resp.TransactionKind)
	if kind != models.KindExpense && kind != models.KindIncome {
		return nil, fmt.Errorf("unknown transaction kind %q", resp.TransactionKind)
	}

	if resp.ConfidenceScore == nil {
		return nil, fmt.Errorf("confidence score is missing")
	}
	confidence := *resp.ConfidenceScore
	if confidence < -confidenceTolerance || confidence > 1+confidenceTolerance {
		return nil, fmt.Errorf("confidence score %v is out of range", confidence)
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	txDate, err := time.Parse("2006-01-02", resp.TransactionDate)
	if err != nil {
		return nil, fmt.Errorf("transaction date %q is not an ISO-8601 date", resp.TransactionDate)
	}

	return &models.ExtractionResult{
		DocumentType:             resp.DocumentType,
		VendorName:               resp.VendorName,
		TransactionDate:          txDate,
		TotalAmount:              resp.TotalAmount,
		Currency:                 currency,
		Kind:                     kind,
		SuggestedCategoryID:      resp.SuggestedCategoryID,
		SuggestedCategoryKind:    resp.SuggestedCategoryKind,
		SuggestedPaymentMethodID: resp.SuggestedPaymentMethodID,
		Confidence:               confidence,
	}, nil
}
