package dto

import (
	"time"

	"finscan/internal/models"
)

type ExtractionResponse struct {
	DocumentType             string  `json:"document_type"`
	VendorName               string  `json:"vendor_name"`
	TransactionDate          string  `json:"transaction_date"`
	TotalAmount              string  `json:"total_amount"`
	Currency                 string  `json:"currency"`
	TransactionKind          string  `json:"transaction_kind"`
	SuggestedCategoryID      int64   `json:"suggested_category_id"`
	SuggestedCategoryKind    string  `json:"suggested_category_kind"`
	SuggestedPaymentMethodID *int64  `json:"suggested_payment_method_id,omitempty"`
	Confidence               float64 `json:"confidence"`
}

type DocumentResponse struct {
	ID            int64               `json:"id"`
	FileName      string              `json:"file_name"`
	FileSize      int64               `json:"file_size"`
	MimeType      string              `json:"mime_type"`
	Status        string              `json:"status"`
	Extraction    *ExtractionResponse `json:"extraction,omitempty"`
	FailureCause  string              `json:"failure_cause,omitempty"`
	TransactionID *int64              `json:"transaction_id,omitempty"`
	CreatedAt     string              `json:"created_at"`
}

func NewDocumentResponse(doc *models.Document) *DocumentResponse {
	resp := &DocumentResponse{
		ID:            doc.ID,
		FileName:      doc.FileName,
		FileSize:      doc.FileSize,
		MimeType:      doc.MimeType,
		Status:        string(doc.Status),
		FailureCause:  doc.FailureCause,
		TransactionID: doc.TransactionID,
		CreatedAt:     doc.CreatedAt.Format(time.RFC3339),
	}
	if doc.Extraction != nil {
		resp.Extraction = NewExtractionResponse(doc.Extraction)
	}
	return resp
}

func NewExtractionResponse(ext *models.ExtractionResult) *ExtractionResponse {
	return &ExtractionResponse{
		DocumentType:             ext.DocumentType,
		VendorName:               ext.VendorName,
		TransactionDate:          ext.TransactionDate.Format("2006-01-02"),
		TotalAmount:              ext.TotalAmount.String(),
		Currency:                 ext.Currency,
		TransactionKind:          string(ext.Kind),
		SuggestedCategoryID:      ext.SuggestedCategoryID,
		SuggestedCategoryKind:    ext.SuggestedCategoryKind,
		SuggestedPaymentMethodID: ext.SuggestedPaymentMethodID,
		Confidence:               ext.Confidence,
	}
}
