package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Request identifies the stored document to recognize.
type Request struct {
	DocumentID int64  `json:"documentId"`
	StorageKey string `json:"storageKey"`
}

// Response is the recognition service's extraction payload. Fields arrive
// unvalidated; the dispatcher owns validation.
type Response struct {
	DocumentType             string          `json:"documentType"`
	VendorName               string          `json:"vendorName"`
	TransactionDate          string          `json:"transactionDate"`
	TotalAmount              decimal.Decimal `json:"totalAmount"`
	Currency                 string          `json:"currency"`
	TransactionKind          string          `json:"transactionKind"`
	SuggestedCategoryID      int64           `json:"suggestedCategoryId"`
	SuggestedCategoryKind    string          `json:"suggestedCategoryKind"`
	SuggestedPaymentMethodID *int64          `json:"suggestedPaymentMethodId,omitempty"`
	ConfidenceScore          *float64        `json:"confidenceScore"`
}

// Client invokes the external document recognition service.
type Client interface {
	Recognize(ctx context.Context, req Request) (*Response, error)
}

// HTTPClient talks to the recognition service over HTTP+JSON. Timeouts are
// driven by the caller's context; failures surface the service's error
// envelope message when one is present.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPClient(baseURL string, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

func (c *HTTPClient) Recognize(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode recognition request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/recognize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create recognition request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call recognition service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var envelope struct {
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Message != "" {
			return nil, fmt.Errorf("recognition service: %s", envelope.Message)
		}
		c.logger.Warn("recognition service returned unexpected payload",
			zap.Int("status", resp.StatusCode),
			zap.Int64("document_id", req.DocumentID),
		)
		return nil, fmt.Errorf("recognition service returned status %d", resp.StatusCode)
	}

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode recognition response: %w", err)
	}
	return &result, nil
}

var _ Client = (*HTTPClient)(nil)
