package models

// ProcessingEvent is the ephemeral realtime message signaling a document's
// extraction outcome. Exactly one of Result and Error is set. Events are not
// persisted; subscribers missing at publish time never see them.
type ProcessingEvent struct {
	DocumentID int64             `json:"document_id"`
	OwnerID    int64             `json:"-"`
	Result     *ExtractionResult `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Failed reports whether the event carries a failure cause.
func (e ProcessingEvent) Failed() bool {
	return e.Error != ""
}
