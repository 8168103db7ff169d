package clientcache

import (
	"strconv"
	"time"

	"finscan/internal/models"

	"github.com/patrickmn/go-cache"
)

// Invalidation scopes signaled to downstream read caches when a document is
// materialized into a transaction.
const (
	ScopeLedger      = "ledger"
	ScopeBudgetSpend = "budget-spend"
	ScopeSummary     = "summary"
)

const (
	defaultExpiration = 12 * time.Hour
	cleanupInterval   = 1 * time.Hour
)

// InvalidateFunc is called once per scope when a materialization lands.
type InvalidateFunc func(scope string)

// SessionCache holds one client session's last-known view of its in-flight
// documents. It is an optimization layer over the document repository, never
// an authority: entries are seeded optimistically on upload and merged from
// processing events, and any ground-truth decision must go back to the
// repository. The cache lives and dies with the session.
type SessionCache struct {
	entries    *cache.Cache
	dismissed  *cache.Cache
	invalidate []InvalidateFunc
}

func NewSessionCache() *SessionCache {
	return &SessionCache{
		entries:   cache.New(defaultExpiration, cleanupInterval),
		dismissed: cache.New(defaultExpiration, cleanupInterval),
	}
}

// OnInvalidate registers a callback fired for each downstream scope when a
// materialization is recorded.
func (s *SessionCache) OnInvalidate(fn InvalidateFunc) {
	s.invalidate = append(s.invalidate, fn)
}

// Put inserts or replaces the entry for the document. Used for the
// optimistic insert right after a successful upload, before any server
// confirmation of processing.
func (s *SessionCache) Put(doc *models.Document) {
	cp := *doc
	s.entries.Set(key(doc.ID), &cp, cache.DefaultExpiration)
}

// Get returns the cached view of the document, if present.
func (s *SessionCache) Get(id int64) (*models.Document, bool) {
	v, ok := s.entries.Get(key(id))
	if !ok {
		return nil, false
	}
	cp := *v.(*models.Document)
	return &cp, true
}

// List returns all cached entries.
func (s *SessionCache) List() []*models.Document {
	items := s.entries.Items()
	result := make([]*models.Document, 0, len(items))
	for _, item := range items {
		cp := *item.Object.(*models.Document)
		result = append(result, &cp)
	}
	return result
}

// ApplyEvent merges a processing event into the matching entry. Events for
// unknown documents are ignored: the entry may have been dismissed locally,
// or the event may be late or duplicated.
func (s *SessionCache) ApplyEvent(event models.ProcessingEvent) {
	v, ok := s.entries.Get(key(event.DocumentID))
	if !ok {
		return
	}
	doc := *v.(*models.Document)

	// The entry already carries its extraction outcome; a redelivered event
	// must not walk the local status backward.
	if doc.Status.Terminal() || doc.Status == models.StatusParsed {
		return
	}

	if event.Failed() {
		doc.Status = models.StatusFailed
		doc.FailureCause = event.Error
	} else if event.Result != nil {
		ext := *event.Result
		doc.Status = models.StatusParsed
		doc.Extraction = &ext
	}
	s.entries.Set(key(doc.ID), &doc, cache.DefaultExpiration)
}

// Remove drops the entry locally and remembers the dismissal for the rest of
// the session. A dismiss never touches server state.
func (s *SessionCache) Remove(id int64) {
	s.entries.Delete(key(id))
	s.dismissed.Set(key(id), struct{}{}, cache.DefaultExpiration)
}

// Dismissed reports whether the document was dismissed in this session.
func (s *SessionCache) Dismissed(id int64) bool {
	_, ok := s.dismissed.Get(key(id))
	return ok
}

// MarkMaterialized records a successful materialization and signals the
// downstream read caches that depend on ledger contents.
func (s *SessionCache) MarkMaterialized(id, transactionID int64) {
	if v, ok := s.entries.Get(key(id)); ok {
		doc := *v.(*models.Document)
		doc.Status = models.StatusTransactionCreated
		doc.TransactionID = &transactionID
		s.entries.Set(key(doc.ID), &doc, cache.DefaultExpiration)
	}

	for _, fn := range s.invalidate {
		fn(ScopeLedger)
		fn(ScopeBudgetSpend)
		fn(ScopeSummary)
	}
}

func key(id int64) string {
	return "doc_" + strconv.FormatInt(id, 10)
}
