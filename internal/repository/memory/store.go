package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"finscan/internal/models"
	"finscan/internal/repository"
)

// Store is an in-memory implementation of the document and transaction
// repositories. It is safe for concurrent use and honors the same guarded
// transition semantics as the Postgres implementation. Data is lost on
// restart; it backs the memory storage driver and the test suites.
type Store struct {
	mu         sync.Mutex
	nextDocID  int64
	nextTxID   int64
	documents  map[int64]*models.Document
	transacted map[int64]*models.Transaction
}

func NewStore() *Store {
	return &Store{
		documents:  make(map[int64]*models.Document),
		transacted: make(map[int64]*models.Transaction),
	}
}

func (s *Store) Create(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextDocID++
	now := time.Now()
	doc.ID = s.nextDocID
	doc.CreatedAt = now
	doc.UpdatedAt = now

	cp := copyDocument(doc)
	s.documents[doc.ID] = cp
	return nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %d: %w", id, repository.ErrNotFound)
	}
	return copyDocument(doc), nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*models.Document, error) {
	if offset < 0 {
		offset = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*models.Document
	for _, doc := range s.documents {
		if doc.OwnerID == ownerID {
			result = append(result, copyDocument(doc))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID > result[j].ID
	})

	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) TransitionStatus(ctx context.Context, id int64, from, to models.DocumentStatus, update *repository.StatusUpdate) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("transition %s -> %s: %w", from, to, repository.ErrStatusConflict)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return fmt.Errorf("document %d: %w", id, repository.ErrNotFound)
	}
	if doc.Status != from {
		return repository.ErrStatusConflict
	}

	doc.Status = to
	doc.UpdatedAt = time.Now()
	if update != nil {
		if update.Extraction != nil {
			ext := *update.Extraction
			doc.Extraction = &ext
		}
		if update.FailureCause != "" {
			doc.FailureCause = update.FailureCause
		}
	}
	return nil
}

// Materialize holds the store lock for the whole insert-and-link step, which
// gives the same exactly-once outcome as the Postgres transaction.
func (s *Store) Materialize(ctx context.Context, docID int64, t *models.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[docID]
	if !ok {
		return 0, fmt.Errorf("document %d: %w", docID, repository.ErrNotFound)
	}
	if doc.Status != models.StatusParsed {
		return 0, repository.ErrAlreadyMaterialized
	}

	s.nextTxID++
	t.ID = s.nextTxID
	t.DocumentID = docID
	t.CreatedAt = time.Now()

	cp := *t
	s.transacted[t.ID] = &cp

	doc.Status = models.StatusTransactionCreated
	txID := t.ID
	doc.TransactionID = &txID
	doc.UpdatedAt = time.Now()

	return t.ID, nil
}

func (s *Store) GetTransactionByID(ctx context.Context, id int64) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transacted[id]
	if !ok {
		return nil, fmt.Errorf("transaction %d: %w", id, repository.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (s *Store) ListTransactionsByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*models.Transaction, error) {
	if offset < 0 {
		offset = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*models.Transaction
	for _, t := range s.transacted {
		if t.OwnerID == ownerID {
			cp := *t
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID > result[j].ID
	})

	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func copyDocument(doc *models.Document) *models.Document {
	cp := *doc
	if doc.Extraction != nil {
		ext := *doc.Extraction
		cp.Extraction = &ext
	}
	if doc.TransactionID != nil {
		id := *doc.TransactionID
		cp.TransactionID = &id
	}
	return &cp
}

// Transactions adapts the store to the transaction repository interface,
// which names its getters without the entity prefix.
type Transactions struct {
	*Store
}

func (t Transactions) GetByID(ctx context.Context, id int64) (*models.Transaction, error) {
	return t.GetTransactionByID(ctx, id)
}

func (t Transactions) ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*models.Transaction, error) {
	return t.ListTransactionsByOwner(ctx, ownerID, limit, offset)
}

var (
	_ repository.DocumentRepository    = (*Store)(nil)
	_ repository.TransactionRepository = Transactions{}
)
