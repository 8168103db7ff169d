package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finscan/internal/models"
	"finscan/internal/repository"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var documentColumns = []string{
	"id", "owner_id", "storage_key", "file_name", "file_size", "mime_type", "status",
	"doc_type", "vendor_name", "transaction_date", "total_amount", "currency", "kind",
	"suggested_category_id", "suggested_category_kind", "suggested_payment_method_id", "confidence",
	"failure_cause", "transaction_id", "created_at", "updated_at",
}

type DocumentRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewDocumentRepository(db *pgxpool.Pool, logger *zap.Logger) *DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	query := squirrel.Insert("documents").
		Columns("owner_id", "storage_key", "file_name", "file_size", "mime_type", "status", "created_at", "updated_at").
		Values(doc.OwnerID, doc.StorageKey, doc.FileName, doc.FileSize, doc.MimeType, doc.Status, doc.CreatedAt, doc.UpdatedAt).
		Suffix("RETURNING id").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	return r.db.QueryRow(ctx, sql, args...).Scan(&doc.ID)
}

func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*models.Document, error) {
	query := squirrel.Select(documentColumns...).
		From("documents").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	doc, err := scanDocument(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return doc, err
}

func (r *DocumentRepository) ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*models.Document, error) {
	// The uint64 conversions below would turn a negative into a huge value.
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}

	query := squirrel.Select(documentColumns...).
		From("documents").
		Where(squirrel.Eq{"owner_id": ownerID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var documents []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		documents = append(documents, doc)
	}

	return documents, rows.Err()
}

// TransitionStatus performs a guarded status update: the WHERE clause pins
// the currently persisted status, so a lost race leaves the row untouched.
func (r *DocumentRepository) TransitionStatus(ctx context.Context, id int64, from, to models.DocumentStatus, update *repository.StatusUpdate) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("transition %s -> %s: %w", from, to, repository.ErrStatusConflict)
	}

	query := squirrel.Update("documents").
		Set("status", to).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": from}).
		PlaceholderFormat(squirrel.Dollar)

	if update != nil && update.Extraction != nil {
		ext := update.Extraction
		query = query.
			Set("doc_type", ext.DocumentType).
			Set("vendor_name", ext.VendorName).
			Set("transaction_date", ext.TransactionDate).
			Set("total_amount", ext.TotalAmount).
			Set("currency", ext.Currency).
			Set("kind", ext.Kind).
			Set("suggested_category_id", ext.SuggestedCategoryID).
			Set("suggested_category_kind", ext.SuggestedCategoryKind).
			Set("suggested_payment_method_id", ext.SuggestedPaymentMethodID).
			Set("confidence", ext.Confidence)
	}
	if update != nil && update.FailureCause != "" {
		query = query.Set("failure_cause", update.FailureCause)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		r.logger.Debug("status transition lost race",
			zap.Int64("document_id", id),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return repository.ErrStatusConflict
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		doc      models.Document
		docType  *string
		vendor   *string
		txDate   *time.Time
		amount   decimal.NullDecimal
		currency *string
		kind     *string
		catID    *int64
		catKind  *string
		pmID     *int64
		conf     *float64
		cause    *string
	)

	err := row.Scan(
		&doc.ID, &doc.OwnerID, &doc.StorageKey, &doc.FileName, &doc.FileSize, &doc.MimeType, &doc.Status,
		&docType, &vendor, &txDate, &amount, &currency, &kind,
		&catID, &catKind, &pmID, &conf,
		&cause, &doc.TransactionID, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if cause != nil {
		doc.FailureCause = *cause
	}

	// Extraction columns are written together on the parsed transition;
	// confidence doubles as the presence marker.
	if conf != nil {
		doc.Extraction = &models.ExtractionResult{
			Confidence:               *conf,
			TotalAmount:              amount.Decimal,
			SuggestedPaymentMethodID: pmID,
		}
		if docType != nil {
			doc.Extraction.DocumentType = *docType
		}
		if vendor != nil {
			doc.Extraction.VendorName = *vendor
		}
		if txDate != nil {
			doc.Extraction.TransactionDate = *txDate
		}
		if currency != nil {
			doc.Extraction.Currency = *currency
		}
		if kind != nil {
			doc.Extraction.Kind = models.TransactionKind(*kind)
		}
		if catID != nil {
			doc.Extraction.SuggestedCategoryID = *catID
		}
		if catKind != nil {
			doc.Extraction.SuggestedCategoryKind = *catKind
		}
	}

	return &doc, nil
}

var _ repository.DocumentRepository = (*DocumentRepository)(nil)
