package postgres

import (
	"context"
	"errors"
	"time"

	"finscan/internal/models"
	"finscan/internal/repository"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var transactionColumns = []string{
	"id", "owner_id", "document_id", "category_id", "category_kind", "payment_method_id",
	"amount", "currency", "kind", "description", "date", "created_at",
}

type TransactionRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTransactionRepository(db *pgxpool.Pool, logger *zap.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:     db,
		logger: logger,
	}
}

// Materialize inserts the transaction and flips the source document from
// parsed to transaction_created in one database transaction. The guarded
// document update decides the winner under concurrency: zero rows affected
// means another caller materialized first and everything rolls back.
func (r *TransactionRepository) Materialize(ctx context.Context, docID int64, t *models.Transaction) (int64, error) {
	dbTx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer dbTx.Rollback(ctx)

	t.DocumentID = docID
	t.CreatedAt = time.Now()

	insert := squirrel.Insert("transactions").
		Columns("owner_id", "document_id", "category_id", "category_kind", "payment_method_id",
			"amount", "currency", "kind", "description", "date", "created_at").
		Values(t.OwnerID, t.DocumentID, t.CategoryID, t.CategoryKind, t.PaymentMethodID,
			t.Amount, t.Currency, t.Kind, t.Description, t.Date, t.CreatedAt).
		Suffix("RETURNING id").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := insert.ToSql()
	if err != nil {
		return 0, err
	}
	if err := dbTx.QueryRow(ctx, sql, args...).Scan(&t.ID); err != nil {
		return 0, err
	}

	link := squirrel.Update("documents").
		Set("status", models.StatusTransactionCreated).
		Set("transaction_id", t.ID).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": docID, "status": models.StatusParsed}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err = link.ToSql()
	if err != nil {
		return 0, err
	}
	tag, err := dbTx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		r.logger.Debug("materialization lost race", zap.Int64("document_id", docID))
		return 0, repository.ErrAlreadyMaterialized
	}

	if err := dbTx.Commit(ctx); err != nil {
		return 0, err
	}
	return t.ID, nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*models.Transaction, error) {
	query := squirrel.Select(transactionColumns...).
		From("transactions").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	t, err := scanTransaction(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return t, err
}

func (r *TransactionRepository) ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*models.Transaction, error) {
	// The uint64 conversions below would turn a negative into a huge value.
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}

	query := squirrel.Select(transactionColumns...).
		From("transactions").
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

	var transactions []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}

	return transactions, rows.Err()
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(
		&t.ID, &t.OwnerID, &t.DocumentID, &t.CategoryID, &t.CategoryKind, &t.PaymentMethodID,
		&t.Amount, &t.Currency, &t.Kind, &t.Description, &t.Date, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

var _ repository.TransactionRepository = (*TransactionRepository)(nil)
