package sqlstore

import (
	"context"
	"database/sql"

	"profiles-api/internal/database"
	"profiles-api/internal/models"
	"profiles-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

// TransactionRepository implements repositories.TransactionRepository over
// the user_transactions ledger
type TransactionRepository struct {
	baseRepository
}

// NewTransactionRepository creates a new ledger repository
func NewTransactionRepository(db *sql.DB, dialect database.Dialect, logger *logrus.Logger) *TransactionRepository {
	return &TransactionRepository{
		baseRepository: newBaseRepository(db, dialect, "user_transactions", logger),
	}
}

// Create appends a ledger entry
func (r *TransactionRepository) Create(ctx context.Context, t *models.Transaction) error {
	if err := r.validateID(t.RID); err != nil {
		return err
	}

	id, err := r.insertReturningID(ctx,
		`INSERT INTO user_transactions (rid, user_id, product_id, transaction_type, currency_code, amount,
		os_name, browser_name, subscription_id, customer_id, acquisition_channel, transaction_timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.RID, t.UserID, t.ProductID, t.TransactionType, t.CurrencyCode, t.Amount,
		t.OSName, t.BrowserName, t.SubscriptionID, t.CustomerID, t.AcquisitionChannel, t.Timestamp.UTC())
	if err != nil {
		return err
	}

	t.ID = id
	return nil
}

// ListByRID returns the ledger entries of an account, oldest first
func (r *TransactionRepository) ListByRID(ctx context.Context, rid int64) ([]*models.Transaction, error) {
	rows, err := r.executeQuery(ctx, "list",
		`SELECT id, rid, user_id, product_id, transaction_type, currency_code, amount, os_name, browser_name,
		subscription_id, customer_id, acquisition_channel, transaction_timestamp
		FROM user_transactions WHERE rid = ? ORDER BY transaction_timestamp, id`, rid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		err := rows.Scan(&t.ID, &t.RID, &t.UserID, &t.ProductID, &t.TransactionType, &t.CurrencyCode, &t.Amount,
			&t.OSName, &t.BrowserName, &t.SubscriptionID, &t.CustomerID, &t.AcquisitionChannel, &t.Timestamp)
		if err != nil {
			return nil, repositories.NewRepositoryError("list", r.table, formatID(rid), err)
		}
		t.Timestamp = t.Timestamp.UTC()
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, repositories.NewRepositoryError("list", r.table, formatID(rid), err)
	}

	return out, nil
}
