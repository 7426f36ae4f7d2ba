package sqlstore

import (
	"context"
	"database/sql"

	"profiles-api/internal/database"
	"profiles-api/internal/models"
	"profiles-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

const purchaseColumns = `id, rid, product_id, subscription_id, currency_code, amount, partner_rid, transaction_date`

// PurchaseRepository implements repositories.PurchaseRepository
type PurchaseRepository struct {
	baseRepository
}

// NewPurchaseRepository creates a new purchase repository
func NewPurchaseRepository(db *sql.DB, dialect database.Dialect, logger *logrus.Logger) *PurchaseRepository {
	return &PurchaseRepository{
		baseRepository: newBaseRepository(db, dialect, "user_products", logger),
	}
}

// Create inserts a purchase
func (r *PurchaseRepository) Create(ctx context.Context, p *models.Purchase) error {
	if err := r.validateID(p.RID); err != nil {
		return err
	}

	id, err := r.insertReturningID(ctx,
		`INSERT INTO user_products (rid, product_id, subscription_id, currency_code, amount, partner_rid, transaction_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.RID, p.ProductID, p.SubscriptionID, p.CurrencyCode, p.Amount, nullInt64(p.PartnerRID), p.TransactionDate.UTC())
	if err != nil {
		return err
	}

	p.ID = id
	return nil
}

// GetByID retrieves a purchase owned by rid
func (r *PurchaseRepository) GetByID(ctx context.Context, id, rid int64) (*models.Purchase, error) {
	if err := r.validateID(id); err != nil {
		return nil, err
	}

	row := r.executeQueryRow(ctx, "get_by_id",
		"SELECT "+purchaseColumns+" FROM user_products WHERE id = ? AND rid = ?", id, rid)
	p, err := scanPurchase(row)
	if err != nil {
		return nil, r.scanError("get_by_id", formatID(id), err)
	}
	return p, nil
}

// ListByRID returns every purchase of an account
func (r *PurchaseRepository) ListByRID(ctx context.Context, rid int64) ([]*models.Purchase, error) {
	rows, err := r.executeQuery(ctx, "list",
		"SELECT "+purchaseColumns+" FROM user_products WHERE rid = ? ORDER BY transaction_date DESC, id DESC", rid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, repositories.NewRepositoryError("list", r.table, formatID(rid), err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, repositories.NewRepositoryError("list", r.table, formatID(rid), err)
	}

	return out, nil
}

// DeleteBySubscription removes the purchases of a subscription owned by rid
func (r *PurchaseRepository) DeleteBySubscription(ctx context.Context, rid int64, subscriptionID string) error {
	result, err := r.executeExec(ctx, "delete",
		`DELETE FROM user_products WHERE subscription_id = ? AND rid = ?`, subscriptionID, rid)
	if err != nil {
		return err
	}
	return r.checkRowsAffected(result, "delete", rid)
}

func scanPurchase(row rowScanner) (*models.Purchase, error) {
	var (
		p       models.Purchase
		partner sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.RID, &p.ProductID, &p.SubscriptionID, &p.CurrencyCode, &p.Amount, &partner, &p.TransactionDate)
	if err != nil {
		return nil, err
	}
	p.PartnerRID = int64Ptr(partner)
	p.TransactionDate = p.TransactionDate.UTC()
	return &p, nil
}
