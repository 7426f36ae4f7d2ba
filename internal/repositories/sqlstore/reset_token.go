package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"profiles-api/internal/database"
	"profiles-api/internal/models"
	"profiles-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

// ResetTokenRepository implements repositories.ResetTokenRepository.
// Each account holds at most one token; issuing a new one replaces it.
type ResetTokenRepository struct {
	baseRepository
}

// NewResetTokenRepository creates a new reset token repository
func NewResetTokenRepository(db *sql.DB, dialect database.Dialect, logger *logrus.Logger) *ResetTokenRepository {
	return &ResetTokenRepository{
		baseRepository: newBaseRepository(db, dialect, "password_reset_tokens", logger),
	}
}

// Save stores the account's current token, replacing any previous one
func (r *ResetTokenRepository) Save(ctx context.Context, t *models.ResetToken) error {
	if err := r.validateID(t.RID); err != nil {
		return err
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	// ON CONFLICT ... DO UPDATE is understood by both SQLite and Postgres
	_, err := r.executeExec(ctx, "save",
		`INSERT INTO password_reset_tokens (rid, token_digest, is_active, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (rid) DO UPDATE SET token_digest = excluded.token_digest, is_active = excluded.is_active,
		expires_at = excluded.expires_at, created_at = excluded.created_at`,
		t.RID, t.Digest, t.Active, t.ExpiresAt.UTC(), t.CreatedAt.UTC())
	return err
}

// Get retrieves the account's current token
func (r *ResetTokenRepository) Get(ctx context.Context, rid int64) (*models.ResetToken, error) {
	var t models.ResetToken
	err := r.executeQueryRow(ctx, "get",
		`SELECT rid, token_digest, is_active, expires_at, created_at FROM password_reset_tokens WHERE rid = ?`, rid).
		Scan(&t.RID, &t.Digest, &t.Active, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return nil, r.scanError("get", formatID(rid), err)
	}
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}

// Deactivate marks the token as used if it is still the account's active
// token with this digest. A token already used or replaced returns
// ErrConcurrency, so a link can be redeemed at most once.
func (r *ResetTokenRepository) Deactivate(ctx context.Context, rid int64, digest string) error {
	result, err := r.executeExec(ctx, "deactivate",
		`UPDATE password_reset_tokens SET is_active = ? WHERE rid = ? AND token_digest = ? AND is_active = ?`,
		false, rid, digest, true)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return repositories.NewRepositoryError("deactivate", r.table, formatID(rid), err)
	}
	if rows == 0 {
		return repositories.ConcurrencyError(r.table, formatID(rid))
	}
	return nil
}
