package repositories

import (
	"context"

	"profiles-api/internal/models"
)

// UserRepository defines operations on account rows
type UserRepository interface {
	// Create inserts the account and sets its internal ID
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves an account by internal ID
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// GetByPublicID retrieves an account by its public ID (the referral code)
	GetByPublicID(ctx context.Context, userID string) (*models.User, error)

	// GetByEmailDigest retrieves an account by the keyed digest of its email
	GetByEmailDigest(ctx context.Context, digest string) (*models.User, error)

	// GetBySocialID retrieves the account linked to a social identity
	GetBySocialID(ctx context.Context, socialID string) (*models.User, error)

	// GetByCustomerID retrieves the account known to the billing provider under customerID
	GetByCustomerID(ctx context.Context, customerID string) (*models.User, error)

	// SetCustomerID records the billing account of an account that has none.
	// It returns ErrConcurrency when one was recorded first.
	SetCustomerID(ctx context.Context, id int64, customerID string) error

	// UpdatePassword stores a new password hash
	UpdatePassword(ctx context.Context, id int64, hash string) error

	// LinkSocial attaches a social identity; pictureURL only fills an empty picture
	LinkSocial(ctx context.Context, id int64, socialID, pictureURL string) error

	// UnlinkSocial detaches the social identity; the picture is cleared unless uploaded
	UnlinkSocial(ctx context.Context, id int64) error

	// UpdatePicture stores the picture URL and whether the user uploaded it
	UpdatePicture(ctx context.Context, id int64, url string, uploaded bool) error

	// UpdateProfileImageKey records the generated profile image object key
	UpdateProfileImageKey(ctx context.Context, id int64, key string) error

	// UpdateMystery writes next only if the stored state still equals prev.
	// It returns ErrConcurrency when another writer got there first.
	UpdateMystery(ctx context.Context, id int64, prev, next models.Mystery) error

	// Delete removes the account; owned rows cascade
	Delete(ctx context.Context, id int64) error
}

// NotificationRepository defines operations on the notification feed
type NotificationRepository interface {
	// Create inserts a notification
	Create(ctx context.Context, n *models.Notification) error

	// ListByRID returns an account's notifications, newest first
	ListByRID(ctx context.Context, rid int64) ([]*models.Notification, error)

	// CountUnvisited returns the number of notifications not yet seen
	CountUnvisited(ctx context.Context, rid int64) (int, error)

	// CountByType returns how many notifications of a type an account has
	CountByType(ctx context.Context, rid int64, notificationType int) (int, error)

	// MarkVisited flags every unseen notification of the account as seen
	MarkVisited(ctx context.Context, rid int64) error
}

// PurchaseRepository defines operations on purchased products
type PurchaseRepository interface {
	// Create inserts a purchase
	Create(ctx context.Context, p *models.Purchase) error

	// GetByID retrieves a purchase owned by rid
	GetByID(ctx context.Context, id, rid int64) (*models.Purchase, error)

	// ListByRID returns every purchase of an account
	ListByRID(ctx context.Context, rid int64) ([]*models.Purchase, error)

	// DeleteBySubscription removes the purchases of a subscription owned by rid
	DeleteBySubscription(ctx context.Context, rid int64, subscriptionID string) error
}

// TransactionRepository defines operations on the purchase/refund ledger
type TransactionRepository interface {
	// Create appends a ledger entry
	Create(ctx context.Context, t *models.Transaction) error

	// ListByRID returns the ledger entries of an account, oldest first
	ListByRID(ctx context.Context, rid int64) ([]*models.Transaction, error)
}

// ResetTokenRepository defines operations on password reset tokens
type ResetTokenRepository interface {
	// Save stores the account's current token, replacing any previous one
	Save(ctx context.Context, t *models.ResetToken) error

	// Get retrieves the account's current token
	Get(ctx context.Context, rid int64) (*models.ResetToken, error)

	// Deactivate marks the token with digest as used. It returns
	// ErrConcurrency when that token is no longer the active one.
	Deactivate(ctx context.Context, rid int64, digest string) error
}

// Store groups the repositories that share one database
type Store struct {
	Users         UserRepository
	Notifications NotificationRepository
	Purchases     PurchaseRepository
	Transactions  TransactionRepository
	ResetTokens   ResetTokenRepository
	Tx            TransactionManager
}
