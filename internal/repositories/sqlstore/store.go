package sqlstore

import (
	"database/sql"

	"profiles-api/internal/database"
	"profiles-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

// NewStore wires every SQL repository onto one connection pool
func NewStore(db *sql.DB, dialect database.Dialect, logger *logrus.Logger) *repositories.Store {
	return &repositories.Store{
		Users:         NewUserRepository(db, dialect, logger),
		Notifications: NewNotificationRepository(db, dialect, logger),
		Purchases:     NewPurchaseRepository(db, dialect, logger),
		Transactions:  NewTransactionRepository(db, dialect, logger),
		ResetTokens:   NewResetTokenRepository(db, dialect, logger),
		Tx:            NewTransactionManager(db, logger),
	}
}
