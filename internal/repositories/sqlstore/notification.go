package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"

	"profiles-api/internal/database"
	"profiles-api/internal/models"
	"profiles-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

// NotificationRepository implements repositories.NotificationRepository
type NotificationRepository struct {
	baseRepository
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, dialect database.Dialect, logger *logrus.Logger) *NotificationRepository {
	return &NotificationRepository{
		baseRepository: newBaseRepository(db, dialect, "notifications", logger),
	}
}

// Create inserts a notification
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if err := r.validateID(n.RID); err != nil {
		return err
	}

	payload := n.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	id, err := r.insertReturningID(ctx,
		`INSERT INTO notifications (rid, user_id, notification_type, json, visited, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		n.RID, n.UserID, n.NotificationType, string(payload), n.Visited, n.CreatedAt.UTC())
	if err != nil {
		return err
	}

	n.ID = id
	return nil
}

// ListByRID returns an account's notifications, newest first
func (r *NotificationRepository) ListByRID(ctx context.Context, rid int64) ([]*models.Notification, error) {
	rows, err := r.executeQuery(ctx, "list",
		`SELECT id, rid, user_id, notification_type, json, visited, created_at
		FROM notifications WHERE rid = ? ORDER BY created_at DESC, id DESC`, rid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		var (
			n       models.Notification
			payload string
		)
		if err := rows.Scan(&n.ID, &n.RID, &n.UserID, &n.NotificationType, &payload, &n.Visited, &n.CreatedAt); err != nil {
			return nil, repositories.NewRepositoryError("list", r.table, formatID(rid), err)
		}
		n.Payload = json.RawMessage(payload)
		n.CreatedAt = n.CreatedAt.UTC()
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, repositories.NewRepositoryError("list", r.table, formatID(rid), err)
	}

	return out, nil
}

// CountUnvisited returns the number of notifications not yet seen
func (r *NotificationRepository) CountUnvisited(ctx context.Context, rid int64) (int, error) {
	var count int
	err := r.executeQueryRow(ctx, "count_unvisited",
		`SELECT COUNT(*) FROM notifications WHERE rid = ? AND visited = ?`, rid, false).Scan(&count)
	if err != nil {
		return 0, repositories.NewRepositoryError("count_unvisited", r.table, formatID(rid), err)
	}
	return count, nil
}

// CountByType returns how many notifications of a type an account has
func (r *NotificationRepository) CountByType(ctx context.Context, rid int64, notificationType int) (int, error) {
	var count int
	err := r.executeQueryRow(ctx, "count_by_type",
		`SELECT COUNT(*) FROM notifications WHERE rid = ? AND notification_type = ?`, rid, notificationType).Scan(&count)
	if err != nil {
		return 0, repositories.NewRepositoryError("count_by_type", r.table, formatID(rid), err)
	}
	return count, nil
}

// MarkVisited flags every unseen notification of the account as seen
func (r *NotificationRepository) MarkVisited(ctx context.Context, rid int64) error {
	_, err := r.executeExec(ctx, "mark_visited",
		`UPDATE notifications SET visited = ? WHERE rid = ? AND visited = ?`, true, rid, false)
	return err
}
