package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// Notification is an entry in an account's notification feed
type Notification struct {
	ID               int64           `json:"-" db:"id"`
	RID              int64           `json:"-" db:"rid"`
	UserID           string          `json:"-" db:"user_id"`
	NotificationType int             `json:"notification_type" db:"notification_type"`
	Payload          json.RawMessage `json:"notification_json" db:"json"`
	Visited          bool            `json:"-" db:"visited"`
	CreatedAt        time.Time       `json:"-" db:"created_at"`
}

// NewNotification builds a notification with a JSON payload
func NewNotification(rid int64, userID string, notificationType int, payload interface{}) (*Notification, error) {
	raw := json.RawMessage("{}")
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return &Notification{
		RID:              rid,
		UserID:           userID,
		NotificationType: notificationType,
		Payload:          raw,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// FeedItem is one rendered notification in a date group
type FeedItem struct {
	NotificationType int             `json:"notification_type"`
	NotificationJSON json.RawMessage `json:"notification_json"`
	DateTime         string          `json:"datetime"`
}

// FeedGroup is the notifications of one local calendar day
type FeedGroup struct {
	Label string
	Items []FeedItem
}

// MarshalJSON renders the group as a single-key object {label: items}
func (g FeedGroup) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]FeedItem{g.Label: g.Items})
}

// MaxBadgeCount is the largest unread count shown as a number
const MaxBadgeCount = 9

// BadgeCount renders an unread count the way the bell icon shows it
func BadgeCount(n int) string {
	if n > MaxBadgeCount {
		return "9+"
	}
	return strconv.Itoa(n)
}
