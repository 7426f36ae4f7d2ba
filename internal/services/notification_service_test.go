package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"profiles-api/internal/auth"
	"profiles-api/internal/locale"
	"profiles-api/internal/models"
)

func (e *testEnv) notify(t *testing.T, claim *auth.Claim, notificationType int, at time.Time) {
	t.Helper()
	n, err := models.NewNotification(claim.InternalID, claim.PublicID, notificationType, map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("NewNotification() failed: %v", err)
	}
	n.CreatedAt = at
	if err := e.store.Notifications.Create(context.Background(), n); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
}

func TestGroupByLocalDay(t *testing.T) {
	msgs := locale.MustDefault().For(locale.DefaultLocaleID)
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	items := []*models.Notification{
		{NotificationType: 1, Payload: json.RawMessage(`{}`), CreatedAt: time.Date(2024, 3, 15, 11, 0, 0, 0, time.UTC)},
		{NotificationType: 2, Payload: json.RawMessage(`{}`), CreatedAt: time.Date(2024, 3, 15, 1, 0, 0, 0, time.UTC)},
		{NotificationType: 3, Payload: json.RawMessage(`{}`), CreatedAt: time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC)},
	}

	tests := []struct {
		name   string
		offset int
		labels []string
		sizes  []int
	}{
		{"UTC", 0, []string{"Today", "March 13, 2024"}, []int{2, 1}},
		{"BehindUTC", 120, []string{"Today", "March 14, 2024", "March 13, 2024"}, []int{1, 1, 1}},
		{"AheadOfUTC", -780, []string{"Today", "March 15, 2024", "March 13, 2024"}, []int{1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups := groupByLocalDay(items, msgs, now, tt.offset)
			if len(groups) != len(tt.labels) {
				t.Fatalf("Expected %d groups, got %d: %+v", len(tt.labels), len(groups), groups)
			}
			for i, g := range groups {
				if g.Label != tt.labels[i] {
					t.Errorf("Group %d: expected label %q, got %q", i, tt.labels[i], g.Label)
				}
				if len(g.Items) != tt.sizes[i] {
					t.Errorf("Group %d: expected %d items, got %d", i, tt.sizes[i], len(g.Items))
				}
			}
		})
	}

	if groups := groupByLocalDay(nil, msgs, now, 0); groups == nil || len(groups) != 0 {
		t.Errorf("Expected empty non-nil feed, got %#v", groups)
	}
}

func TestNotificationService_Feed(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	claim := env.signUp(t, "jane@example.com", "secret123")

	env.notify(t, claim, 4, env.now.Add(-time.Hour))
	env.notify(t, claim, 5, env.now.Add(-49*time.Hour))

	count, err := env.svc.NotificationService.ActiveCount(ctx, claim)
	if err != nil {
		t.Fatalf("ActiveCount() failed: %v", err)
	}
	if count.Count != "2" {
		t.Errorf("Expected 2 unread, got %q", count.Count)
	}

	groups, err := env.svc.NotificationService.Feed(ctx, claim, 0)
	if err != nil {
		t.Fatalf("Feed() failed: %v", err)
	}
	if len(groups) != 2 || groups[0].Label != "Today" {
		t.Fatalf("Unexpected feed: %+v", groups)
	}
	item := groups[0].Items[0]
	if item.NotificationType != 4 || item.DateTime != "March 15, 2024" {
		t.Errorf("Unexpected item: %+v", item)
	}

	raw, err := json.Marshal(groups)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}
	var decoded []map[string][]models.FeedItem
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	if _, ok := decoded[0]["Today"]; !ok {
		t.Errorf("Expected group keyed by label, got %s", raw)
	}

	count, err = env.svc.NotificationService.ActiveCount(ctx, claim)
	if err != nil {
		t.Fatalf("ActiveCount() failed: %v", err)
	}
	if count.Count != "0" {
		t.Errorf("Expected feed to be marked visited, got %q unread", count.Count)
	}
}

func TestNotificationService_BadgeCap(t *testing.T) {
	env := setupTestEnv(t)
	claim := env.signUp(t, "jane@example.com", "secret123")

	for i := 0; i < 12; i++ {
		env.notify(t, claim, 4, env.now.Add(-time.Duration(i)*time.Minute))
	}

	count, err := env.svc.NotificationService.ActiveCount(context.Background(), claim)
	if err != nil {
		t.Fatalf("ActiveCount() failed: %v", err)
	}
	if count.Count != "9+" {
		t.Errorf("Expected 9+, got %q", count.Count)
	}
}

func TestNotificationService_UnknownAccount(t *testing.T) {
	env := setupTestEnv(t)
	claim := &auth.Claim{InternalID: 4242, PublicID: "gone", LocaleID: locale.DefaultLocaleID}

	_, err := env.svc.NotificationService.Feed(context.Background(), claim, 0)
	expectKind(t, err, KindNotFound, locale.InvalidUser)
}
