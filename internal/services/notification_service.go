package services

import (
	"context"
	"time"

	"profiles-api/internal/auth"
	"profiles-api/internal/locale"
	"profiles-api/internal/models"
)

// notificationService implements NotificationService
type notificationService struct {
	*base
}

// Feed groups the caller's notifications by local calendar day, newest day
// first, and then marks the whole feed as seen
func (s *notificationService) Feed(ctx context.Context, claim *auth.Claim, offsetMinutes int) ([]models.FeedGroup, error) {
	user, err := s.loadUser(ctx, claim)
	if err != nil {
		return nil, err
	}

	items, err := s.store.Notifications.ListByRID(ctx, user.ID)
	if err != nil {
		return nil, DatabaseError(err, locale.InvalidUser).inLocale(user.LanguageID)
	}

	groups := groupByLocalDay(items, s.messages(user), s.now(), offsetMinutes)

	if err := s.store.Notifications.MarkVisited(ctx, user.ID); err != nil {
		return nil, DatabaseError(err, locale.InvalidUser).inLocale(user.LanguageID)
	}
	return groups, nil
}

// groupByLocalDay expects items newest first. Local time is UTC minus
// offsetMinutes.
func groupByLocalDay(items []*models.Notification, msgs locale.Messages, now time.Time, offsetMinutes int) []models.FeedGroup {
	shift := -time.Duration(offsetMinutes) * time.Minute
	today := dayOf(now.UTC().Add(shift))

	groups := []models.FeedGroup{}
	var current string
	for _, n := range items {
		local := n.CreatedAt.UTC().Add(shift)
		day := dayOf(local)

		date := msgs.FormatDate(local)
		label := date
		if day == today {
			label = msgs.Get(locale.Today)
		}

		if len(groups) == 0 || day != current {
			groups = append(groups, models.FeedGroup{Label: label})
			current = day
		}

		last := &groups[len(groups)-1]
		last.Items = append(last.Items, models.FeedItem{
			NotificationType: n.NotificationType,
			NotificationJSON: n.Payload,
			DateTime:         date,
		})
	}
	return groups
}

func dayOf(t time.Time) string {
	return t.Format("2006-01-02")
}

// ActiveCount returns the unread badge of the caller
func (s *notificationService) ActiveCount(ctx context.Context, claim *auth.Claim) (*CountResponse, error) {
	user, err := s.loadUser(ctx, claim)
	if err != nil {
		return nil, err
	}
	n, err := s.store.Notifications.CountUnvisited(ctx, user.ID)
	if err != nil {
		return nil, DatabaseError(err, locale.InvalidUser).inLocale(user.LanguageID)
	}
	return &CountResponse{Count: models.BadgeCount(n)}, nil
}
