package services

import (
	"context"
	"time"

	"profiles-api/internal/auth"
	"profiles-api/internal/locale"
	"profiles-api/internal/models"
	"profiles-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

// maxMysteryAttempts bounds the re-read and retry loop of a lost
// compare-and-set on the unlock state
const maxMysteryAttempts = 3

// mysteryService implements MysteryService
type mysteryService struct {
	*base
}

// mutate applies fn to the stored unlock state and writes the result with a
// compare-and-set. A lost race re-reads the account and applies fn again.
func (s *mysteryService) mutate(ctx context.Context, user *models.User, fn func(models.Mystery) (models.Mystery, bool)) (*models.User, error) {
	for attempt := 1; ; attempt++ {
		next, changed := fn(user.Mystery)
		if !changed {
			return user, nil
		}

		err := s.store.Users.UpdateMystery(ctx, user.ID, user.Mystery, next)
		if err == nil {
			user.Mystery = next
			return user, nil
		}
		if !repositories.IsConcurrency(err) || attempt >= maxMysteryAttempts {
			return nil, err
		}

		s.logger.WithFields(logrus.Fields{"rid": user.ID, "attempt": attempt}).Debug("Mystery update lost a race, retrying")
		if user, err = s.store.Users.GetByID(ctx, user.ID); err != nil {
			return nil, err
		}
	}
}

// Status starts the window on first view, fails an expired window and marks
// an unlocked mystery as seen
func (s *mysteryService) Status(ctx context.Context, claim *auth.Claim) (*MysteryResponse, error) {
	user, err := s.loadUser(ctx, claim)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user, err = s.mutate(ctx, user, func(m models.Mystery) (models.Mystery, bool) {
		if next, ok := s.rules.Start(m, now); ok {
			return next, true
		}
		return s.rules.Expire(m, now)
	})
	if err != nil {
		return nil, DatabaseError(err, locale.InvalidUser)
	}

	msgs := s.messages(user)
	m := user.Mystery
	resp := &MysteryResponse{Status: m.Status}

	switch m.Status {
	case models.MysteryRunning:
		counter := m.Counter
		remaining := s.remainingSeconds(m, now)
		resp.Counter = &counter
		resp.StartTime = &remaining

	case models.MysteryUnlocked:
		_, err = s.mutate(ctx, user, func(m models.Mystery) (models.Mystery, bool) {
			if m.Visited {
				return m, false
			}
			m.Visited = true
			return m, true
		})
		if err != nil {
			return nil, DatabaseError(err, locale.InvalidUser).inLocale(user.LanguageID)
		}
		resp.Message = msgs.Get(locale.MysteryUnlocked)

	case models.MysteryFailed:
		resp.Message = msgs.Get(locale.MysteryFailed)

	default:
		resp.Message = msgs.Get(locale.MysteryNotStarted)
	}
	return resp, nil
}

// Button fails an expired window and raises the one-time reminder when only
// a few hours are left
func (s *mysteryService) Button(ctx context.Context, claim *auth.Claim) (*MysteryResponse, error) {
	user, err := s.loadUser(ctx, claim)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user, err = s.mutate(ctx, user, func(m models.Mystery) (models.Mystery, bool) {
		return s.rules.Expire(m, now)
	})
	if err != nil {
		return nil, DatabaseError(err, locale.InvalidUser)
	}

	msgs := s.messages(user)
	m := user.Mystery

	if hours, due := s.rules.ReminderDue(m, now); due {
		if err := s.remind(ctx, user, msgs, hours); err != nil {
			return nil, DatabaseError(err, locale.InvalidUser).inLocale(user.LanguageID)
		}
	}

	resp := &MysteryResponse{Status: m.Status}
	switch m.Status {
	case models.MysteryRunning:
		remaining := s.remainingSeconds(m, now)
		resp.StartTime = &remaining
	case models.MysteryUnlocked:
		visited := 0
		if m.Visited {
			visited = 1
		}
		resp.Visited = &visited
		resp.Message = msgs.Get(locale.MysteryUnlocked)
	case models.MysteryFailed:
		resp.Message = msgs.Get(locale.MysteryFailed)
	default:
		resp.Message = msgs.Get(locale.MysteryNotStarted)
	}
	return resp, nil
}

// remind inserts the reminder unless the account already has one
func (s *mysteryService) remind(ctx context.Context, user *models.User, msgs locale.Messages, hours int) error {
	count, err := s.store.Notifications.CountByType(ctx, user.ID, models.NotificationMysteryReminder)
	if err != nil || count > 0 {
		return err
	}

	n, err := models.NewNotification(user.ID, user.UserID, models.NotificationMysteryReminder, map[string]interface{}{
		"remaining_friends": s.rules.UnlockCount - user.Mystery.Counter,
		"remaining_time":    msgs.RemainingTime(hours),
	})
	if err != nil {
		return err
	}
	return s.store.Notifications.Create(ctx, n)
}

func (s *mysteryService) remainingSeconds(m models.Mystery, now time.Time) int64 {
	return int64(s.rules.Remaining(m, now).Round(time.Second) / time.Second)
}

// FriendJoined credits a referral to the referrer and raises the matching
// notification
func (s *mysteryService) FriendJoined(ctx context.Context, referrerID int64) error {
	referrer, err := s.store.Users.GetByID(ctx, referrerID)
	if err != nil {
		return err
	}

	now := s.now()
	var outcome models.FriendJoinedOutcome
	referrer, err = s.mutate(ctx, referrer, func(m models.Mystery) (models.Mystery, bool) {
		var next models.Mystery
		next, outcome = s.rules.FriendJoined(m, now)
		return next, outcome.Changed
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"rid":               referrer.ID,
		"mystery_status":    referrer.Mystery.Status,
		"remaining_friends": outcome.RemainingFriends,
	}).Info("Referral credited")

	if outcome.NotificationType == 0 {
		return nil
	}

	var payload interface{}
	if outcome.NotificationType == models.NotificationFriendJoined || outcome.NotificationType == models.NotificationLastFriendNeeded {
		payload = map[string]string{"profile_link": s.cfg.App.ProfilesLink + referrer.UserID}
	}
	n, err := models.NewNotification(referrer.ID, referrer.UserID, outcome.NotificationType, payload)
	if err != nil {
		return err
	}
	return s.store.Notifications.Create(ctx, n)
}
