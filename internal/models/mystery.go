package models

import "time"

// MysteryStatus is the state of an account's referral unlock
type MysteryStatus int

const (
	MysteryNotStarted MysteryStatus = 0
	MysteryRunning    MysteryStatus = 1
	MysteryUnlocked   MysteryStatus = 2
	MysteryFailed     MysteryStatus = 3
)

// Notification types raised by the referral unlock
const (
	NotificationMysteryUnlocked  = 1
	NotificationFriendJoined     = 4
	NotificationLastFriendNeeded = 5
	NotificationMysteryReminder  = 6
)

// ReminderThreshold is the time left at which the one-time reminder is raised
const ReminderThreshold = 4

// Mystery is the referral unlock state stored on the account row
type Mystery struct {
	Status    MysteryStatus `json:"mystery_status" db:"mystery_status"`
	StartTime *time.Time    `json:"mystery_start_time,omitempty" db:"mystery_start_time"`
	Counter   int           `json:"mystery_friend_join_counter" db:"mystery_friend_join_counter"`
	Visited   bool          `json:"is_mystery_visited" db:"is_mystery_visited"`
}

// MysteryRules holds the unlock threshold and the length of the window
type MysteryRules struct {
	UnlockCount int
	Window      time.Duration
}

// Deadline returns when the running window closes; zero if never started
func (r MysteryRules) Deadline(m Mystery) time.Time {
	if m.StartTime == nil {
		return time.Time{}
	}
	return m.StartTime.Add(r.Window)
}

// Remaining returns the time left in the window, never negative
func (r MysteryRules) Remaining(m Mystery, now time.Time) time.Duration {
	if m.Status != MysteryRunning || m.StartTime == nil {
		return 0
	}
	d := r.Deadline(m).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Start begins the window for an account that has not started yet
func (r MysteryRules) Start(m Mystery, now time.Time) (Mystery, bool) {
	if m.Status != MysteryNotStarted || m.Counter >= r.UnlockCount {
		return m, false
	}
	start := now.UTC()
	m.Status = MysteryRunning
	m.StartTime = &start
	return m, true
}

// Expire fails a running window that closed without enough friends
func (r MysteryRules) Expire(m Mystery, now time.Time) (Mystery, bool) {
	if m.Status != MysteryRunning || m.StartTime == nil || m.Counter >= r.UnlockCount {
		return m, false
	}
	if !now.After(r.Deadline(m)) {
		return m, false
	}
	m.Status = MysteryFailed
	return m, true
}

// FriendJoinedOutcome describes what a referral did to the referrer's state
type FriendJoinedOutcome struct {
	Changed bool
	// NotificationType is zero when no notification should be raised
	NotificationType int
	RemainingFriends int
}

// FriendJoined credits a referral. Only accounts that have not finished
// (not started or running) are credited; the counter always increments for them.
func (r MysteryRules) FriendJoined(m Mystery, now time.Time) (Mystery, FriendJoinedOutcome) {
	switch m.Status {
	case MysteryRunning:
		before := m.Status
		deadline := r.Deadline(m)
		switch {
		case m.Counter >= r.UnlockCount-1 && now.Before(deadline):
			m.Status = MysteryUnlocked
		case m.Counter < r.UnlockCount && now.After(deadline):
			m.Status = MysteryFailed
		}
		m.Counter++

		out := FriendJoinedOutcome{Changed: true, RemainingFriends: r.UnlockCount - m.Counter}
		switch {
		case before == MysteryRunning && m.Status == MysteryUnlocked:
			out.NotificationType = NotificationMysteryUnlocked
		case m.Status == MysteryRunning && out.RemainingFriends == 1:
			out.NotificationType = NotificationLastFriendNeeded
		case m.Status == MysteryRunning && out.RemainingFriends > 1:
			out.NotificationType = NotificationFriendJoined
		}
		if out.RemainingFriends < 0 {
			out.RemainingFriends = 0
		}
		return m, out

	case MysteryNotStarted:
		if m.Counter >= r.UnlockCount-1 {
			m.Status = MysteryUnlocked
		}
		m.Counter++
		remaining := r.UnlockCount - m.Counter
		if remaining < 0 {
			remaining = 0
		}
		return m, FriendJoinedOutcome{Changed: true, RemainingFriends: remaining}
	}

	return m, FriendJoinedOutcome{}
}

// ReminderDue reports whether the "few hours left" reminder applies now and
// returns the whole hours left (floor).
func (r MysteryRules) ReminderDue(m Mystery, now time.Time) (int, bool) {
	if m.Status != MysteryRunning || m.StartTime == nil {
		return 0, false
	}
	remaining := r.Remaining(m, now)
	if remaining <= 0 {
		return 0, false
	}
	hours := int(remaining / time.Hour)
	return hours, hours <= ReminderThreshold
}
