package mail

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogSender writes messages to the log instead of delivering them. It also
// keeps every sent message so tests and the local server can inspect them.
type LogSender struct {
	logger *logrus.Logger

	mu   sync.Mutex
	sent []Message
	fail error
}

// NewLogSender creates a LogSender
func NewLogSender(logger *logrus.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send implements Sender
func (l *LogSender) Send(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail != nil {
		return l.fail
	}
	l.sent = append(l.sent, *msg)

	l.logger.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("Email captured by log sender")
	return nil
}

// Sent returns a copy of every captured message
func (l *LogSender) Sent() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Message(nil), l.sent...)
}

// FailWith makes later sends return err; nil restores delivery
func (l *LogSender) FailWith(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fail = err
}
