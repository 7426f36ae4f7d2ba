// Package mail sends transactional email through Amazon SES or, locally,
// into the log.
package mail

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
)

// Message is one outbound email
type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Validate checks recipients and content
func (m *Message) Validate() error {
	if len(m.To) == 0 {
		return fmt.Errorf("message has no recipients")
	}
	for _, addr := range m.To {
		if _, err := mail.ParseAddress(addr); err != nil {
			return fmt.Errorf("invalid recipient %q: %w", addr, err)
		}
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("message has no subject")
	}
	if m.Text == "" && m.HTML == "" {
		return fmt.Errorf("message has no body")
	}
	return nil
}

// Sender delivers messages
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}
