package billing

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
)

// WebhookEvent is the envelope of a Chargebee webhook delivery
type WebhookEvent struct {
	ID         string         `json:"id"`
	EventType  string         `json:"event_type"`
	OccurredAt int64          `json:"occurred_at"`
	Content    WebhookContent `json:"content"`
}

// WebhookContent carries the objects attached to an event
type WebhookContent struct {
	Customer *struct {
		ID string `json:"id"`
	} `json:"customer,omitempty"`
	Card *struct {
		Last4       string `json:"last4"`
		ExpiryMonth int    `json:"expiry_month"`
		ExpiryYear  int    `json:"expiry_year"`
	} `json:"card,omitempty"`
}

// CustomerID returns the event's customer id, or ""
func (e *WebhookEvent) CustomerID() string {
	if e.Content.Customer == nil {
		return ""
	}
	return e.Content.Customer.ID
}

// CardLast4 returns the last four digits of the event's card, or ""
func (e *WebhookEvent) CardLast4() string {
	if e.Content.Card == nil {
		return ""
	}
	return e.Content.Card.Last4
}

// ParseWebhookEvent decodes a webhook body
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	if event.EventType == "" {
		return nil, fmt.Errorf("invalid webhook payload: missing event_type")
	}
	return &event, nil
}

// CheckWebhookCredentials compares basic-auth credentials in constant time.
// Empty configured credentials reject every request.
func CheckWebhookCredentials(user, pass, wantUser, wantPass string) bool {
	if wantUser == "" || wantPass == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(wantUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(wantPass)) == 1
	return userOK && passOK
}
