package models

import "time"

// Transaction types recorded in the ledger
const (
	TransactionPurchase = 1
	TransactionRefund   = 2
)

// DefaultAcquisitionChannel is recorded when the client sends none
const DefaultAcquisitionChannel = "direct"

// Purchase is a product bought by an account
type Purchase struct {
	ID              int64     `json:"id" db:"id"`
	RID             int64     `json:"-" db:"rid"`
	ProductID       int64     `json:"product_id" db:"product_id"`
	SubscriptionID  string    `json:"-" db:"subscription_id"`
	CurrencyCode    string    `json:"currency_code" db:"currency_code"`
	Amount          int64     `json:"amount" db:"amount"`
	TransactionDate time.Time `json:"transaction_date" db:"transaction_date"`
	// PartnerRID is set once the buyer picked a partner for the product
	PartnerRID *int64 `json:"-" db:"partner_rid"`
}

// WithinCancelWindow reports whether the purchase can still be cancelled.
// The whole elapsed duration counts, including days.
func (p *Purchase) WithinCancelWindow(now time.Time, window time.Duration) bool {
	return now.Sub(p.TransactionDate) <= window
}

// HasPartner reports whether a partner was already selected
func (p *Purchase) HasPartner() bool {
	return p.PartnerRID != nil
}

// Transaction is a ledger entry for purchases and refunds
type Transaction struct {
	ID                 int64     `json:"id" db:"id"`
	RID                int64     `json:"-" db:"rid"`
	UserID             string    `json:"-" db:"user_id"`
	ProductID          int64     `json:"product_id" db:"product_id"`
	TransactionType    int       `json:"transaction_type" db:"transaction_type"`
	CurrencyCode       string    `json:"currency_code" db:"currency_code"`
	Amount             int64     `json:"amount" db:"amount"`
	OSName             string    `json:"os_name" db:"os_name"`
	BrowserName        string    `json:"browser_name" db:"browser_name"`
	SubscriptionID     string    `json:"-" db:"subscription_id"`
	CustomerID         string    `json:"-" db:"customer_id"`
	AcquisitionChannel string    `json:"acquisition_channel" db:"acquisition_channel"`
	Timestamp          time.Time `json:"transaction_timestamp" db:"transaction_timestamp"`
}

// NewRefund builds the ledger entry for a cancelled purchase
func NewRefund(p *Purchase, userID, customerID string, agent UserAgent, channel string) *Transaction {
	return newLedgerEntry(TransactionRefund, p, userID, customerID, agent, channel)
}

// NewPurchaseEntry builds the ledger entry for a completed purchase
func NewPurchaseEntry(p *Purchase, userID, customerID string, agent UserAgent, channel string) *Transaction {
	return newLedgerEntry(TransactionPurchase, p, userID, customerID, agent, channel)
}

func newLedgerEntry(kind int, p *Purchase, userID, customerID string, agent UserAgent, channel string) *Transaction {
	if channel == "" {
		channel = DefaultAcquisitionChannel
	}
	return &Transaction{
		RID:                p.RID,
		UserID:             userID,
		ProductID:          p.ProductID,
		TransactionType:    kind,
		CurrencyCode:       p.CurrencyCode,
		Amount:             p.Amount,
		OSName:             agent.OS,
		BrowserName:        agent.Browser,
		SubscriptionID:     p.SubscriptionID,
		CustomerID:         customerID,
		AcquisitionChannel: channel,
		Timestamp:          time.Now().UTC(),
	}
}

// ResetToken is a single-use password reset token. Only its digest is stored.
type ResetToken struct {
	RID       int64     `db:"rid"`
	Digest    string    `db:"token_digest"`
	Active    bool      `db:"is_active"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// Usable reports whether the token can still be redeemed at now
func (t *ResetToken) Usable(now time.Time) bool {
	return t.Active && now.Before(t.ExpiresAt)
}
