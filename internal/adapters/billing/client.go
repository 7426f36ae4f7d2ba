// Package billing talks to the Chargebee subscription API and decodes its
// webhook events.
package billing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"profiles-api/internal/adapters/httpx"
)

// Subscription is the part of a subscription record the service reads
type Subscription struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	PlanID     string `json:"plan_id"`
	Status     string `json:"status"`
	CreatedAt  int64  `json:"created_at"`
}

// Active reports whether the subscription still bills or renews
func (s Subscription) Active() bool {
	switch s.Status {
	case "active", "in_trial", "non_renewing", "future":
		return true
	}
	return false
}

// Customer is a billing account
type Customer struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Locale    string `json:"locale"`
}

// NewCustomer describes the account to create for a first purchase
type NewCustomer struct {
	FirstName string
	LastName  string
	Email     string
	Locale    string
}

// Plan is the priced product a subscription is created from. Price is in
// the currency's minor unit.
type Plan struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Price        int64  `json:"price"`
	CurrencyCode string `json:"currency_code"`
	Status       string `json:"status"`
}

// HostedPage is a checkout page the browser is sent to
type HostedPage struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	URL       string `json:"url"`
	State     string `json:"state"`
	Embed     bool   `json:"embed"`
	CreatedAt int64  `json:"created_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// Invoice is the part of an invoice the service reads
type Invoice struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int64  `json:"total"`
}

// Paid reports whether the invoice was settled
func (i *Invoice) Paid() bool {
	return i != nil && i.Status == "paid"
}

// Charge is a subscription created against a stored payment method together
// with its first invoice
type Charge struct {
	Subscription Subscription `json:"subscription"`
	Invoice      *Invoice     `json:"invoice"`
}

// Provider is the billing surface used by checkout, payment cancellation,
// account deletion and health checks
type Provider interface {
	CreateCustomer(ctx context.Context, c NewCustomer) (*Customer, error)
	RetrievePlan(ctx context.Context, planID string) (*Plan, error)
	CheckoutNew(ctx context.Context, customerID, planID string) (*HostedPage, error)
	CreateSubscription(ctx context.Context, customerID, planID string) (*Charge, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	ListSubscriptions(ctx context.Context, customerID string) ([]Subscription, error)
	Ping(ctx context.Context) error
}

// Config configures the Chargebee client
type Config struct {
	Site    string
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Logger  *logrus.Logger
}

// Client is a Chargebee REST client. Requests authenticate with the API key
// as the basic-auth user and an empty password.
type Client struct {
	http   *httpx.Client
	apiKey string
}

// NewClient creates a Chargebee client. BaseURL overrides the site URL.
func NewClient(cfg Config) (*Client, error) {
	base := cfg.BaseURL
	if base == "" {
		if cfg.Site == "" {
			return nil, fmt.Errorf("billing site or base url is required")
		}
		base = fmt.Sprintf("https://%s.chargebee.com/api/v2", cfg.Site)
	}

	return &Client{
		http: httpx.New(httpx.Config{
			Service:     "chargebee",
			BaseURL:     base,
			Timeout:     cfg.Timeout,
			MaxAttempts: 3,
			Logger:      cfg.Logger,
		}),
		apiKey: cfg.APIKey,
	}, nil
}

// CreateCustomer creates the billing account a first purchase is charged to
func (c *Client) CreateCustomer(ctx context.Context, nc NewCustomer) (*Customer, error) {
	form := url.Values{}
	setIf(form, "first_name", nc.FirstName)
	setIf(form, "last_name", nc.LastName)
	setIf(form, "email", nc.Email)
	setIf(form, "locale", nc.Locale)

	var out struct {
		Customer Customer `json:"customer"`
	}
	err := c.http.DoJSON(ctx, "create_customer", httpx.Request{
		Method:    http.MethodPost,
		Path:      "/customers",
		Form:      form,
		BasicUser: c.apiKey,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Customer.ID == "" {
		return nil, fmt.Errorf("billing returned a customer without id")
	}
	return &out.Customer, nil
}

// RetrievePlan reads a plan's price and currency
func (c *Client) RetrievePlan(ctx context.Context, planID string) (*Plan, error) {
	if planID == "" {
		return nil, fmt.Errorf("plan id is required")
	}

	var out struct {
		Plan Plan `json:"plan"`
	}
	err := c.http.DoJSON(ctx, "retrieve_plan", httpx.Request{
		Path:      "/plans/" + url.PathEscape(planID),
		BasicUser: c.apiKey,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Plan, nil
}

// CheckoutNew opens a hosted checkout page subscribing customerID to planID
func (c *Client) CheckoutNew(ctx context.Context, customerID, planID string) (*HostedPage, error) {
	if customerID == "" || planID == "" {
		return nil, fmt.Errorf("customer id and plan id are required")
	}

	var out struct {
		HostedPage HostedPage `json:"hosted_page"`
	}
	err := c.http.DoJSON(ctx, "checkout_new", httpx.Request{
		Method: http.MethodPost,
		Path:   "/hosted_pages/checkout_new",
		Form: url.Values{
			"subscription[plan_id]": {planID},
			"customer[id]":          {customerID},
		},
		BasicUser: c.apiKey,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.HostedPage, nil
}

// CreateSubscription subscribes customerID to planID, charging the payment
// method already on file
func (c *Client) CreateSubscription(ctx context.Context, customerID, planID string) (*Charge, error) {
	if customerID == "" || planID == "" {
		return nil, fmt.Errorf("customer id and plan id are required")
	}

	var out Charge
	err := c.http.DoJSON(ctx, "create_subscription", httpx.Request{
		Method:    http.MethodPost,
		Path:      "/customers/" + url.PathEscape(customerID) + "/subscriptions",
		Form:      url.Values{"plan_id": {planID}},
		BasicUser: c.apiKey,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func setIf(form url.Values, key, value string) {
	if value != "" {
		form.Set(key, value)
	}
}

type subscriptionEnvelope struct {
	Subscription Subscription `json:"subscription"`
}

type subscriptionList struct {
	List       []subscriptionEnvelope `json:"list"`
	NextOffset string                 `json:"next_offset"`
}

// CancelSubscription cancels immediately, schedules a refund of credits and
// issues full credit for current term charges
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	if subscriptionID == "" {
		return nil, fmt.Errorf("subscription id is required")
	}

	var out subscriptionEnvelope
	err := c.http.DoJSON(ctx, "cancel_subscription", httpx.Request{
		Method: http.MethodPost,
		Path:   "/subscriptions/" + url.PathEscape(subscriptionID) + "/cancel",
		Form: url.Values{
			"end_of_term":                            {"false"},
			"refundable_credits_handling":            {"schedule_refund"},
			"credit_option_for_current_term_charges": {"full"},
		},
		BasicUser: c.apiKey,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Subscription, nil
}

// ListSubscriptions returns every subscription of a customer, following
// pagination offsets
func (c *Client) ListSubscriptions(ctx context.Context, customerID string) ([]Subscription, error) {
	if customerID == "" {
		return nil, nil
	}

	var subs []Subscription
	offset := ""
	for {
		query := url.Values{
			"customer_id[is]": {customerID},
			"limit":           {"100"},
		}
		if offset != "" {
			query.Set("offset", offset)
		}

		var page subscriptionList
		err := c.http.DoJSON(ctx, "list_subscriptions", httpx.Request{
			Path:      "/subscriptions",
			Query:     query,
			BasicUser: c.apiKey,
		}, &page)
		if err != nil {
			return nil, err
		}

		for _, entry := range page.List {
			subs = append(subs, entry.Subscription)
		}
		if page.NextOffset == "" {
			return subs, nil
		}
		offset = page.NextOffset
	}
}

// Ping lists at most one customer to prove the API key and site work
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.http.Do(ctx, "ping", httpx.Request{
		Path:      "/customers",
		Query:     url.Values{"limit": {"1"}},
		BasicUser: c.apiKey,
	})
	return err
}
