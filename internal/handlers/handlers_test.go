package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"profiles-api/internal/adapters/billing"
	"profiles-api/internal/adapters/social"
	"profiles-api/internal/config"
	"profiles-api/internal/locale"
	"profiles-api/internal/services"
	"profiles-api/pkg/lambda"
	"profiles-api/pkg/server"

	"github.com/sirupsen/logrus"
)

const germanLocale = "245"

type stubBilling struct {
	cancelled []string
	pingErr   error
}

func (s *stubBilling) CreateCustomer(ctx context.Context, c billing.NewCustomer) (*billing.Customer, error) {
	return &billing.Customer{ID: "cus_stub", Email: c.Email}, nil
}

func (s *stubBilling) RetrievePlan(ctx context.Context, planID string) (*billing.Plan, error) {
	return &billing.Plan{ID: planID, Price: 1999, CurrencyCode: "EUR"}, nil
}

func (s *stubBilling) CheckoutNew(ctx context.Context, customerID, planID string) (*billing.HostedPage, error) {
	return &billing.HostedPage{ID: "hp_stub", URL: "https://pay.example/hp_stub"}, nil
}

func (s *stubBilling) CreateSubscription(ctx context.Context, customerID, planID string) (*billing.Charge, error) {
	return &billing.Charge{
		Subscription: billing.Subscription{ID: "sub_stub", CustomerID: customerID, PlanID: planID, Status: "active"},
		Invoice:      &billing.Invoice{ID: "inv_stub", Status: "paid"},
	}, nil
}

func (s *stubBilling) CancelSubscription(ctx context.Context, id string) (*billing.Subscription, error) {
	s.cancelled = append(s.cancelled, id)
	return &billing.Subscription{ID: id, Status: "cancelled"}, nil
}

func (s *stubBilling) ListSubscriptions(ctx context.Context, customerID string) ([]billing.Subscription, error) {
	return nil, nil
}

func (s *stubBilling) Ping(ctx context.Context) error { return s.pingErr }

type stubSocial struct{}

func (stubSocial) ProfileFromCode(ctx context.Context, code string) (*social.Profile, error) {
	return nil, social.ErrInvalidCode
}

func (stubSocial) FetchPicture(ctx context.Context, url string) ([]byte, error) {
	return nil, errors.New("no picture")
}

func (stubSocial) Ping(ctx context.Context) error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		Environment: "test",
		Database: config.DatabaseConfig{
			Driver:       "sqlite3",
			DSN:          filepath.Join(t.TempDir(), "handlers.db"),
			MaxOpenConns: 1,
			MaxIdleConns: 1,
			AutoMigrate:  true,
		},
		Token: config.TokenConfig{
			Secret:               "handlers-secret",
			EmailUserExpiryDays:  365,
			SocialUserExpiryDays: 60,
			SignupExpiryDays:     365,
		},
		Crypto:  config.CryptoConfig{FieldKey: "handlers-field-key"},
		Storage: config.StorageConfig{Type: "mock", PictureKeyPrefix: "pictures"},
		Queue:   config.QueueConfig{Type: "memory"},
		Mail:    config.MailConfig{Type: "log", From: "no-reply@example.com"},
		Billing: config.BillingConfig{
			BaseURL:                    "http://127.0.0.1:1/api/v2",
			WebhookUsername:            "hook",
			WebhookPassword:            "hook-pass",
			CardExpiryEvent:            "card_expiry_reminder",
			CardExpiryNotificationType: 7,
			Site:                       "profiles-test",
			Plans:                      map[int64]string{12: "report-basic"},
		},
		Facebook: config.FacebookConfig{GraphURL: "http://127.0.0.1:1"},
		App: config.AppConfig{
			EnvironmentURL:     "http://localhost:3000",
			ProfilesLink:       "http://localhost:3000/profile/",
			ResetPasswordPath:  "/reset-password/",
			ResetTokenTTL:      time.Hour,
			CancelWindow:       30 * time.Minute,
			MysteryUnlockCount: 3,
			MysteryWindow:      24 * time.Hour,
			DefaultLocale:      locale.DefaultLocaleID,
		},
	}
}

func setupHandlers(t *testing.T, opts ...server.Option) (*Handlers, *server.Container) {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	opts = append([]server.Option{
		server.WithLogger(logger),
		server.WithBilling(&stubBilling{}),
		server.WithSocial(stubSocial{}),
	}, opts...)
	container, err := server.NewContainer(context.Background(), testConfig(t), opts...)
	if err != nil {
		t.Fatalf("Failed to create container: %v", err)
	}
	t.Cleanup(func() { container.Close() })

	return FromContainer(container), container
}

func jsonRequest(t *testing.T, body interface{}, headers map[string]string) *lambda.Request {
	t.Helper()

	req := &lambda.Request{Method: http.MethodPost, Headers: map[string]string{}}
	for k, v := range headers {
		req.Headers[k] = v
	}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		req.Body = raw
	}
	return req
}

func decodeBody(t *testing.T, resp *lambda.Response, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(resp.Body, dst); err != nil {
		t.Fatalf("Failed to decode response %q: %v", resp.Body, err)
	}
}

func errorMessage(t *testing.T, resp *lambda.Response) string {
	t.Helper()
	var body ErrorResponse
	decodeBody(t, resp, &body)
	return body.Message
}

// signUp creates an account and returns its bearer header
func signUp(t *testing.T, h *Handlers, email string) map[string]string {
	t.Helper()

	resp, err := h.SignUp(context.Background(), jsonRequest(t, map[string]string{
		"email":     email,
		"password":  "secret123",
		"firstname": "Jane",
	}, nil))
	if err != nil {
		t.Fatalf("SignUp() failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, resp.Body)
	}

	var session struct {
		Auth string `json:"auth"`
	}
	decodeBody(t, resp, &session)
	return map[string]string{"Authorization": "Bearer " + session.Auth}
}

func TestAuthenticatedHandlers_RejectMissingToken(t *testing.T) {
	h, _ := setupHandlers(t)
	ctx := context.Background()
	want := locale.MustDefault().For(locale.DefaultLocaleID).Get(locale.Unauthorized)

	methods := map[string]Method{
		"ChangePassword":     (*Handlers).ChangePassword,
		"DeleteAccount":      (*Handlers).DeleteAccount,
		"Notifications":      (*Handlers).Notifications,
		"NotificationCount":  (*Handlers).NotificationCount,
		"Mystery":            (*Handlers).Mystery,
		"MysteryButton":      (*Handlers).MysteryButton,
		"FacebookConnect":    (*Handlers).FacebookConnect,
		"FacebookDisconnect": (*Handlers).FacebookDisconnect,
		"UploadPicture":      (*Handlers).UploadPicture,
		"CancelPayment":      (*Handlers).CancelPayment,
		"Checkout":           (*Handlers).Checkout,
		"MakePayment":        (*Handlers).MakePayment,
		"Purchases":          (*Handlers).Purchases,
	}

	for name, m := range methods {
		t.Run(name, func(t *testing.T) {
			resp, err := m(h, ctx, jsonRequest(t, nil, nil))
			if err != nil {
				t.Fatalf("Handler returned error: %v", err)
			}
			if resp.StatusCode != http.StatusForbidden {
				t.Errorf("Expected status 403, got %d", resp.StatusCode)
			}
			if got := errorMessage(t, resp); got != want {
				t.Errorf("Expected message %q, got %q", want, got)
			}
			if resp.Headers["Access-Control-Allow-Origin"] != "*" {
				t.Error("Expected CORS header on rejection")
			}
		})
	}
}

func TestAuthenticate_BadTokens(t *testing.T) {
	h, _ := setupHandlers(t)
	ctx := context.Background()
	german := locale.MustDefault().ForHeader(germanLocale).Get(locale.Unauthorized)

	tests := []struct {
		name    string
		headers map[string]string
	}{
		{"Garbage", map[string]string{"Authorization": "Bearer not-a-token", "language_id": germanLocale}},
		{"WrongScheme", map[string]string{"Authorization": "Basic abc", "language_id": germanLocale}},
		{"EmptyBearer", map[string]string{"Authorization": "Bearer ", "language_id": germanLocale}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := h.NotificationCount(ctx, jsonRequest(t, nil, tt.headers))
			if err != nil {
				t.Fatalf("NotificationCount() returned error: %v", err)
			}
			if resp.StatusCode != http.StatusForbidden {
				t.Errorf("Expected status 403, got %d", resp.StatusCode)
			}
			if got := errorMessage(t, resp); got != german {
				t.Errorf("Expected localized message %q, got %q", german, got)
			}
		})
	}
}

func TestSignUp_HeadersAndSignIn(t *testing.T) {
	h, container := setupHandlers(t)
	ctx := context.Background()

	resp, err := h.SignUp(ctx, jsonRequest(t, map[string]string{
		"email":     "hans@example.com",
		"password":  "secret123",
		"firstname": "Hans",
	}, map[string]string{"language_id": germanLocale}))
	if err != nil {
		t.Fatalf("SignUp() failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, resp.Body)
	}

	var session struct {
		Auth       string `json:"auth"`
		UserID     string `json:"user_id"`
		LanguageID int    `json:"language_id"`
	}
	decodeBody(t, resp, &session)
	if session.LanguageID != 245 {
		t.Errorf("Expected language 245, got %d", session.LanguageID)
	}
	claim, err := container.Verifier.Verify(session.Auth)
	if err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}
	if claim.PublicID != session.UserID || claim.LocaleID != 245 {
		t.Errorf("Unexpected claim %+v", claim)
	}

	// A wrong password is reported in the account's locale even without a header
	resp, err = h.SignIn(ctx, jsonRequest(t, map[string]string{
		"email":    "hans@example.com",
		"password": "wrong-password",
	}, nil))
	if err != nil {
		t.Fatalf("SignIn() failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}
	want := locale.MustDefault().ForHeader(germanLocale).Get(locale.UserStatus)
	if got := errorMessage(t, resp); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}

	resp, err = h.SignIn(ctx, jsonRequest(t, map[string]string{
		"email":    "HANS@example.com",
		"password": "secret123",
	}, nil))
	if err != nil {
		t.Fatalf("SignIn() failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", resp.StatusCode, resp.Body)
	}
}

func TestSignUp_BadLanguageHeader(t *testing.T) {
	h, _ := setupHandlers(t)

	resp, err := h.SignUp(context.Background(), jsonRequest(t, map[string]string{
		"email":     "jane@example.com",
		"password":  "secret123",
		"firstname": "Jane",
	}, map[string]string{"language_id": "english"}))
	if err != nil {
		t.Fatalf("SignUp() failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}
}

func TestSignIn_InvalidBody(t *testing.T) {
	h, _ := setupHandlers(t)

	req := jsonRequest(t, nil, nil)
	req.Body = []byte("{not json")

	resp, err := h.SignIn(context.Background(), req)
	if err != nil {
		t.Fatalf("SignIn() failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}
	want := locale.MustDefault().For(locale.DefaultLocaleID).Get(locale.RequestShape)
	if got := errorMessage(t, resp); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestNotifications_TimezoneHeader(t *testing.T) {
	h, _ := setupHandlers(t)
	ctx := context.Background()
	bearer := signUp(t, h, "jane@example.com")

	bad := jsonRequest(t, nil, bearer)
	bad.Headers["timezone_offset"] = "minus-two-hours"
	resp, err := h.Notifications(ctx, bad)
	if err != nil {
		t.Fatalf("Notifications() failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400 for bad offset, got %d", resp.StatusCode)
	}

	good := jsonRequest(t, nil, bearer)
	good.Headers["timezone_offset"] = "-120"
	resp, err = h.Notifications(ctx, good)
	if err != nil {
		t.Fatalf("Notifications() failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", resp.StatusCode, resp.Body)
	}
}

func TestNotificationCount(t *testing.T) {
	h, _ := setupHandlers(t)
	bearer := signUp(t, h, "jane@example.com")

	resp, err := h.NotificationCount(context.Background(), jsonRequest(t, nil, bearer))
	if err != nil {
		t.Fatalf("NotificationCount() failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, resp.Body)
	}

	var count struct {
		Count string `json:"active_notification_count"`
	}
	decodeBody(t, resp, &count)
	if count.Count != "0" {
		t.Errorf("Expected count 0, got %q", count.Count)
	}
}

func TestCancelPayment_ProductHeader(t *testing.T) {
	h, _ := setupHandlers(t)
	ctx := context.Background()
	bearer := signUp(t, h, "jane@example.com")

	tests := []struct {
		name   string
		header string
		body   interface{}
		status int
	}{
		{"MalformedHeader", "abc", nil, http.StatusBadRequest},
		{"MissingPurchase", "", nil, http.StatusBadRequest},
		{"HeaderOverridesBody", "4242", map[string]int64{"product_id": 0}, http.StatusNotFound},
		{"UnknownPurchaseInBody", "", map[string]int64{"product_id": 4242}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := jsonRequest(t, tt.body, bearer)
			if tt.header != "" {
				req.Headers["product_id"] = tt.header
			}
			resp, err := h.CancelPayment(ctx, req)
			if err != nil {
				t.Fatalf("CancelPayment() failed: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d: %s", tt.status, resp.StatusCode, resp.Body)
			}
		})
	}
}

func TestCheckout_ProductHeader(t *testing.T) {
	h, _ := setupHandlers(t)
	ctx := context.Background()
	bearer := signUp(t, h, "jane@example.com")

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"MalformedHeader", "abc", http.StatusBadRequest},
		{"MissingProduct", "", http.StatusBadRequest},
		{"UnknownProduct", "99", http.StatusNotFound},
		{"HostedPage", "12", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := jsonRequest(t, nil, bearer)
			if tt.header != "" {
				req.Headers["product_id"] = tt.header
			}
			resp, err := h.Checkout(ctx, req)
			if err != nil {
				t.Fatalf("Checkout() failed: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d: %s", tt.status, resp.StatusCode, resp.Body)
			}
			if tt.status != http.StatusOK {
				return
			}

			var body services.CheckoutResponse
			decodeBody(t, resp, &body)
			if body.HostedPage == nil || body.HostedPage.ID != "hp_stub" || body.Site != "profiles-test" {
				t.Errorf("Unexpected checkout body %s", resp.Body)
			}
		})
	}
}

func TestPurchases_Empty(t *testing.T) {
	h, _ := setupHandlers(t)
	bearer := signUp(t, h, "jane@example.com")

	resp, err := h.Purchases(context.Background(), jsonRequest(t, nil, bearer))
	if err != nil {
		t.Fatalf("Purchases() failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, resp.Body)
	}
	var body services.PurchasesResponse
	decodeBody(t, resp, &body)
	if body.Purchases == nil || len(body.Purchases) != 0 {
		t.Errorf("Expected an empty purchase list, got %s", resp.Body)
	}
}

func TestBillingWebhook(t *testing.T) {
	h, _ := setupHandlers(t)
	ctx := context.Background()
	event := map[string]string{"id": "ev_1", "event_type": "subscription_renewed"}

	tests := []struct {
		name   string
		auth   string
		status int
	}{
		{"NoCredentials", "", http.StatusForbidden},
		{"WrongCredentials", "Basic aG9vazpub3Bl", http.StatusForbidden},
		{"IgnoredEvent", "Basic aG9vazpob29rLXBhc3M=", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.auth != "" {
				headers["Authorization"] = tt.auth
			}
			resp, err := h.BillingWebhook(ctx, jsonRequest(t, event, headers))
			if err != nil {
				t.Fatalf("BillingWebhook() failed: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d: %s", tt.status, resp.StatusCode, resp.Body)
			}
		})
	}
}

func TestBasicAuth(t *testing.T) {
	user, pass, ok := basicAuth("Basic aG9vazpob29rLXBhc3M=")
	if !ok || user != "hook" || pass != "hook-pass" {
		t.Errorf("Unexpected credentials %q %q %v", user, pass, ok)
	}
	if _, _, ok := basicAuth("Bearer token"); ok {
		t.Error("Expected bearer header to be rejected")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind services.Kind
		want int
	}{
		{services.KindRequestShape, http.StatusBadRequest},
		{services.KindInvalid, http.StatusBadRequest},
		{services.KindAuth, http.StatusForbidden},
		{services.KindNotFound, http.StatusNotFound},
		{services.KindConflict, http.StatusConflict},
		{services.KindDatabase, http.StatusInternalServerError},
		{services.KindUpstream, http.StatusInternalServerError},
		{services.KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := statusFor(tt.kind); got != tt.want {
				t.Errorf("statusFor(%s) = %d, want %d", tt.kind, got, tt.want)
			}
		})
	}
}
