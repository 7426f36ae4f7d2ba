package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"profiles-api/internal/adapters/billing"
	"profiles-api/internal/adapters/invoke"
	"profiles-api/internal/adapters/mail"
	"profiles-api/internal/adapters/queue"
	"profiles-api/internal/adapters/social"
	"profiles-api/internal/adapters/storage"
	"profiles-api/internal/auth"
	"profiles-api/internal/config"
	"profiles-api/internal/database"
	"profiles-api/internal/fieldcrypt"
	"profiles-api/internal/locale"
	"profiles-api/internal/models"
	"profiles-api/internal/repositories"
	"profiles-api/internal/repositories/sqlstore"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-token-secret"

type fakeBilling struct {
	mu        sync.Mutex
	subs      map[string][]billing.Subscription
	plans     map[string]billing.Plan
	customers []billing.NewCustomer
	pages     []string
	charged   []string
	unpaid    bool
	cancelled []string
	err       error
	pingErr   error
}

func (f *fakeBilling) CreateCustomer(ctx context.Context, c billing.NewCustomer) (*billing.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.customers = append(f.customers, c)
	return &billing.Customer{ID: fmt.Sprintf("cus_%d", len(f.customers)), Email: c.Email, Locale: c.Locale}, nil
}

func (f *fakeBilling) RetrievePlan(ctx context.Context, planID string) (*billing.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	plan, ok := f.plans[planID]
	if !ok {
		return nil, errors.New("plan not found")
	}
	return &plan, nil
}

func (f *fakeBilling) CheckoutNew(ctx context.Context, customerID, planID string) (*billing.HostedPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.pages = append(f.pages, customerID+"/"+planID)
	return &billing.HostedPage{ID: "hp_1", Type: "checkout_new", URL: "https://pay.example/hp_1"}, nil
}

func (f *fakeBilling) CreateSubscription(ctx context.Context, customerID, planID string) (*billing.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.charged = append(f.charged, customerID+"/"+planID)
	status := "paid"
	if f.unpaid {
		status = "payment_due"
	}
	return &billing.Charge{
		Subscription: billing.Subscription{ID: fmt.Sprintf("sub_charged_%d", len(f.charged)), CustomerID: customerID, PlanID: planID, Status: "active"},
		Invoice:      &billing.Invoice{ID: "inv_1", Status: status},
	}, nil
}

func (f *fakeBilling) CancelSubscription(ctx context.Context, id string) (*billing.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.cancelled = append(f.cancelled, id)
	return &billing.Subscription{ID: id, CustomerID: "cust-from-billing", Status: "cancelled"}, nil
}

func (f *fakeBilling) ListSubscriptions(ctx context.Context, customerID string) ([]billing.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.subs[customerID], nil
}

func (f *fakeBilling) Ping(ctx context.Context) error { return f.pingErr }

type fakeSocial struct {
	profiles map[string]*social.Profile
	picture  []byte
	pingErr  error
}

func (f *fakeSocial) ProfileFromCode(ctx context.Context, code string) (*social.Profile, error) {
	p, ok := f.profiles[code]
	if !ok {
		return nil, social.ErrInvalidCode
	}
	return p, nil
}

func (f *fakeSocial) FetchPicture(ctx context.Context, url string) ([]byte, error) {
	if f.picture == nil {
		return nil, errors.New("no picture")
	}
	return f.picture, nil
}

func (f *fakeSocial) Ping(ctx context.Context) error { return f.pingErr }

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

type testEnv struct {
	svc      *ServiceContainer
	store    *repositories.Store
	cipher   *fieldcrypt.Cipher
	hasher   *auth.PasswordHasher
	verifier *auth.Verifier
	files    *storage.MockFileStorage
	queue    *queue.MemoryQueue
	mailer   *mail.LogSender
	invoker  *invoke.Recorder
	billing  *fakeBilling
	social   *fakeSocial
	db       *fakePinger
	cfg      *config.Config
	now      time.Time
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Token: config.TokenConfig{
			Secret:               testSecret,
			EmailUserExpiryDays:  365,
			SocialUserExpiryDays: 60,
			SignupExpiryDays:     30,
		},
		Storage: config.StorageConfig{Type: "mock", PictureKeyPrefix: "pictures"},
		Mail:    config.MailConfig{Type: "log", From: "no-reply@example.com", AlertTo: "ops@example.com"},
		Billing: config.BillingConfig{
			WebhookUsername:            "hook",
			WebhookPassword:            "hook-pass",
			CardExpiryEvent:            "card_expiry_reminder",
			CardExpiryNotificationType: 7,
			UpdatePaymentLink:          "https://example.com/billing",
			Site:                       "profiles-test",
			Plans:                      map[int64]string{12: "report-basic", 13: "report-plus"},
		},
		App: config.AppConfig{
			EnvironmentURL:     "https://app.example.com",
			ProfilesLink:       "https://app.example.com/profile/",
			ResetPasswordPath:  "/reset-password/",
			ResetTokenTTL:      time.Hour,
			CancelWindow:       30 * time.Minute,
			MysteryUnlockCount: 3,
			MysteryWindow:      24 * time.Hour,
			DefaultLocale:      locale.DefaultLocaleID,
		},
		Warmer: config.WarmerConfig{Functions: []string{"signin", "signup"}, Suffix: "-dev"},
	}
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "services_test_*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	dbCfg := database.DefaultConnectionConfig()
	dbCfg.DSN = filepath.Join(tempDir, "test.db")
	dbCfg.Logger = logger

	cm := database.NewConnectionManager(dbCfg)
	if err := cm.Connect(context.Background()); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() {
		cm.Close()
		os.RemoveAll(tempDir)
	})

	cipher, err := fieldcrypt.New("test-field-key")
	if err != nil {
		t.Fatalf("fieldcrypt.New() failed: %v", err)
	}
	issuer, _ := auth.NewIssuer(testSecret)
	verifier, _ := auth.NewVerifier(testSecret)

	fb := &fakeBilling{
		subs: map[string][]billing.Subscription{},
		plans: map[string]billing.Plan{
			"report-basic": {ID: "report-basic", Price: 1999, CurrencyCode: "EUR"},
			"report-plus":  {ID: "report-plus", Price: 2999, CurrencyCode: "EUR"},
		},
	}

	env := &testEnv{
		store:    sqlstore.NewStore(cm.GetDB(), cm.Dialect(), logger),
		cipher:   cipher,
		hasher:   auth.NewPasswordHasher(bcrypt.MinCost),
		verifier: verifier,
		files:    storage.NewMockFileStorage(),
		queue:    queue.NewMemoryQueue(),
		mailer:   mail.NewLogSender(logger),
		invoker:  &invoke.Recorder{},
		billing:  fb,
		social:   &fakeSocial{profiles: map[string]*social.Profile{}},
		db:       &fakePinger{},
		cfg:      testConfig(),
		now:      time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
	}

	svc, err := NewServiceContainer(&Dependencies{
		Store:    env.store,
		Cipher:   env.cipher,
		Issuer:   issuer,
		Hasher:   env.hasher,
		Storage:  env.files,
		Billing:  env.billing,
		Social:   env.social,
		Mailer:   env.mailer,
		Queue:    env.queue,
		Invoker:  env.invoker,
		Catalog:  locale.MustDefault(),
		Database: env.db,
		Config:   env.cfg,
		Logger:   logger,
		Now:      func() time.Time { return env.now },
	})
	if err != nil {
		t.Fatalf("NewServiceContainer() failed: %v", err)
	}
	env.svc = svc
	return env
}

// signUp creates an email account through the service and returns its claim
func (e *testEnv) signUp(t *testing.T, email, password string) *auth.Claim {
	t.Helper()

	resp, err := e.svc.AccountService.SignUp(context.Background(), &SignUpRequest{
		Email:      email,
		Password:   password,
		FirstName:  "Jane",
		LastName:   "Doe",
		LanguageID: locale.DefaultLocaleID,
	})
	if err != nil {
		t.Fatalf("SignUp() failed: %v", err)
	}
	return e.claim(t, resp.Auth)
}

func (e *testEnv) claim(t *testing.T, token string) *auth.Claim {
	t.Helper()
	claim, err := e.verifier.Verify(token)
	if err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}
	return claim
}

func (e *testEnv) user(t *testing.T, claim *auth.Claim) *models.User {
	t.Helper()
	u, err := e.store.Users.GetByID(context.Background(), claim.InternalID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	return u
}

// expectKind asserts err is a service error of kind with key
func expectKind(t *testing.T, err error, kind Kind, key locale.Key) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected %s error, got nil", kind)
	}
	svcErr := AsError(err)
	if svcErr.Kind != kind {
		t.Errorf("Expected kind %s, got %s (%v)", kind, svcErr.Kind, err)
	}
	if key != "" && svcErr.Key != key {
		t.Errorf("Expected key %s, got %s", key, svcErr.Key)
	}
}

func TestNewServiceContainer_Validation(t *testing.T) {
	if _, err := NewServiceContainer(nil); err == nil {
		t.Error("Expected error for nil dependencies")
	}
	if _, err := NewServiceContainer(&Dependencies{}); err == nil {
		t.Error("Expected error for missing store")
	}
}

func TestDatabaseError_Classification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
		key  locale.Key
	}{
		{"NotFound", repositories.NotFoundError("users", "1"), KindNotFound, locale.InvalidUser},
		{"Concurrency", repositories.ConcurrencyError("users", "1"), KindConflict, locale.Conflict},
		{"Other", errors.New("disk full"), KindDatabase, locale.InternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DatabaseError(tt.err, locale.InvalidUser)
			if got.Kind != tt.kind || got.Key != tt.key {
				t.Errorf("Expected %s/%s, got %s/%s", tt.kind, tt.key, got.Kind, got.Key)
			}
			if !errors.Is(got, tt.err) {
				t.Error("Expected cause to be preserved")
			}
		})
	}

	if AsError(nil) != nil {
		t.Error("Expected nil for nil error")
	}
	if AsError(errors.New("boom")).Kind != KindInternal {
		t.Error("Expected untagged errors to be internal")
	}
}
