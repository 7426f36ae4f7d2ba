package services

import (
	"context"
	"fmt"
	"time"

	"profiles-api/internal/adapters/billing"
	"profiles-api/internal/adapters/invoke"
	"profiles-api/internal/adapters/mail"
	"profiles-api/internal/adapters/queue"
	"profiles-api/internal/adapters/social"
	"profiles-api/internal/adapters/storage"
	"profiles-api/internal/auth"
	"profiles-api/internal/config"
	"profiles-api/internal/fieldcrypt"
	"profiles-api/internal/locale"
	"profiles-api/internal/models"
	"profiles-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds everything the services are built from
type Dependencies struct {
	Store    *repositories.Store
	Cipher   *fieldcrypt.Cipher
	Issuer   *auth.Issuer
	Hasher   *auth.PasswordHasher
	Storage  storage.FileStorage
	Billing  billing.Provider
	Social   social.Provider
	Mailer   mail.Sender
	Queue    queue.Publisher
	Invoker  invoke.Invoker
	Catalog  *locale.Catalog
	Database Pinger
	Config   *config.Config
	Logger   *logrus.Logger
	// Now overrides the clock; nil means time.Now
	Now func() time.Time
}

func (d *Dependencies) validate() error {
	switch {
	case d.Store == nil:
		return fmt.Errorf("store cannot be nil")
	case d.Cipher == nil:
		return fmt.Errorf("field cipher cannot be nil")
	case d.Issuer == nil:
		return fmt.Errorf("token issuer cannot be nil")
	case d.Catalog == nil:
		return fmt.Errorf("message catalog cannot be nil")
	case d.Config == nil:
		return fmt.Errorf("config cannot be nil")
	}
	return nil
}

// ServiceContainer holds all service instances
type ServiceContainer struct {
	AccountService       AccountService
	PasswordResetService PasswordResetService
	NotificationService  NotificationService
	MysteryService       MysteryService
	ProfileService       ProfileService
	PaymentService       PaymentService
	OperationsService    OperationsService
}

// NewServiceContainer creates a new service container with all services
func NewServiceContainer(deps *Dependencies) (*ServiceContainer, error) {
	if deps == nil {
		return nil, fmt.Errorf("dependencies cannot be nil")
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}

	b := newBase(deps)
	mystery := &mysteryService{base: b}

	return &ServiceContainer{
		AccountService:       &accountService{base: b, mystery: mystery},
		PasswordResetService: &passwordResetService{base: b},
		NotificationService:  &notificationService{base: b},
		MysteryService:       mystery,
		ProfileService:       &profileService{base: b},
		PaymentService:       &paymentService{base: b},
		OperationsService:    &operationsService{base: b},
	}, nil
}

// base carries the collaborators shared by every service
type base struct {
	store   *repositories.Store
	cipher  *fieldcrypt.Cipher
	issuer  *auth.Issuer
	hasher  *auth.PasswordHasher
	files   storage.FileStorage
	billing billing.Provider
	social  social.Provider
	mailer  mail.Sender
	queue   queue.Publisher
	invoker invoke.Invoker
	catalog *locale.Catalog
	db      Pinger
	cfg     *config.Config
	rules   models.MysteryRules
	logger  *logrus.Logger
	now     func() time.Time
}

func newBase(deps *Dependencies) *base {
	b := &base{
		store:   deps.Store,
		cipher:  deps.Cipher,
		issuer:  deps.Issuer,
		hasher:  deps.Hasher,
		files:   deps.Storage,
		billing: deps.Billing,
		social:  deps.Social,
		mailer:  deps.Mailer,
		queue:   deps.Queue,
		invoker: deps.Invoker,
		catalog: deps.Catalog,
		db:      deps.Database,
		cfg:     deps.Config,
		logger:  deps.Logger,
		now:     deps.Now,
	}
	if b.hasher == nil {
		b.hasher = auth.NewPasswordHasher(0)
	}
	if b.logger == nil {
		b.logger = logrus.New()
	}
	if b.now == nil {
		b.now = time.Now
	}

	b.rules = models.MysteryRules{
		UnlockCount: deps.Config.App.MysteryUnlockCount,
		Window:      deps.Config.App.MysteryWindow,
	}
	if b.rules.UnlockCount <= 0 {
		b.rules.UnlockCount = 3
	}
	if b.rules.Window <= 0 {
		b.rules.Window = 24 * time.Hour
	}
	return b
}

// loadUser reads the caller's account. A deleted account whose token is
// still valid reports INVALID_USER.
func (b *base) loadUser(ctx context.Context, claim *auth.Claim) (*models.User, error) {
	if claim == nil {
		return nil, AuthError(locale.Unauthorized, fmt.Errorf("missing claim"))
	}
	user, err := b.store.Users.GetByID(ctx, claim.InternalID)
	if err != nil {
		return nil, DatabaseError(err, locale.InvalidUser)
	}
	return user, nil
}

// messages returns the message set of the account's stored locale
func (b *base) messages(user *models.User) locale.Messages {
	return b.catalog.For(user.LanguageID)
}

// session issues a token for user with a lifetime of days
func (b *base) session(user *models.User, days int) (*SessionResponse, error) {
	token, _, err := b.issuer.Issue(user.ID, user.UserID, user.LanguageID, auth.Days(days))
	if err != nil {
		return nil, InternalError(err)
	}
	return &SessionResponse{
		Auth:       token,
		UserID:     user.UserID,
		LanguageID: user.LanguageID,
	}, nil
}

// loginDays is the token lifetime for a returning account
func (b *base) loginDays(user *models.User) int {
	if user.IsSocialLinked() {
		return b.cfg.Token.SocialUserExpiryDays
	}
	return b.cfg.Token.EmailUserExpiryDays
}

// enqueue publishes a background task. Failures are logged only.
func (b *base) enqueue(ctx context.Context, taskType queue.TaskType, user *models.User) {
	if b.queue == nil {
		return
	}
	task := queue.NewTask(taskType, user.ID, user.UserID)
	if err := b.queue.Publish(ctx, task); err != nil {
		b.logger.WithError(err).WithFields(logrus.Fields{
			"task_type": taskType,
			"rid":       user.ID,
		}).Error("Failed to enqueue task")
	}
}
