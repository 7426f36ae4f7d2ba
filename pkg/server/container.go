package server

import (
	"context"
	"fmt"
	"time"

	"profiles-api/internal/adapters/awscfg"
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
	"profiles-api/internal/repositories"
	"profiles-api/internal/repositories/sqlstore"
	"profiles-api/internal/services"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/sirupsen/logrus"
)

// upstreamTimeout bounds each billing and Graph API request
const upstreamTimeout = 10 * time.Second

// Container holds all application dependencies. One container is built per
// process and reused across warm invocations.
type Container struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Services *services.ServiceContainer
	Verifier *auth.Verifier
	Catalog  *locale.Catalog
	Store    *repositories.Store

	// Queue is set when tasks are kept in process
	Queue *queue.MemoryQueue

	db    *database.ConnectionManager
	files storage.FileStorage
}

// Option customizes container construction
type Option func(*options)

type options struct {
	logger  *logrus.Logger
	billing billing.Provider
	social  social.Provider
	now     func() time.Time
}

// WithLogger replaces the logger built from configuration
func WithLogger(logger *logrus.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithBilling replaces the billing client
func WithBilling(p billing.Provider) Option {
	return func(o *options) { o.billing = p }
}

// WithSocial replaces the Graph API client
func WithSocial(p social.Provider) Option {
	return func(o *options) { o.social = p }
}

// WithClock replaces the service clock
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewContainer connects to the database and builds every adapter and
// service from cfg
func NewContainer(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		logger = config.NewLogger(cfg)
	}

	c := &Container{Config: cfg, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	c.db = database.NewConnectionManager(cfg.Database.ToConnectionConfig(logger))
	if err := c.db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	c.Store = sqlstore.NewStore(c.db.GetDB(), c.db.Dialect(), logger)

	cipher, err := fieldcrypt.New(cfg.Crypto.FieldKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create field cipher: %w", err)
	}
	issuer, err := auth.NewIssuer(cfg.Token.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}
	c.Verifier, err = auth.NewVerifier(cfg.Token.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to create token verifier: %w", err)
	}
	c.Catalog, err = locale.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load message catalog: %w", err)
	}

	c.files, err = storage.CreateFromConfig(ctx, &storage.StorageConfig{
		Type:      cfg.Storage.Type,
		BasePath:  cfg.Storage.LocalPath,
		BaseURL:   cfg.Storage.BaseURL,
		Bucket:    cfg.Storage.S3Bucket,
		Region:    cfg.Storage.S3Region,
		Endpoint:  cfg.AWS.Endpoint,
		AccessKey: cfg.AWS.AccessKey,
		SecretKey: cfg.AWS.SecretKey,
	})
	if err != nil {
		return nil, err
	}

	awsLoader := &lazyAWS{opts: awscfg.Options{
		Region:    cfg.AWS.Region,
		AccessKey: cfg.AWS.AccessKey,
		SecretKey: cfg.AWS.SecretKey,
		Endpoint:  cfg.AWS.Endpoint,
	}}

	mailer, err := c.newMailer(ctx, awsLoader)
	if err != nil {
		return nil, err
	}
	publisher, err := c.newPublisher(ctx, awsLoader)
	if err != nil {
		return nil, err
	}

	var invoker invoke.Invoker
	if len(cfg.Warmer.Functions) > 0 {
		awsCfg, err := awsLoader.load(ctx)
		if err != nil {
			return nil, err
		}
		invoker = invoke.NewLambdaInvoker(awsCfg, logger)
	}

	billingProvider := o.billing
	if billingProvider == nil {
		billingProvider, err = billing.NewClient(billing.Config{
			Site:    cfg.Billing.Site,
			APIKey:  cfg.Billing.APIKey,
			BaseURL: cfg.Billing.BaseURL,
			Timeout: upstreamTimeout,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create billing client: %w", err)
		}
	}

	socialProvider := o.social
	if socialProvider == nil {
		socialProvider, err = social.NewFacebookClient(social.Config{
			AppID:       cfg.Facebook.AppID,
			AppSecret:   cfg.Facebook.AppSecret,
			GraphURL:    cfg.Facebook.GraphURL,
			RedirectURI: cfg.Facebook.RedirectURI,
			Timeout:     upstreamTimeout,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create facebook client: %w", err)
		}
	}

	c.Services, err = services.NewServiceContainer(&services.Dependencies{
		Store:    c.Store,
		Cipher:   cipher,
		Issuer:   issuer,
		Storage:  c.files,
		Billing:  billingProvider,
		Social:   socialProvider,
		Mailer:   mailer,
		Queue:    publisher,
		Invoker:  invoker,
		Catalog:  c.Catalog,
		Database: c.db,
		Config:   cfg,
		Logger:   logger,
		Now:      o.now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create service container: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"storage": cfg.Storage.Type,
		"queue":   cfg.Queue.Type,
		"mail":    cfg.Mail.Type,
		"mode":    config.GetDeploymentMode(),
	}).Info("Container initialized")

	ok = true
	return c, nil
}

func (c *Container) newMailer(ctx context.Context, loader *lazyAWS) (mail.Sender, error) {
	if c.Config.Mail.Type != "ses" {
		return mail.NewLogSender(c.Logger), nil
	}
	awsCfg, err := loader.load(ctx)
	if err != nil {
		return nil, err
	}
	return mail.NewSESSender(awsCfg, c.Config.Mail.From, c.Logger), nil
}

func (c *Container) newPublisher(ctx context.Context, loader *lazyAWS) (queue.Publisher, error) {
	if c.Config.Queue.Type != "sqs" {
		c.Queue = queue.NewMemoryQueue()
		return c.Queue, nil
	}
	awsCfg, err := loader.load(ctx)
	if err != nil {
		return nil, err
	}
	return queue.NewSQSPublisher(awsCfg, c.Config.Queue.QueueURL, c.Logger), nil
}

// Ping reports whether the database is reachable
func (c *Container) Ping(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return c.db.Ping(ctx)
}

// Close cleans up all resources
func (c *Container) Close() error {
	var firstErr error
	if c.files != nil {
		if err := c.files.Close(); err != nil {
			firstErr = fmt.Errorf("failed to close storage: %w", err)
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close database: %w", err)
		}
	}
	return firstErr
}

// lazyAWS loads the shared AWS configuration on first use so that local
// runs without AWS adapters never resolve credentials
type lazyAWS struct {
	opts   awscfg.Options
	cfg    aws.Config
	loaded bool
}

func (l *lazyAWS) load(ctx context.Context) (aws.Config, error) {
	if l.loaded {
		return l.cfg, nil
	}
	cfg, err := awscfg.Load(ctx, l.opts)
	if err != nil {
		return aws.Config{}, err
	}
	l.cfg, l.loaded = cfg, true
	return l.cfg, nil
}
