package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"profiles-api/internal/auth"
	"profiles-api/internal/locale"
	"profiles-api/internal/services"
	"profiles-api/pkg/lambda"
	"profiles-api/pkg/server"

	"github.com/sirupsen/logrus"
)

// Handlers serves every API function. Each exported method is a
// lambda.HandlerFunc and is deployed as its own function.
type Handlers struct {
	services *services.ServiceContainer
	verifier *auth.Verifier
	catalog  *locale.Catalog
	logger   *logrus.Logger
}

// New creates the API handlers
func New(svc *services.ServiceContainer, verifier *auth.Verifier, catalog *locale.Catalog, logger *logrus.Logger) *Handlers {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handlers{
		services: svc,
		verifier: verifier,
		catalog:  catalog,
		logger:   logger,
	}
}

// FromContainer creates the API handlers from a dependency container
func FromContainer(c *server.Container) *Handlers {
	return New(c.Services, c.Verifier, c.Catalog, c.Logger)
}

// Method is a Handlers method expression, e.g. (*Handlers).SignIn
type Method func(h *Handlers, ctx context.Context, req *lambda.Request) (*lambda.Response, error)

var (
	cachedMu        sync.Mutex
	cachedContainer *server.Container
	cachedHandlers  *Handlers
)

// Lambda binds a handler method to the process-wide container. The
// container is built on the first request that is not a keep-warm ping.
func Lambda(m Method) lambda.HandlerFunc {
	return func(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
		h, err := current(ctx)
		if err != nil {
			logrus.WithError(err).Error("Failed to initialize container")
			return lambda.Message(500, "internal error"), nil
		}
		return m(h, ctx, req)
	}
}

func current(ctx context.Context) (*Handlers, error) {
	container, err := lambda.GetConnectionManager().GetContainer(ctx)
	if err != nil {
		return nil, err
	}

	cachedMu.Lock()
	defer cachedMu.Unlock()
	if cachedContainer != container {
		cachedContainer = container
		cachedHandlers = FromContainer(container)
	}
	return cachedHandlers, nil
}

// requestMessages resolves the message set from the language_id header.
// It is used until a token or an account row names the caller's locale.
func (h *Handlers) requestMessages(req *lambda.Request) locale.Messages {
	return h.catalog.ForHeader(req.Header("language_id"))
}

// authenticate runs the token gate. On failure it returns the 403 response
// to send; nothing else runs for the request.
func (h *Handlers) authenticate(ctx context.Context, req *lambda.Request) (*auth.Claim, *lambda.Response) {
	msgs := h.requestMessages(req)

	token, err := auth.ExtractToken(req.Headers)
	if err == nil {
		var claim *auth.Claim
		claim, err = h.verifier.Verify(token)
		if err == nil {
			return claim, nil
		}
	}

	h.requestLogger(req).WithError(err).Warn("Request rejected by token gate")
	return nil, lambda.Message(statusFor(services.KindAuth), msgs.Get(locale.Unauthorized))
}

// authenticated runs fn for a verified caller and renders its result as JSON
func (h *Handlers) authenticated(ctx context.Context, req *lambda.Request, status int, fn func(claim *auth.Claim) (interface{}, error)) (*lambda.Response, error) {
	claim, denied := h.authenticate(ctx, req)
	if denied != nil {
		return denied, nil
	}

	result, err := fn(claim)
	if err != nil {
		return h.fail(req, h.catalog.For(claim.LocaleID), err), nil
	}
	return lambda.JSON(status, result), nil
}

// decode reads a JSON body into dst. An empty body leaves dst untouched so
// that service validation reports the missing fields.
func decode(req *lambda.Request, dst interface{}) error {
	if len(strings.TrimSpace(string(req.Body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Body, dst); err != nil {
		return services.RequestShapeError(fmt.Errorf("invalid request body: %w", err))
	}
	return nil
}

// headerInt parses an integer header; ok is false when it is absent
func headerInt(req *lambda.Request, name string) (int, bool, error) {
	raw := strings.TrimSpace(req.Header(name))
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true, services.RequestShapeError(fmt.Errorf("invalid %s header: %w", name, err))
	}
	return n, true, nil
}

func (h *Handlers) requestLogger(req *lambda.Request) *logrus.Entry {
	return h.logger.WithFields(logrus.Fields{
		"request_id": req.RequestID,
		"method":     req.Method,
		"path":       req.Path,
	})
}
