package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"profiles-api/internal/auth"
	"profiles-api/internal/config"
	"profiles-api/internal/handlers"
	"profiles-api/pkg/lambda"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"
)

var (
	authorizer *handlers.Authorizer
	initOnce   sync.Once
	initErr    error
)

// setup builds the authorizer from configuration. It needs the token
// secret only; no database connection is opened.
func setup() (*handlers.Authorizer, error) {
	initOnce.Do(func() {
		cfg, err := config.GetOptimizedConfig()
		if err != nil {
			initErr = err
			return
		}
		verifier, err := auth.NewVerifier(cfg.Token.Secret)
		if err != nil {
			initErr = err
			return
		}
		authorizer = handlers.NewAuthorizer(verifier, config.NewLogger(cfg))
	})
	return authorizer, initErr
}

func handler(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	if lambda.IsWarmEvent(raw) {
		return lambda.WarmResponse().ToAPIGateway(), nil
	}

	var event events.APIGatewayCustomAuthorizerRequest
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("invalid authorizer event: %w", err)
	}

	a, err := setup()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize authorizer: %w", err)
	}
	return a.Authorize(ctx, event)
}

func main() {
	awslambda.Start(handler)
}
