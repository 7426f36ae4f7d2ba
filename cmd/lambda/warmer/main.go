package main

import (
	"context"

	"profiles-api/internal/handlers"
	"profiles-api/internal/services"
	"profiles-api/pkg/lambda"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"
)

func handler(ctx context.Context, event events.CloudWatchEvent) (*services.WarmReport, error) {
	container, err := lambda.GetConnectionManager().GetContainer(ctx)
	if err != nil {
		return nil, err
	}
	return handlers.FromContainer(container).Warm(ctx)
}

func main() {
	awslambda.Start(handler)
}
