package main

import (
	"context"

	"profiles-api/internal/handlers"
	"profiles-api/pkg/lambda"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"
)

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	container, err := lambda.GetConnectionManager().GetContainer(ctx)
	if err != nil {
		// Failing the invocation returns the whole batch to the queue
		return events.SQSEventResponse{}, err
	}
	return handlers.FromContainer(container).Worker(ctx, event)
}

func main() {
	awslambda.Start(handler)
}
