package main

import (
	"profiles-api/internal/handlers"
	"profiles-api/pkg/lambda"

	awslambda "github.com/aws/aws-lambda-go/lambda"
)

func main() {
	awslambda.Start(lambda.APIGateway(handlers.Lambda((*handlers.Handlers).BillingWebhook)))
}
