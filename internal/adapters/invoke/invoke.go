// Package invoke triggers other deployed functions asynchronously.
package invoke

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/sirupsen/logrus"
)

// WarmSource marks a keep-warm invocation. Functions answer it without
// touching any dependency.
const WarmSource = "lambda_warmer"

// WarmPayload is the event body sent by the warmer
var WarmPayload = []byte(`{"source":"lambda_warmer"}`)

// Invoker fires an event at a named function without waiting for it
type Invoker interface {
	InvokeAsync(ctx context.Context, function string, payload []byte) error
}

// lambdaAPI is the subset of the Lambda client used here
type lambdaAPI interface {
	Invoke(ctx context.Context, in *lambda.InvokeInput, opts ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaInvoker invokes functions with InvocationType=Event
type LambdaInvoker struct {
	client lambdaAPI
	logger *logrus.Logger
}

// NewLambdaInvoker creates an invoker from an aws.Config
func NewLambdaInvoker(cfg aws.Config, logger *logrus.Logger) *LambdaInvoker {
	return newLambdaInvoker(lambda.NewFromConfig(cfg), logger)
}

func newLambdaInvoker(client lambdaAPI, logger *logrus.Logger) *LambdaInvoker {
	return &LambdaInvoker{client: client, logger: logger}
}

// InvokeAsync implements Invoker. Lambda accepts an async invocation with 202.
func (l *LambdaInvoker) InvokeAsync(ctx context.Context, function string, payload []byte) error {
	out, err := l.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(function),
		InvocationType: types.InvocationTypeEvent,
		Payload:        payload,
	})
	if err != nil {
		return fmt.Errorf("invoke %s: %w", function, err)
	}
	if out.StatusCode != http.StatusAccepted {
		return fmt.Errorf("invoke %s: unexpected status %d", function, out.StatusCode)
	}

	l.logger.WithField("function", function).Debug("Async invocation accepted")
	return nil
}

// Recorder is an Invoker that records calls
type Recorder struct {
	Calls []string
	Err   error
}

// InvokeAsync implements Invoker
func (r *Recorder) InvokeAsync(ctx context.Context, function string, payload []byte) error {
	if r.Err != nil {
		return r.Err
	}
	r.Calls = append(r.Calls, function)
	return nil
}
