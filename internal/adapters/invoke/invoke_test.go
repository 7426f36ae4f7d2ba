package invoke

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/sirupsen/logrus"
)

type fakeLambda struct {
	in     *lambda.InvokeInput
	status int32
	err    error
}

func (f *fakeLambda) Invoke(ctx context.Context, in *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &lambda.InvokeOutput{StatusCode: f.status}, nil
}

func TestLambdaInvoker_InvokeAsync(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	tests := []struct {
		name    string
		status  int32
		err     error
		wantErr bool
	}{
		{"accepted", 202, nil, false},
		{"unexpected status", 200, nil, true},
		{"client error", 0, errors.New("throttled"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeLambda{status: tt.status, err: tt.err}
			inv := newLambdaInvoker(fake, logger)

			err := inv.InvokeAsync(context.Background(), "profiles-signin-dev", []byte(`{"source":"lambda_warmer"}`))
			if (err != nil) != tt.wantErr {
				t.Fatalf("InvokeAsync() error = %v, wantErr %v", err, tt.wantErr)
			}
			if fake.in.InvocationType != types.InvocationTypeEvent {
				t.Errorf("Expected Event invocation, got %s", fake.in.InvocationType)
			}
			if aws.ToString(fake.in.FunctionName) != "profiles-signin-dev" {
				t.Errorf("Unexpected function %s", aws.ToString(fake.in.FunctionName))
			}
		})
	}
}
