package handlers

import (
	"context"
	"strconv"

	"profiles-api/internal/auth"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"
)

const policyVersion = "2012-10-17"

// Authorizer is the API Gateway custom authorizer. It runs the token gate
// only and never touches the account store.
type Authorizer struct {
	verifier *auth.Verifier
	logger   *logrus.Logger
}

// NewAuthorizer creates the custom authorizer
func NewAuthorizer(verifier *auth.Verifier, logger *logrus.Logger) *Authorizer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Authorizer{verifier: verifier, logger: logger}
}

// Authorize returns an Allow policy for a verified token and a Deny policy
// otherwise. The principal is the internal account id; the context carries
// the public id and locale for the integration.
func (a *Authorizer) Authorize(ctx context.Context, event events.APIGatewayCustomAuthorizerRequest) (events.APIGatewayCustomAuthorizerResponse, error) {
	token, err := auth.TokenFromHeader(event.AuthorizationToken)
	if err == nil {
		var claim *auth.Claim
		if claim, err = a.verifier.Verify(token); err == nil {
			return events.APIGatewayCustomAuthorizerResponse{
				PrincipalID:    strconv.FormatInt(claim.InternalID, 10),
				PolicyDocument: policy("Allow", event.MethodArn),
				Context: map[string]interface{}{
					"rid":         claim.InternalID,
					"user_id":     claim.PublicID,
					"language_id": claim.LocaleID,
				},
			}, nil
		}
	}

	a.logger.WithError(err).WithField("method_arn", event.MethodArn).Warn("Authorizer denied request")
	return events.APIGatewayCustomAuthorizerResponse{
		PrincipalID:    "anonymous",
		PolicyDocument: policy("Deny", event.MethodArn),
	}, nil
}

func policy(effect, resource string) events.APIGatewayCustomAuthorizerPolicy {
	return events.APIGatewayCustomAuthorizerPolicy{
		Version: policyVersion,
		Statement: []events.IAMPolicyStatement{{
			Action:   []string{"execute-api:Invoke"},
			Effect:   effect,
			Resource: []string{resource},
		}},
	}
}
