package lambda

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"profiles-api/internal/adapters/invoke"
)

// DefaultHeaders are set on every API response
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":      "*",
		"Access-Control-Allow-Credentials": "true",
		"Content-Type":                     "application/json",
	}
}

// JSON builds a response with body marshaled as JSON and the default headers
func JSON(status int, body interface{}) *Response {
	data, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		data = []byte(`{"message":"internal error"}`)
	}
	return &Response{StatusCode: status, Headers: DefaultHeaders(), Body: data}
}

// Message builds a {"message": ...} response
func Message(status int, message string) *Response {
	return JSON(status, map[string]string{"message": message})
}

// warmEvent is the shape of a keep-warm invocation
type warmEvent struct {
	Source string `json:"source"`
}

// IsWarmEvent reports whether a raw event is a keep-warm ping
func IsWarmEvent(raw []byte) bool {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "{") {
		return false
	}
	var e warmEvent
	if err := json.Unmarshal(raw, &e); err != nil {
		return false
	}
	return e.Source == invoke.WarmSource
}

// WarmResponse answers a keep-warm ping
func WarmResponse() *Response {
	return Message(http.StatusOK, "lambda warmed")
}

// FromAPIGateway converts an API Gateway proxy event into a Request
func FromAPIGateway(event events.APIGatewayProxyRequest) *Request {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		if decoded, err := base64.StdEncoding.DecodeString(event.Body); err == nil {
			body = decoded
		}
	}
	return &Request{
		Method:      event.HTTPMethod,
		Path:        event.Path,
		Headers:     event.Headers,
		QueryParams: event.QueryStringParameters,
		Body:        body,
		PathParams:  event.PathParameters,
		RequestID:   event.RequestContext.RequestID,
	}
}

// ToAPIGateway converts a Response into an API Gateway proxy response
func (r *Response) ToAPIGateway() events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: r.StatusCode,
		Headers:    r.Headers,
		Body:       string(r.Body),
	}
}

// APIGateway adapts a HandlerFunc to the raw Lambda event. Keep-warm pings
// are answered before the event is decoded and before h runs, so no
// collaborator is touched for them.
func APIGateway(h HandlerFunc) func(ctx context.Context, raw json.RawMessage) (events.APIGatewayProxyResponse, error) {
	return func(ctx context.Context, raw json.RawMessage) (events.APIGatewayProxyResponse, error) {
		if IsWarmEvent(raw) {
			return WarmResponse().ToAPIGateway(), nil
		}

		var event events.APIGatewayProxyRequest
		if err := json.Unmarshal(raw, &event); err != nil {
			return Message(http.StatusBadRequest, "invalid event").ToAPIGateway(), nil
		}

		resp, err := h(ctx, FromAPIGateway(event))
		if err != nil || resp == nil {
			return Message(http.StatusInternalServerError, "internal error").ToAPIGateway(), nil
		}
		return resp.ToAPIGateway(), nil
	}
}
