package handlers

import (
	"net/http"

	"profiles-api/internal/locale"
	"profiles-api/internal/services"
	"profiles-api/pkg/lambda"

	"github.com/sirupsen/logrus"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Message string `json:"message" example:"Unauthorized"`
}

// statusFor maps a service error kind to its HTTP status
func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindRequestShape, services.KindInvalid:
		return http.StatusBadRequest
	case services.KindAuth:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail renders err as a localized error response. msgs is the best locale
// known for the request; an error carrying the account's locale wins.
func (h *Handlers) fail(req *lambda.Request, msgs locale.Messages, err error) *lambda.Response {
	svcErr := services.AsError(err)
	if svcErr.LocaleID != 0 {
		msgs = h.catalog.For(svcErr.LocaleID)
	}
	status := statusFor(svcErr.Kind)

	entry := h.requestLogger(req).WithFields(logrus.Fields{
		"status_code": status,
		"kind":        svcErr.Kind.String(),
		"key":         svcErr.Key,
	})
	if svcErr.Err != nil {
		entry = entry.WithError(svcErr.Err)
	}
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Info("Request rejected")
	}

	return lambda.JSON(status, ErrorResponse{Message: msgs.Get(svcErr.Key)})
}
