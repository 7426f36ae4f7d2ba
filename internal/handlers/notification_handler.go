package handlers

import (
	"context"
	"net/http"

	"profiles-api/internal/auth"
	"profiles-api/pkg/lambda"
)

// Notifications godoc
// @Summary Notification feed
// @Description List the caller's notifications grouped by local day and mark them seen
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param timezone_offset header int false "UTC minus local time, in minutes"
// @Success 200 {array} object
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /notifications [get]
func (h *Handlers) Notifications(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	return h.authenticated(ctx, req, http.StatusOK, func(claim *auth.Claim) (interface{}, error) {
		offset, _, err := headerInt(req, "timezone_offset")
		if err != nil {
			return nil, err
		}
		return h.services.NotificationService.Feed(ctx, claim, offset)
	})
}

// NotificationCount godoc
// @Summary Unread notification count
// @Description Count unseen notifications; more than nine is reported as "9+"
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.CountResponse
// @Failure 403 {object} ErrorResponse
// @Router /notifications/count [get]
func (h *Handlers) NotificationCount(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	return h.authenticated(ctx, req, http.StatusOK, func(claim *auth.Claim) (interface{}, error) {
		return h.services.NotificationService.ActiveCount(ctx, claim)
	})
}

// Mystery godoc
// @Summary Mystery status
// @Description Start the referral window on first view and report the unlock state
// @Tags mystery
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.MysteryResponse
// @Failure 403 {object} ErrorResponse
// @Router /mystery [get]
func (h *Handlers) Mystery(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	return h.authenticated(ctx, req, http.StatusOK, func(claim *auth.Claim) (interface{}, error) {
		return h.services.MysteryService.Status(ctx, claim)
	})
}

// MysteryButton godoc
// @Summary Mystery button
// @Description Report the unlock state and post the one-time reminder near the deadline
// @Tags mystery
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.MysteryResponse
// @Failure 403 {object} ErrorResponse
// @Router /mystery/button [get]
func (h *Handlers) MysteryButton(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	return h.authenticated(ctx, req, http.StatusOK, func(claim *auth.Claim) (interface{}, error) {
		return h.services.MysteryService.Button(ctx, claim)
	})
}
