package handlers

import (
	"context"
	"net/http"

	"profiles-api/internal/services"
	"profiles-api/pkg/lambda"
)

// SendResetLink godoc
// @Summary Send password reset link
// @Description Email a single-use reset link to the account's address
// @Tags password
// @Accept json
// @Produce json
// @Param language_id header int false "Locale id for messages"
// @Param request body services.ResetLinkRequest true "Account email"
// @Success 200 {object} services.MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /password/reset-link [post]
func (h *Handlers) SendResetLink(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	msgs := h.requestMessages(req)

	var body services.ResetLinkRequest
	if err := decode(req, &body); err != nil {
		return h.fail(req, msgs, err), nil
	}

	resp, err := h.services.PasswordResetService.SendResetLink(ctx, &body)
	if err != nil {
		return h.fail(req, msgs, err), nil
	}
	return lambda.JSON(http.StatusOK, resp), nil
}

// ResetPassword godoc
// @Summary Reset password
// @Description Redeem a reset link token, set the new password and sign in
// @Tags password
// @Accept json
// @Produce json
// @Param language_id header int false "Locale id for messages"
// @Param request body services.ResetPasswordRequest true "Reset token and new password"
// @Success 200 {object} services.SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /password/reset [post]
func (h *Handlers) ResetPassword(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	msgs := h.requestMessages(req)

	var body services.ResetPasswordRequest
	if err := decode(req, &body); err != nil {
		return h.fail(req, msgs, err), nil
	}

	resp, err := h.services.PasswordResetService.ResetPassword(ctx, &body)
	if err != nil {
		return h.fail(req, msgs, err), nil
	}
	return lambda.JSON(http.StatusOK, resp), nil
}
