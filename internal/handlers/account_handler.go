package handlers

import (
	"context"
	"net/http"
	"strings"

	"profiles-api/internal/auth"
	"profiles-api/internal/services"
	"profiles-api/pkg/lambda"
)

// SignIn godoc
// @Summary Sign in
// @Description Check email and password and issue a session token
// @Tags account
// @Accept json
// @Produce json
// @Param language_id header int false "Locale id for messages"
// @Param credentials body services.SignInRequest true "Credentials"
// @Success 200 {object} services.SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /signin [post]
func (h *Handlers) SignIn(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	msgs := h.requestMessages(req)

	var body services.SignInRequest
	if err := decode(req, &body); err != nil {
		return h.fail(req, msgs, err), nil
	}

	resp, err := h.services.AccountService.SignIn(ctx, &body)
	if err != nil {
		return h.fail(req, msgs, err), nil
	}
	return lambda.JSON(http.StatusOK, resp), nil
}

// SignUp godoc
// @Summary Sign up
// @Description Create an email account. A referral_code header credits the referrer.
// @Tags account
// @Accept json
// @Produce json
// @Param language_id header int false "Locale id of the new account"
// @Param referral_code header string false "Public user id of the referrer"
// @Param account body services.SignUpRequest true "New account"
// @Success 200 {object} services.SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /signup [post]
func (h *Handlers) SignUp(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	msgs := h.requestMessages(req)

	var body services.SignUpRequest
	if err := decode(req, &body); err != nil {
		return h.fail(req, msgs, err), nil
	}
	if id, ok, err := headerInt(req, "language_id"); err != nil {
		return h.fail(req, msgs, err), nil
	} else if ok {
		body.LanguageID = id
	}
	body.ReferralCode = strings.TrimSpace(req.Header("referral_code"))

	resp, err := h.services.AccountService.SignUp(ctx, &body)
	if err != nil {
		return h.fail(req, msgs, err), nil
	}
	return lambda.JSON(http.StatusOK, resp), nil
}

// ChangePassword godoc
// @Summary Change password
// @Description Replace the caller's password after checking the old one
// @Tags account
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param passwords body services.ChangePasswordRequest true "Old and new password"
// @Success 200 {object} services.MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /password/change [post]
func (h *Handlers) ChangePassword(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	return h.authenticated(ctx, req, http.StatusOK, func(claim *auth.Claim) (interface{}, error) {
		var body services.ChangePasswordRequest
		if err := decode(req, &body); err != nil {
			return nil, err
		}
		return h.services.AccountService.ChangePassword(ctx, claim, &body)
	})
}

// DeleteAccount godoc
// @Summary Delete account
// @Description Cancel active subscriptions and delete the caller's account
// @Tags account
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param confirmation body services.DeleteAccountRequest false "Password confirmation"
// @Success 200 {object} services.MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /account [delete]
func (h *Handlers) DeleteAccount(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	return h.authenticated(ctx, req, http.StatusOK, func(claim *auth.Claim) (interface{}, error) {
		var body services.DeleteAccountRequest
		if err := decode(req, &body); err != nil {
			return nil, err
		}
		return h.services.AccountService.DeleteAccount(ctx, claim, &body)
	})
}
