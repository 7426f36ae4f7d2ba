package handlers

import (
	"context"
	"net/http"
	"strings"

	"profiles-api/internal/auth"
	"profiles-api/internal/services"
	"profiles-api/pkg/lambda"
)

// FacebookConnect godoc
// @Summary Connect Facebook
// @Description Link the Facebook account behind an OAuth code to the caller
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param code header string false "OAuth code; may be sent in the body instead"
// @Param request body services.FacebookConnectRequest false "OAuth code"
// @Success 200 {object} services.SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /facebook/connect [post]
func (h *Handlers) FacebookConnect(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	return h.authenticated(ctx, req, http.StatusOK, func(claim *auth.Claim) (interface{}, error) {
		var body services.FacebookConnectRequest
		if err := decode(req, &body); err != nil {
			return nil, err
		}
		if code := strings.TrimSpace(req.Header("code")); code != "" {
			body.Code = code
		}
		return h.services.ProfileService.ConnectFacebook(ctx, claim, &body)
	})
}

// FacebookDisconnect godoc
// @Summary Disconnect Facebook
// @Description Unlink the caller's Facebook account when a password remains to sign in with
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.DisconnectResponse
// @Failure 403 {object} ErrorResponse
// @Router /facebook/disconnect [post]
func (h *Handlers) FacebookDisconnect(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	return h.authenticated(ctx, req, http.StatusOK, func(claim *auth.Claim) (interface{}, error) {
		return h.services.ProfileService.DisconnectFacebook(ctx, claim)
	})
}

// UploadPicture godoc
// @Summary Upload picture
// @Description Store a base64 encoded image as the caller's profile picture
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param picture body services.UploadPictureRequest true "Base64 image or data URL"
// @Success 200 {object} services.PictureResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /picture [post]
func (h *Handlers) UploadPicture(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	return h.authenticated(ctx, req, http.StatusOK, func(claim *auth.Claim) (interface{}, error) {
		var body services.UploadPictureRequest
		if err := decode(req, &body); err != nil {
			return nil, err
		}
		return h.services.ProfileService.UploadPicture(ctx, claim, &body)
	})
}
