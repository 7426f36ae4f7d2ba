package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"profiles-api/internal/adapters/queue"
	"profiles-api/internal/adapters/social"
	"profiles-api/internal/adapters/storage"
	"profiles-api/internal/auth"
	"profiles-api/internal/locale"
	"profiles-api/internal/models"
	"profiles-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

// MaxPictureBytes is the largest decoded picture accepted for upload
const MaxPictureBytes = 5 << 20

// pictureFormats maps decoder names to the stored content type
var pictureFormats = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
}

// profileService implements ProfileService
type profileService struct {
	*base
}

// ConnectFacebook links the Graph identity behind code to the caller
func (s *profileService) ConnectFacebook(ctx context.Context, claim *auth.Claim, req *FacebookConnectRequest) (*SessionResponse, error) {
	if req == nil {
		return nil, RequestShapeError(fmt.Errorf("request cannot be nil"))
	}
	if err := models.ValidateStruct(req); err != nil {
		return nil, RequestShapeError(err)
	}

	user, err := s.loadUser(ctx, claim)
	if err != nil {
		return nil, err
	}
	if s.social == nil {
		return nil, UpstreamError(fmt.Errorf("social provider not configured")).inLocale(user.LanguageID)
	}

	profile, err := s.social.ProfileFromCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, social.ErrInvalidCode) {
			return nil, RequestShapeError(err).inLocale(user.LanguageID)
		}
		return nil, UpstreamError(err).inLocale(user.LanguageID)
	}

	owner, err := s.store.Users.GetBySocialID(ctx, profile.ID)
	switch {
	case err == nil && owner.ID != user.ID:
		return nil, ConflictError(locale.FacebookLinked, nil).inLocale(user.LanguageID)
	case err != nil && !repositories.IsNotFound(err):
		return nil, DatabaseError(err, locale.InvalidUser).inLocale(user.LanguageID)
	}

	if err := s.store.Users.LinkSocial(ctx, user.ID, profile.ID, profile.PictureURL); err != nil {
		if repositories.IsDuplicate(err) {
			return nil, ConflictError(locale.FacebookLinked, err).inLocale(user.LanguageID)
		}
		return nil, DatabaseError(err, locale.InvalidUser).inLocale(user.LanguageID)
	}
	user.SocialUserID = &profile.ID

	s.enqueue(ctx, queue.TaskProfileImage, user)

	resp, err := s.session(user, s.cfg.Token.SocialUserExpiryDays)
	if err != nil {
		return nil, err
	}
	resp.Message = s.messages(user).Get(locale.FacebookConnected)

	s.logger.WithFields(logrus.Fields{"rid": user.ID, "user_id": user.UserID}).Info("Facebook connected")
	return resp, nil
}

// DisconnectFacebook unlinks the social identity. Accounts without a
// password stay connected, since they could not sign in otherwise.
func (s *profileService) DisconnectFacebook(ctx context.Context, claim *auth.Claim) (*DisconnectResponse, error) {
	user, err := s.loadUser(ctx, claim)
	if err != nil {
		return nil, err
	}

	connected := "true"
	if user.HasPassword() {
		if err := s.store.Users.UnlinkSocial(ctx, user.ID); err != nil {
			return nil, DatabaseError(err, locale.InvalidUser).inLocale(user.LanguageID)
		}
		user.SocialUserID = nil
		connected = "false"
		s.logger.WithField("rid", user.ID).Info("Facebook disconnected")
	}

	session, err := s.session(user, s.loginDays(user))
	if err != nil {
		return nil, err
	}
	return &DisconnectResponse{
		IsConnected: connected,
		Auth:        session.Auth,
		UserID:      session.UserID,
	}, nil
}

// UploadPicture stores a base64 image as the caller's picture
func (s *profileService) UploadPicture(ctx context.Context, claim *auth.Claim, req *UploadPictureRequest) (*PictureResponse, error) {
	if req == nil {
		return nil, RequestShapeError(fmt.Errorf("request cannot be nil"))
	}
	if err := models.ValidateStruct(req); err != nil {
		return nil, RequestShapeError(err)
	}

	user, err := s.loadUser(ctx, claim)
	if err != nil {
		return nil, err
	}

	data, contentType, err := decodePicture(req.PictureData)
	if err != nil {
		return nil, InvalidError(locale.InvalidImage, err).inLocale(user.LanguageID)
	}

	key := storage.UploadedPictureKey(s.cfg.Storage.PictureKeyPrefix, user.UserID)
	err = s.files.Store(ctx, key, data, &storage.StoreOptions{ContentType: contentType, Overwrite: true})
	if err != nil {
		return nil, UpstreamError(err).inLocale(user.LanguageID)
	}

	url := s.files.URL(key)
	if err := s.store.Users.UpdatePicture(ctx, user.ID, url, true); err != nil {
		return nil, DatabaseError(err, locale.InvalidUser).inLocale(user.LanguageID)
	}

	s.enqueue(ctx, queue.TaskProfileImage, user)

	s.logger.WithFields(logrus.Fields{
		"rid":          user.ID,
		"key":          key,
		"content_type": contentType,
		"size":         len(data),
	}).Info("Picture uploaded")
	return &PictureResponse{PictureURL: url}, nil
}

// decodePicture accepts plain base64 or a data URL and checks the bytes
// decode as a supported image
func decodePicture(encoded string) ([]byte, string, error) {
	encoded = strings.TrimSpace(encoded)
	if _, rest, ok := strings.Cut(encoded, ";base64,"); ok && strings.HasPrefix(encoded, "data:") {
		encoded = rest
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(encoded); err != nil {
			return nil, "", fmt.Errorf("picture is not base64: %w", err)
		}
	}
	if len(data) == 0 || len(data) > MaxPictureBytes {
		return nil, "", fmt.Errorf("picture size %d out of range", len(data))
	}

	_, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("picture is not an image: %w", err)
	}
	contentType, ok := pictureFormats[name]
	if !ok {
		return nil, "", fmt.Errorf("unsupported picture format %q", name)
	}
	return data, contentType, nil
}
