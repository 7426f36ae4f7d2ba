package services

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"profiles-api/internal/adapters/mail"
	"profiles-api/internal/auth"
	"profiles-api/internal/locale"
	"profiles-api/internal/models"
	"profiles-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

// resetPayload is sealed into the reset link
type resetPayload struct {
	ID  int64 `json:"id"`
	Exp int64 `json:"exp"`
}

// passwordResetService implements PasswordResetService
type passwordResetService struct {
	*base
}

func (s *passwordResetService) ttl() time.Duration {
	if s.cfg.App.ResetTokenTTL > 0 {
		return s.cfg.App.ResetTokenTTL
	}
	return 24 * time.Hour
}

// SendResetLink stores a fresh single-use token and emails the link.
// A new link replaces any earlier one.
func (s *passwordResetService) SendResetLink(ctx context.Context, req *ResetLinkRequest) (*MessageResponse, error) {
	if req == nil {
		return nil, RequestShapeError(fmt.Errorf("request cannot be nil"))
	}
	if err := models.ValidateStruct(req); err != nil {
		return nil, RequestShapeError(err)
	}

	email := models.NormalizeEmail(req.Email)
	user, err := s.store.Users.GetByEmailDigest(ctx, s.cipher.Digest(email))
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, InvalidError(locale.EmailUnknown, err)
		}
		return nil, DatabaseError(err, locale.EmailUnknown)
	}
	msgs := s.messages(user)

	now := s.now().UTC()
	expiresAt := now.Add(s.ttl())

	raw, err := json.Marshal(resetPayload{ID: user.ID, Exp: expiresAt.Unix()})
	if err != nil {
		return nil, InternalError(err)
	}
	token, err := s.cipher.Seal(raw)
	if err != nil {
		return nil, InternalError(err)
	}

	err = s.store.ResetTokens.Save(ctx, &models.ResetToken{
		RID:       user.ID,
		Digest:    auth.HashResetToken(token),
		Active:    true,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	})
	if err != nil {
		return nil, DatabaseError(err, locale.InvalidUser).inLocale(user.LanguageID)
	}

	firstName, err := s.cipher.OpenString(user.FirstNameCipher)
	if err != nil {
		s.logger.WithError(err).WithField("rid", user.ID).Warn("Cannot decrypt first name")
	}

	link := s.resetLink(msgs, token)
	body := msgs.Format(locale.EmailBodyTemplate, map[string]string{
		"firstname": html.EscapeString(firstName),
		"link":      link,
		"weekday":   msgs.WeekdayName(now.Weekday()),
	})

	msg := &mail.Message{
		To:      []string{email},
		Subject: msgs.Get(locale.EmailSubject),
		Text:    link,
		HTML:    body,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return nil, UpstreamError(err).inLocale(user.LanguageID)
	}

	s.logger.WithField("rid", user.ID).Info("Password reset link sent")
	return &MessageResponse{Message: msgs.Get(locale.ResetLinkSent)}, nil
}

// resetLink builds <env url>[/<lang code>]<reset path><locale id>.<token>.
// The default locale has no language segment.
func (s *passwordResetService) resetLink(msgs locale.Messages, token string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(s.cfg.App.EnvironmentURL, "/"))
	if msgs.LocaleID() != locale.DefaultLocaleID {
		b.WriteString("/")
		b.WriteString(msgs.LanguageCode())
	}
	b.WriteString(s.cfg.App.ResetPasswordPath)
	b.WriteString(strconv.Itoa(msgs.LocaleID()))
	b.WriteString(".")
	b.WriteString(token)
	return b.String()
}

// ResetPassword redeems a reset token: it must be the account's latest,
// unused and unexpired token
func (s *passwordResetService) ResetPassword(ctx context.Context, req *ResetPasswordRequest) (*SessionResponse, error) {
	if req == nil {
		return nil, RequestShapeError(fmt.Errorf("request cannot be nil"))
	}
	if err := models.ValidateStruct(req); err != nil {
		return nil, RequestShapeError(err)
	}

	token := req.Token
	if i := strings.LastIndex(token, "."); i >= 0 {
		token = token[i+1:]
	}

	raw, err := s.cipher.Open(token)
	if err != nil {
		return nil, InvalidError(locale.InvalidUser, err)
	}
	var payload resetPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.ID <= 0 {
		return nil, InvalidError(locale.InvalidUser, fmt.Errorf("invalid reset payload: %v", err))
	}

	user, err := s.store.Users.GetByID(ctx, payload.ID)
	if err != nil {
		return nil, DatabaseError(err, locale.InvalidUser)
	}

	stored, err := s.store.ResetTokens.Get(ctx, user.ID)
	if err != nil {
		return nil, DatabaseError(err, locale.LinkExpired).inLocale(user.LanguageID)
	}

	now := s.now()
	digest := auth.HashResetToken(token)
	switch {
	case !stored.Active:
		return nil, InvalidError(locale.LinkLimitReached, nil).inLocale(user.LanguageID)
	case subtle.ConstantTimeCompare([]byte(stored.Digest), []byte(digest)) != 1:
		return nil, InvalidError(locale.LinkRenewed, nil).inLocale(user.LanguageID)
	case !stored.Usable(now) || now.Unix() > payload.Exp:
		return nil, InvalidError(locale.LinkExpired, nil).inLocale(user.LanguageID)
	}

	if len(req.NewPassword) < auth.MinPasswordLength {
		return nil, InvalidError(locale.PasswordTooShort, nil).inLocale(user.LanguageID)
	}
	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return nil, InternalError(err)
	}

	err = s.store.Tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.store.ResetTokens.Deactivate(txCtx, user.ID, digest); err != nil {
			return err
		}
		return s.store.Users.UpdatePassword(txCtx, user.ID, hash)
	})
	if repositories.IsConcurrency(err) {
		return nil, s.redeemed(ctx, user, digest)
	}
	if err != nil {
		return nil, DatabaseError(err, locale.InvalidUser).inLocale(user.LanguageID)
	}

	resp, err := s.session(user, s.cfg.Token.SignupExpiryDays)
	if err != nil {
		return nil, err
	}
	resp.Message = s.messages(user).Get(locale.PasswordChanged)

	s.logger.WithFields(logrus.Fields{"rid": user.ID, "user_id": user.UserID}).Info("Password reset")
	return resp, nil
}

// redeemed reports why a token that passed the checks could not be claimed:
// a concurrent redemption used it or a newer link replaced it
func (s *passwordResetService) redeemed(ctx context.Context, user *models.User, digest string) error {
	current, err := s.store.ResetTokens.Get(ctx, user.ID)
	if err == nil && current.Digest != digest {
		return InvalidError(locale.LinkRenewed, nil).inLocale(user.LanguageID)
	}
	return InvalidError(locale.LinkLimitReached, nil).inLocale(user.LanguageID)
}
