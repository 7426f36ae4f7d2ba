package services

import (
	"context"
	"errors"
	"fmt"

	"profiles-api/internal/adapters/mail"
	"profiles-api/internal/adapters/queue"
	"profiles-api/internal/auth"
	"profiles-api/internal/locale"
	"profiles-api/internal/models"
	"profiles-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

// accountService implements AccountService
type accountService struct {
	*base
	mystery *mysteryService
}

// SignIn checks email and password and issues a session token
func (s *accountService) SignIn(ctx context.Context, req *SignInRequest) (*SessionResponse, error) {
	if req == nil {
		return nil, RequestShapeError(fmt.Errorf("request cannot be nil"))
	}
	if err := models.ValidateStruct(req); err != nil {
		return nil, RequestShapeError(err)
	}

	digest := s.cipher.Digest(models.NormalizeEmail(req.Email))
	user, err := s.store.Users.GetByEmailDigest(ctx, digest)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, InvalidError(locale.UserStatus, err)
		}
		return nil, DatabaseError(err, locale.UserStatus)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, InvalidError(locale.UserStatus, err).inLocale(user.LanguageID)
		}
		return nil, InternalError(err)
	}

	resp, err := s.session(user, s.loginDays(user))
	if err != nil {
		return nil, err
	}
	resp.RID = user.ID

	s.logger.WithFields(logrus.Fields{"rid": user.ID, "user_id": user.UserID}).Info("Signed in")
	return resp, nil
}

// SignUp creates an email account, credits the referrer and issues a token
func (s *accountService) SignUp(ctx context.Context, req *SignUpRequest) (*SessionResponse, error) {
	if req == nil {
		return nil, RequestShapeError(fmt.Errorf("request cannot be nil"))
	}
	if err := models.ValidateStruct(req); err != nil {
		return nil, RequestShapeError(err)
	}
	if len(req.Password) < auth.MinPasswordLength {
		return nil, InvalidError(locale.PasswordTooShort, nil)
	}

	email := models.NormalizeEmail(req.Email)
	if !models.IsValidEmail(email) {
		return nil, RequestShapeError(fmt.Errorf("invalid email address"))
	}
	digest := s.cipher.Digest(email)

	if _, err := s.store.Users.GetByEmailDigest(ctx, digest); err == nil {
		return nil, InvalidError(locale.EmailTaken, nil)
	} else if !repositories.IsNotFound(err) {
		return nil, DatabaseError(err, locale.InternalError)
	}

	user := models.NewUser(s.localeOrDefault(req.LanguageID))
	user.EmailDigest = digest

	var err error
	if user.EmailCipher, err = s.cipher.SealString(email); err != nil {
		return nil, InternalError(err)
	}
	if user.FirstNameCipher, err = s.cipher.SealString(req.FirstName); err != nil {
		return nil, InternalError(err)
	}
	if user.LastNameCipher, err = s.cipher.SealString(req.LastName); err != nil {
		return nil, InternalError(err)
	}
	if user.PasswordHash, err = s.hasher.Hash(req.Password); err != nil {
		return nil, InternalError(err)
	}

	referrer := s.resolveReferrer(ctx, req.ReferralCode)
	if referrer != nil {
		user.ReferredBy = &referrer.ID
	}

	if err := s.store.Users.Create(ctx, user); err != nil {
		if repositories.IsDuplicate(err) {
			return nil, InvalidError(locale.EmailTaken, err)
		}
		return nil, DatabaseError(err, locale.InternalError)
	}

	if referrer != nil {
		if err := s.mystery.FriendJoined(ctx, referrer.ID); err != nil {
			s.logger.WithError(err).WithField("referrer", referrer.ID).Error("Failed to credit referral")
		}
	}

	s.enqueue(ctx, queue.TaskProfileImage, user)

	resp, err := s.session(user, s.cfg.Token.SignupExpiryDays)
	if err != nil {
		return nil, err
	}
	resp.RID = user.ID
	return resp, nil
}

// resolveReferrer returns the account behind a referral code. Unknown codes
// are ignored.
func (s *accountService) resolveReferrer(ctx context.Context, code string) *models.User {
	if code == "" {
		return nil
	}
	referrer, err := s.store.Users.GetByPublicID(ctx, code)
	if err != nil {
		s.logger.WithError(err).WithField("referral_code", code).Warn("Ignoring referral code")
		return nil
	}
	return referrer
}

func (s *accountService) localeOrDefault(id int) int {
	if s.catalog.Has(id) {
		return id
	}
	if s.cfg.App.DefaultLocale != 0 {
		return s.cfg.App.DefaultLocale
	}
	return locale.DefaultLocaleID
}

// ChangePassword replaces the caller's password. Accounts that already have
// one must confirm it.
func (s *accountService) ChangePassword(ctx context.Context, claim *auth.Claim, req *ChangePasswordRequest) (*MessageResponse, error) {
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
	if len(req.NewPassword) < auth.MinPasswordLength {
		return nil, InvalidError(locale.PasswordTooShort, nil).inLocale(user.LanguageID)
	}

	if user.HasPassword() {
		if err := s.hasher.Compare(user.PasswordHash, req.OldPassword); err != nil {
			if errors.Is(err, auth.ErrPasswordMismatch) {
				return nil, InvalidError(locale.OldPasswordMismatch, err).inLocale(user.LanguageID)
			}
			return nil, InternalError(err)
		}
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return nil, InternalError(err)
	}
	if err := s.store.Users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, DatabaseError(err, locale.InvalidUser)
	}

	return &MessageResponse{Message: s.messages(user).Get(locale.PasswordChanged)}, nil
}

// DeleteAccount cancels the caller's subscriptions, removes the account and
// schedules removal of its stored media
func (s *accountService) DeleteAccount(ctx context.Context, claim *auth.Claim, req *DeleteAccountRequest) (*MessageResponse, error) {
	if req == nil {
		req = &DeleteAccountRequest{}
	}

	user, err := s.loadUser(ctx, claim)
	if err != nil {
		return nil, err
	}
	msgs := s.messages(user)

	if user.HasPassword() {
		if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
			if errors.Is(err, auth.ErrPasswordMismatch) {
				return nil, InvalidError(locale.OldPasswordMismatch, err).inLocale(user.LanguageID)
			}
			return nil, InternalError(err)
		}
	}

	if err := s.cancelSubscriptions(ctx, user); err != nil {
		return nil, UpstreamError(err).inLocale(user.LanguageID)
	}

	email, _ := s.cipher.OpenString(user.EmailCipher)
	firstName, _ := s.cipher.OpenString(user.FirstNameCipher)

	err = s.store.Tx.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.store.Users.Delete(txCtx, user.ID)
	})
	if err != nil {
		return nil, DatabaseError(err, locale.InvalidUser).inLocale(user.LanguageID)
	}

	s.enqueue(ctx, queue.TaskPurgeMedia, user)
	s.sendDeletionEmail(ctx, msgs, email, firstName)

	s.logger.WithFields(logrus.Fields{"rid": user.ID, "user_id": user.UserID}).Info("Account deleted")
	return &MessageResponse{Message: msgs.Get(locale.AccountDeleted)}, nil
}

func (s *accountService) cancelSubscriptions(ctx context.Context, user *models.User) error {
	if !user.HasBillingAccount() || s.billing == nil {
		return nil
	}
	subs, err := s.billing.ListSubscriptions(ctx, *user.CustomerID)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	for _, sub := range subs {
		if !sub.Active() {
			continue
		}
		if _, err := s.billing.CancelSubscription(ctx, sub.ID); err != nil {
			return fmt.Errorf("cancel subscription %s: %w", sub.ID, err)
		}
		s.logger.WithFields(logrus.Fields{"rid": user.ID, "subscription_id": sub.ID}).Info("Subscription cancelled")
	}
	return nil
}

func (s *accountService) sendDeletionEmail(ctx context.Context, msgs locale.Messages, email, firstName string) {
	if s.mailer == nil || email == "" {
		return
	}
	text := fmt.Sprintf("%s\n%s", firstName, msgs.Get(locale.AccountDeleted))
	html, err := mail.RenderHTML(text, "")
	if err != nil {
		s.logger.WithError(err).Error("Failed to render deletion email")
		return
	}
	msg := &mail.Message{
		To:      []string{email},
		Subject: msgs.Get(locale.AccountDeleted),
		Text:    text,
		HTML:    html,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.WithError(err).Error("Failed to send deletion email")
	}
}
