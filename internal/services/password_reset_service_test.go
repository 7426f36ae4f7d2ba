package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"profiles-api/internal/locale"
)

// lastResetLink returns the link of the most recent reset email
func (e *testEnv) lastResetLink(t *testing.T) string {
	t.Helper()
	sent := e.mailer.Sent()
	if len(sent) == 0 {
		t.Fatal("Expected a reset email")
	}
	return sent[len(sent)-1].Text
}

func TestPasswordResetService_SendResetLink(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.signUp(t, "jane@example.com", "secret123")

	resp, err := env.svc.PasswordResetService.SendResetLink(ctx, &ResetLinkRequest{Email: "Jane@Example.com"})
	if err != nil {
		t.Fatalf("SendResetLink() failed: %v", err)
	}
	if resp.Message == "" {
		t.Error("Expected confirmation message")
	}

	sent := env.mailer.Sent()
	if len(sent) != 1 {
		t.Fatalf("Expected one email, got %d", len(sent))
	}
	msg := sent[0]
	if msg.To[0] != "jane@example.com" {
		t.Errorf("Expected email to jane@example.com, got %v", msg.To)
	}

	prefix := "https://app.example.com/reset-password/165."
	if !strings.HasPrefix(msg.Text, prefix) {
		t.Errorf("Expected link to start with %q, got %q", prefix, msg.Text)
	}
	if !strings.Contains(msg.HTML, msg.Text) {
		t.Error("Expected HTML body to contain the link")
	}
	if !strings.Contains(msg.HTML, "Jane") {
		t.Error("Expected HTML body to greet the user by first name")
	}
}

func TestPasswordResetService_LinkCarriesLanguage(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.AccountService.SignUp(ctx, &SignUpRequest{
		Email: "hans@example.com", Password: "secret123", FirstName: "Hans", LanguageID: 245,
	})
	if err != nil {
		t.Fatalf("SignUp() failed: %v", err)
	}

	if _, err := env.svc.PasswordResetService.SendResetLink(ctx, &ResetLinkRequest{Email: "hans@example.com"}); err != nil {
		t.Fatalf("SendResetLink() failed: %v", err)
	}

	prefix := "https://app.example.com/de/reset-password/245."
	if link := env.lastResetLink(t); !strings.HasPrefix(link, prefix) {
		t.Errorf("Expected link to start with %q, got %q", prefix, link)
	}
}

func TestPasswordResetService_SendResetLinkErrors(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.signUp(t, "jane@example.com", "secret123")

	t.Run("UnknownEmail", func(t *testing.T) {
		_, err := env.svc.PasswordResetService.SendResetLink(ctx, &ResetLinkRequest{Email: "nobody@example.com"})
		expectKind(t, err, KindInvalid, locale.EmailUnknown)
	})

	t.Run("MissingEmail", func(t *testing.T) {
		_, err := env.svc.PasswordResetService.SendResetLink(ctx, &ResetLinkRequest{})
		expectKind(t, err, KindRequestShape, locale.RequestShape)
	})

	t.Run("MailerDown", func(t *testing.T) {
		env.mailer.FailWith(errors.New("ses unavailable"))
		defer env.mailer.FailWith(nil)

		_, err := env.svc.PasswordResetService.SendResetLink(ctx, &ResetLinkRequest{Email: "jane@example.com"})
		expectKind(t, err, KindUpstream, locale.UpstreamError)
	})
}

func TestPasswordResetService_ResetPassword(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	claim := env.signUp(t, "jane@example.com", "secret123")

	if _, err := env.svc.PasswordResetService.SendResetLink(ctx, &ResetLinkRequest{Email: "jane@example.com"}); err != nil {
		t.Fatalf("SendResetLink() failed: %v", err)
	}
	link := env.lastResetLink(t)
	token := link[strings.LastIndex(link, "/")+1:]

	_, err := env.svc.PasswordResetService.ResetPassword(ctx, &ResetPasswordRequest{Token: token, NewPassword: "abc"})
	expectKind(t, err, KindInvalid, locale.PasswordTooShort)

	resp, err := env.svc.PasswordResetService.ResetPassword(ctx, &ResetPasswordRequest{Token: token, NewPassword: "brandnew"})
	if err != nil {
		t.Fatalf("ResetPassword() failed: %v", err)
	}
	if resp.Message == "" || resp.Auth == "" {
		t.Errorf("Expected session with message, got %+v", resp)
	}
	if got := env.claim(t, resp.Auth); got.InternalID != claim.InternalID {
		t.Errorf("Expected session for rid %d, got %d", claim.InternalID, got.InternalID)
	}
	if err := env.hasher.Compare(env.user(t, claim).PasswordHash, "brandnew"); err != nil {
		t.Errorf("Expected new password to be stored: %v", err)
	}

	// a redeemed link cannot be used again
	_, err = env.svc.PasswordResetService.ResetPassword(ctx, &ResetPasswordRequest{Token: token, NewPassword: "another1"})
	expectKind(t, err, KindInvalid, locale.LinkLimitReached)
}

func TestPasswordResetService_ConcurrentRedemption(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	claim := env.signUp(t, "jane@example.com", "secret123")

	if _, err := env.svc.PasswordResetService.SendResetLink(ctx, &ResetLinkRequest{Email: "jane@example.com"}); err != nil {
		t.Fatalf("SendResetLink() failed: %v", err)
	}
	link := env.lastResetLink(t)
	token := link[strings.LastIndex(link, "/")+1:]

	passwords := []string{"brandnew", "another1"}
	errs := make([]error, len(passwords))
	var wg sync.WaitGroup
	for i, password := range passwords {
		wg.Add(1)
		go func(i int, password string) {
			defer wg.Done()
			_, errs[i] = env.svc.PasswordResetService.ResetPassword(ctx, &ResetPasswordRequest{Token: token, NewPassword: password})
		}(i, password)
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			if winner >= 0 {
				t.Fatal("Expected the link to be redeemed only once")
			}
			winner = i
			continue
		}
		expectKind(t, err, KindInvalid, locale.LinkLimitReached)
	}
	if winner < 0 {
		t.Fatalf("Expected one redemption to succeed, got %v", errs)
	}

	if err := env.hasher.Compare(env.user(t, claim).PasswordHash, passwords[winner]); err != nil {
		t.Errorf("Expected the winning password to be stored: %v", err)
	}
}

func TestPasswordResetService_ResetPasswordRejections(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.signUp(t, "jane@example.com", "secret123")

	send := func() string {
		if _, err := env.svc.PasswordResetService.SendResetLink(ctx, &ResetLinkRequest{Email: "jane@example.com"}); err != nil {
			t.Fatalf("SendResetLink() failed: %v", err)
		}
		link := env.lastResetLink(t)
		return link[strings.LastIndex(link, "/")+1:]
	}

	t.Run("Renewed", func(t *testing.T) {
		first := send()
		send()
		_, err := env.svc.PasswordResetService.ResetPassword(ctx, &ResetPasswordRequest{Token: first, NewPassword: "brandnew"})
		expectKind(t, err, KindInvalid, locale.LinkRenewed)
	})

	t.Run("Expired", func(t *testing.T) {
		token := send()
		start := env.now
		env.now = start.Add(2 * time.Hour)
		defer func() { env.now = start }()

		_, err := env.svc.PasswordResetService.ResetPassword(ctx, &ResetPasswordRequest{Token: token, NewPassword: "brandnew"})
		expectKind(t, err, KindInvalid, locale.LinkExpired)
	})

	t.Run("Tampered", func(t *testing.T) {
		_, err := env.svc.PasswordResetService.ResetPassword(ctx, &ResetPasswordRequest{Token: "165.not-a-sealed-token", NewPassword: "brandnew"})
		expectKind(t, err, KindInvalid, locale.InvalidUser)
	})

	t.Run("MissingToken", func(t *testing.T) {
		_, err := env.svc.PasswordResetService.ResetPassword(ctx, &ResetPasswordRequest{NewPassword: "brandnew"})
		expectKind(t, err, KindRequestShape, locale.RequestShape)
	})
}
