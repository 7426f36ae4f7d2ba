package services

import (
	"context"

	"profiles-api/internal/adapters/billing"
	"profiles-api/internal/adapters/queue"
	"profiles-api/internal/auth"
	"profiles-api/internal/models"
)

// AccountService defines credential and account lifecycle operations
type AccountService interface {
	SignIn(ctx context.Context, req *SignInRequest) (*SessionResponse, error)
	SignUp(ctx context.Context, req *SignUpRequest) (*SessionResponse, error)
	ChangePassword(ctx context.Context, claim *auth.Claim, req *ChangePasswordRequest) (*MessageResponse, error)
	DeleteAccount(ctx context.Context, claim *auth.Claim, req *DeleteAccountRequest) (*MessageResponse, error)
}

// PasswordResetService defines the emailed reset link flow
type PasswordResetService interface {
	SendResetLink(ctx context.Context, req *ResetLinkRequest) (*MessageResponse, error)
	ResetPassword(ctx context.Context, req *ResetPasswordRequest) (*SessionResponse, error)
}

// NotificationService defines feed operations
type NotificationService interface {
	// Feed returns the caller's notifications grouped by local day and marks them seen.
	// offsetMinutes follows the browser convention: UTC minus local time.
	Feed(ctx context.Context, claim *auth.Claim, offsetMinutes int) ([]models.FeedGroup, error)
	ActiveCount(ctx context.Context, claim *auth.Claim) (*CountResponse, error)
}

// MysteryService defines the referral unlock operations
type MysteryService interface {
	Status(ctx context.Context, claim *auth.Claim) (*MysteryResponse, error)
	Button(ctx context.Context, claim *auth.Claim) (*MysteryResponse, error)
	// FriendJoined credits a new signup to the referrer's unlock state
	FriendJoined(ctx context.Context, referrerID int64) error
}

// ProfileService defines the social link and picture operations
type ProfileService interface {
	ConnectFacebook(ctx context.Context, claim *auth.Claim, req *FacebookConnectRequest) (*SessionResponse, error)
	DisconnectFacebook(ctx context.Context, claim *auth.Claim) (*DisconnectResponse, error)
	UploadPicture(ctx context.Context, claim *auth.Claim, req *UploadPictureRequest) (*PictureResponse, error)
}

// PaymentService defines purchases, their cancellation and billing events
type PaymentService interface {
	Checkout(ctx context.Context, claim *auth.Claim, req *PurchaseRequest) (*CheckoutResponse, error)
	ConfirmPayment(ctx context.Context, claim *auth.Claim, req *PurchaseRequest) (*PurchaseResponse, error)
	ListPurchases(ctx context.Context, claim *auth.Claim) (*PurchasesResponse, error)
	CancelPayment(ctx context.Context, claim *auth.Claim, req *CancelPaymentRequest) (*MessageResponse, error)
	HandleWebhook(ctx context.Context, req *WebhookRequest) (*MessageResponse, error)
}

// OperationsService defines the scheduled and background functions
type OperationsService interface {
	Health(ctx context.Context) *HealthReport
	WarmFunctions(ctx context.Context) (*WarmReport, error)
	HandleTask(ctx context.Context, task queue.Task) error
}

// Request DTOs

// SignInRequest represents an email sign in
type SignInRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SignUpRequest represents a new email account
type SignUpRequest struct {
	Email      string `json:"email" validate:"required"`
	Password   string `json:"password" validate:"required"`
	FirstName  string `json:"firstname" validate:"required,max=100"`
	LastName   string `json:"lastname" validate:"max=100"`
	LanguageID int    `json:"-"`
	// ReferralCode is the referrer's public user id
	ReferralCode string `json:"-"`
}

// ChangePasswordRequest represents a signed-in password change
type ChangePasswordRequest struct {
	OldPassword string `json:"oldpassword"`
	NewPassword string `json:"newpassword" validate:"required"`
}

// DeleteAccountRequest confirms an account deletion
type DeleteAccountRequest struct {
	Password string `json:"password"`
}

// ResetLinkRequest asks for a password reset email
type ResetLinkRequest struct {
	Email string `json:"email" validate:"required"`
}

// ResetPasswordRequest redeems a reset link
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newpassword" validate:"required"`
}

// FacebookConnectRequest carries the OAuth code returned by the login dialog
type FacebookConnectRequest struct {
	Code string `json:"code" validate:"required"`
}

// UploadPictureRequest carries a base64 encoded image
type UploadPictureRequest struct {
	PictureData string `json:"picture_data" validate:"required"`
}

// PurchaseRequest names the product to buy
type PurchaseRequest struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	UserAgent string `json:"-"`
	Channel   string `json:"acquisition_channel"`
}

// CancelPaymentRequest identifies the purchase to cancel
type CancelPaymentRequest struct {
	PurchaseID int64  `json:"product_id" validate:"required,gt=0"`
	UserAgent  string `json:"-"`
	Channel    string `json:"acquisition_channel"`
}

// WebhookRequest is a billing provider callback with its basic credentials
type WebhookRequest struct {
	Username string
	Password string
	Body     []byte
}

// Response DTOs

// SessionResponse carries a freshly issued token
type SessionResponse struct {
	Auth       string `json:"auth"`
	UserID     string `json:"user_id"`
	RID        int64  `json:"rid,omitempty"`
	LanguageID int    `json:"language_id,omitempty"`
	Message    string `json:"message,omitempty"`
}

// MessageResponse carries a localized confirmation
type MessageResponse struct {
	Message string `json:"message"`
}

// CheckoutResponse carries either the hosted checkout page to open or the
// purchase that was charged directly
type CheckoutResponse struct {
	Site       string              `json:"site,omitempty"`
	HostedPage *billing.HostedPage `json:"hosted_page,omitempty"`
	Message    string              `json:"message,omitempty"`
	PurchaseID int64               `json:"user_product_id,omitempty"`
}

// PurchaseResponse carries a recorded purchase
type PurchaseResponse struct {
	Message    string `json:"message"`
	PurchaseID int64  `json:"user_product_id"`
}

// PurchaseSummary is one purchased product
type PurchaseSummary struct {
	*models.Purchase
	Cancellable bool `json:"is_cancellable"`
}

// PurchasesResponse lists purchased products
type PurchasesResponse struct {
	Purchases []PurchaseSummary `json:"purchases"`
}

// CountResponse carries the unread badge
type CountResponse struct {
	Count string `json:"active_notification_count"`
}

// DisconnectResponse reports the social link state after a disconnect
type DisconnectResponse struct {
	IsConnected string `json:"is_connected"`
	Auth        string `json:"auth"`
	UserID      string `json:"user_id"`
}

// PictureResponse carries the stored picture's URL
type PictureResponse struct {
	PictureURL string `json:"picture_url"`
}

// MysteryResponse is the unlock state shown by the mystery card
type MysteryResponse struct {
	Status    models.MysteryStatus `json:"mystery_status"`
	Counter   *int                 `json:"mystery_friend_join_counter,omitempty"`
	StartTime *int64               `json:"mystery_start_time,omitempty"`
	Visited   *int                 `json:"is_mystery_visited,omitempty"`
	Message   string               `json:"message,omitempty"`
}

// CheckResult is the outcome of one dependency check
type CheckResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthReport aggregates dependency checks
type HealthReport struct {
	Healthy bool          `json:"healthy"`
	Checks  []CheckResult `json:"checks"`
}

// WarmReport lists the functions that were and were not reached
type WarmReport struct {
	Invoked []string `json:"invoked"`
	Failed  []string `json:"failed,omitempty"`
}
