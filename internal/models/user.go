package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account row. Personal fields are stored encrypted; the
// plaintext forms are only ever held by the service layer.
type User struct {
	ID                    int64     `json:"-" db:"id"`
	UserID                string    `json:"user_id" db:"user_id" validate:"required,uuid"`
	EmailCipher           string    `json:"-" db:"email"`
	EmailDigest           string    `json:"-" db:"email_digest"`
	FirstNameCipher       string    `json:"-" db:"first_name"`
	LastNameCipher        string    `json:"-" db:"last_name"`
	PasswordHash          string    `json:"-" db:"password"`
	LanguageID            int       `json:"language_id" db:"language_id"`
	SocialUserID          *string   `json:"-" db:"social_userid"`
	PictureURL            *string   `json:"picture_url,omitempty" db:"picture_url"`
	IsUserUploadedPicture bool      `json:"-" db:"is_user_uploaded_picture"`
	IsFBImage             bool      `json:"-" db:"is_fb_image"`
	ProfileImageKey       *string   `json:"-" db:"profile_image_key"`
	CustomerID            *string   `json:"-" db:"customer_id"`
	ReferredBy            *int64    `json:"-" db:"referred_by"`
	Mystery               Mystery   `json:"mystery"`
	CreatedAt             time.Time `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time `json:"updated_at" db:"updated_at"`
}

// NewUser creates an account with a fresh public id. The public id doubles
// as the account's referral code.
func NewUser(languageID int) *User {
	now := time.Now().UTC()
	return &User{
		UserID:     uuid.New().String(),
		LanguageID: languageID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// HasPassword reports whether the account can sign in with email and password
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// IsSocialLinked reports whether a social identity is attached
func (u *User) IsSocialLinked() bool {
	return u.SocialUserID != nil && *u.SocialUserID != ""
}

// HasBillingAccount reports whether the account is known to the billing provider
func (u *User) HasBillingAccount() bool {
	return u.CustomerID != nil && *u.CustomerID != ""
}
