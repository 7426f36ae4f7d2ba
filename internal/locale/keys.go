package locale

// Key names a localized message
type Key string

const (
	LanguageCode Key = "LANGUAGE_CODE"

	RequestShape  Key = "EVENT_DATA_STATUS"
	Unauthorized  Key = "UNAUTHORIZED"
	InternalError Key = "INTERNAL_ERROR"
	UpstreamError Key = "UPSTREAM_ERROR"
	InvalidUser   Key = "INVALID_USER"
	NotFound      Key = "NOT_FOUND"
	Conflict      Key = "CONFLICT"
	RateLimited   Key = "RATE_LIMITED"

	UserStatus           Key = "USER_STATUS"
	EmailTaken           Key = "EMAIL_ID_STATUS"
	EmailUnknown         Key = "EMAIL_EXISTENCE_STATUS"
	InvalidReferral      Key = "INVALID_REFERRAL"
	ResetLinkSent        Key = "SUCCESS_MESSAGE"
	LinkLimitReached     Key = "LINK_LIMIT_REACHED"
	LinkRenewed          Key = "LINK_RENEWED"
	LinkExpired          Key = "LINK_EXPIRED"
	PasswordChanged      Key = "PASSWORD_CHANGED"
	PasswordTooShort     Key = "PASSWORD_TOO_SHORT"
	OldPasswordMismatch  Key = "OLD_PASSWORD_MISMATCH"
	PasswordRequired     Key = "PASSWORD_REQUIRED"
	FacebookConnected    Key = "FACEBOOK_CONNECTED"
	FacebookDisconnected Key = "FACEBOOK_DISCONNECTED"
	FacebookLinked       Key = "FACEBOOK_ALREADY_LINKED"
	PictureUploaded      Key = "PICTURE_UPLOADED"
	InvalidImage         Key = "INVALID_IMAGE"
	AccountDeleted       Key = "ACCOUNT_DELETED"

	PaymentCancelled       Key = "SUCCESS_STATUS"
	CancelWindowExpired    Key = "EXPIRY_STATUS"
	PartnerAlreadySelected Key = "ALREADY_SELECTED_PARTNER"
	PurchaseNotFound       Key = "PURCHASE_NOT_FOUND"
	ProductNotFound        Key = "PRODUCT_NOT_FOUND"
	ProductPurchased       Key = "PRODUCT_EXISTENCE_STATUS"
	PaymentFailed          Key = "PAYMENT_FAILED"
	PaymentCompleted       Key = "PAYMENT_SUCCESS"

	WebhookIgnored   Key = "WEBHOOK_IGNORED"
	WebhookProcessed Key = "WEBHOOK_PROCESSED"

	MysteryNotStarted Key = "MYSTERY_STATUS"
	MysteryRunning    Key = "MYSTERY_STATUS_RUNNING"
	MysteryUnlocked   Key = "MYSTERY_STATUS_SUCCESSFULLY_UNLOCKED"
	MysteryFailed     Key = "MYSTERY_STATUS_UNSUCCESSFULLY_UNLOCKED"

	Today      Key = "TODAY"
	DateFormat Key = "DATE_FORMAT"

	EmailSubject       Key = "EMAIL_SUBJECT"
	EmailBodyTemplate  Key = "EMAIL_BODY_TEMPLATE"
	HealthAlertSubject Key = "HEALTH_ALERT_SUBJECT"
)

// remainingTime maps whole hours left (0-4) to their message
var remainingTime = [...]Key{
	"REMAINING_FEW_MINUTES",
	"REMAINING_ONE_HOUR",
	"REMAINING_TWO_HOURS",
	"REMAINING_THREE_HOURS",
	"REMAINING_FOUR_HOURS",
}

// RemainingTime returns the localized "time left" phrase for 0-4 whole hours
func (m Messages) RemainingTime(hours int) string {
	if hours < 0 {
		hours = 0
	}
	if hours >= len(remainingTime) {
		hours = len(remainingTime) - 1
	}
	return m.Get(remainingTime[hours])
}
