package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"profiles-api/internal/database"
	"profiles-api/internal/models"
	"profiles-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

const userColumns = `id, user_id, email, email_digest, first_name, last_name, password, language_id,
	social_userid, picture_url, is_user_uploaded_picture, is_fb_image, profile_image_key, customer_id,
	referred_by, mystery_status, mystery_start_time, mystery_friend_join_counter, is_mystery_visited,
	created_at, updated_at`

// UserRepository implements repositories.UserRepository
type UserRepository struct {
	baseRepository
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, dialect database.Dialect, logger *logrus.Logger) *UserRepository {
	return &UserRepository{
		baseRepository: newBaseRepository(db, dialect, "users", logger),
	}
}

// Create inserts the account and sets its internal ID
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := models.ValidateStruct(user); err != nil {
		return repositories.NewRepositoryError("create", r.table, "", err)
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	query := `INSERT INTO users (user_id, email, email_digest, first_name, last_name, password, language_id,
		social_userid, picture_url, is_user_uploaded_picture, is_fb_image, profile_image_key, customer_id,
		referred_by, mystery_status, mystery_start_time, mystery_friend_join_counter, is_mystery_visited,
		created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := r.insertReturningID(ctx, query,
		user.UserID, user.EmailCipher, user.EmailDigest, user.FirstNameCipher, user.LastNameCipher,
		user.PasswordHash, user.LanguageID, nullString(user.SocialUserID), nullString(user.PictureURL),
		user.IsUserUploadedPicture, user.IsFBImage, nullString(user.ProfileImageKey), nullString(user.CustomerID),
		nullInt64(user.ReferredBy), int(user.Mystery.Status), nullTime(user.Mystery.StartTime),
		user.Mystery.Counter, user.Mystery.Visited, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if repositories.IsDuplicate(err) {
			return repositories.DuplicateError(r.table, "email")
		}
		return err
	}

	user.ID = id
	r.logger.WithFields(logrus.Fields{"rid": id, "user_id": user.UserID}).Info("Account created")
	return nil
}

// GetByID retrieves an account by internal ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if err := r.validateID(id); err != nil {
		return nil, err
	}
	return r.getOne(ctx, "get_by_id", formatID(id), "id = ?", id)
}

// GetByPublicID retrieves an account by its public ID
func (r *UserRepository) GetByPublicID(ctx context.Context, userID string) (*models.User, error) {
	return r.getOne(ctx, "get_by_public_id", userID, "user_id = ?", userID)
}

// GetByEmailDigest retrieves an account by the keyed digest of its email
func (r *UserRepository) GetByEmailDigest(ctx context.Context, digest string) (*models.User, error) {
	return r.getOne(ctx, "get_by_email", "", "email_digest = ?", digest)
}

// GetBySocialID retrieves the account linked to a social identity
func (r *UserRepository) GetBySocialID(ctx context.Context, socialID string) (*models.User, error) {
	return r.getOne(ctx, "get_by_social_id", socialID, "social_userid = ?", socialID)
}

// GetByCustomerID retrieves the account known to the billing provider
func (r *UserRepository) GetByCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	return r.getOne(ctx, "get_by_customer_id", customerID, "customer_id = ?", customerID)
}

func (r *UserRepository) getOne(ctx context.Context, operation, id, where string, arg interface{}) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE " + where
	user, err := scanUser(r.executeQueryRow(ctx, operation, query, arg))
	if err != nil {
		return nil, r.scanError(operation, id, err)
	}
	return user, nil
}

// UpdatePassword stores a new password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	result, err := r.executeExec(ctx, "update_password",
		`UPDATE users SET password = ?, updated_at = ? WHERE id = ?`,
		hash, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return r.checkRowsAffected(result, "update_password", id)
}

// LinkSocial attaches a social identity. The picture is only set when the
// account has none.
func (r *UserRepository) LinkSocial(ctx context.Context, id int64, socialID, pictureURL string) error {
	query := `UPDATE users SET social_userid = ?,
		picture_url = CASE WHEN picture_url IS NULL OR picture_url = '' THEN ? ELSE picture_url END,
		is_fb_image = CASE WHEN picture_url IS NULL OR picture_url = '' THEN ? ELSE is_fb_image END,
		updated_at = ?
		WHERE id = ?`

	var picture *string
	if pictureURL != "" {
		picture = &pictureURL
	}

	result, err := r.executeExec(ctx, "link_social", query,
		socialID, nullString(picture), picture != nil, time.Now().UTC(), id)
	if err != nil {
		if repositories.IsDuplicate(err) {
			return repositories.DuplicateError(r.table, "social identity")
		}
		return err
	}
	return r.checkRowsAffected(result, "link_social", id)
}

// UnlinkSocial detaches the social identity; a picture the user uploaded is kept
func (r *UserRepository) UnlinkSocial(ctx context.Context, id int64) error {
	query := `UPDATE users SET social_userid = NULL, is_fb_image = ?,
		picture_url = CASE WHEN is_user_uploaded_picture = ? THEN picture_url ELSE NULL END,
		updated_at = ?
		WHERE id = ?`

	result, err := r.executeExec(ctx, "unlink_social", query, false, true, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return r.checkRowsAffected(result, "unlink_social", id)
}

// SetCustomerID records the billing account only while none is stored
func (r *UserRepository) SetCustomerID(ctx context.Context, id int64, customerID string) error {
	result, err := r.executeExec(ctx, "set_customer_id",
		`UPDATE users SET customer_id = ?, updated_at = ? WHERE id = ? AND (customer_id IS NULL OR customer_id = '')`,
		customerID, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return repositories.NewRepositoryError("set_customer_id", r.table, formatID(id), err)
	}
	if rows > 0 {
		return nil
	}

	var exists int
	err = r.executeQueryRow(ctx, "exists", `SELECT 1 FROM users WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return r.scanError("set_customer_id", formatID(id), err)
	}
	return repositories.ConcurrencyError(r.table, formatID(id))
}

// UpdatePicture stores the picture URL and whether the user uploaded it
func (r *UserRepository) UpdatePicture(ctx context.Context, id int64, url string, uploaded bool) error {
	result, err := r.executeExec(ctx, "update_picture",
		`UPDATE users SET picture_url = ?, is_user_uploaded_picture = ?, is_fb_image = ?, updated_at = ? WHERE id = ?`,
		url, uploaded, false, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return r.checkRowsAffected(result, "update_picture", id)
}

// UpdateProfileImageKey records the generated profile image object key
func (r *UserRepository) UpdateProfileImageKey(ctx context.Context, id int64, key string) error {
	result, err := r.executeExec(ctx, "update_profile_image",
		`UPDATE users SET profile_image_key = ?, updated_at = ? WHERE id = ?`,
		key, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return r.checkRowsAffected(result, "update_profile_image", id)
}

// UpdateMystery writes next only if the stored status and counter still match prev
func (r *UserRepository) UpdateMystery(ctx context.Context, id int64, prev, next models.Mystery) error {
	query := `UPDATE users SET mystery_status = ?, mystery_start_time = ?, mystery_friend_join_counter = ?,
		is_mystery_visited = ?, updated_at = ?
		WHERE id = ? AND mystery_status = ? AND mystery_friend_join_counter = ?`

	result, err := r.executeExec(ctx, "update_mystery", query,
		int(next.Status), nullTime(next.StartTime), next.Counter, next.Visited, time.Now().UTC(),
		id, int(prev.Status), prev.Counter)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return repositories.NewRepositoryError("update_mystery", r.table, formatID(id), err)
	}
	if rows > 0 {
		return nil
	}

	// Distinguish a vanished account from a lost race
	var exists int
	err = r.executeQueryRow(ctx, "exists", `SELECT 1 FROM users WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return r.scanError("update_mystery", formatID(id), err)
	}
	return repositories.ConcurrencyError(r.table, formatID(id))
}

// Delete removes the account; owned rows cascade
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	if err := r.validateID(id); err != nil {
		return err
	}
	result, err := r.executeExec(ctx, "delete", `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return r.checkRowsAffected(result, "delete", id)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u            models.User
		socialID     sql.NullString
		pictureURL   sql.NullString
		imageKey     sql.NullString
		customerID   sql.NullString
		referredBy   sql.NullInt64
		status       int
		mysteryStart sql.NullTime
	)

	err := row.Scan(
		&u.ID, &u.UserID, &u.EmailCipher, &u.EmailDigest, &u.FirstNameCipher, &u.LastNameCipher,
		&u.PasswordHash, &u.LanguageID, &socialID, &pictureURL, &u.IsUserUploadedPicture, &u.IsFBImage,
		&imageKey, &customerID, &referredBy, &status, &mysteryStart, &u.Mystery.Counter,
		&u.Mystery.Visited, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.SocialUserID = stringPtr(socialID)
	u.PictureURL = stringPtr(pictureURL)
	u.ProfileImageKey = stringPtr(imageKey)
	u.CustomerID = stringPtr(customerID)
	u.ReferredBy = int64Ptr(referredBy)
	u.Mystery.Status = models.MysteryStatus(status)
	u.Mystery.StartTime = timePtr(mysteryStart)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}
