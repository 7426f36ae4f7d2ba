package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"time"

	"profiles-api/internal/adapters/invoke"
	"profiles-api/internal/adapters/mail"
	"profiles-api/internal/adapters/queue"
	"profiles-api/internal/adapters/storage"
	"profiles-api/internal/locale"
	"profiles-api/internal/models"
	"profiles-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

// Health check statuses
const (
	CheckOK    = "ok"
	CheckError = "error"
)

// checkTimeout bounds each dependency check
const checkTimeout = 5 * time.Second

// operationsService implements OperationsService
type operationsService struct {
	*base
}

// Health checks every configured dependency and emails an alert when any
// of them fails
func (s *operationsService) Health(ctx context.Context) *HealthReport {
	checks := []struct {
		name string
		p    Pinger
	}{
		{"database", s.db},
		{"storage", s.files},
		{"billing", s.billing},
		{"facebook", s.social},
	}

	report := &HealthReport{Healthy: true}
	for _, check := range checks {
		if check.p == nil {
			continue
		}
		result := CheckResult{Name: check.name, Status: CheckOK}

		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := check.p.Ping(checkCtx)
		cancel()

		if err != nil {
			result.Status = CheckError
			result.Error = err.Error()
			report.Healthy = false
			s.logger.WithError(err).WithField("check", check.name).Error("Health check failed")
		}
		report.Checks = append(report.Checks, result)
	}

	if !report.Healthy {
		s.alert(ctx, report)
	}
	return report
}

func (s *operationsService) alert(ctx context.Context, report *HealthReport) {
	to := s.cfg.Mail.AlertTo
	if s.mailer == nil || to == "" {
		return
	}

	msgs := s.catalog.For(locale.DefaultLocaleID)
	lines := []string{fmt.Sprintf("%s (%s)", msgs.Get(locale.HealthAlertSubject), s.now().UTC().Format(time.RFC1123))}
	for _, c := range report.Checks {
		if c.Status != CheckOK {
			lines = append(lines, fmt.Sprintf("%s: %s", c.Name, c.Error))
		}
	}
	text := strings.Join(lines, "\n")

	body, err := mail.RenderHTML(text, "")
	if err != nil {
		s.logger.WithError(err).Error("Failed to render health alert")
		return
	}
	err = s.mailer.Send(ctx, &mail.Message{
		To:      []string{to},
		Subject: msgs.Get(locale.HealthAlertSubject),
		Text:    text,
		HTML:    body,
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to send health alert")
	}
}

// WarmFunctions fires the keep-warm event at every configured function.
// Failures are collected, not fatal.
func (s *operationsService) WarmFunctions(ctx context.Context) (*WarmReport, error) {
	if s.invoker == nil {
		return nil, UpstreamError(fmt.Errorf("invoker not configured"))
	}

	report := &WarmReport{Invoked: []string{}}
	for _, fn := range s.cfg.Warmer.Functions {
		name := fn + s.cfg.Warmer.Suffix
		if err := s.invoker.InvokeAsync(ctx, name, invoke.WarmPayload); err != nil {
			s.logger.WithError(err).WithField("function", name).Error("Failed to warm function")
			report.Failed = append(report.Failed, name)
			continue
		}
		report.Invoked = append(report.Invoked, name)
	}

	s.logger.WithFields(logrus.Fields{
		"invoked": len(report.Invoked),
		"failed":  len(report.Failed),
	}).Info("Warm run finished")
	return report, nil
}

// HandleTask runs one background task. Tasks may be delivered more than
// once; both handlers converge on the same stored state.
func (s *operationsService) HandleTask(ctx context.Context, task queue.Task) error {
	logger := s.logger.WithFields(logrus.Fields{
		"task_id":   task.ID,
		"task_type": task.Type,
		"rid":       task.RID,
	})

	switch task.Type {
	case queue.TaskProfileImage:
		return s.buildProfileImage(ctx, task, logger)
	case queue.TaskPurgeMedia:
		n, err := s.files.DeletePrefix(ctx, storage.UserPrefix(s.cfg.Storage.PictureKeyPrefix, task.UserID))
		if err != nil {
			return fmt.Errorf("purge media: %w", err)
		}
		logger.WithField("deleted", n).Info("Media purged")
		return nil
	default:
		return fmt.Errorf("unknown task type %q", task.Type)
	}
}

// buildProfileImage converts the account's current picture into the PNG
// profile image and records its key. Deleted accounts are skipped.
func (s *operationsService) buildProfileImage(ctx context.Context, task queue.Task, logger *logrus.Entry) error {
	user, err := s.store.Users.GetByID(ctx, task.RID)
	if repositories.IsNotFound(err) {
		logger.Info("Account gone, skipping profile image")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if user.UserID != task.UserID {
		logger.Warn("Task does not match account, skipping")
		return nil
	}

	source, err := s.pictureSource(ctx, user)
	if err != nil {
		return err
	}
	if source == nil {
		logger.Debug("Account has no picture")
		return nil
	}

	img, _, err := image.Decode(bytes.NewReader(source))
	if err != nil {
		logger.WithError(err).Warn("Picture cannot be decoded, skipping")
		return nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode profile image: %w", err)
	}

	key := storage.ProfileImageKey(s.cfg.Storage.PictureKeyPrefix, user.UserID)
	err = s.files.Store(ctx, key, buf.Bytes(), &storage.StoreOptions{ContentType: "image/png", Overwrite: true})
	if err != nil {
		return fmt.Errorf("store profile image: %w", err)
	}
	if err := s.store.Users.UpdateProfileImageKey(ctx, user.ID, key); err != nil {
		return fmt.Errorf("record profile image: %w", err)
	}

	logger.WithField("key", key).Info("Profile image stored")
	return nil
}

// pictureSource returns the bytes of the uploaded picture or, failing
// that, the social network picture
func (s *operationsService) pictureSource(ctx context.Context, user *models.User) ([]byte, error) {
	if user.IsUserUploadedPicture {
		data, err := s.files.Retrieve(ctx, storage.UploadedPictureKey(s.cfg.Storage.PictureKeyPrefix, user.UserID))
		if err == nil {
			return data, nil
		}
		if !storage.IsNotFound(err) {
			return nil, fmt.Errorf("read uploaded picture: %w", err)
		}
	}

	if user.PictureURL == nil || *user.PictureURL == "" || !user.IsSocialLinked() || s.social == nil {
		return nil, nil
	}
	data, err := s.social.FetchPicture(ctx, *user.PictureURL)
	if err != nil {
		return nil, fmt.Errorf("fetch social picture: %w", err)
	}
	return data, nil
}
