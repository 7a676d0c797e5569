package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ndmitriev/auth-service/internal/core/port"
	"github.com/ndmitriev/auth-service/internal/infra/logger"
	"github.com/ndmitriev/auth-service/internal/infra/security"
	"github.com/ndmitriev/auth-service/internal/repository"
)

const (
	resetTokenBytes = 32
	defaultResetTTL = time.Hour

	resetEmailSubject = "Password reset request"
)

var (
	// ErrResetTokenInvalid covers every reset confirmation miss: unknown,
	// garbled, expired, and already-consumed tokens are deliberately
	// indistinguishable.
	ErrResetTokenInvalid = errors.New("reset token invalid or expired")
	// ErrNewPasswordInvalid indicates the replacement password fails the policy.
	ErrNewPasswordInvalid = errors.New("new password invalid")
)

// PasswordResetService coordinates reset initiation and completion.
type PasswordResetService struct {
	accounts          port.AccountRepository
	notifier          port.Notifier
	passwordValidator *security.PasswordValidator
	logger            *zap.Logger
	frontendURL       string
	now               func() time.Time
	resetTTL          time.Duration
}

// NewPasswordResetService constructs a PasswordResetService.
func NewPasswordResetService(accounts port.AccountRepository, notifier port.Notifier, validator *security.PasswordValidator, frontendURL string, log *zap.Logger) *PasswordResetService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &PasswordResetService{
		accounts:          accounts,
		notifier:          notifier,
		passwordValidator: validator,
		logger:            log,
		frontendURL:       strings.TrimRight(frontendURL, "/"),
		now:               time.Now,
		resetTTL:          defaultResetTTL,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *PasswordResetService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// WithTTL allows tests to override the default reset TTL.
func (s *PasswordResetService) WithTTL(ttl time.Duration) {
	if ttl > 0 {
		s.resetTTL = ttl
	}
}

// RequestReset issues a reset token for the account holding the email and
// dispatches it as a link. The outcome is identical whether or not the email
// is registered: a nil return either way, and no notification for unknown
// emails, so responses cannot be used to probe for accounts.
//
// Only the SHA-256 digest of the token is persisted. A newer request simply
// overwrites the stored digest, invalidating any earlier outstanding link.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	rawToken, err := security.GenerateSecureToken(resetTokenBytes)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.resetTTL)

	if err := s.accounts.SetResetToken(ctx, account.ID, security.HashToken(rawToken), expiresAt, now); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	// The token is persisted at this point; a delivery failure is reported
	// but not rolled back, since a re-request regenerates it.
	if err := s.notifier.Send(ctx, account.Email, resetEmailSubject, s.resetBodyText(rawToken), s.resetBodyHTML(rawToken)); err != nil {
		s.logger.Warn("reset email delivery failed",
			zap.String("email", logger.MaskEmail(account.Email)),
			zap.Error(err),
		)
	}

	return nil
}

// ConfirmReset exchanges a raw reset token for a new credential. Lookup and
// expiry are evaluated in a single query, and consumption is a guarded
// update, so a token can be used at most once even under concurrent calls.
func (s *PasswordResetService) ConfirmReset(ctx context.Context, rawToken, newPassword string) error {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return ErrResetTokenInvalid
	}

	if err := s.passwordValidator.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrNewPasswordInvalid, err)
	}

	tokenHash := security.HashToken(rawToken)
	now := s.now().UTC()

	account, err := s.accounts.GetByActiveResetToken(ctx, tokenHash, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	if err := s.accounts.ConsumeResetToken(ctx, account.ID, tokenHash, passwordHash, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("consume reset token: %w", err)
	}

	return nil
}

// ResetURL builds the link delivered to the account holder.
func (s *PasswordResetService) ResetURL(rawToken string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, rawToken)
}

func (s *PasswordResetService) resetBodyText(rawToken string) string {
	return fmt.Sprintf(
		"A password reset was requested for your account.\n\n"+
			"Open the link below to choose a new password. The link expires in %d minutes.\n\n%s\n\n"+
			"If you did not request this, you can ignore this email.",
		int(s.resetTTL.Minutes()),
		s.ResetURL(rawToken),
	)
}

func (s *PasswordResetService) resetBodyHTML(rawToken string) string {
	url := s.ResetURL(rawToken)
	return fmt.Sprintf(
		"<p>A password reset was requested for your account.</p>"+
			"<p><a href=%q>Reset your password</a> (expires in %d minutes)</p>"+
			"<p>If you did not request this, you can ignore this email.</p>",
		url,
		int(s.resetTTL.Minutes()),
	)
}
