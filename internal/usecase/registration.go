package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"

	"github.com/ndmitriev/auth-service/internal/core/domain"
	"github.com/ndmitriev/auth-service/internal/core/port"
	"github.com/ndmitriev/auth-service/internal/infra/security"
	"github.com/ndmitriev/auth-service/internal/repository"
)

const minNameLength = 2

var (
	// ErrEmailTaken indicates an account with the requested email already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrPasswordPolicyViolation indicates the password does not satisfy complexity requirements.
	ErrPasswordPolicyViolation = errors.New("password does not meet complexity requirements")
	// ErrNameTooShort indicates the display name is below the minimum length.
	ErrNameTooShort = errors.New("name too short")
)

// RegistrationService handles new account onboarding.
type RegistrationService struct {
	accounts          port.AccountRepository
	passwordValidator *security.PasswordValidator
	now               func() time.Time
}

// NewRegistrationService constructs a registration service.
func NewRegistrationService(accounts port.AccountRepository, validator *security.PasswordValidator) *RegistrationService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	return &RegistrationService{
		accounts:          accounts,
		passwordValidator: validator,
		now:               time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *RegistrationService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Register creates a new account with a hashed credential. The account is
// not logged in; callers authenticate separately.
//
// The existence precheck gives the common case a clean conflict, but the
// store's unique index is the real backstop: a concurrent insert losing the
// race also surfaces as ErrEmailTaken.
func (s *RegistrationService) Register(ctx context.Context, name, email, password string) (domain.Account, error) {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < minNameLength {
		return domain.Account{}, ErrNameTooShort
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.Account{}, fmt.Errorf("email is required")
	}
	if password == "" {
		return domain.Account{}, fmt.Errorf("password is required")
	}

	if err := s.passwordValidator.Validate(password); err != nil {
		return domain.Account{}, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return domain.Account{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.Account{}, fmt.Errorf("lookup account: %w", err)
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	account := domain.Account{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return domain.Account{}, ErrEmailTaken
		}
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	return account, nil
}
