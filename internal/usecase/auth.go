package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ndmitriev/auth-service/internal/core/domain"
	"github.com/ndmitriev/auth-service/internal/core/port"
	"github.com/ndmitriev/auth-service/internal/infra/security"
	"github.com/ndmitriev/auth-service/internal/repository"
)

// ErrInvalidCredentials indicates the provided email or password are incorrect.
// An unknown email and a wrong password deliberately collapse into this one
// error so responses cannot be used to enumerate registered emails.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService coordinates credential verification and token issuance.
type AuthService struct {
	accounts port.AccountRepository
	issuer   *security.TokenIssuer
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(accounts port.AccountRepository, issuer *security.TokenIssuer) (*AuthService, error) {
	if issuer == nil {
		return nil, fmt.Errorf("token issuer is required")
	}
	return &AuthService{accounts: accounts, issuer: issuer}, nil
}

// Login validates credentials and issues a signed token bound to the
// account id and display name.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, domain.Account, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", domain.Account{}, fmt.Errorf("email is required")
	}
	if password == "" {
		return "", domain.Account{}, fmt.Errorf("password is required")
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", domain.Account{}, ErrInvalidCredentials
		}
		return "", domain.Account{}, fmt.Errorf("lookup account: %w", err)
	}

	ok, err := security.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return "", domain.Account{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return "", domain.Account{}, ErrInvalidCredentials
	}

	token, err := s.issuer.Sign(account.ID, account.Name)
	if err != nil {
		return "", domain.Account{}, fmt.Errorf("issue token: %w", err)
	}

	sanitized := *account
	sanitized.PasswordHash = ""
	sanitized.ResetTokenHash = nil
	sanitized.ResetTokenExpiresAt = nil

	return token, sanitized, nil
}

// ParseToken validates a signed token and returns its claims.
func (s *AuthService) ParseToken(token string) (*security.AccountClaims, error) {
	return s.issuer.Parse(token)
}
