package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ndmitriev/auth-service/internal/core/domain"
	"github.com/ndmitriev/auth-service/internal/core/port"
	"github.com/ndmitriev/auth-service/internal/infra/logger"
	"github.com/ndmitriev/auth-service/internal/infra/security"
	"github.com/ndmitriev/auth-service/internal/repository"
)

// FederatedIdentityService maps an externally verified email to a local
// account. It trusts the caller's claim that the identity provider verified
// the email; no independent verification happens here.
type FederatedIdentityService struct {
	accounts port.AccountRepository
	logger   *zap.Logger
	now      func() time.Time
}

// NewFederatedIdentityService constructs a FederatedIdentityService.
func NewFederatedIdentityService(accounts port.AccountRepository, log *zap.Logger) *FederatedIdentityService {
	if log == nil {
		log = zap.NewNop()
	}
	return &FederatedIdentityService{
		accounts: accounts,
		logger:   log,
		now:      time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *FederatedIdentityService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// LinkOrCreate returns the account registered under the verified email, or
// creates one when none exists. An existing account is returned unchanged:
// its local credentials stay valid and independent of the federated login.
//
// New accounts get a random password hash that is never communicated, so
// they have no usable local password until the holder completes a reset.
func (s *FederatedIdentityService) LinkOrCreate(ctx context.Context, verifiedEmail, displayName string) (domain.Account, error) {
	verifiedEmail = strings.TrimSpace(verifiedEmail)
	if verifiedEmail == "" {
		return domain.Account{}, fmt.Errorf("verified email is required")
	}

	existing, err := s.accounts.GetByEmail(ctx, verifiedEmail)
	if err == nil {
		return *existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.Account{}, fmt.Errorf("lookup account: %w", err)
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = verifiedEmail
	}

	randomSecret, err := security.GenerateSecureToken(16)
	if err != nil {
		return domain.Account{}, fmt.Errorf("generate placeholder password: %w", err)
	}
	passwordHash, err := security.HashPassword(randomSecret)
	if err != nil {
		return domain.Account{}, fmt.Errorf("hash placeholder password: %w", err)
	}

	now := s.now().UTC()
	account := domain.Account{
		ID:           uuid.NewString(),
		Name:         displayName,
		Email:        verifiedEmail,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		// Two first-time federated logins can race on the same email; the
		// loser links to the winner's row.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			winner, lookupErr := s.accounts.GetByEmail(ctx, verifiedEmail)
			if lookupErr != nil {
				return domain.Account{}, fmt.Errorf("resolve concurrent federated signup: %w", lookupErr)
			}
			return *winner, nil
		}
		return domain.Account{}, fmt.Errorf("create federated account: %w", err)
	}

	s.logger.Info("federated account created",
		zap.String("account_id", account.ID),
		zap.String("email", logger.MaskEmail(account.Email)),
	)

	return account, nil
}
