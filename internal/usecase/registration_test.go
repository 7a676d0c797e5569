package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ndmitriev/auth-service/internal/core/domain"
	"github.com/ndmitriev/auth-service/internal/infra/security"
	"github.com/ndmitriev/auth-service/internal/repository"
)

const validTestPassword = "Test1234"

// mockAccountRepository is an in-memory AccountRepository with call counters
// and injectable failures.
type mockAccountRepository struct {
	accounts map[string]domain.Account // keyed by email

	createErr      error
	forceDuplicate bool
	createCalls    int

	getByEmailErr     error
	getByEmailErrOnce bool // next lookup misses even when the row exists
	getByEmailCalls   int

	setResetCalls   int
	setResetErr     error
	lastResetHash   string
	lastResetExpiry time.Time

	consumeCalls int
	consumeErr   error
}

func newMockAccountRepository() *mockAccountRepository {
	return &mockAccountRepository{accounts: make(map[string]domain.Account)}
}

func (m *mockAccountRepository) Create(_ context.Context, account domain.Account) error {
	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}
	if m.forceDuplicate {
		return repository.ErrDuplicateEmail
	}
	if _, exists := m.accounts[account.Email]; exists {
		return repository.ErrDuplicateEmail
	}
	m.accounts[account.Email] = account
	return nil
}

func (m *mockAccountRepository) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	m.getByEmailCalls++
	if m.getByEmailErr != nil {
		return nil, m.getByEmailErr
	}
	if m.getByEmailErrOnce {
		m.getByEmailErrOnce = false
		return nil, repository.ErrNotFound
	}
	account, ok := m.accounts[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := account
	return &out, nil
}

func (m *mockAccountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	for _, account := range m.accounts {
		if account.ID == id {
			out := account
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockAccountRepository) SetResetToken(_ context.Context, id, tokenHash string, expiresAt, now time.Time) error {
	m.setResetCalls++
	if m.setResetErr != nil {
		return m.setResetErr
	}
	for email, account := range m.accounts {
		if account.ID == id {
			hash := tokenHash
			expiry := expiresAt
			account.ResetTokenHash = &hash
			account.ResetTokenExpiresAt = &expiry
			account.UpdatedAt = now
			m.accounts[email] = account
			m.lastResetHash = tokenHash
			m.lastResetExpiry = expiresAt
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *mockAccountRepository) GetByActiveResetToken(_ context.Context, tokenHash string, now time.Time) (*domain.Account, error) {
	for _, account := range m.accounts {
		if account.ResetTokenHash == nil || account.ResetTokenExpiresAt == nil {
			continue
		}
		if *account.ResetTokenHash == tokenHash && account.ResetTokenExpiresAt.After(now) {
			out := account
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockAccountRepository) ConsumeResetToken(_ context.Context, id, tokenHash, passwordHash string, now time.Time) error {
	m.consumeCalls++
	if m.consumeErr != nil {
		return m.consumeErr
	}
	for email, account := range m.accounts {
		if account.ID != id {
			continue
		}
		if account.ResetTokenHash == nil || *account.ResetTokenHash != tokenHash {
			return repository.ErrNotFound
		}
		account.PasswordHash = passwordHash
		account.ResetTokenHash = nil
		account.ResetTokenExpiresAt = nil
		account.UpdatedAt = now
		m.accounts[email] = account
		return nil
	}
	return repository.ErrNotFound
}

// recordingNotifier captures Send calls for assertions.
type recordingNotifier struct {
	calls       int
	lastTo      string
	lastSubject string
	lastText    string
	lastHTML    string
	err         error
}

func (n *recordingNotifier) Send(_ context.Context, toEmail, subject, bodyText, bodyHTML string) error {
	n.calls++
	n.lastTo = toEmail
	n.lastSubject = subject
	n.lastText = bodyText
	n.lastHTML = bodyHTML
	return n.err
}

func TestRegistrationService_Register_StoresHashedCredential(t *testing.T) {
	repo := newMockAccountRepository()
	service := NewRegistrationService(repo, nil)
	fixedNow := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	service.WithClock(func() time.Time { return fixedNow })

	account, err := service.Register(context.Background(), "Alice", "alice@example.com", validTestPassword)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if account.ID == "" {
		t.Fatalf("expected a generated account id")
	}
	if !account.CreatedAt.Equal(fixedNow) {
		t.Fatalf("expected created_at %v, got %v", fixedNow, account.CreatedAt)
	}
	if repo.createCalls != 1 {
		t.Fatalf("expected Create to be called once, got %d", repo.createCalls)
	}

	stored := repo.accounts["alice@example.com"]
	if stored.PasswordHash == "" {
		t.Fatalf("expected password hash to be stored")
	}
	if stored.PasswordHash == validTestPassword {
		t.Fatalf("plaintext password must never be stored")
	}
	if ok, err := security.VerifyPassword(validTestPassword, stored.PasswordHash); err != nil || !ok {
		t.Fatalf("expected stored hash to verify against original password")
	}
}

func TestRegistrationService_Register_DuplicateEmail(t *testing.T) {
	repo := newMockAccountRepository()
	service := NewRegistrationService(repo, nil)

	if _, err := service.Register(context.Background(), "Alice", "alice@example.com", validTestPassword); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}

	_, err := service.Register(context.Background(), "Other Alice", "alice@example.com", validTestPassword)
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegistrationService_Register_InsertRaceSurfacesAsConflict(t *testing.T) {
	repo := newMockAccountRepository()
	// Existence check passes, but the insert loses a concurrent race.
	repo.forceDuplicate = true
	service := NewRegistrationService(repo, nil)

	_, err := service.Register(context.Background(), "Alice", "alice@example.com", validTestPassword)
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken on unique violation, got %v", err)
	}
	if repo.createCalls != 1 {
		t.Fatalf("expected Create to be attempted once, got %d", repo.createCalls)
	}
}

func TestRegistrationService_Register_RejectsWeakPasswords(t *testing.T) {
	repo := newMockAccountRepository()
	service := NewRegistrationService(repo, nil)

	cases := []struct {
		name     string
		password string
	}{
		{"too short", "Ab1"},
		{"no digit", "password"},
		{"no letter", "12345678"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Register(context.Background(), "Alice", "alice@example.com", tc.password)
			if !errors.Is(err, ErrPasswordPolicyViolation) {
				t.Fatalf("expected ErrPasswordPolicyViolation, got %v", err)
			}
		})
	}

	if repo.createCalls != 0 {
		t.Fatalf("expected no Create calls for rejected passwords, got %d", repo.createCalls)
	}
}

func TestRegistrationService_Register_RejectsShortName(t *testing.T) {
	repo := newMockAccountRepository()
	service := NewRegistrationService(repo, nil)

	_, err := service.Register(context.Background(), " A ", "alice@example.com", validTestPassword)
	if !errors.Is(err, ErrNameTooShort) {
		t.Fatalf("expected ErrNameTooShort, got %v", err)
	}
}
