package usecase

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/ndmitriev/auth-service/internal/infra/security"
)

func TestFederatedIdentityService_LinkOrCreate_ReturnsExistingUnchanged(t *testing.T) {
	repo := newMockAccountRepository()
	registration := NewRegistrationService(repo, nil)
	service := NewFederatedIdentityService(repo, zaptest.NewLogger(t))

	registered, err := registration.Register(context.Background(), "Alice", "alice@example.com", validTestPassword)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	createCallsBefore := repo.createCalls

	linked, err := service.LinkOrCreate(context.Background(), "alice@example.com", "Alice From Google")
	if err != nil {
		t.Fatalf("LinkOrCreate returned error: %v", err)
	}

	if linked.ID != registered.ID {
		t.Fatalf("expected existing account %s, got %s", registered.ID, linked.ID)
	}
	if linked.Name != "Alice" {
		t.Fatalf("existing account must be returned unchanged, got name %s", linked.Name)
	}
	if repo.createCalls != createCallsBefore {
		t.Fatalf("no account must be created when the email is known")
	}

	stored := repo.accounts["alice@example.com"]
	if ok, err := security.VerifyPassword(validTestPassword, stored.PasswordHash); err != nil || !ok {
		t.Fatalf("local credentials must survive a federated login")
	}
}

func TestFederatedIdentityService_LinkOrCreate_CreatesWithUnusablePassword(t *testing.T) {
	repo := newMockAccountRepository()
	service := NewFederatedIdentityService(repo, zaptest.NewLogger(t))
	fixedNow := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	service.WithClock(func() time.Time { return fixedNow })

	account, err := service.LinkOrCreate(context.Background(), "bob@example.com", "Bob")
	if err != nil {
		t.Fatalf("LinkOrCreate returned error: %v", err)
	}

	if account.ID == "" {
		t.Fatalf("expected a generated account id")
	}
	if account.Name != "Bob" {
		t.Fatalf("expected name Bob, got %s", account.Name)
	}
	if !account.CreatedAt.Equal(fixedNow) {
		t.Fatalf("expected created_at %v, got %v", fixedNow, account.CreatedAt)
	}

	stored := repo.accounts["bob@example.com"]
	if stored.PasswordHash == "" {
		t.Fatalf("federated accounts still need a stored hash")
	}
	// The placeholder secret is random and never surfaced anywhere, so no
	// guessable password can log in.
	for _, guess := range []string{"", "bob@example.com", "Bob", "password"} {
		if ok, _ := security.VerifyPassword(guess, stored.PasswordHash); ok {
			t.Fatalf("placeholder credential must not verify against %q", guess)
		}
	}
}

func TestFederatedIdentityService_LinkOrCreate_DefaultsNameToEmail(t *testing.T) {
	repo := newMockAccountRepository()
	service := NewFederatedIdentityService(repo, zaptest.NewLogger(t))

	account, err := service.LinkOrCreate(context.Background(), "carol@example.com", "  ")
	if err != nil {
		t.Fatalf("LinkOrCreate returned error: %v", err)
	}
	if account.Name != "carol@example.com" {
		t.Fatalf("expected name to default to the email, got %s", account.Name)
	}
}

func TestFederatedIdentityService_LinkOrCreate_ConcurrentSignupLinksToWinner(t *testing.T) {
	repo := newMockAccountRepository()
	service := NewFederatedIdentityService(repo, zaptest.NewLogger(t))

	// The existence check misses, the insert collides, and the winner's row
	// is fetched instead.
	winner, err := service.LinkOrCreate(context.Background(), "dave@example.com", "Dave")
	if err != nil {
		t.Fatalf("seed LinkOrCreate returned error: %v", err)
	}

	repo.getByEmailErrOnce = true
	loser, err := service.LinkOrCreate(context.Background(), "dave@example.com", "Dave Again")
	if err != nil {
		t.Fatalf("racing LinkOrCreate returned error: %v", err)
	}
	if loser.ID != winner.ID {
		t.Fatalf("expected the loser to link to account %s, got %s", winner.ID, loser.ID)
	}
}
