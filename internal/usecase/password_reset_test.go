package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/ndmitriev/auth-service/internal/infra/security"
)

const testFrontendURL = "https://app.example.com"

func capturedResetToken(t *testing.T, body string) string {
	t.Helper()
	idx := strings.Index(body, "token=")
	if idx < 0 {
		t.Fatalf("reset email does not contain a token link: %q", body)
	}
	token := body[idx+len("token="):]
	if cut := strings.IndexAny(token, " \n\""); cut >= 0 {
		token = token[:cut]
	}
	if token == "" {
		t.Fatalf("captured an empty reset token from %q", body)
	}
	return token
}

func newResetFixture(t *testing.T) (*mockAccountRepository, *recordingNotifier, *PasswordResetService) {
	t.Helper()
	repo := newMockAccountRepository()
	notifier := &recordingNotifier{}
	service := NewPasswordResetService(repo, notifier, nil, testFrontendURL, zaptest.NewLogger(t))

	registration := NewRegistrationService(repo, nil)
	if _, err := registration.Register(context.Background(), "Alice", "alice@example.com", validTestPassword); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	return repo, notifier, service
}

func TestPasswordResetService_RequestReset_StoresDigestAndSendsLink(t *testing.T) {
	repo, notifier, service := newResetFixture(t)
	fixedNow := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	service.WithClock(func() time.Time { return fixedNow })

	if err := service.RequestReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}

	if notifier.calls != 1 {
		t.Fatalf("expected one notification, got %d", notifier.calls)
	}
	if notifier.lastTo != "alice@example.com" {
		t.Fatalf("expected notification to alice@example.com, got %s", notifier.lastTo)
	}

	raw := capturedResetToken(t, notifier.lastText)
	if !strings.Contains(notifier.lastText, testFrontendURL+"/reset-password?token="+raw) {
		t.Fatalf("expected reset link in body, got %q", notifier.lastText)
	}

	if repo.setResetCalls != 1 {
		t.Fatalf("expected SetResetToken to be called once, got %d", repo.setResetCalls)
	}
	if repo.lastResetHash != security.HashToken(raw) {
		t.Fatalf("stored digest does not match the delivered token")
	}
	if repo.lastResetHash == raw {
		t.Fatalf("raw token must never be persisted")
	}
	if !repo.lastResetExpiry.Equal(fixedNow.Add(time.Hour)) {
		t.Fatalf("expected expiry %v, got %v", fixedNow.Add(time.Hour), repo.lastResetExpiry)
	}
}

func TestPasswordResetService_RequestReset_UnknownEmailIsSilent(t *testing.T) {
	repo, notifier, service := newResetFixture(t)

	if err := service.RequestReset(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("RequestReset for unknown email must succeed, got %v", err)
	}

	if notifier.calls != 0 {
		t.Fatalf("notifier must not be contacted for unknown emails, got %d calls", notifier.calls)
	}
	if repo.setResetCalls != 0 {
		t.Fatalf("no token must be stored for unknown emails, got %d calls", repo.setResetCalls)
	}
}

func TestPasswordResetService_RequestReset_DeliveryFailureIsNotRolledBack(t *testing.T) {
	repo, notifier, service := newResetFixture(t)
	notifier.err = errors.New("smtp unreachable")

	if err := service.RequestReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestReset must swallow delivery failures, got %v", err)
	}
	if repo.setResetCalls != 1 {
		t.Fatalf("expected token to remain stored after delivery failure")
	}
}

func TestPasswordResetService_ConfirmReset_RoundTrip(t *testing.T) {
	repo, notifier, service := newResetFixture(t)

	if err := service.RequestReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	raw := capturedResetToken(t, notifier.lastText)

	const newPassword = "NewPass123"
	if err := service.ConfirmReset(context.Background(), raw, newPassword); err != nil {
		t.Fatalf("ConfirmReset returned error: %v", err)
	}

	stored := repo.accounts["alice@example.com"]
	if ok, err := security.VerifyPassword(newPassword, stored.PasswordHash); err != nil || !ok {
		t.Fatalf("expected new password to verify after reset")
	}
	if ok, _ := security.VerifyPassword(validTestPassword, stored.PasswordHash); ok {
		t.Fatalf("old password must stop working after reset")
	}
	if stored.ResetTokenHash != nil || stored.ResetTokenExpiresAt != nil {
		t.Fatalf("reset fields must be cleared on consumption")
	}
}

func TestPasswordResetService_ConfirmReset_SingleUse(t *testing.T) {
	_, notifier, service := newResetFixture(t)

	if err := service.RequestReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	raw := capturedResetToken(t, notifier.lastText)

	if err := service.ConfirmReset(context.Background(), raw, "NewPass123"); err != nil {
		t.Fatalf("first ConfirmReset returned error: %v", err)
	}

	err := service.ConfirmReset(context.Background(), raw, "OtherPass456")
	if !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid on reuse, got %v", err)
	}
}

func TestPasswordResetService_ConfirmReset_ExpiredToken(t *testing.T) {
	_, notifier, service := newResetFixture(t)

	current := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	service.WithClock(func() time.Time { return current })

	if err := service.RequestReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	raw := capturedResetToken(t, notifier.lastText)

	current = current.Add(time.Hour + time.Minute)

	err := service.ConfirmReset(context.Background(), raw, "NewPass123")
	if !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid for expired token, got %v", err)
	}
}

func TestPasswordResetService_ConfirmReset_GarbledToken(t *testing.T) {
	_, _, service := newResetFixture(t)

	err := service.ConfirmReset(context.Background(), "not-a-real-token", "NewPass123")
	if !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid for unknown token, got %v", err)
	}
}

func TestPasswordResetService_ConfirmReset_RejectsWeakReplacement(t *testing.T) {
	_, notifier, service := newResetFixture(t)

	if err := service.RequestReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	raw := capturedResetToken(t, notifier.lastText)

	err := service.ConfirmReset(context.Background(), raw, "short")
	if !errors.Is(err, ErrNewPasswordInvalid) {
		t.Fatalf("expected ErrNewPasswordInvalid, got %v", err)
	}
}

func TestPasswordResetService_NewerRequestInvalidatesOlderToken(t *testing.T) {
	_, notifier, service := newResetFixture(t)

	if err := service.RequestReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("first RequestReset returned error: %v", err)
	}
	firstToken := capturedResetToken(t, notifier.lastText)

	if err := service.RequestReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("second RequestReset returned error: %v", err)
	}
	secondToken := capturedResetToken(t, notifier.lastText)

	if firstToken == secondToken {
		t.Fatalf("expected distinct tokens per request")
	}

	if err := service.ConfirmReset(context.Background(), firstToken, "NewPass123"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected the older token to be invalidated, got %v", err)
	}
	if err := service.ConfirmReset(context.Background(), secondToken, "NewPass123"); err != nil {
		t.Fatalf("expected the newest token to work, got %v", err)
	}
}
