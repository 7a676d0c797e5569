package security

import (
	"strings"
	"testing"
)

func TestHashPassword_ProducesVerifiableHash(t *testing.T) {
	const password = "Test1234"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if hash == password {
		t.Fatalf("hash must not equal the plaintext")
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Fatalf("expected a bcrypt hash, got %q", hash)
	}

	ok, err := VerifyPassword(password, hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected the original password to verify")
	}
}

func TestHashPassword_SaltsEachHash(t *testing.T) {
	first, err := HashPassword("Test1234")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	second, err := HashPassword("Test1234")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if first == second {
		t.Fatalf("two hashes of the same password must differ")
	}
}

func TestVerifyPassword_MismatchIsNotAnError(t *testing.T) {
	hash, err := HashPassword("Test1234")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	ok, err := VerifyPassword("Wrong1234", hash)
	if err != nil {
		t.Fatalf("a mismatch must not surface as an error, got %v", err)
	}
	if ok {
		t.Fatalf("wrong password must not verify")
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	if _, err := VerifyPassword("Test1234", "not-a-bcrypt-hash"); err == nil {
		t.Fatalf("expected an error for a malformed hash")
	}
}

func TestConfigureBcrypt_RejectsOutOfRangeCost(t *testing.T) {
	if err := ConfigureBcrypt(99); err == nil {
		t.Fatalf("expected an error for cost 99")
	}
	if err := ConfigureBcrypt(DefaultBcryptCost); err != nil {
		t.Fatalf("expected default cost to be accepted, got %v", err)
	}
}
