package domain

import "time"

// Account represents a registered identity with its credential material.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string

	// ResetTokenHash and ResetTokenExpiresAt are both set while a password
	// reset is pending and both cleared on consumption. Only the SHA-256
	// digest of the reset token is ever stored.
	ResetTokenHash      *string
	ResetTokenExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PublicAccount is the projection of an Account safe to return to clients.
type PublicAccount struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Public strips credential material from the account.
func (a Account) Public() PublicAccount {
	return PublicAccount{
		ID:    a.ID,
		Name:  a.Name,
		Email: a.Email,
	}
}

// HasPendingReset reports whether a reset token is currently stored.
func (a Account) HasPendingReset() bool {
	return a.ResetTokenHash != nil && a.ResetTokenExpiresAt != nil
}
