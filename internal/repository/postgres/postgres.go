package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories aggregates the postgres-backed repositories sharing one pool.
type Repositories struct {
	Accounts *AccountRepository
}

// NewRepositories constructs all repositories on top of the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Accounts: NewAccountRepository(pool),
	}
}
