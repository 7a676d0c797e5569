package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ndmitriev/auth-service/internal/core/domain"
	"github.com/ndmitriev/auth-service/internal/repository"
)

const uniqueViolationCode = "23505"

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var accountColumns = []string{
	"id",
	"name",
	"email",
	"password_hash",
	"reset_token_hash",
	"reset_token_expires_at",
	"created_at",
	"updated_at",
}

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository wires a PostgreSQL-backed account repository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithExecutor returns a repository bound to the supplied executor (tests, transactions).
func (r *AccountRepository) WithExecutor(exec pgExecutor) *AccountRepository {
	if exec == nil {
		return r
	}
	return &AccountRepository{
		pool:    r.pool,
		exec:    exec,
		builder: r.builder,
	}
}

// Create inserts a new account row. A violation of the unique email index is
// reported as repository.ErrDuplicateEmail.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	stmt, args, err := r.builder.Insert("accounts").
		Columns(accountColumns...).
		Values(
			account.ID,
			account.Name,
			account.Email,
			account.PasswordHash,
			account.ResetTokenHash,
			account.ResetTokenExpiresAt,
			account.CreatedAt,
			account.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return repository.ErrDuplicateEmail
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// GetByEmail retrieves an account by its exact email string.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("accounts").
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account by email sql: %w", err)
	}

	return r.scanOne(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByID retrieves an account by identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("accounts").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account by id sql: %w", err)
	}

	return r.scanOne(r.exec.QueryRow(ctx, stmt, args...))
}

// SetResetToken stores the reset token digest and expiry, replacing any
// pending reset. The previous token, if any, stops matching immediately.
func (r *AccountRepository) SetResetToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time, now time.Time) error {
	stmt, args, err := r.builder.Update("accounts").
		Set("reset_token_hash", tokenHash).
		Set("reset_token_expires_at", expiresAt).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set reset token sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// GetByActiveResetToken resolves the account holding a matching, unexpired
// reset token digest. Expiry is evaluated in the same lookup so unknown and
// expired tokens are indistinguishable to callers.
func (r *AccountRepository) GetByActiveResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("accounts").
		Where(squirrel.Eq{"reset_token_hash": tokenHash}).
		Where(squirrel.Gt{"reset_token_expires_at": now}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account by reset token sql: %w", err)
	}

	return r.scanOne(r.exec.QueryRow(ctx, stmt, args...))
}

// ConsumeResetToken swaps in the new password hash and clears both reset
// fields in one update guarded by the token digest. Zero affected rows means
// the token was already consumed or replaced.
func (r *AccountRepository) ConsumeResetToken(ctx context.Context, id string, tokenHash string, passwordHash string, now time.Time) error {
	stmt, args, err := r.builder.Update("accounts").
		Set("password_hash", passwordHash).
		Set("reset_token_hash", nil).
		Set("reset_token_expires_at", nil).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"reset_token_hash": tokenHash}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build consume reset token sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *AccountRepository) scanOne(row pgx.Row) (*domain.Account, error) {
	var (
		account        domain.Account
		resetHash      *string
		resetExpiresAt *time.Time
	)

	if err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.PasswordHash,
		&resetHash,
		&resetExpiresAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	account.ResetTokenHash = resetHash
	account.ResetTokenExpiresAt = resetExpiresAt

	return &account, nil
}
