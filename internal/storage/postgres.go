package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// poolIface は pgxpool.Pool と pgxmock の両方が満たす最小限のインターフェースです。
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore は PostgreSQL の users テーブルにユーザーを保存します。
type PostgresStore struct {
	pool poolIface
	now  func() time.Time
}

// NewPostgresStore は PostgresStore を作成します。
func NewPostgresStore(pool poolIface) *PostgresStore {
	return &PostgresStore{pool: pool, now: time.Now}
}

const selectUserColumns = `SELECT id, name, email, password_hash, created_at FROM users`

// FindByEmail はメールアドレスでユーザーを検索します。
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.pool.QueryRow(ctx, selectUserColumns+` WHERE email = $1`, email)
	return scanUser(row)
}

// FindByID は ID でユーザーを検索します。
func (s *PostgresStore) FindByID(ctx context.Context, id string) (*User, error) {
	row := s.pool.QueryRow(ctx, selectUserColumns+` WHERE id = $1`, id)
	return scanUser(row)
}

// Create はユーザーを挿入します。email の UNIQUE 制約違反は ErrConflict に変換します。
func (s *PostgresStore) Create(ctx context.Context, name, email string, passwordHash []byte) (*User, error) {
	user := &User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC().Truncate(time.Microsecond),
	}

	const query = `INSERT INTO users (id, name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := s.pool.Exec(ctx, query, user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}
