// Package storage はユーザーレコードの永続化レイヤーを提供します。
//
// 実装:
//   - MemoryStore: 開発・テスト用のインメモリ実装
//   - PostgresStore: pgx を利用した本番用実装（UNIQUE 制約で重複を防止）
//   - RedisStore: go-redis を利用した実装（SETNX で重複を防止）
//
// メールアドレスの一意性は各実装が保証します。呼び出し側の事前チェックは参考情報にすぎません。
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound は該当するユーザーが存在しないことを表します。
	ErrNotFound = errors.New("storage: user not found")
	// ErrConflict は同じメールアドレスのユーザーが既に存在することを表します。
	ErrConflict = errors.New("storage: email already exists")
)

// User は登録済みユーザーのレコードです。作成後に変更されることはありません。
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Store はユーザーレコードの作成と検索を提供します。
type Store interface {
	// FindByEmail はメールアドレスでユーザーを検索します。存在しない場合は ErrNotFound を返します。
	FindByEmail(ctx context.Context, email string) (*User, error)
	// FindByID は ID でユーザーを検索します。存在しない場合は ErrNotFound を返します。
	FindByID(ctx context.Context, id string) (*User, error)
	// Create はユーザーを作成します。メールアドレスが重複する場合は ErrConflict を返します。
	Create(ctx context.Context, name, email string, passwordHash []byte) (*User, error)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
	_ Store = (*RedisStore)(nil)
)
