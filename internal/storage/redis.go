package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	userKeyPrefix  = "user:id:"
	emailKeyPrefix = "user:email:"
)

// RedisStore はユーザーを Redis に保存します。
// user:id:<id> にレコード(JSON)、user:email:<email> に ID を保持します。
type RedisStore struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRedisStore は RedisStore を作成します。
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, now: time.Now}
}

// FindByEmail はメールアドレスでユーザーを検索します。
func (s *RedisStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	id, err := s.rdb.Get(ctx, emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get email index: %w", err)
	}
	return s.FindByID(ctx, id)
}

// FindByID は ID でユーザーを検索します。
func (s *RedisStore) FindByID(ctx context.Context, id string) (*User, error) {
	data, err := s.rdb.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}

// Create はユーザーを作成します。
// メールアドレスのキーを WATCH し、レコードとメールアドレスの索引を MULTI/EXEC で同時に書き込みます。
// 途中で失敗してもどちらか一方だけが残ることはありません。
func (s *RedisStore) Create(ctx context.Context, name, email string, passwordHash []byte) (*User, error) {
	user := &User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC(),
	}
	payload, err := json.Marshal(user)
	if err != nil {
		return nil, err
	}

	key := emailKey(email)
	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if n > 0 {
			return ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, userKey(user.ID), payload, 0)
			pipe.Set(ctx, key, user.ID, 0)
			return nil
		})
		return err
	}

	err = s.rdb.Watch(ctx, txf, key)
	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, ErrConflict), errors.Is(err, redis.TxFailedErr):
		// WATCH 中に他のリクエストが同じメールアドレスを確保した
		return nil, ErrConflict
	default:
		return nil, fmt.Errorf("save user: %w", err)
	}
}

func userKey(id string) string {
	return userKeyPrefix + id
}

func emailKey(email string) string {
	return emailKeyPrefix + email
}
