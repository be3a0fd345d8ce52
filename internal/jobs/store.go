package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	activityKeyPrefix = "activity:"
	maxTxRetries      = 5
)

// Store はアクティビティ記録を Redis に保存します。
type Store struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

// NewStore は Store を作成します。
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{
		rdb: rdb,
		ttl: ttl,
		now: time.Now,
	}
}

// Get はアクティビティ記録を取得します。存在しない場合は (nil, nil) を返します。
func (s *Store) Get(ctx context.Context, userID string) (*Record, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID is required")
	}
	data, err := s.rdb.Get(ctx, activityKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Apply は記録を読み出して mutate を適用し、保存します（存在しない場合は作成）。
// 同じキーへの同時更新は WATCH による楽観ロックで再試行します。
func (s *Store) Apply(ctx context.Context, userID string, mutate func(*Record)) error {
	if userID == "" {
		return fmt.Errorf("userID is required")
	}
	key := activityKey(userID)

	txf := func(tx *redis.Tx) error {
		record := &Record{UserID: userID}
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			if err := json.Unmarshal(data, record); err != nil {
				return err
			}
		case errors.Is(err, redis.Nil):
		default:
			return err
		}

		mutate(record)
		s.stamp(record)

		payload, err := json.Marshal(record)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("activity update for %s: too many concurrent writers", userID)
}

func (s *Store) stamp(record *Record) {
	now := s.now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if s.ttl > 0 {
		record.ExpiresAt = now.Add(s.ttl)
	}
}

func activityKey(userID string) string {
	return activityKeyPrefix + userID
}
