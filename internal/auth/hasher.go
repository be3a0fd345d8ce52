package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultBcryptCost は bcrypt の既定コストです。
const DefaultBcryptCost = 12

// maxPasswordBytes は bcrypt が参照する入力の上限です。これを超える部分は切り捨てます。
const maxPasswordBytes = 72

// PasswordHasher はパスワードのハッシュ化と照合を行います。
// bcrypt の計算は重いため、同時実行数をセマフォで制限します。
type PasswordHasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewPasswordHasher は PasswordHasher を作成します。
func NewPasswordHasher(cost, concurrency int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &PasswordHasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(concurrency)),
	}
}

// Hash は平文パスワードのハッシュを生成します。同じ入力でも毎回異なる値になります。
func (h *PasswordHasher) Hash(ctx context.Context, plaintext string) ([]byte, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return nil, hashingError("acquire hash slot", err)
	}
	defer h.sem.Release(1)

	hash, err := bcrypt.GenerateFromPassword(truncatePassword(plaintext), h.cost)
	if err != nil {
		return nil, hashingError("generate hash", err)
	}
	return hash, nil
}

// Verify は平文がハッシュと一致するかを返します。
// 不一致は (false, nil)、ハッシュが不正な場合のみ error を返します。
func (h *PasswordHasher) Verify(ctx context.Context, plaintext string, hash []byte) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, hashingError("acquire hash slot", err)
	}
	defer h.sem.Release(1)

	err := bcrypt.CompareHashAndPassword(hash, truncatePassword(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, hashingError("compare hash", err)
	}
}

func hashingError(operation string, err error) error {
	return oops.Code("AUTH_HASH_FAILED").
		With("operation", operation).
		Wrap(errors.Join(ErrHashing, err))
}

func truncatePassword(plaintext string) []byte {
	b := []byte(plaintext)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}
