package jobs

import (
	"time"

	"github.com/yourusername/cookie-auth/internal/auth"
)

// TaskPayload は認証アクティビティ記録ジョブのペイロードです。
type TaskPayload struct {
	UserID     string            `json:"userId"`
	Kind       auth.ActivityKind `json:"kind"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// Record はユーザーごとのアクティビティの現在状態を表します。
type Record struct {
	UserID       string            `json:"userId"`
	LastEvent    auth.ActivityKind `json:"lastEvent,omitempty"`
	RegisteredAt *time.Time        `json:"registeredAt,omitempty"`
	LastLoginAt  *time.Time        `json:"lastLoginAt,omitempty"`
	LastLogoutAt *time.Time        `json:"lastLogoutAt,omitempty"`
	LoginCount   int               `json:"loginCount"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
	ExpiresAt    time.Time         `json:"expiresAt"`
}
