package jobs

import (
	"fmt"

	"github.com/yourusername/cookie-auth/internal/auth"
)

func validatePayload(payload *TaskPayload) error {
	if payload == nil {
		return fmt.Errorf("payload is nil")
	}
	if payload.UserID == "" {
		return fmt.Errorf("payload.UserID is required")
	}
	switch payload.Kind {
	case auth.ActivityRegistered, auth.ActivityLogin, auth.ActivityLogout:
		return nil
	default:
		return fmt.Errorf("unsupported activity kind: %q", payload.Kind)
	}
}

// applyActivity はイベントを記録に反映します。
func applyActivity(record *Record, payload *TaskPayload) {
	at := payload.OccurredAt.UTC()
	switch payload.Kind {
	case auth.ActivityRegistered:
		record.RegisteredAt = &at
	case auth.ActivityLogin:
		record.LastLoginAt = &at
		record.LoginCount++
	case auth.ActivityLogout:
		record.LastLogoutAt = &at
	}
	record.LastEvent = payload.Kind
}
