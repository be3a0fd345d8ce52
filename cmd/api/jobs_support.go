package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/cookie-auth/internal/auth"
	"github.com/yourusername/cookie-auth/internal/config"
	"github.com/yourusername/cookie-auth/internal/jobs"
	"github.com/yourusername/cookie-auth/internal/logging"
)

// activityRecorder は認証イベントを Asynq のジョブとして投入します。
type activityRecorder struct {
	manager *jobs.Manager
}

func (r *activityRecorder) RecordActivity(ctx context.Context, userID string, kind auth.ActivityKind) error {
	_, err := r.manager.Enqueue(ctx, &jobs.TaskPayload{
		UserID:     userID,
		Kind:       kind,
		OccurredAt: time.Now().UTC(),
	})
	return err
}

type activityReader interface {
	GetRecord(ctx context.Context, userID string) (*jobs.Record, error)
}

func setupJobs(cfg *config.Config, logger *slog.Logger) (*jobs.Manager, error) {
	opt, err := redis.ParseURL(cfg.QueueRedisURL)
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(opt)
	ttl := cfg.ActivityTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	store := jobs.NewStore(redisClient, ttl)
	return jobs.NewManager(cfg.QueueRedisURL, store, logger)
}

func activityHandler(reader activityReader, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if reader == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"code":    "ACTIVITY_DISABLED",
				"message": "アクティビティ記録は無効化されています。",
			})
			return
		}

		userID := c.GetString(auth.ContextUserKey)
		record, err := reader.GetRecord(c.Request.Context(), userID)
		if err != nil {
			logging.LogError(logger.With("user_id", userID), "failed to load activity", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "アクティビティの取得に失敗しました。",
			})
			return
		}
		if record == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "ACTIVITY_NOT_FOUND",
				"message": "アクティビティの記録がまだありません。",
			})
			return
		}

		payload := gin.H{
			"userId":     record.UserID,
			"loginCount": record.LoginCount,
			"updatedAt":  record.UpdatedAt,
			"expiresAt":  record.ExpiresAt,
		}
		if record.LastEvent != "" {
			payload["lastEvent"] = record.LastEvent
		}
		if record.RegisteredAt != nil {
			payload["registeredAt"] = record.RegisteredAt
		}
		if record.LastLoginAt != nil {
			payload["lastLoginAt"] = record.LastLoginAt
		}
		if record.LastLogoutAt != nil {
			payload["lastLogoutAt"] = record.LastLogoutAt
		}

		c.JSON(http.StatusOK, payload)
	}
}
