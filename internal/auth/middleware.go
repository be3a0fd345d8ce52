package auth

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// guestOnly は認証済みの利用者を / へリダイレクトするミドルウェアを返します。
func (m *Manager) guestOnly(flow string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := m.service.Sessions().Load(sessions.Default(c))
		if m.service.Gate(sess, RouteGuestOnly) == RedirectHome {
			m.metrics.observe(flow, outcomeRedirected)
			c.Redirect(http.StatusFound, "/")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GuestOnlyRegister は登録済みセッションで POST /register が呼ばれた場合に / へ戻します。
func (m *Manager) GuestOnlyRegister() gin.HandlerFunc {
	return m.guestOnly(flowRegister)
}

// GuestOnlyLogin はログイン済みセッションで POST / が呼ばれた場合に / へ戻します。
func (m *Manager) GuestOnlyLogin() gin.HandlerFunc {
	return m.guestOnly(flowLogin)
}

// RequireLogin はセッションを検証するミドルウェアを返します。
func (m *Manager) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := m.service.Sessions().Load(sessions.Default(c))
		if m.service.Gate(sess, RouteMembersOnly) != ProceedAuthenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "UNAUTHORIZED",
				"message": "ログインが必要です",
			})
			return
		}

		_, userID := m.service.Sessions().Read(sess)
		c.Set(ContextUserKey, userID)
		c.Next()
	}
}
