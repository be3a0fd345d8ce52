package auth

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
)

// DefaultSessionTTL はセッションの既定の有効期限です。
const DefaultSessionTTL = time.Hour

const (
	sessionKeyAuthenticated = "authenticated"
	sessionKeyUser          = "user_id"
	sessionKeyExpiresAt     = "expires_at"
)

// State はセッションの状態を表します。
type State int

const (
	StateAnonymous State = iota
	StateAuthenticated
)

func (s State) String() string {
	if s == StateAuthenticated {
		return "authenticated"
	}
	return "anonymous"
}

// Session はリクエスト単位のセッション値です。Cookie への読み書きは SessionManager が行います。
type Session struct {
	UserID        string
	Authenticated bool
	ExpiresAt     time.Time
}

// SessionManager はセッションの発行・参照・破棄を扱います。
type SessionManager struct {
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewSessionManager は SessionManager を作成します。ttl が0以下なら既定値を使います。
func NewSessionManager(ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{ttl: ttl, now: time.Now}
}

// TTL はセッションの有効期間を返します。
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// MaxAgeSeconds はクッキーの MaxAge に利用する秒数を返します。
func (m *SessionManager) MaxAgeSeconds() int {
	return int(m.ttl.Seconds())
}

// SetSecure は Cookie に Secure 属性を付けるかどうかを設定します。HTTPS 配下では true にします。
func (m *SessionManager) SetSecure(secure bool) {
	m.secure = secure
}

// CookieOptions は認証済みセッションの Cookie 属性を返します。
func (m *SessionManager) CookieOptions() sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   m.MaxAgeSeconds(),
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// Issue はユーザーIDを設定して認証済みにし、有効期限を TTL 後に再設定します。
func (m *SessionManager) Issue(sess *Session, userID string) {
	sess.UserID = userID
	sess.Authenticated = true
	sess.ExpiresAt = m.now().Add(m.ttl)
}

// Terminate はセッションの状態を全て消去します。
func (m *SessionManager) Terminate(sess *Session) {
	*sess = Session{}
}

// Read は現在の状態と、認証済みの場合はユーザーIDを返します。期限切れは Anonymous です。
func (m *SessionManager) Read(sess Session) (State, string) {
	if !sess.Authenticated || sess.UserID == "" {
		return StateAnonymous, ""
	}
	if sess.ExpiresAt.IsZero() || !m.now().Before(sess.ExpiresAt) {
		return StateAnonymous, ""
	}
	return StateAuthenticated, sess.UserID
}

// Load は署名付きCookieからセッション値を復元します。
func (m *SessionManager) Load(store sessions.Session) Session {
	authenticated, _ := store.Get(sessionKeyAuthenticated).(bool)
	userID, _ := store.Get(sessionKeyUser).(string)
	return Session{
		UserID:        userID,
		Authenticated: authenticated,
		ExpiresAt:     readUnix(store.Get(sessionKeyExpiresAt)),
	}
}

// Persist はセッション値をCookieへ書き戻します。
// 認証済みでないセッションはCookieごと削除します。
func (m *SessionManager) Persist(store sessions.Session, sess Session) error {
	if state, _ := m.Read(sess); state == StateAnonymous {
		options := m.CookieOptions()
		options.MaxAge = -1
		store.Clear()
		store.Options(options)
		return store.Save()
	}

	store.Options(m.CookieOptions())
	store.Set(sessionKeyAuthenticated, true)
	store.Set(sessionKeyUser, sess.UserID)
	store.Set(sessionKeyExpiresAt, sess.ExpiresAt.Unix())
	return store.Save()
}

func readUnix(v interface{}) time.Time {
	switch t := v.(type) {
	case int64:
		return time.Unix(t, 0)
	case int:
		return time.Unix(int64(t), 0)
	case float64:
		return time.Unix(int64(t), 0)
	default:
		return time.Time{}
	}
}
