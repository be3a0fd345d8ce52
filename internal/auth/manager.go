// Package auth は認証・認可機能を提供します。
//
// 登録・ログイン・ログアウトの流れ:
//   - 入力検証（CredentialValidator）: 形式チェックとメールアドレスの存在確認
//   - パスワード処理（PasswordHasher）: bcrypt によるハッシュ化と照合
//   - セッション（SessionManager）: 署名付きCookieへの発行と破棄
//   - 順序制御（Service）: 上記を組み合わせ、結果を型付きエラーで返す
//   - HTTP（Manager）: gin ハンドラーとゲート用ミドルウェア
package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/cookie-auth/internal/logging"
)

// ContextUserKey は、ハンドラー間でログイン済みユーザーIDを共有するためのキーです。
const ContextUserKey = "auth.user"

// Manager は認証関連の HTTP ハンドラーをまとめた構造体です。
type Manager struct {
	service *Service
	metrics *Metrics
	logger  *slog.Logger
}

// NewManager は認証マネージャーを作成します。metrics は nil でも構いません。
func NewManager(service *Service, metrics *Metrics, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		service: service,
		metrics: metrics,
		logger:  logger,
	}
}

// Root は GET / のハンドラーです。
func (m *Manager) Root(c *gin.Context) {
	store := sessions.Default(c)
	sess := m.service.Sessions().Load(store)

	if m.service.Gate(sess, RouteRoot) != ProceedAuthenticated {
		c.JSON(http.StatusOK, gin.H{"view": viewLoginRegister})
		return
	}

	user, err := m.service.Home(c.Request.Context(), &sess)
	if err != nil {
		logging.LogError(m.logger, "failed to load home", err)
		respondInternalError(c)
		return
	}
	if user == nil {
		// ユーザーが消えていた場合はセッションを破棄してログイン画面に戻す
		if err := m.service.Sessions().Persist(store, sess); err != nil {
			logging.LogError(m.logger, "failed to clear session", err)
		}
		c.JSON(http.StatusOK, gin.H{"view": viewLoginRegister})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"view": viewHome,
		"name": user.Name,
	})
}

// Register は POST /register のハンドラーです。
func (m *Manager) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		m.metrics.observe(flowRegister, outcomeInvalid)
		respondInvalidInput(c)
		return
	}

	if _, err := m.service.Register(c.Request.Context(), req.credentials()); err != nil {
		if respondAuthError(c, err, true) {
			m.metrics.observe(flowRegister, outcomeInvalid)
			return
		}
		m.metrics.observe(flowRegister, outcomeError)
		logging.LogError(m.logger, "register failed", err)
		respondInternalError(c)
		return
	}

	m.metrics.observe(flowRegister, outcomeSuccess)
	c.JSON(http.StatusOK, gin.H{
		"code":    "REGISTERED",
		"message": RegisterSuccessMessage,
	})
}

// Login は POST / のハンドラーです。成功時はセッションCookieを発行して / へリダイレクトします。
func (m *Manager) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		m.metrics.observe(flowLogin, outcomeInvalid)
		respondInvalidInput(c)
		return
	}

	store := sessions.Default(c)
	sess := m.service.Sessions().Load(store)

	if _, err := m.service.Login(c.Request.Context(), &sess, req.credentials()); err != nil {
		var authErr *AuthenticationError
		if respondAuthError(c, err, false) {
			if errors.As(err, &authErr) {
				m.metrics.observe(flowLogin, outcomeDenied)
			} else {
				m.metrics.observe(flowLogin, outcomeInvalid)
			}
			return
		}
		m.metrics.observe(flowLogin, outcomeError)
		logging.LogError(m.logger, "login failed", err)
		respondInternalError(c)
		return
	}

	if err := m.service.Sessions().Persist(store, sess); err != nil {
		m.metrics.observe(flowLogin, outcomeError)
		logging.LogError(m.logger, "failed to save session", err)
		respondInternalError(c)
		return
	}

	m.metrics.observe(flowLogin, outcomeSuccess)
	c.Redirect(http.StatusFound, "/")
}

// Logout は GET /logout のハンドラーです。
func (m *Manager) Logout(c *gin.Context) {
	store := sessions.Default(c)
	sess := m.service.Sessions().Load(store)

	m.service.Logout(c.Request.Context(), &sess)
	if err := m.service.Sessions().Persist(store, sess); err != nil {
		// セッションは既に無効化済みのため、Cookie の削除失敗はログのみに留める
		logging.LogError(m.logger, "failed to clear session", err)
	}

	m.metrics.observe(flowLogout, outcomeSuccess)
	c.Redirect(http.StatusFound, "/")
}
