package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/yourusername/cookie-auth/internal/logging"
	"github.com/yourusername/cookie-auth/internal/storage"
)

// Route はゲート判定の対象となる画面・操作の種別です。
type Route int

const (
	// RouteRoot は GET / です。認証済みならホーム、未認証ならログイン/登録画面を表示します。
	RouteRoot Route = iota
	// RouteGuestOnly はログイン・登録のように未認証の利用者だけが実行する操作です。
	RouteGuestOnly
	// RouteMembersOnly は認証済みの利用者だけが参照できる操作です。
	RouteMembersOnly
)

// RouteDecision はゲート判定の結果です。
type RouteDecision int

const (
	ProceedAnonymous RouteDecision = iota
	ProceedAuthenticated
	RedirectHome
)

func (d RouteDecision) String() string {
	switch d {
	case ProceedAuthenticated:
		return "proceed_authenticated"
	case RedirectHome:
		return "redirect_home"
	default:
		return "proceed_anonymous"
	}
}

// ActivityKind は記録するアクティビティの種類です。
type ActivityKind string

const (
	ActivityRegistered ActivityKind = "registered"
	ActivityLogin      ActivityKind = "login"
	ActivityLogout     ActivityKind = "logout"
)

// ActivityRecorder は認証イベントを非同期に記録します。失敗しても認証結果には影響しません。
type ActivityRecorder interface {
	RecordActivity(ctx context.Context, userID string, kind ActivityKind) error
}

// Service は検証・ハッシュ・セッション発行の順序を管理します。
type Service struct {
	users     storage.Store
	validator *CredentialValidator
	hasher    *PasswordHasher
	sessions  *SessionManager
	activity  ActivityRecorder
	logger    *slog.Logger
}

// NewService は Service を作成します。activity と logger は nil でも構いません。
func NewService(users storage.Store, hasher *PasswordHasher, sessions *SessionManager, activity ActivityRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:     users,
		validator: NewCredentialValidator(users),
		hasher:    hasher,
		sessions:  sessions,
		activity:  activity,
		logger:    logger,
	}
}

// Sessions はセッションマネージャーを返します。
func (s *Service) Sessions() *SessionManager {
	return s.sessions
}

// Gate はリクエストを処理する前の前提条件を評価します。
func (s *Service) Gate(sess Session, route Route) RouteDecision {
	state, _ := s.sessions.Read(sess)
	authenticated := state == StateAuthenticated

	switch route {
	case RouteGuestOnly:
		if authenticated {
			return RedirectHome
		}
		return ProceedAnonymous
	default:
		if authenticated {
			return ProceedAuthenticated
		}
		return ProceedAnonymous
	}
}

// Register は新しいアカウントを登録します。
// 入力エラーは *ValidationError、ストア/ハッシュの障害は ErrStore/ErrHashing を含むエラーで返します。
// 検証を通過した後の重複（同時登録）もストア障害として扱います。
func (s *Service) Register(ctx context.Context, in Credentials) (*storage.User, error) {
	res, err := s.validator.ValidateRegistration(ctx, in)
	if err != nil {
		return nil, err
	}
	if !res.Valid() {
		return nil, &ValidationError{Messages: res.Errors, Input: res.Normalized()}
	}

	hash, err := s.hasher.Hash(ctx, res.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, res.Name, res.Email, hash)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, oops.Code("AUTH_STORE_CONFLICT").
				With("operation", "create user").
				Wrap(errors.Join(ErrStore, err))
		}
		return nil, oops.Code("AUTH_STORE_FAILED").
			With("operation", "create user").
			Wrap(errors.Join(ErrStore, err))
	}

	s.logger.Info("user registered", "user_id", user.ID)
	s.recordActivity(ctx, user.ID, ActivityRegistered)
	return user, nil
}

// Login は資格情報を検証し、成功した場合に sess を認証済みにします。
// パスワード不一致は *AuthenticationError を単独で返し、sess は変更しません。
func (s *Service) Login(ctx context.Context, sess *Session, in Credentials) (*storage.User, error) {
	res, err := s.validator.ValidateLogin(ctx, in)
	if err != nil {
		return nil, err
	}
	if !res.Valid() {
		return nil, &ValidationError{Messages: res.Errors, Input: res.Normalized()}
	}

	user, err := s.users.FindByEmail(ctx, res.Email)
	if err != nil {
		return nil, oops.Code("AUTH_STORE_FAILED").
			With("operation", "load user for login").
			Wrap(errors.Join(ErrStore, err))
	}

	ok, err := s.hasher.Verify(ctx, res.Password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &AuthenticationError{Message: MsgInvalidPassword}
	}

	s.sessions.Issue(sess, user.ID)
	s.logger.Info("user logged in", "user_id", user.ID)
	s.recordActivity(ctx, user.ID, ActivityLogin)
	return user, nil
}

// Logout はセッションを無条件に破棄します。
func (s *Service) Logout(ctx context.Context, sess *Session) {
	state, userID := s.sessions.Read(*sess)
	s.sessions.Terminate(sess)
	if state == StateAuthenticated {
		s.logger.Info("user logged out", "user_id", userID)
		s.recordActivity(ctx, userID, ActivityLogout)
	}
}

// Home は認証済みセッションのユーザーを返します。
// セッションが未認証、またはユーザーが既に存在しない場合は sess を破棄して (nil, nil) を返します。
func (s *Service) Home(ctx context.Context, sess *Session) (*storage.User, error) {
	state, userID := s.sessions.Read(*sess)
	if state != StateAuthenticated {
		return nil, nil
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.sessions.Terminate(sess)
			return nil, nil
		}
		return nil, oops.Code("AUTH_STORE_FAILED").
			With("operation", "load user for home").
			With("user_id", userID).
			Wrap(errors.Join(ErrStore, err))
	}
	return user, nil
}

func (s *Service) recordActivity(ctx context.Context, userID string, kind ActivityKind) {
	if s.activity == nil {
		return
	}
	if err := s.activity.RecordActivity(ctx, userID, kind); err != nil {
		logging.LogError(s.logger.With("user_id", userID, "kind", string(kind)), "failed to record activity", err)
	}
}
