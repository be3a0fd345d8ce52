package auth

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"

	"github.com/yourusername/cookie-auth/internal/storage"
)

const minPasswordLength = 6

// Credentials は1リクエストの間だけ存在する入力値です。
type Credentials struct {
	Name     string
	Email    string
	Password string
}

// ValidationResult は検証結果です。Errors が空なら有効です。
type ValidationResult struct {
	Errors   []string
	Name     string
	Email    string
	Password string
}

// Valid は全てのルールを満たしたかどうかを返します。
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Normalized は正規化済みの値を Credentials として返します。
func (r *ValidationResult) Normalized() Credentials {
	return Credentials{Name: r.Name, Email: r.Email, Password: r.Password}
}

func (r *ValidationResult) add(msg string) {
	r.Errors = append(r.Errors, msg)
}

// CredentialValidator は登録・ログイン入力の構造チェックとメールアドレスの存在確認を行います。
type CredentialValidator struct {
	users    storage.Store
	validate *validator.Validate
}

// NewCredentialValidator は CredentialValidator を作成します。
func NewCredentialValidator(users storage.Store) *CredentialValidator {
	return &CredentialValidator{
		users:    users,
		validate: validator.New(),
	}
}

// ValidateRegistration は登録入力を検証します。
// 全てのルールを評価し、メッセージはメール・名前・パスワードの順に蓄積されます。
// ストア障害はメッセージではなく error として返します。
func (v *CredentialValidator) ValidateRegistration(ctx context.Context, in Credentials) (*ValidationResult, error) {
	res := &ValidationResult{
		Name:     strings.TrimSpace(in.Name),
		Email:    in.Email,
		Password: strings.TrimSpace(in.Password),
	}

	if !v.isEmail(res.Email) {
		res.add(MsgInvalidEmail)
	}
	exists, err := v.emailExists(ctx, res.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		res.add(MsgEmailExists)
	}

	if res.Name == "" {
		res.add(MsgUsernameEmpty)
	}

	if utf8.RuneCountInString(res.Password) < minPasswordLength {
		res.add(MsgPasswordTooShort)
	}

	return res, nil
}

// ValidateLogin はログイン入力を検証します。パスワードの正否はここでは判定しません。
func (v *CredentialValidator) ValidateLogin(ctx context.Context, in Credentials) (*ValidationResult, error) {
	res := &ValidationResult{
		Name:     strings.TrimSpace(in.Name),
		Email:    in.Email,
		Password: strings.TrimSpace(in.Password),
	}

	exists, err := v.emailExists(ctx, res.Email)
	if err != nil {
		return nil, err
	}
	if !exists {
		res.add(MsgInvalidEmail)
	}

	if res.Password == "" {
		res.add(MsgPasswordEmpty)
	}

	return res, nil
}

func (v *CredentialValidator) isEmail(email string) bool {
	return v.validate.Var(email, "required,email") == nil
}

func (v *CredentialValidator) emailExists(ctx context.Context, email string) (bool, error) {
	_, err := v.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrNotFound):
		return false, nil
	default:
		return false, oops.Code("AUTH_STORE_FAILED").
			With("operation", "find user by email").
			Wrap(errors.Join(ErrStore, err))
	}
}
