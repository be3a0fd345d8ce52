package auth

import (
	"errors"
	"strings"
)

// 利用者に表示するメッセージ
const (
	MsgInvalidEmail     = "Invalid Email Address!"
	MsgEmailExists      = "This Email already exist!"
	MsgUsernameEmpty    = "Username is empty"
	MsgPasswordTooShort = "The password must be minimum length 6 Characters"
	MsgPasswordEmpty    = "Password is empty"
	MsgInvalidPassword  = "Invalid Password"
)

var (
	// ErrStore はユーザーストアの障害を表します。リクエストは失敗として扱います。
	ErrStore = errors.New("auth: user store failure")
	// ErrHashing はパスワードハッシュ処理の障害を表します。リクエストは失敗として扱います。
	ErrHashing = errors.New("auth: password hashing failure")
)

// ValidationError は入力検証で見つかった全てのメッセージを保持します。
type ValidationError struct {
	Messages []string
	Input    Credentials // 正規化済みの入力（再表示用）
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// AuthenticationError はパスワード不一致を表します。他のメッセージとは混ぜずに単独で返します。
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	return e.Message
}
