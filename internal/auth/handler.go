package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSuccessMessage は登録成功時に返すメッセージです。
const RegisterSuccessMessage = "Your account has been created successfully, Now you can Login"

// ログイン/登録画面とホーム画面の識別子
const (
	viewLoginRegister = "login-register"
	viewHome          = "home"
)

// credentialsRequest はフォーム/JSONの入力です。フィールド名は既存フォームに合わせています。
type credentialsRequest struct {
	Name     string `form:"user_name" json:"user_name"`
	Email    string `form:"user_email" json:"user_email"`
	Password string `form:"user_pass" json:"user_pass"`
}

func (r credentialsRequest) credentials() Credentials {
	return Credentials{Name: r.Name, Email: r.Email, Password: r.Password}
}

func respondInvalidInput(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    "INVALID_INPUT",
		"message": "user_email と user_pass をフォームまたは JSON で送ってください",
	})
}

// respondAuthError は検証エラーと認証エラーを描画します。それ以外の場合は false を返します。
func respondAuthError(c *gin.Context, err error, echoInput bool) bool {
	var validationErr *ValidationError
	var authErr *AuthenticationError
	switch {
	case errors.As(err, &validationErr):
		body := gin.H{
			"code":   "VALIDATION_FAILED",
			"view":   viewLoginRegister,
			"errors": validationErr.Messages,
		}
		if echoInput {
			body["input"] = gin.H{
				"user_name":  validationErr.Input.Name,
				"user_email": validationErr.Input.Email,
			}
		}
		c.JSON(http.StatusBadRequest, body)
		return true
	case errors.As(err, &authErr):
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":   "INVALID_PASSWORD",
			"view":   viewLoginRegister,
			"errors": []string{authErr.Message},
		})
		return true
	default:
		return false
	}
}

func respondInternalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "INTERNAL_ERROR",
		"message": "サーバー内部でエラーが発生しました。",
	})
}

// NotFound は未定義のパスに対するハンドラーです。
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"code":    "NOT_FOUND",
		"message": "Page not found!",
	})
}
