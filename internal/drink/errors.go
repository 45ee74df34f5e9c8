package drink

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/coffeeshop/pkg/middleware"
)

var (
	// ErrNotFound は指定されたドリンクが存在しない場合のエラー。
	ErrNotFound = errors.New("ドリンクが見つかりません")
	// ErrConflict は同じタイトルのドリンクが既に存在する場合のエラー。
	ErrConflict = errors.New("同じタイトルのドリンクが既に存在します")
)

// ValidationError はリクエスト内容が不正な場合のエラー。422として扱う。
type ValidationError struct {
	Err error
}

func newValidationError(err error) *ValidationError {
	return &ValidationError{Err: err}
}

// Error はエラーメッセージを返す。
func (e *ValidationError) Error() string {
	return e.Err.Error()
}

// Unwrap は原因となったエラーを返す。
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BadRequestError はリクエストボディを解釈できない場合のエラー。400として扱う。
type BadRequestError struct {
	Message string
}

// Error はエラーメッセージを返す。
func (e *BadRequestError) Error() string {
	return e.Message
}

// abort はエラーの種類に応じたステータスコードで共通形式のエラーレスポンスを返す。
// 想定外のエラーのみ500として扱い、ログに出力する。
func abort(c *gin.Context, err error) {
	var (
		validationErr *ValidationError
		badRequestErr *BadRequestError
	)

	switch {
	case errors.Is(err, ErrNotFound):
		middleware.AbortWithError(c, http.StatusNotFound, "not_found", "リソースが見つかりません")
	case errors.Is(err, ErrConflict):
		middleware.AbortWithError(c, http.StatusConflict, "conflict", ErrConflict.Error())
	case errors.As(err, &validationErr):
		middleware.AbortWithError(c, http.StatusUnprocessableEntity, "unprocessable", validationErr.Error())
	case errors.As(err, &badRequestErr):
		middleware.AbortWithError(c, http.StatusBadRequest, "bad_request", badRequestErr.Error())
	default:
		log.Printf("[ERROR] request_id=%s %s %s: %v", middleware.GetRequestID(c), c.Request.Method, c.Request.URL.Path, err)
		middleware.AbortWithError(c, http.StatusInternalServerError, "internal_server_error", "内部サーバーエラーが発生しました")
	}
}
