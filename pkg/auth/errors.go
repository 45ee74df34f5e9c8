package auth

import (
	"fmt"
	"net/http"
)

// 認証エラーの機械可読コード。
const (
	// CodeInvalidHeader はAuthorizationヘッダーまたはトークン自体が不正であることを表す。
	CodeInvalidHeader = "invalid_header"
	// CodeTokenExpired はトークンの有効期限切れを表す。
	CodeTokenExpired = "token_expired"
	// CodeInvalidClaims は発行者・オーディエンス等のクレームが不正であることを表す。
	CodeInvalidClaims = "invalid_claims"
	// CodeUnauthorized は要求された権限がトークンに含まれないことを表す。
	CodeUnauthorized = "unauthorized"
)

// AuthError は認証・認可の失敗を表す。
// HTTPステータスコードと機械可読コード、利用者向けの説明を持つ。
type AuthError struct {
	// Status はレスポンスに使用するHTTPステータスコード。
	Status int
	// Code は機械可読なエラーコード。
	Code string
	// Description は利用者向けの説明。
	Description string
	// Err は原因となったエラー。
	Err error
}

// Error はエラーメッセージを返す。
func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Description, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Unwrap は原因となったエラーを返す。
func (e *AuthError) Unwrap() error {
	return e.Err
}

// newAuthError は401のAuthErrorを生成する。
func newAuthError(code, description string, err error) *AuthError {
	return &AuthError{
		Status:      http.StatusUnauthorized,
		Code:        code,
		Description: description,
		Err:         err,
	}
}

// ErrMissingPermissions はクレームにpermissionsが含まれない場合のエラー。
func ErrMissingPermissions() *AuthError {
	return &AuthError{
		Status:      http.StatusBadRequest,
		Code:        CodeInvalidClaims,
		Description: "トークンに権限情報が含まれていません",
	}
}

// ErrPermissionDenied は要求された権限が付与されていない場合のエラー。
func ErrPermissionDenied(permission string) *AuthError {
	return &AuthError{
		Status:      http.StatusForbidden,
		Code:        CodeUnauthorized,
		Description: fmt.Sprintf("権限 %q がありません", permission),
	}
}
