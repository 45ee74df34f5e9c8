package middleware

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/coffeeshop/pkg/auth"
)

// claimsKey はGinコンテキストに検証済みクレームを格納するキー。
const claimsKey = "auth_claims"

// RequirePermission は指定された権限を要求するGinミドルウェアを返す。
// トークンを検証し、権限が付与されている場合のみ後続のハンドラを実行する。
// 検証済みのクレームはGetClaimsで取得できる。
func RequirePermission(verifier auth.Verifier, permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.TokenFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			abortWithAuthError(c, err)
			return
		}

		claims, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			abortWithAuthError(c, err)
			return
		}

		if !claims.HasPermissions() {
			abortWithAuthError(c, auth.ErrMissingPermissions())
			return
		}
		if !claims.Has(permission) {
			abortWithAuthError(c, auth.ErrPermissionDenied(permission))
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// GetClaims はGinコンテキストから検証済みクレームを取得する。
// RequirePermissionミドルウェアが事前に適用されている必要がある。
func GetClaims(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

// abortWithAuthError はAuthErrorを共通のエラー形式で返す。
// AuthError以外のエラーは401として扱う。
func abortWithAuthError(c *gin.Context, err error) {
	var authErr *auth.AuthError
	if !errors.As(err, &authErr) {
		log.Printf("[Auth] request_id=%s 想定外の検証エラー: %v", GetRequestID(c), err)
		AbortWithError(c, http.StatusUnauthorized, auth.CodeInvalidHeader, "トークンを解析できません")
		return
	}
	if authErr.Err != nil {
		log.Printf("[Auth] request_id=%s %s: %v", GetRequestID(c), authErr.Code, authErr.Err)
	}
	AbortWithError(c, authErr.Status, authErr.Code, authErr.Description)
}
