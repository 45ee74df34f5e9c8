package middleware

import (
	"github.com/gin-gonic/gin"
)

// AbortWithError はエラーレスポンスを書き込み、後続のハンドラを中断する。
// アプリケーション全体で共通のエラー形式を使用する。
func AbortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   status,
		"code":    code,
		"message": message,
	})
}
