// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// Bearerトークンの検証と権限チェック、リクエストID付与、パニックリカバリ、
// CORS設定を含む。エラーレスポンスはすべて
// {"success": false, "error": <status>, "code": <code>, "message": <message>} 形式で返す。
package middleware
