// Package httpclient は外部サービスとのJSON形式のHTTP通信を行うクライアントを提供する。
//
// 主にアイデンティティプロバイダが公開する署名鍵セット（JWKS）の取得に使用する。
// タイムアウト設定とエラーレスポンスの扱いを統一する。
package httpclient
