// Package auth はBearerトークンの検証とクレームの取り出しを提供する。
//
// アイデンティティプロバイダが発行したJWTの署名・発行者・オーディエンス・有効期限を検証し、
// 権限（permissions）を含むクレームを返す。検証処理はVerifierインターフェースとして
// 公開しているため、HTTP層のテストでは偽の実装に差し替えられる。
package auth
