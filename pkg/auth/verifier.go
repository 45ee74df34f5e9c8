package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims は検証済みトークンのクレーム。リクエスト処理中のみ存在する。
type Claims struct {
	jwt.RegisteredClaims
	// Permissions はトークンに付与された権限の一覧。
	// クレームにpermissionsが無い場合はnilになる。
	Permissions []string `json:"permissions"`
}

// HasPermissions はpermissionsクレームが存在するかを返す。
func (c *Claims) HasPermissions() bool {
	return c.Permissions != nil
}

// Has は指定された権限が付与されているかを返す。
func (c *Claims) Has(permission string) bool {
	return slices.Contains(c.Permissions, permission)
}

// Verifier はBearerトークンを検証してクレームを返す。
// 失敗時は*AuthErrorを返す。
type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// TokenFromHeader はAuthorizationヘッダーの値からトークンを取り出す。
// "Bearer <token>" の2要素形式以外はinvalid_headerとして扱う。
func TokenFromHeader(header string) (string, error) {
	if header == "" {
		return "", newAuthError(CodeInvalidHeader, "Authorizationヘッダーが必要です", nil)
	}

	parts := strings.Split(header, " ")
	switch {
	case !strings.EqualFold(parts[0], "bearer"):
		return "", newAuthError(CodeInvalidHeader, "Authorizationヘッダーは \"Bearer\" で始まる必要があります", nil)
	case len(parts) == 1 || parts[1] == "":
		return "", newAuthError(CodeInvalidHeader, "トークンが見つかりません", nil)
	case len(parts) > 2:
		return "", newAuthError(CodeInvalidHeader, "Authorizationヘッダーはbearerトークン形式である必要があります", nil)
	}
	return parts[1], nil
}

// KeyProvider はkidに対応するRSA公開鍵を返す。
type KeyProvider interface {
	Key(ctx context.Context, kid string) (any, error)
}

// JWTConfig はJWTVerifierの設定。
type JWTConfig struct {
	// Issuer は期待する発行者（例: "https://example.auth0.com/"）。空の場合は検証しない。
	Issuer string
	// Audience は期待するオーディエンス。必須。
	Audience string
	// Algorithms は受け入れる署名アルゴリズム。
	Algorithms []string
	// Keys はRSA署名の検証鍵を提供する。RS系アルゴリズムを使う場合に必要。
	Keys KeyProvider
	// Secret はHS系アルゴリズムの共有秘密鍵。
	Secret []byte
	// Leeway は時刻検証で許容するずれ。
	Leeway time.Duration
}

// JWTVerifier はgolang-jwtでトークンを検証するVerifier実装。
type JWTVerifier struct {
	parser *jwt.Parser
	keys   KeyProvider
	secret []byte
}

// ErrNoVerificationKey はトークンの署名方式に対応する鍵が設定されていない場合のエラー。
var ErrNoVerificationKey = errors.New("検証鍵が設定されていません")

// ErrNoAudience はオーディエンスが設定されていない場合のエラー。
var ErrNoAudience = errors.New("オーディエンスが設定されていません")

// NewJWTVerifier は新しいJWTVerifierを生成する。
// 指定されたすべてのアルゴリズムに対応する検証鍵が必要。
func NewJWTVerifier(cfg JWTConfig) (*JWTVerifier, error) {
	if len(cfg.Algorithms) == 0 {
		return nil, errors.New("署名アルゴリズムが指定されていません")
	}
	for _, alg := range cfg.Algorithms {
		if err := checkKeySource(cfg, alg); err != nil {
			return nil, err
		}
	}
	if cfg.Audience == "" {
		return nil, ErrNoAudience
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(cfg.Algorithms),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	opts = append(opts, jwt.WithAudience(cfg.Audience))
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}

	return &JWTVerifier{
		parser: jwt.NewParser(opts...),
		keys:   cfg.Keys,
		secret: cfg.Secret,
	}, nil
}

// checkKeySource はアルゴリズムに対応する検証鍵が設定されているかを確認する。
func checkKeySource(cfg JWTConfig, alg string) error {
	switch jwt.GetSigningMethod(alg).(type) {
	case *jwt.SigningMethodHMAC:
		if len(cfg.Secret) == 0 {
			return fmt.Errorf("%w: %s には共有秘密鍵が必要です", ErrNoVerificationKey, alg)
		}
	case *jwt.SigningMethodRSA:
		if cfg.Keys == nil {
			return fmt.Errorf("%w: %s にはJWKSが必要です", ErrNoVerificationKey, alg)
		}
	default:
		return fmt.Errorf("未対応の署名アルゴリズム: %q", alg)
	}
	return nil
}

// Verify はトークンの署名・発行者・オーディエンス・有効期限を検証し、クレームを返す。
func (v *JWTVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, v.keyFunc(ctx))
	if err != nil {
		return nil, classify(err)
	}
	if !parsed.Valid {
		return nil, newAuthError(CodeInvalidHeader, "トークンを解析できません", nil)
	}
	return claims, nil
}

// keyFunc は署名方式に応じた検証鍵を返すjwt.Keyfuncを生成する。
func (v *JWTVerifier) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodHMAC:
			if len(v.secret) == 0 {
				return nil, ErrNoVerificationKey
			}
			return v.secret, nil
		case *jwt.SigningMethodRSA:
			if v.keys == nil {
				return nil, ErrNoVerificationKey
			}
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, fmt.Errorf("%w: kidヘッダーがありません", ErrKeyNotFound)
			}
			return v.keys.Key(ctx, kid)
		default:
			return nil, fmt.Errorf("未対応の署名方式: %v", t.Header["alg"])
		}
	}
}

// classify はgolang-jwtのエラーをAuthErrorに変換する。
func classify(err error) *AuthError {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return newAuthError(CodeTokenExpired, "トークンの有効期限が切れています", err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return newAuthError(CodeInvalidClaims, "クレームが不正です。オーディエンスと発行者を確認してください", err)
	case errors.Is(err, ErrKeyNotFound), errors.Is(err, ErrNoVerificationKey):
		return newAuthError(CodeInvalidHeader, "対応する署名鍵が見つかりません", err)
	default:
		return newAuthError(CodeInvalidHeader, "トークンを解析できません", err)
	}
}
