package drink

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nao1215/coffeeshop/pkg/auth"
)

// Config はドリンクサービスの設定。起動時に1度だけ構築し、サーバーに渡す。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string
	// DatabasePath はSQLiteデータベースファイルのパス。
	DatabasePath string
	// ResetDatabase がtrueの場合、起動時に全テーブルを削除して作り直す。
	ResetDatabase bool
	// AuthDomain はアイデンティティプロバイダのドメイン（例: "coffee.auth0.com"）。
	AuthDomain string
	// Audience はトークンに期待するオーディエンス。
	Audience string
	// Algorithms は受け入れる署名アルゴリズム。
	Algorithms []string
	// JWTSecret はHS256トークン用の共有秘密鍵。開発用。
	JWTSecret string
	// JWKSURL は署名鍵セットのURL。空の場合はAuthDomainから導出する。
	JWKSURL string
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string
}

// LoadConfig は環境変数から設定を読み込む。
func LoadConfig() (Config, error) {
	return loadConfig(os.Getenv)
}

// loadConfig はgetenvから設定を読み込む。
func loadConfig(getenv func(string) string) (Config, error) {
	getEnvOr := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback
	}

	reset := false
	if v := getenv("DB_RESET"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("DB_RESETの値が不正です: %q", v)
		}
		reset = b
	}

	cfg := Config{
		Port:           getEnvOr("PORT", "8080"),
		DatabasePath:   getEnvOr("DATABASE_PATH", "/data/coffeeshop.db"),
		ResetDatabase:  reset,
		AuthDomain:     strings.TrimSuffix(strings.TrimPrefix(getenv("AUTH0_DOMAIN"), "https://"), "/"),
		Audience:       getenv("API_AUDIENCE"),
		Algorithms:     splitList(getenv("ALGORITHMS")),
		JWTSecret:      getenv("JWT_SECRET"),
		JWKSURL:        getenv("JWKS_URL"),
		AllowedOrigins: splitList(getEnvOr("ALLOWED_ORIGINS", "http://localhost:8100")),
	}

	switch {
	case cfg.AuthDomain == "" && cfg.JWTSecret == "" && cfg.JWKSURL == "":
		return Config{}, errors.New("AUTH0_DOMAIN、JWKS_URL、JWT_SECRETのいずれかが必要です")
	case cfg.JWKSURL != "" && cfg.AuthDomain == "":
		return Config{}, errors.New("JWKS_URLを指定する場合はAUTH0_DOMAINも必要です")
	case cfg.Audience == "":
		return Config{}, errors.New("API_AUDIENCEが必要です")
	}

	// 既定のアルゴリズムは設定された検証鍵の種類に合わせる
	if len(cfg.Algorithms) == 0 {
		if cfg.AuthDomain != "" {
			cfg.Algorithms = []string{"RS256"}
		} else {
			cfg.Algorithms = []string{"HS256"}
		}
	}
	return cfg, nil
}

// Issuer はトークンに期待する発行者を返す。
func (c Config) Issuer() string {
	if c.AuthDomain == "" {
		return ""
	}
	return "https://" + c.AuthDomain + "/"
}

// jwksURL は署名鍵セットのURLを返す。
func (c Config) jwksURL() string {
	if c.JWKSURL != "" {
		return c.JWKSURL
	}
	if c.AuthDomain == "" {
		return ""
	}
	return "https://" + c.AuthDomain + "/.well-known/jwks.json"
}

// NewVerifier は設定に従ってトークン検証器を生成する。
func (c Config) NewVerifier() (auth.Verifier, error) {
	jwtCfg := auth.JWTConfig{
		Issuer:     c.Issuer(),
		Audience:   c.Audience,
		Algorithms: c.Algorithms,
	}
	if c.JWTSecret != "" {
		jwtCfg.Secret = []byte(c.JWTSecret)
	}
	if u := c.jwksURL(); u != "" {
		keys, err := auth.NewKeySet(u)
		if err != nil {
			return nil, err
		}
		jwtCfg.Keys = keys
	}
	return auth.NewJWTVerifier(jwtCfg)
}

// splitList はカンマ区切りの文字列を分割し、空要素を除く。
func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
