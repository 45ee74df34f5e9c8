package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://coffee.example.com/"
	testAudience = "drinks"
	testSecret   = "test-secret-key-for-unit-tests"
)

// jwksServer はテスト用のJWKSエンドポイント。
type jwksServer struct {
	*httptest.Server
	// hits はJWKSが取得された回数。
	hits atomic.Int32
	// keys は公開中のkidと秘密鍵の組。
	keys atomic.Pointer[map[string]*rsa.PrivateKey]
}

// newJWKSServer は指定した鍵を公開するJWKSサーバーを起動する。
func newJWKSServer(t *testing.T, keys map[string]*rsa.PrivateKey) *jwksServer {
	t.Helper()

	s := &jwksServer{}
	s.publish(keys)
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/jwks.json" {
			http.NotFound(w, r)
			return
		}
		s.hits.Add(1)

		set := jsonWebKeySet{}
		for kid, key := range *s.keys.Load() {
			set.Keys = append(set.Keys, jsonWebKey{
				Kty: "RSA",
				Use: "sig",
				Alg: "RS256",
				Kid: kid,
				N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(s.Close)
	return s
}

// publish は公開する鍵を差し替える。
func (s *jwksServer) publish(keys map[string]*rsa.PrivateKey) {
	s.keys.Store(&keys)
}

// jwksURL はJWKSエンドポイントのURLを返す。
func (s *jwksServer) jwksURL() string {
	return s.URL + "/.well-known/jwks.json"
}

// newRSAKey はテスト用のRSA秘密鍵を生成する。
func newRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

// tokenOption はテスト用トークンのクレームを変更する。
type tokenOption func(jwt.MapClaims)

func withExpiry(d time.Duration) tokenOption {
	return func(c jwt.MapClaims) { c["exp"] = time.Now().Add(d).Unix() }
}

func withIssuer(iss string) tokenOption {
	return func(c jwt.MapClaims) { c["iss"] = iss }
}

func withAudience(aud string) tokenOption {
	return func(c jwt.MapClaims) { c["aud"] = aud }
}

func withoutPermissions() tokenOption {
	return func(c jwt.MapClaims) { delete(c, "permissions") }
}

// baseClaims は検証に成功する既定のクレームを返す。
func baseClaims(permissions []string, opts ...tokenOption) jwt.MapClaims {
	claims := jwt.MapClaims{
		"iss":         testIssuer,
		"aud":         testAudience,
		"sub":         "auth0|barista",
		"iat":         time.Now().Unix(),
		"exp":         time.Now().Add(time.Hour).Unix(),
		"permissions": permissions,
	}
	for _, opt := range opts {
		opt(claims)
	}
	return claims
}

// signRS256 はkidヘッダー付きのRS256トークンを生成する。
func signRS256(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

// signHS256 は共有秘密鍵でHS256トークンを生成する。
func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}
