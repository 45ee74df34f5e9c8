package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/url"
	"sync"
	"time"

	"github.com/nao1215/coffeeshop/pkg/httpclient"
	"golang.org/x/sync/singleflight"
)

// ErrKeyNotFound はkidに対応する署名鍵が鍵セットに存在しない場合のエラー。
var ErrKeyNotFound = errors.New("署名鍵が見つかりません")

// defaultMinRefreshInterval は未知のkidによる鍵セット再取得の最小間隔。
const defaultMinRefreshInterval = 30 * time.Second

// jsonWebKey はJWKSの1エントリ。RSA鍵に必要なフィールドのみ扱う。
type jsonWebKey struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// jsonWebKeySet はJWKSエンドポイントのレスポンス。
type jsonWebKeySet struct {
	Keys []jsonWebKey `json:"keys"`
}

// KeySet はアイデンティティプロバイダの署名鍵をkid単位でキャッシュする。
// 未知のkidを受け取った場合にのみ鍵セットを再取得する。
type KeySet struct {
	client *httpclient.Client
	path   string
	// minRefreshInterval は再取得の最小間隔。不正なkidによる取得の連打を防ぐ。
	minRefreshInterval time.Duration
	now                func() time.Time

	group singleflight.Group

	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	lastRefresh time.Time
}

// NewKeySet はJWKSのURLから鍵セットを生成する。鍵は最初の検証時に取得する。
func NewKeySet(jwksURL string, opts ...httpclient.Option) (*KeySet, error) {
	u, err := url.Parse(jwksURL)
	if err != nil {
		return nil, fmt.Errorf("JWKS URLの解析に失敗: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("JWKS URLが不正です: %q", jwksURL)
	}

	path := u.EscapedPath()
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	return &KeySet{
		client:             httpclient.New(u.Scheme+"://"+u.Host, opts...),
		path:               path,
		minRefreshInterval: defaultMinRefreshInterval,
		now:                time.Now,
		keys:               map[string]*rsa.PublicKey{},
	}, nil
}

// Key はkidに対応するRSA公開鍵を返す。
// キャッシュに無い場合は鍵セットを再取得してから再度探す。
func (s *KeySet) Key(ctx context.Context, kid string) (any, error) {
	if key, ok := s.lookup(kid); ok {
		return key, nil
	}

	if err := s.refresh(ctx); err != nil {
		return nil, err
	}

	if key, ok := s.lookup(kid); ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: kid=%s", ErrKeyNotFound, kid)
}

// lookup はキャッシュからkidに対応する鍵を探す。
func (s *KeySet) lookup(kid string) (*rsa.PublicKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[kid]
	return key, ok
}

// refresh は鍵セットを再取得してキャッシュを置き換える。
// 同時に呼ばれた場合も取得は1回にまとめる。
func (s *KeySet) refresh(ctx context.Context) error {
	s.mu.RLock()
	recent := !s.lastRefresh.IsZero() && s.now().Sub(s.lastRefresh) < s.minRefreshInterval
	s.mu.RUnlock()
	if recent {
		return nil
	}

	// 取得は待機中の全リクエストで共有するため、呼び出し元のキャンセルを伝播させない。
	// 上限はHTTPクライアントのタイムアウトで決まる。
	fetchCtx := context.WithoutCancel(ctx)
	_, err, _ := s.group.Do("jwks", func() (any, error) {
		var set jsonWebKeySet
		if err := s.client.GetJSON(fetchCtx, s.path, &set); err != nil {
			return nil, fmt.Errorf("JWKSの取得に失敗: %w", err)
		}

		keys := make(map[string]*rsa.PublicKey, len(set.Keys))
		for _, k := range set.Keys {
			if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") || k.Kid == "" {
				continue
			}
			pub, err := k.rsaPublicKey()
			if err != nil {
				log.Printf("[JWKS] kid=%s の鍵を読み込めません: %v", k.Kid, err)
				continue
			}
			keys[k.Kid] = pub
		}

		s.mu.Lock()
		s.keys = keys
		s.lastRefresh = s.now()
		s.mu.Unlock()
		return nil, nil
	})
	return err
}

// rsaPublicKey はJWKのn, eからRSA公開鍵を復元する。
func (k jsonWebKey) rsaPublicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("modulusのデコードに失敗: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("exponentのデコードに失敗: %w", err)
	}
	if len(nBytes) == 0 || len(eBytes) == 0 {
		return nil, errors.New("modulusまたはexponentが空です")
	}

	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() > int64(^uint32(0)>>1) {
		return nil, errors.New("exponentが大きすぎます")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(e.Int64()),
	}, nil
}
