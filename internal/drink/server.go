package drink

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/coffeeshop/pkg/auth"
	"github.com/nao1215/coffeeshop/pkg/middleware"
)

// 各エンドポイントが要求する権限。
const (
	// PermissionGetDrinksDetail は詳細メニューと変更履歴の閲覧権限。
	PermissionGetDrinksDetail = "get:drinks-detail"
	// PermissionPostDrinks はドリンクの追加権限。
	PermissionPostDrinks = "post:drinks"
	// PermissionPatchDrinks はドリンクの更新権限。
	PermissionPatchDrinks = "patch:drinks"
	// PermissionDeleteDrinks はドリンクの削除権限。
	PermissionDeleteDrinks = "delete:drinks"
)

// Server はドリンクサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// store はドリンクの永続化境界。
	store Store
	// verifier はBearerトークンの検証器。
	verifier auth.Verifier
	// db はSQLiteデータベース接続。Closeで閉じる。
	db *sql.DB
}

// NewServer は設定から新しいドリンクサーバーを生成する。
// データベースの接続とスキーマ適用、トークン検証器の構築を行う。
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	verifier, err := cfg.NewVerifier()
	if err != nil {
		return nil, fmt.Errorf("トークン検証器の初期化に失敗: %w", err)
	}

	sqlDB, err := OpenDB(ctx, cfg.DatabasePath, cfg.ResetDatabase)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Logger())

	s := newServer(router, cfg.Port, NewSQLStore(sqlDB), verifier, cfg.AllowedOrigins)
	s.db = sqlDB
	return s, nil
}

// newServer は依存を受け取ってサーバーを組み立てる。
func newServer(router *gin.Engine, port string, store Store, verifier auth.Verifier, allowedOrigins []string) *Server {
	router.HandleMethodNotAllowed = true
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS(allowedOrigins))

	s := &Server{
		router:   router,
		port:     port,
		store:    store,
		verifier: verifier,
	}
	s.setupRoutes()
	return s
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// Close はデータベース接続を閉じる。
func (s *Server) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	requires := func(permission string) gin.HandlerFunc {
		return middleware.RequirePermission(s.verifier, permission)
	}

	// 公開メニュー（認証不要）
	s.router.GET("/drinks", s.handleList())
	// 詳細メニュー
	s.router.GET("/drinks-detail", requires(PermissionGetDrinksDetail), s.handleListDetail())
	// ドリンク追加
	s.router.POST("/drinks", requires(PermissionPostDrinks), s.handleCreate())
	// ドリンク更新
	s.router.PATCH("/drinks/:id", requires(PermissionPatchDrinks), s.handleUpdate())
	// ドリンク削除
	s.router.DELETE("/drinks/:id", requires(PermissionDeleteDrinks), s.handleDelete())
	// 変更履歴
	s.router.GET("/drinks/:id/history", requires(PermissionGetDrinksDetail), s.handleHistory())

	s.router.NoRoute(func(c *gin.Context) {
		abort(c, ErrNotFound)
	})
	s.router.NoMethod(func(c *gin.Context) {
		middleware.AbortWithError(c, http.StatusMethodNotAllowed, "method_not_allowed", "許可されていないメソッドです")
	})

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "coffeeshop"})
	})
}
