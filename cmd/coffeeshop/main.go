// ドリンクメニューサービスのエントリポイント。
// ドリンクのCRUDを権限付きのHTTP APIとして提供する。
package main

import (
	"context"
	"log"

	"github.com/nao1215/coffeeshop/internal/drink"
)

func main() {
	cfg, err := drink.LoadConfig()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	server, err := drink.NewServer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("ドリンクサーバーの初期化に失敗: %v", err)
	}

	log.Printf("ドリンクサービスを起動します: :%s", cfg.Port)
	if err := server.Run(); err != nil {
		server.Close()
		log.Fatalf("ドリンクサービスの起動に失敗: %v", err)
	}
}
