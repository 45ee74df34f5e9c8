// Package drink はドリンクメニューサービスの内部実装を提供する。
//
// ドリンク（タイトルとレシピ）のCRUDをHTTP APIとして公開する。
// 一覧の取得以外の操作はBearerトークンに含まれる権限で保護される。
//
// 主なエンドポイント:
//   - GET    /drinks             公開メニュー（短縮表現）
//   - GET    /drinks-detail      詳細メニュー（get:drinks-detail）
//   - POST   /drinks             ドリンクの追加（post:drinks）
//   - PATCH  /drinks/:id         ドリンクの部分更新（patch:drinks）
//   - DELETE /drinks/:id         ドリンクの削除（delete:drinks）
//   - GET    /drinks/:id/history 変更履歴（get:drinks-detail）
package drink
