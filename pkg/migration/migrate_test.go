package migration

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

// openTestDB はテスト用のインメモリSQLiteを開く。
// インメモリDBは接続ごとに別データベースになるため接続数を1に制限する。
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

// tableExists は指定したテーブルが存在するかを返す。
func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n)
	if err != nil {
		t.Fatalf("テーブル存在確認に失敗: %v", err)
	}
	return n == 1
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"migrations/000001_create_drinks.up.sql":   {Data: []byte("CREATE TABLE drinks (id INTEGER PRIMARY KEY, title TEXT NOT NULL);")},
		"migrations/000001_create_drinks.down.sql": {Data: []byte("DROP TABLE drinks;")},
		"migrations/000002_add_events.up.sql":      {Data: []byte("CREATE TABLE drink_events (id TEXT PRIMARY KEY);")},
		"migrations/README.md":                     {Data: []byte("ignored")},
		"migrations/notes.up.sql":                  {Data: []byte("this is not sql")},
	}
}

// TestRun はRun関数を検証する。
func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("未適用のマイグレーションがバージョン順に適用されること", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		if err := Run(context.Background(), db, testFS(), "migrations"); err != nil {
			t.Fatalf("Run()でエラーが発生: %v", err)
		}

		for _, table := range []string{"schema_migrations", "drinks", "drink_events"} {
			if !tableExists(t, db, table) {
				t.Errorf("テーブル %s が作成されていない", table)
			}
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("適用済みバージョン数の取得に失敗: %v", err)
		}
		if count != 2 {
			t.Errorf("適用済みバージョン数 = %d, want 2", count)
		}
	})

	t.Run("2回実行しても適用済みのものはスキップされること", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		for i := range 2 {
			if err := Run(context.Background(), db, testFS(), "migrations"); err != nil {
				t.Fatalf("%d回目のRun()でエラーが発生: %v", i+1, err)
			}
		}
	})

	t.Run("SQLが失敗した場合はバージョンが記録されないこと", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		fsys := fstest.MapFS{
			"migrations/000001_broken.up.sql": {Data: []byte("CREATE TABLE broken (")},
		}
		if err := Run(context.Background(), db, fsys, "migrations"); err == nil {
			t.Fatal("不正なSQLでエラーが返るべき")
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("適用済みバージョン数の取得に失敗: %v", err)
		}
		if count != 0 {
			t.Errorf("適用済みバージョン数 = %d, want 0", count)
		}
	})

	t.Run("バージョンが重複している場合はエラー", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		fsys := fstest.MapFS{
			"migrations/000001_a.up.sql": {Data: []byte("CREATE TABLE a (id INTEGER);")},
			"migrations/000001_b.up.sql": {Data: []byte("CREATE TABLE b (id INTEGER);")},
		}
		if err := Run(context.Background(), db, fsys, "migrations"); err == nil {
			t.Fatal("重複バージョンでエラーが返るべき")
		}
	})

	t.Run("ディレクトリが存在しない場合はエラー", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		if err := Run(context.Background(), db, fstest.MapFS{}, "missing"); err == nil {
			t.Fatal("存在しないディレクトリでエラーが返るべき")
		}
	})
}

// TestReset はReset関数を検証する。
func TestReset(t *testing.T) {
	t.Parallel()

	t.Run("全テーブルを削除し再適用できること", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		ctx := context.Background()
		if err := Run(ctx, db, testFS(), "migrations"); err != nil {
			t.Fatalf("Run()でエラーが発生: %v", err)
		}
		if _, err := db.Exec("INSERT INTO drinks (title) VALUES ('Water')"); err != nil {
			t.Fatalf("テストデータの挿入に失敗: %v", err)
		}

		if err := Reset(ctx, db); err != nil {
			t.Fatalf("Reset()でエラーが発生: %v", err)
		}
		for _, table := range []string{"schema_migrations", "drinks", "drink_events"} {
			if tableExists(t, db, table) {
				t.Errorf("テーブル %s が削除されていない", table)
			}
		}

		if err := Run(ctx, db, testFS(), "migrations"); err != nil {
			t.Fatalf("再適用でエラーが発生: %v", err)
		}
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM drinks").Scan(&count); err != nil {
			t.Fatalf("件数の取得に失敗: %v", err)
		}
		if count != 0 {
			t.Errorf("drinksの件数 = %d, want 0", count)
		}
	})

	t.Run("空のデータベースでもエラーにならないこと", func(t *testing.T) {
		t.Parallel()

		if err := Reset(context.Background(), openTestDB(t)); err != nil {
			t.Fatalf("Reset()でエラーが発生: %v", err)
		}
	})
}
