package drink

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	drinkdb "github.com/nao1215/coffeeshop/internal/drink/db"
	"github.com/nao1215/coffeeshop/pkg/event"
	"github.com/nao1215/coffeeshop/pkg/migration"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store はドリンクの永続化境界。
// 存在しないIDにはErrNotFound、タイトルの重複にはErrConflictを返す。
type Store interface {
	// ListAll はすべてのドリンクをタイトル昇順で返す。
	ListAll(ctx context.Context) ([]Drink, error)
	// GetByID はIDでドリンクを返す。
	GetByID(ctx context.Context, id int64) (Drink, error)
	// Insert は新しいドリンクを保存し、採番されたIDを含めて返す。
	Insert(ctx context.Context, title string, recipe Recipe, actor string) (Drink, error)
	// Update は指定されたフィールドのみ変更し、更新後のドリンクを返す。
	Update(ctx context.Context, id int64, patch Patch, actor string) (Drink, error)
	// Delete はドリンクを削除し、削除したドリンクを返す。
	Delete(ctx context.Context, id int64, actor string) (Drink, error)
	// History はドリンクの変更履歴を古い順に返す。
	History(ctx context.Context, id int64) ([]event.Event, error)
}

// SQLStore はSQLiteを使うStore実装。
// 変更系の操作はドリンクの行と変更イベントを同一トランザクションで書き込む。
type SQLStore struct {
	db      *sql.DB
	queries *drinkdb.Queries
}

// NewSQLStore は新しいSQLStoreを生成する。スキーマは事前にMigrateで適用しておく。
func NewSQLStore(sqlDB *sql.DB) *SQLStore {
	return &SQLStore{
		db:      sqlDB,
		queries: drinkdb.New(sqlDB),
	}
}

// OpenDB はSQLiteデータベースを開いてスキーマを適用する。
// resetがtrueの場合は既存のテーブルをすべて削除してから作り直す。
func OpenDB(ctx context.Context, path string, reset bool) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("データベース接続の確認に失敗: %w", err)
	}

	if err := Migrate(ctx, sqlDB, reset); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}

// Migrate はドリンクサービスのスキーマを適用する。
func Migrate(ctx context.Context, sqlDB *sql.DB, reset bool) error {
	if reset {
		if err := migration.Reset(ctx, sqlDB); err != nil {
			return fmt.Errorf("データベースの初期化に失敗: %w", err)
		}
	}
	if err := migration.Run(ctx, sqlDB, migrationFS, "migrations"); err != nil {
		return fmt.Errorf("スキーマ適用に失敗: %w", err)
	}
	return nil
}

// ListAll はすべてのドリンクをタイトル昇順で返す。
func (s *SQLStore) ListAll(ctx context.Context) ([]Drink, error) {
	rows, err := s.queries.ListDrinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("ドリンク一覧の取得に失敗: %w", err)
	}

	drinks := make([]Drink, 0, len(rows))
	for _, row := range rows {
		d, err := toDrink(row)
		if err != nil {
			return nil, err
		}
		drinks = append(drinks, d)
	}
	return drinks, nil
}

// GetByID はIDでドリンクを返す。
func (s *SQLStore) GetByID(ctx context.Context, id int64) (Drink, error) {
	return getDrink(ctx, s.queries, id)
}

// Insert は新しいドリンクを保存する。
func (s *SQLStore) Insert(ctx context.Context, title string, recipe Recipe, actor string) (Drink, error) {
	recipeJSON, err := json.Marshal(recipe)
	if err != nil {
		return Drink{}, fmt.Errorf("レシピのシリアライズに失敗: %w", err)
	}

	var created Drink
	err = s.withTx(ctx, func(q *drinkdb.Queries) error {
		row, err := q.CreateDrink(ctx, drinkdb.CreateDrinkParams{
			Title:  title,
			Recipe: string(recipeJSON),
		})
		if err != nil {
			return translateWriteError("ドリンクの作成に失敗", err)
		}
		if created, err = toDrink(row); err != nil {
			return err
		}

		return appendEvent(ctx, q, created.ID, event.TypeDrinkCreated, event.DrinkCreatedData{
			Actor:  actor,
			Title:  created.Title,
			Recipe: recipeJSON,
		})
	})
	return created, err
}

// Update は指定されたフィールドのみ変更する。
// 変更内容が無い場合はValidationErrorを返す。
func (s *SQLStore) Update(ctx context.Context, id int64, patch Patch, actor string) (Drink, error) {
	if patch.IsEmpty() {
		return Drink{}, newValidationError(errors.New("titleまたはrecipeのいずれかが必要です"))
	}

	var updated Drink
	err := s.withTx(ctx, func(q *drinkdb.Queries) error {
		current, err := getDrink(ctx, q, id)
		if err != nil {
			return err
		}

		next := patch.apply(current)
		recipeJSON, err := json.Marshal(next.Recipe)
		if err != nil {
			return fmt.Errorf("レシピのシリアライズに失敗: %w", err)
		}

		row, err := q.UpdateDrink(ctx, drinkdb.UpdateDrinkParams{
			Title:  next.Title,
			Recipe: string(recipeJSON),
			ID:     id,
		})
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return translateWriteError("ドリンクの更新に失敗", err)
		}
		if updated, err = toDrink(row); err != nil {
			return err
		}

		data := event.DrinkUpdatedData{Actor: actor, Title: patch.Title}
		if patch.Recipe != nil {
			data.Recipe = recipeJSON
		}
		return appendEvent(ctx, q, id, event.TypeDrinkUpdated, data)
	})
	return updated, err
}

// Delete はドリンクを削除する。
func (s *SQLStore) Delete(ctx context.Context, id int64, actor string) (Drink, error) {
	var deleted Drink
	err := s.withTx(ctx, func(q *drinkdb.Queries) error {
		var err error
		if deleted, err = getDrink(ctx, q, id); err != nil {
			return err
		}

		n, err := q.DeleteDrink(ctx, id)
		if err != nil {
			return fmt.Errorf("ドリンクの削除に失敗: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}

		return appendEvent(ctx, q, id, event.TypeDrinkDeleted, event.DrinkDeletedData{
			Actor: actor,
			Title: deleted.Title,
		})
	})
	return deleted, err
}

// History はドリンクの変更履歴を古い順に返す。削除済みのドリンクの履歴も返す。
// 履歴が1件も無い場合はErrNotFoundを返す。
func (s *SQLStore) History(ctx context.Context, id int64) ([]event.Event, error) {
	rows, err := s.queries.ListEventsByAggregateID(ctx, aggregateID(id))
	if err != nil {
		return nil, fmt.Errorf("変更履歴の取得に失敗: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	events := make([]event.Event, 0, len(rows))
	for _, row := range rows {
		createdAt, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("イベント日時の解析に失敗: %w", err)
		}
		events = append(events, event.Event{
			ID:            row.ID,
			AggregateID:   row.AggregateID,
			AggregateType: event.AggregateType(row.AggregateType),
			EventType:     event.Type(row.EventType),
			Data:          json.RawMessage(row.Data),
			Version:       row.Version,
			CreatedAt:     createdAt,
		})
	}
	return events, nil
}

// withTx はトランザクション内でfnを実行する。fnがエラーを返した場合はロールバックする。
func (s *SQLStore) withTx(ctx context.Context, fn func(q *drinkdb.Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(s.queries.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗: %w", err)
	}
	return nil
}

// getDrink はIDでドリンクを取得する。存在しない場合はErrNotFoundを返す。
func getDrink(ctx context.Context, q *drinkdb.Queries, id int64) (Drink, error) {
	row, err := q.GetDrink(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Drink{}, fmt.Errorf("%w: id=%d", ErrNotFound, id)
	}
	if err != nil {
		return Drink{}, fmt.Errorf("ドリンクの取得に失敗: %w", err)
	}
	return toDrink(row)
}

// appendEvent はドリンクの変更イベントを次のバージョンとして追記する。
func appendEvent(ctx context.Context, q *drinkdb.Queries, id int64, eventType event.Type, data any) error {
	aggID := aggregateID(id)
	latest, err := q.LatestEventVersion(ctx, aggID)
	if err != nil {
		return fmt.Errorf("最新バージョンの取得に失敗: %w", err)
	}

	ev, err := event.New(aggID, event.AggregateTypeDrink, eventType, latest+1, data)
	if err != nil {
		return err
	}

	if err := q.AppendEvent(ctx, drinkdb.AppendEventParams{
		ID:            ev.ID,
		AggregateID:   ev.AggregateID,
		AggregateType: string(ev.AggregateType),
		EventType:     string(ev.EventType),
		Data:          string(ev.Data),
		Version:       ev.Version,
		CreatedAt:     ev.CreatedAt.Format(time.RFC3339Nano),
	}); err != nil {
		return fmt.Errorf("変更イベントの記録に失敗: %w", err)
	}
	return nil
}

// aggregateID はドリンクIDをイベントのAggregateIDに変換する。
func aggregateID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// toDrink はDB行をDrinkに変換する。
func toDrink(row drinkdb.Drink) (Drink, error) {
	recipe, err := decodeRecipe(json.RawMessage(row.Recipe))
	if err != nil {
		return Drink{}, fmt.Errorf("id=%d のレシピを読み込めません: %w", row.ID, err)
	}
	return Drink{ID: row.ID, Title: row.Title, Recipe: recipe}, nil
}

// translateWriteError はタイトルの一意制約違反をErrConflictに変換する。
func translateWriteError(msg string, err error) error {
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// isUniqueViolation は一意制約違反かを返す。
// 拡張リザルトコードが無効な接続では基本コードとメッセージで判定する。
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), "UNIQUE")
}
