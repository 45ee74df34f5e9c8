package event

import (
	"encoding/json"
	"time"
)

// AggregateType はイベントの対象となるエンティティの種類を表す。
type AggregateType string

const (
	// AggregateTypeDrink はドリンクエンティティを表す。
	AggregateTypeDrink AggregateType = "Drink"
)

// Type はイベントの種類を表す。
type Type string

const (
	// TypeDrinkCreated はドリンクがメニューに追加されたことを表す。
	TypeDrinkCreated Type = "DrinkCreated"
	// TypeDrinkUpdated はドリンクのタイトルまたはレシピが変更されたことを表す。
	TypeDrinkUpdated Type = "DrinkUpdated"
	// TypeDrinkDeleted はドリンクがメニューから削除されたことを表す。
	TypeDrinkDeleted Type = "DrinkDeleted"
)

// Event はドリンクに対する変更を記録する不変のイベントレコードを表す。
// ドリンクの追加・更新・削除と同じトランザクションで永続化される。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// AggregateID は対象エンティティの識別子。
	AggregateID string `json:"aggregate_id"`
	// AggregateType は対象エンティティの種類。
	AggregateType AggregateType `json:"aggregate_type"`
	// EventType はイベントの種類。
	EventType Type `json:"event_type"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// Version はAggregate内でのイベントの順序番号。
	Version int64 `json:"version"`
	// CreatedAt はイベントが作成された日時。
	CreatedAt time.Time `json:"created_at"`
}

// DrinkCreatedData はDrinkCreatedイベントのデータ。
type DrinkCreatedData struct {
	// Actor は操作したユーザー（トークンのsub）。
	Actor string `json:"actor"`
	// Title は作成時のタイトル。
	Title string `json:"title"`
	// Recipe は作成時のレシピ（材料の配列）。
	Recipe json.RawMessage `json:"recipe"`
}

// DrinkUpdatedData はDrinkUpdatedイベントのデータ。
// 変更されたフィールドのみ値を持つ。
type DrinkUpdatedData struct {
	// Actor は操作したユーザー（トークンのsub）。
	Actor string `json:"actor"`
	// Title は変更後のタイトル。
	Title *string `json:"title,omitempty"`
	// Recipe は変更後のレシピ。
	Recipe json.RawMessage `json:"recipe,omitempty"`
}

// DrinkDeletedData はDrinkDeletedイベントのデータ。
type DrinkDeletedData struct {
	// Actor は操作したユーザー（トークンのsub）。
	Actor string `json:"actor"`
	// Title は削除時のタイトル。
	Title string `json:"title"`
}
