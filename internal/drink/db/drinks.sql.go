package db

import (
	"context"
)

const listDrinks = `
SELECT id, title, recipe FROM drinks
ORDER BY title ASC, id ASC
`

// ListDrinks はすべてのドリンクをタイトル昇順で取得する。
func (q *Queries) ListDrinks(ctx context.Context) ([]Drink, error) {
	rows, err := q.db.QueryContext(ctx, listDrinks)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Drink{}
	for rows.Next() {
		var i Drink
		if err := rows.Scan(&i.ID, &i.Title, &i.Recipe); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getDrink = `
SELECT id, title, recipe FROM drinks
WHERE id = ?
`

// GetDrink はIDでドリンクを取得する。存在しない場合はsql.ErrNoRowsを返す。
func (q *Queries) GetDrink(ctx context.Context, id int64) (Drink, error) {
	row := q.db.QueryRowContext(ctx, getDrink, id)
	var i Drink
	err := row.Scan(&i.ID, &i.Title, &i.Recipe)
	return i, err
}

const createDrink = `
INSERT INTO drinks (title, recipe) VALUES (?, ?)
RETURNING id, title, recipe
`

// CreateDrinkParams はCreateDrinkの引数。
type CreateDrinkParams struct {
	Title  string
	Recipe string
}

// CreateDrink はドリンクを挿入し、採番されたIDを含む行を返す。
func (q *Queries) CreateDrink(ctx context.Context, arg CreateDrinkParams) (Drink, error) {
	row := q.db.QueryRowContext(ctx, createDrink, arg.Title, arg.Recipe)
	var i Drink
	err := row.Scan(&i.ID, &i.Title, &i.Recipe)
	return i, err
}

const updateDrink = `
UPDATE drinks
SET title = ?, recipe = ?, updated_at = datetime('now')
WHERE id = ?
RETURNING id, title, recipe
`

// UpdateDrinkParams はUpdateDrinkの引数。
type UpdateDrinkParams struct {
	Title  string
	Recipe string
	ID     int64
}

// UpdateDrink はドリンクのタイトルとレシピを更新する。存在しない場合はsql.ErrNoRowsを返す。
func (q *Queries) UpdateDrink(ctx context.Context, arg UpdateDrinkParams) (Drink, error) {
	row := q.db.QueryRowContext(ctx, updateDrink, arg.Title, arg.Recipe, arg.ID)
	var i Drink
	err := row.Scan(&i.ID, &i.Title, &i.Recipe)
	return i, err
}

const deleteDrink = `
DELETE FROM drinks WHERE id = ?
`

// DeleteDrink はドリンクを削除し、削除した行数を返す。
func (q *Queries) DeleteDrink(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteDrink, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
