package db

import (
	"context"
)

const appendEvent = `
INSERT INTO drink_events (id, aggregate_id, aggregate_type, event_type, data, version, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

// AppendEventParams はAppendEventの引数。
type AppendEventParams struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Data          string
	Version       int64
	CreatedAt     string
}

// AppendEvent は変更イベントを追記する。
func (q *Queries) AppendEvent(ctx context.Context, arg AppendEventParams) error {
	_, err := q.db.ExecContext(ctx, appendEvent,
		arg.ID,
		arg.AggregateID,
		arg.AggregateType,
		arg.EventType,
		arg.Data,
		arg.Version,
		arg.CreatedAt,
	)
	return err
}

const latestEventVersion = `
SELECT COALESCE(MAX(version), 0) FROM drink_events
WHERE aggregate_id = ?
`

// LatestEventVersion はAggregateの最新バージョンを返す。イベントが無い場合は0。
func (q *Queries) LatestEventVersion(ctx context.Context, aggregateID string) (int64, error) {
	row := q.db.QueryRowContext(ctx, latestEventVersion, aggregateID)
	var version int64
	err := row.Scan(&version)
	return version, err
}

const listEventsByAggregateID = `
SELECT id, aggregate_id, aggregate_type, event_type, data, version, created_at
FROM drink_events
WHERE aggregate_id = ?
ORDER BY version ASC
`

// ListEventsByAggregateID はAggregateのイベントをバージョン順に取得する。
func (q *Queries) ListEventsByAggregateID(ctx context.Context, aggregateID string) ([]DrinkEvent, error) {
	rows, err := q.db.QueryContext(ctx, listEventsByAggregateID, aggregateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []DrinkEvent{}
	for rows.Next() {
		var i DrinkEvent
		if err := rows.Scan(
			&i.ID,
			&i.AggregateID,
			&i.AggregateType,
			&i.EventType,
			&i.Data,
			&i.Version,
			&i.CreatedAt,
		); err != nil {
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
