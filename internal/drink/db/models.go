package db

// Drink はdrinksテーブルの行。
type Drink struct {
	ID     int64
	Title  string
	Recipe string
}

// DrinkEvent はdrink_eventsテーブルの行。
type DrinkEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Data          string
	Version       int64
	CreatedAt     string
}
