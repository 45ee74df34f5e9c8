package drink

// Drink はメニューに載るドリンク。
type Drink struct {
	// ID はストアが採番する一意識別子。
	ID int64
	// Title は表示名。
	Title string
	// Recipe は材料の並び。
	Recipe Recipe
}

// ShortDrink は公開メニュー向けの短縮表現。分量とIDを含まない。
type ShortDrink struct {
	Title  string            `json:"title"`
	Recipe []ShortIngredient `json:"recipe"`
}

// LongDrink は詳細表現。分量を含むすべての情報を持つ。
type LongDrink struct {
	ID     int64        `json:"id"`
	Title  string       `json:"title"`
	Recipe []Ingredient `json:"recipe"`
}

// Short は短縮表現を返す。
func (d Drink) Short() ShortDrink {
	return ShortDrink{Title: d.Title, Recipe: d.Recipe.Short()}
}

// Long は詳細表現を返す。
func (d Drink) Long() LongDrink {
	recipe := make([]Ingredient, len(d.Recipe))
	copy(recipe, d.Recipe)
	return LongDrink{ID: d.ID, Title: d.Title, Recipe: recipe}
}

// Patch はドリンクの部分更新内容。nilのフィールドは変更しない。
type Patch struct {
	// Title は新しいタイトル。
	Title *string
	// Recipe は新しいレシピ。
	Recipe Recipe
}

// IsEmpty は変更内容が無いかを返す。
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Recipe == nil
}

// apply はドリンクに変更を適用した結果を返す。
func (p Patch) apply(d Drink) Drink {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Recipe != nil {
		d.Recipe = p.Recipe
	}
	return d
}
