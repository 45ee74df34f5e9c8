package drink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
)

// maxTitleLength はタイトルの最大文字数。
const maxTitleLength = 80

// Ingredient はレシピを構成する材料。
type Ingredient struct {
	// Name は材料名。
	Name string `json:"name"`
	// Color はメニュー画面でカップを塗り分ける色。
	Color string `json:"color"`
	// Parts は材料の分量（比率）。
	Parts int `json:"parts"`
}

// Recipe は材料の順序付きの並び。
type Recipe []Ingredient

// ParseRecipe はリクエストのrecipeフィールドを正規化して検証する。
// 材料オブジェクトの配列をそのまま受け入れ、材料オブジェクト単体は1要素の配列に正規化する。
// それ以外の値（文字列・数値・null等）はValidationErrorになる。
func ParseRecipe(raw json.RawMessage) (Recipe, error) {
	recipe, err := decodeRecipe(raw)
	if err != nil {
		return nil, newValidationError(err)
	}
	if err := recipe.Validate(); err != nil {
		return nil, err
	}
	return recipe, nil
}

// decodeRecipe はJSONの配列またはオブジェクトをRecipeにデコードする。
func decodeRecipe(raw json.RawMessage) (Recipe, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("recipeは必須です")
	}

	switch trimmed[0] {
	case '[':
		var recipe Recipe
		if err := json.Unmarshal(trimmed, &recipe); err != nil {
			return nil, fmt.Errorf("recipeを材料の配列として解釈できません: %w", err)
		}
		return recipe, nil
	case '{':
		var ingredient Ingredient
		if err := json.Unmarshal(trimmed, &ingredient); err != nil {
			return nil, fmt.Errorf("recipeを材料として解釈できません: %w", err)
		}
		return Recipe{ingredient}, nil
	default:
		return nil, fmt.Errorf("recipeは材料オブジェクトまたはその配列である必要があります")
	}
}

// Validate はレシピの内容を検証する。問題はすべてまとめて返す。
func (r Recipe) Validate() error {
	if len(r) == 0 {
		return newValidationError(fmt.Errorf("recipeには1つ以上の材料が必要です"))
	}

	var result *multierror.Error
	for i, ing := range r {
		if strings.TrimSpace(ing.Name) == "" {
			result = multierror.Append(result, fmt.Errorf("recipe[%d].nameは必須です", i))
		}
		if ing.Parts <= 0 {
			result = multierror.Append(result, fmt.Errorf("recipe[%d].partsは1以上である必要があります", i))
		}
	}
	if result == nil {
		return nil
	}
	result.ErrorFormat = joinErrors
	return newValidationError(result)
}

// joinErrors は複数のエラーを1行のメッセージにまとめる。
func joinErrors(errs []error) string {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Short は材料名と色のみを含む短縮表現を返す。
func (r Recipe) Short() []ShortIngredient {
	short := make([]ShortIngredient, 0, len(r))
	for _, ing := range r {
		short = append(short, ShortIngredient{Name: ing.Name, Color: ing.Color})
	}
	return short
}

// ShortIngredient は分量を含まない材料の表現。
type ShortIngredient struct {
	// Name は材料名。
	Name string `json:"name"`
	// Color は材料の色。
	Color string `json:"color"`
}

// ValidateTitle はタイトルを検証する。
func ValidateTitle(title string) error {
	switch {
	case strings.TrimSpace(title) == "":
		return newValidationError(fmt.Errorf("titleは必須です"))
	case utf8.RuneCountInString(title) > maxTitleLength:
		return newValidationError(fmt.Errorf("titleは%d文字以内である必要があります", maxTitleLength))
	}
	return nil
}
