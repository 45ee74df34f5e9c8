package drink

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/coffeeshop/pkg/middleware"
)

// maxBodySize はリクエストボディの最大バイト数。
const maxBodySize = 64 << 10

// handleList は公開メニューの取得を処理するハンドラを返す。
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		drinks, err := s.store.ListAll(c.Request.Context())
		if err != nil {
			abort(c, err)
			return
		}

		views := make([]ShortDrink, 0, len(drinks))
		for _, d := range drinks {
			views = append(views, d.Short())
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "drinks": views})
	}
}

// handleListDetail は詳細メニューの取得を処理するハンドラを返す。
func (s *Server) handleListDetail() gin.HandlerFunc {
	return func(c *gin.Context) {
		drinks, err := s.store.ListAll(c.Request.Context())
		if err != nil {
			abort(c, err)
			return
		}

		views := make([]LongDrink, 0, len(drinks))
		for _, d := range drinks {
			views = append(views, d.Long())
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "drinks": views})
	}
}

// handleCreate はドリンクの追加を処理するハンドラを返す。
// titleとrecipeの両方が必要。
func (s *Server) handleCreate() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := readBody(c)
		if err != nil {
			abort(c, err)
			return
		}

		titleRaw, hasTitle := field(body, "title")
		recipeRaw, hasRecipe := field(body, "recipe")
		if !hasTitle || !hasRecipe {
			abort(c, newValidationError(errors.New("titleとrecipeは必須です")))
			return
		}

		title, err := parseTitle(titleRaw)
		if err != nil {
			abort(c, err)
			return
		}
		recipe, err := ParseRecipe(recipeRaw)
		if err != nil {
			abort(c, err)
			return
		}

		created, err := s.store.Insert(c.Request.Context(), title, recipe, actor(c))
		if err != nil {
			abort(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "drinks": []LongDrink{created.Long()}})
	}
}

// handleUpdate はドリンクの部分更新を処理するハンドラを返す。
// titleまたはrecipeの少なくとも一方が必要で、指定されたフィールドのみ変更する。
func (s *Server) handleUpdate() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			abort(c, ErrNotFound)
			return
		}

		body, err := readBody(c)
		if err != nil {
			abort(c, err)
			return
		}

		var patch Patch
		if titleRaw, ok := field(body, "title"); ok {
			title, err := parseTitle(titleRaw)
			if err != nil {
				abort(c, err)
				return
			}
			patch.Title = &title
		}
		if recipeRaw, ok := field(body, "recipe"); ok {
			recipe, err := ParseRecipe(recipeRaw)
			if err != nil {
				abort(c, err)
				return
			}
			patch.Recipe = recipe
		}
		if patch.IsEmpty() {
			abort(c, newValidationError(errors.New("titleまたはrecipeのいずれかが必要です")))
			return
		}

		updated, err := s.store.Update(c.Request.Context(), id, patch, actor(c))
		if err != nil {
			abort(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "drinks": []LongDrink{updated.Long()}})
	}
}

// handleDelete はドリンクの削除を処理するハンドラを返す。
func (s *Server) handleDelete() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			abort(c, ErrNotFound)
			return
		}

		if _, err := s.store.Delete(c.Request.Context(), id, actor(c)); err != nil {
			abort(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "delete": id})
	}
}

// handleHistory はドリンクの変更履歴の取得を処理するハンドラを返す。
func (s *Server) handleHistory() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			abort(c, ErrNotFound)
			return
		}

		events, err := s.store.History(c.Request.Context(), id)
		if err != nil {
			abort(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "events": events})
	}
}

// parseID はパスパラメータのIDを解析する。正の整数以外はfalseを返す。
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// readBody はリクエストボディをJSONオブジェクトとして読み込む。
// ボディが空、またはJSONオブジェクトでない場合はBadRequestErrorを返す。
func readBody(c *gin.Context) (map[string]json.RawMessage, error) {
	if c.Request.Body == nil {
		return nil, &BadRequestError{Message: "リクエストボディが必要です"}
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodySize+1))
	if err != nil {
		return nil, &BadRequestError{Message: "リクエストボディを読み込めません"}
	}
	if len(raw) > maxBodySize {
		return nil, &BadRequestError{Message: "リクエストボディが大きすぎます"}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &BadRequestError{Message: "リクエストボディが必要です"}
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		return nil, &BadRequestError{Message: "リクエストボディはJSONオブジェクトである必要があります"}
	}
	return body, nil
}

// field はボディのフィールドを返す。nullは指定されていないものとして扱う。
func field(body map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := body[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}

// parseTitle はtitleフィールドを文字列として解釈して検証する。
func parseTitle(raw json.RawMessage) (string, error) {
	var title string
	if err := json.Unmarshal(raw, &title); err != nil {
		return "", newValidationError(errors.New("titleは文字列である必要があります"))
	}
	title = strings.TrimSpace(title)
	if err := ValidateTitle(title); err != nil {
		return "", err
	}
	return title, nil
}

// actor は操作したユーザーをトークンのsubから取得する。
func actor(c *gin.Context) string {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return ""
	}
	return claims.Subject
}
