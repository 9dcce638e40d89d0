package collection

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingcards/internal/dataset"
	"tradingcards/pkg/database"
	"tradingcards/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{Path: filepath.Join(t.TempDir(), "cards.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db))

	cards := []dataset.Card{
		{
			UniqueID:  "c-snatch",
			Name:      "Snatch",
			Pitch:     "1",
			Cost:      "0",
			TypeText:  "Generic Action - Attack",
			Printings: []dataset.Printing{{UniqueID: "p-snatch", SetID: "WTR", Rarity: "C"}},
		},
		{
			UniqueID:  "c-crown",
			Name:      "Crown of Seeds",
			TypeText:  "Wizard Equipment - Head",
			Printings: []dataset.Printing{{UniqueID: "p-crown", SetID: "ARC", Rarity: "L"}},
		},
	}
	_, err = dataset.Import(ctx, db, cards, dataset.ImportOptions{})
	require.NoError(t, err)
	return NewRepo(db)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAdd_InsertThenMerge(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	first, err := repo.Add(ctx, AddParams{
		UserID: "u1", CardID: "c-snatch", PrintingID: "p-snatch",
		Quantity: 2, PurchasePrice: dec("1.25"),
	})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, 2, first.Quantity)

	second, err := repo.Add(ctx, AddParams{
		UserID: "u1", CardID: "c-snatch", PrintingID: "p-snatch",
		Quantity: 3, Condition: "Lightly Played",
	})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.InventoryID, second.InventoryID)
	assert.Equal(t, 5, second.Quantity)
	assert.True(t, second.PurchasePrice.Equal(dec("1.25")), "zero price keeps the old one")

	items, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Lightly Played", items[0].Condition)
	assert.True(t, items[0].TotalValue.Equal(dec("6.25")))
	assert.Equal(t, "Snatch", items[0].CardName)
	assert.Equal(t, "WTR", items[0].SetID)

	third, err := repo.Add(ctx, AddParams{
		UserID: "u1", CardID: "c-snatch", PrintingID: "p-snatch",
		Quantity: 1, PurchasePrice: dec("2"),
	})
	require.NoError(t, err)
	assert.True(t, third.PurchasePrice.Equal(dec("2")))

	items, err = repo.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Lightly Played", items[0].Condition, "blank condition keeps the old one")
}

func TestAdd_DefaultCondition(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.Add(ctx, AddParams{UserID: "u1", CardID: "c-crown", PrintingID: "p-crown", Quantity: 1})
	require.NoError(t, err)

	items, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, DefaultCondition, items[0].Condition)
	assert.True(t, items[0].PurchasePrice.IsZero())
}

func TestAdd_UnknownCard(t *testing.T) {
	_, err := newTestRepo(t).Add(context.Background(), AddParams{
		UserID: "u1", CardID: "nope", PrintingID: "nope", Quantity: 1,
	})
	assert.Error(t, err)
}

func TestUpdateAndRemove_Ownership(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	res, err := repo.Add(ctx, AddParams{UserID: "u1", CardID: "c-snatch", PrintingID: "p-snatch", Quantity: 1})
	require.NoError(t, err)

	assert.ErrorIs(t, repo.UpdateQuantity(ctx, "u2", res.InventoryID, 4), ErrNotFound)
	require.NoError(t, repo.UpdateQuantity(ctx, "u1", res.InventoryID, 4))

	items, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, items[0].Quantity)

	assert.ErrorIs(t, repo.Remove(ctx, "u2", res.InventoryID), ErrNotFound)
	require.NoError(t, repo.Remove(ctx, "u1", res.InventoryID))
	assert.ErrorIs(t, repo.Remove(ctx, "u1", res.InventoryID), ErrNotFound)

	items, err = repo.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.Add(ctx, AddParams{UserID: "u1", CardID: "c-snatch", PrintingID: "p-snatch", Quantity: 3, PurchasePrice: dec("0.10")})
	require.NoError(t, err)
	_, err = repo.Add(ctx, AddParams{UserID: "u1", CardID: "c-crown", PrintingID: "p-crown", Quantity: 1, PurchasePrice: dec("40.00")})
	require.NoError(t, err)
	_, err = repo.Add(ctx, AddParams{UserID: "u2", CardID: "c-crown", PrintingID: "p-crown", Quantity: 9})
	require.NoError(t, err)

	st, err := repo.Stats(ctx, "u1")
	require.NoError(t, err)

	require.Len(t, st.ByRarity, 2)
	assert.Equal(t, "C", st.ByRarity[0].Key)
	assert.Equal(t, 3, st.ByRarity[0].TotalCards)
	assert.True(t, st.ByRarity[0].TotalValue.Equal(dec("0.3")))
	assert.Equal(t, "L", st.ByRarity[1].Key)

	assert.Equal(t, []string{"Generic", "Wizard"}, bucketKeys(st.ByType))
	assert.Equal(t, []string{"", "1"}, bucketKeys(st.ByPitch))
}

func bucketKeys(bs []models.CollectionBucket) []string {
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.Key)
	}
	return out
}

func TestCardTypeOf(t *testing.T) {
	assert.Equal(t, "Generic", cardTypeOf("Generic Action - Attack"))
	assert.Equal(t, "Token", cardTypeOf("Token"))
	assert.Equal(t, "", cardTypeOf("  "))
}

func TestParsePrice(t *testing.T) {
	assert.True(t, parsePrice("3.50").Equal(dec("3.5")))
	assert.True(t, parsePrice("abc").IsZero())
	assert.True(t, parsePrice("").IsZero())
}

func post(r http.Handler, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_Flow(t *testing.T) {
	r := gin.New()
	NewHandler(newTestRepo(t), nil).RegisterRoutes(r.Group("/api/collection"))

	w := post(r, "/api/collection/add", `{"user_id": 7, "card_id": "c-snatch", "printing_id": "p-snatch", "quantity": 2, "purchase_price": "1.50"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var added struct {
		Message     string `json:"message"`
		InventoryID int64  `json:"inventory_id"`
		NewQuantity int    `json:"new_quantity"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &added))
	assert.Equal(t, "Card added to collection", added.Message)
	assert.Equal(t, 2, added.NewQuantity)

	w = post(r, "/api/collection/add", `{"user_id": "7", "card_id": "c-snatch", "printing_id": "p-snatch", "quantity": 1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"message":"Card quantity updated in collection"`)
	assert.Contains(t, w.Body.String(), `"new_quantity":3`)

	req := httptest.NewRequest(http.MethodGet, "/api/collection/7", nil)
	lw := httptest.NewRecorder()
	r.ServeHTTP(lw, req)
	require.Equal(t, http.StatusOK, lw.Code)
	var items []models.CollectionItem
	require.NoError(t, json.Unmarshal(lw.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.True(t, items[0].TotalValue.Equal(dec("4.5")))

	req = httptest.NewRequest(http.MethodGet, "/api/collection/7/stats", nil)
	sw := httptest.NewRecorder()
	r.ServeHTTP(sw, req)
	require.Equal(t, http.StatusOK, sw.Code)
	assert.Contains(t, sw.Body.String(), `"byRarity"`)

	w = post(r, "/api/collection/update", `{"user_id": 8, "inventory_id": 1, "quantity": 5}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Inventory entry not found or not owned by user"}`, w.Body.String())

	w = post(r, "/api/collection/remove", `{"user_id": 7, "inventory_id": 1}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_Validation(t *testing.T) {
	r := gin.New()
	NewHandler(newTestRepo(t), nil).RegisterRoutes(r.Group("/api/collection"))

	tests := []struct {
		name, path, body, want string
	}{
		{"add missing card", "/api/collection/add", `{"user_id": 1, "printing_id": "p", "quantity": 1}`, `{"error":"Missing required fields"}`},
		{"add negative", "/api/collection/add", `{"user_id": 1, "card_id": "c", "printing_id": "p", "quantity": -2}`, `{"error":"Quantity must be at least 1"}`},
		{"update missing user", "/api/collection/update", `{"inventory_id": 1, "quantity": 2}`, `{"error":"Missing required fields"}`},
		{"update negative", "/api/collection/update", `{"user_id": 1, "inventory_id": 1, "quantity": -1}`, `{"error":"Quantity must be at least 1"}`},
		{"remove missing id", "/api/collection/remove", `{"user_id": 1}`, `{"error":"Missing required fields"}`},
		{"bad json", "/api/collection/add", `{`, `{"error":"invalid json"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(r, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, tt.want, w.Body.String())
		})
	}
}
