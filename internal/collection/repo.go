package collection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tradingcards/internal/metrics"
	"tradingcards/pkg/models"
)

const DefaultCondition = "Near Mint"

var ErrNotFound = errors.New("collection entry not found")

type Repo struct {
	DB      *sql.DB
	Metrics *metrics.Metrics
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

type AddParams struct {
	UserID        string
	CardID        string
	PrintingID    string
	Quantity      int
	Condition     string
	PurchasePrice decimal.Decimal
}

type AddResult struct {
	InventoryID   int64           `json:"inventory_id"`
	Quantity      int             `json:"new_quantity"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	Created       bool            `json:"-"`
}

// Add puts copies of a printing into a user's collection. An existing entry
// for the same card and printing absorbs the quantity; its price is replaced
// only by a positive one.
func (r *Repo) Add(ctx context.Context, p AddParams) (_ *AddResult, err error) {
	defer r.observe("collection_add", time.Now(), &err)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin add: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		existingID    int64
		existingQty   int
		existingPrice string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT inventory_id, quantity, purchase_price
		FROM UserInventory
		WHERE user_id = ? AND card_id = ? AND printing_id = ?
	`, p.UserID, p.CardID, p.PrintingID).Scan(&existingID, &existingQty, &existingPrice)

	var res AddResult
	switch {
	case errors.Is(err, sql.ErrNoRows):
		condition := strings.TrimSpace(p.Condition)
		if condition == "" {
			condition = DefaultCondition
		}
		out, err := tx.ExecContext(ctx, `
			INSERT INTO UserInventory (user_id, card_id, printing_id, quantity, condition, purchase_price, date_acquired)
			VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		`, p.UserID, p.CardID, p.PrintingID, p.Quantity, condition, p.PurchasePrice.String())
		if err != nil {
			return nil, fmt.Errorf("insert collection entry: %w", err)
		}
		id, err := out.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		res = AddResult{InventoryID: id, Quantity: p.Quantity, PurchasePrice: p.PurchasePrice, Created: true}

	case err != nil:
		return nil, fmt.Errorf("lookup collection entry: %w", err)

	default:
		price := parsePrice(existingPrice)
		if p.PurchasePrice.IsPositive() {
			price = p.PurchasePrice
		}
		qty := existingQty + p.Quantity

		var condition any
		if c := strings.TrimSpace(p.Condition); c != "" {
			condition = c
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE UserInventory
			SET quantity = ?,
			    condition = COALESCE(?, condition),
			    purchase_price = ?,
			    date_acquired = CURRENT_TIMESTAMP
			WHERE inventory_id = ?
		`, qty, condition, price.String(), existingID); err != nil {
			return nil, fmt.Errorf("update collection entry: %w", err)
		}
		res = AddResult{InventoryID: existingID, Quantity: qty, PurchasePrice: price}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add: %w", err)
	}
	return &res, nil
}

func (r *Repo) UpdateQuantity(ctx context.Context, userID string, inventoryID int64, quantity int) (err error) {
	defer r.observe("collection_update", time.Now(), &err)

	res, err := r.DB.ExecContext(ctx, `
		UPDATE UserInventory
		SET quantity = ?, date_acquired = CURRENT_TIMESTAMP
		WHERE inventory_id = ? AND user_id = ?
	`, quantity, inventoryID, userID)
	if err != nil {
		return fmt.Errorf("update quantity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) Remove(ctx context.Context, userID string, inventoryID int64) (err error) {
	defer r.observe("collection_remove", time.Now(), &err)

	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM UserInventory
		WHERE inventory_id = ? AND user_id = ?
	`, inventoryID, userID)
	if err != nil {
		return fmt.Errorf("remove collection entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) List(ctx context.Context, userID string) (_ []models.CollectionItem, err error) {
	defer r.observe("collection_list", time.Now(), &err)

	rows, err := r.DB.QueryContext(ctx, `
		SELECT ui.inventory_id, ui.user_id, ui.card_id, ui.printing_id, ui.quantity,
		       ui.condition, ui.purchase_price, ui.date_acquired,
		       c.name, c.pitch, c.type_text, c.cost,
		       p.set_id, p.edition, p.foiling, p.rarity, p.image_url
		FROM UserInventory ui
		JOIN Cards c ON ui.card_id = c.card_id
		JOIN Printings p ON ui.printing_id = p.printing_id
		WHERE ui.user_id = ?
		ORDER BY c.name, ui.inventory_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list collection: %w", err)
	}
	defer rows.Close()

	out := []models.CollectionItem{}
	for rows.Next() {
		var (
			it                      models.CollectionItem
			condition, price        sql.NullString
			acquired                sql.NullTime
			pitch, typeText, cost   sql.NullString
			setID, edition, foiling sql.NullString
			rarity, imageURL        sql.NullString
		)
		if err := rows.Scan(
			&it.InventoryID, &it.UserID, &it.CardID, &it.PrintingID, &it.Quantity,
			&condition, &price, &acquired,
			&it.CardName, &pitch, &typeText, &cost,
			&setID, &edition, &foiling, &rarity, &imageURL,
		); err != nil {
			return nil, fmt.Errorf("scan collection row: %w", err)
		}
		it.Condition = condition.String
		it.PurchasePrice = parsePrice(price.String)
		it.TotalValue = it.PurchasePrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		if acquired.Valid {
			it.DateAcquired = acquired.Time
		}
		it.Pitch = pitch.String
		it.TypeText = typeText.String
		it.Cost = cost.String
		it.SetID = setID.String
		it.Edition = edition.String
		it.Foiling = foiling.String
		it.Rarity = rarity.String
		it.ImageURL = imageURL.String
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Stats breaks a user's collection down by rarity, by card type (the first
// word of the type line) and by pitch. Values are summed in decimal.
func (r *Repo) Stats(ctx context.Context, userID string) (*models.CollectionStats, error) {
	items, err := r.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	byRarity := newBuckets()
	byType := newBuckets()
	byPitch := newBuckets()
	for _, it := range items {
		byRarity.add(it.Rarity, it)
		byType.add(cardTypeOf(it.TypeText), it)
		byPitch.add(it.Pitch, it)
	}

	return &models.CollectionStats{
		ByRarity: byRarity.sorted(),
		ByType:   byType.sorted(),
		ByPitch:  byPitch.sorted(),
	}, nil
}

type buckets map[string]*models.CollectionBucket

func newBuckets() buckets { return make(buckets) }

func (b buckets) add(key string, it models.CollectionItem) {
	bk, ok := b[key]
	if !ok {
		bk = &models.CollectionBucket{Key: key, TotalValue: decimal.Zero}
		b[key] = bk
	}
	bk.UniqueCards++
	bk.TotalCards += it.Quantity
	bk.TotalValue = bk.TotalValue.Add(it.TotalValue)
}

func (b buckets) sorted() []models.CollectionBucket {
	out := make([]models.CollectionBucket, 0, len(b))
	for _, bk := range b {
		out = append(out, *bk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func cardTypeOf(typeText string) string {
	typeText = strings.TrimSpace(typeText)
	if i := strings.IndexByte(typeText, ' '); i > 0 {
		return typeText[:i]
	}
	return typeText
}

// parsePrice reads a stored price; unreadable values count as zero.
func parsePrice(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// observe records the query; a missing row is an answer, not a failure.
func (r *Repo) observe(name string, start time.Time, errp *error) {
	err := *errp
	if errors.Is(err, ErrNotFound) {
		err = nil
	}
	r.Metrics.ObserveQuery(name, time.Since(start), err)
}
