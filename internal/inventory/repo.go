package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tradingcards/internal/metrics"
	"tradingcards/pkg/models"
)

var ErrNotFound = errors.New("inventory not found")

// InsufficientStockError is returned when a purchase asks for more copies
// than are in stock.
type InsufficientStockError struct {
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: requested %d, available %d", e.Requested, e.Available)
}

type Repo struct {
	DB      *sql.DB
	Metrics *metrics.Metrics
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const stockSelect = `
	SELECT pi.inventory_id, pi.printing_id, c.card_id, c.name,
	       p.set_id, p.edition, p.foiling, p.rarity,
	       pi.stock_quantity, pi.last_updated
	FROM ProductInventory pi
	JOIN Printings p ON pi.printing_id = p.printing_id
	JOIN Cards c ON p.card_id = c.card_id
`

func (r *Repo) GetByPrinting(ctx context.Context, printingID string) (_ *models.StockItem, err error) {
	defer r.observe("stock_get", time.Now(), &err)

	row := r.DB.QueryRowContext(ctx, stockSelect+` WHERE pi.printing_id = ?`, printingID)
	it, err := scanStock(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return it, nil
}

// Available returns the stock level for a printing.
func (r *Repo) Available(ctx context.Context, printingID string) (_ int, err error) {
	defer r.observe("stock_available", time.Now(), &err)

	var n int
	err = r.DB.QueryRowContext(ctx, `
		SELECT stock_quantity FROM ProductInventory WHERE printing_id = ?
	`, printingID).Scan(&n)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("stock level: %w", err)
	}
	return n, nil
}

// Decrement takes quantity copies out of stock and returns the new level.
// The guard lives in the UPDATE itself, so stock never goes negative.
func (r *Repo) Decrement(ctx context.Context, printingID string, quantity int) (_ int, err error) {
	defer r.observe("stock_decrement", time.Now(), &err)

	if quantity <= 0 {
		return 0, fmt.Errorf("decrement: quantity must be positive, got %d", quantity)
	}

	var newStock int
	err = r.DB.QueryRowContext(ctx, `
		UPDATE ProductInventory
		SET stock_quantity = stock_quantity - ?,
		    last_updated = CURRENT_TIMESTAMP
		WHERE printing_id = ? AND stock_quantity >= ?
		RETURNING stock_quantity
	`, quantity, printingID, quantity).Scan(&newStock)
	if err == nil {
		return newStock, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("decrement stock: %w", err)
	}

	// nothing updated: unknown printing or not enough stock
	available, aerr := r.Available(ctx, printingID)
	if aerr != nil {
		return 0, aerr
	}
	return 0, &InsufficientStockError{Requested: quantity, Available: available}
}

func (r *Repo) LowStock(ctx context.Context, threshold int) (_ []models.StockItem, err error) {
	defer r.observe("stock_low", time.Now(), &err)

	rows, err := r.DB.QueryContext(ctx, stockSelect+`
		WHERE pi.stock_quantity <= ?
		ORDER BY pi.stock_quantity ASC, pi.printing_id ASC
	`, threshold)
	if err != nil {
		return nil, fmt.Errorf("low stock query: %w", err)
	}
	defer rows.Close()

	out := []models.StockItem{}
	for rows.Next() {
		it, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("low stock scan: %w", err)
		}
		out = append(out, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStock(s rowScanner) (*models.StockItem, error) {
	var (
		it                              models.StockItem
		setID, edition, foiling, rarity sql.NullString
		updated                         sql.NullTime
	)
	if err := s.Scan(
		&it.InventoryID, &it.PrintingID, &it.CardID, &it.CardName,
		&setID, &edition, &foiling, &rarity,
		&it.StockQuantity, &updated,
	); err != nil {
		return nil, err
	}
	it.SetID = setID.String
	it.Edition = edition.String
	it.Foiling = foiling.String
	it.Rarity = rarity.String
	if updated.Valid {
		it.LastUpdated = updated.Time
	}
	return &it, nil
}

// observe records the query. Missing rows and short stock are answers,
// not store failures.
func (r *Repo) observe(name string, start time.Time, errp *error) {
	err := *errp
	var short *InsufficientStockError
	if errors.Is(err, ErrNotFound) || errors.As(err, &short) {
		err = nil
	}
	r.Metrics.ObserveQuery(name, time.Since(start), err)
}
