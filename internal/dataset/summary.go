package dataset

import (
	"context"
	"database/sql"
	"fmt"
)

type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type Summary struct {
	Cards     int     `json:"cards"`
	Printings int     `json:"printings"`
	InStock   int     `json:"inStock"`
	ByType    []Count `json:"byType"`
	BySet     []Count `json:"bySet"`
}

// Summarize reports catalog totals plus card counts per type and printing
// counts per set, largest first.
func Summarize(ctx context.Context, db *sql.DB) (*Summary, error) {
	s := &Summary{}
	if err := db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM Cards),
		       (SELECT COUNT(*) FROM Printings),
		       (SELECT COUNT(*) FROM ProductInventory WHERE stock_quantity > 0)
	`).Scan(&s.Cards, &s.Printings, &s.InStock); err != nil {
		return nil, fmt.Errorf("summary totals: %w", err)
	}

	var err error
	if s.ByType, err = counts(ctx, db, `
		SELECT type_name, COUNT(*) AS n
		FROM CardTypes
		GROUP BY type_name
		ORDER BY n DESC, type_name
	`); err != nil {
		return nil, err
	}
	if s.BySet, err = counts(ctx, db, `
		SELECT COALESCE(set_id, ''), COUNT(*) AS n
		FROM Printings
		GROUP BY set_id
		ORDER BY n DESC, set_id
	`); err != nil {
		return nil, err
	}
	return s, nil
}

func counts(ctx context.Context, db *sql.DB, query string) ([]Count, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("summary query: %w", err)
	}
	defer rows.Close()

	out := []Count{}
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, fmt.Errorf("summary scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
