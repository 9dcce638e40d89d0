package dataset

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"
)

var exportHeader = []string{
	"printing_id", "card_id", "name", "set_id", "edition", "foiling", "rarity",
	"pitch", "cost", "type_text", "types", "keywords", "stock_quantity", "last_updated",
}

// ExportCSV writes one row per printing, with the card's types and keywords
// joined by ";" and the storefront stock when there is a stock row.
func ExportCSV(ctx context.Context, db *sql.DB, out io.Writer) (int, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT p.printing_id, c.card_id, c.name, p.set_id, p.edition, p.foiling, p.rarity,
		       c.pitch, c.cost, c.type_text,
		       (SELECT GROUP_CONCAT(type_name, ';') FROM CardTypes WHERE card_id = c.card_id),
		       (SELECT GROUP_CONCAT(keyword, ';') FROM CardKeywords WHERE card_id = c.card_id),
		       pi.stock_quantity, pi.last_updated
		FROM Printings p
		JOIN Cards c ON c.card_id = p.card_id
		LEFT JOIN ProductInventory pi ON pi.printing_id = p.printing_id
		ORDER BY c.name, p.printing_id
	`)
	if err != nil {
		return 0, fmt.Errorf("export query: %w", err)
	}
	defer rows.Close()

	w := csv.NewWriter(out)
	if err := w.Write(exportHeader); err != nil {
		return 0, err
	}

	n := 0
	for rows.Next() {
		var (
			printingID, cardID, name        string
			setID, edition, foiling, rarity sql.NullString
			pitch, cost, typeText           sql.NullString
			types, keywords                 sql.NullString
			stock                           sql.NullInt64
			updated                         sql.NullTime
		)
		if err := rows.Scan(
			&printingID, &cardID, &name, &setID, &edition, &foiling, &rarity,
			&pitch, &cost, &typeText, &types, &keywords, &stock, &updated,
		); err != nil {
			return n, fmt.Errorf("export scan: %w", err)
		}

		stockStr := ""
		if stock.Valid {
			stockStr = fmt.Sprint(stock.Int64)
		}
		updatedStr := ""
		if updated.Valid {
			updatedStr = updated.Time.UTC().Format(time.RFC3339)
		}

		if err := w.Write([]string{
			printingID,
			cardID,
			name,
			setID.String,
			edition.String,
			foiling.String,
			rarity.String,
			pitch.String,
			cost.String,
			typeText.String,
			sortedList(types.String),
			sortedList(keywords.String),
			stockStr,
			updatedStr,
		}); err != nil {
			return n, err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, err
	}

	w.Flush()
	return n, w.Error()
}

// sortedList gives GROUP_CONCAT output a stable order.
func sortedList(s string) string {
	if s == "" {
		return ""
	}
	parts := strings.Split(s, ";")
	slices.Sort(parts)
	return strings.Join(parts, ";")
}
