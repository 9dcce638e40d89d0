package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

type ImportOptions struct {
	// SeedStock, when positive, gives every printing without a stock row
	// that many copies in the storefront.
	SeedStock int
	Logger    *slog.Logger
}

type ImportResult struct {
	Cards     int
	Printings int
	Seeded    int
}

// Import upserts cards with their types, keywords, printings and artists in
// one transaction. Re-importing the same dump is a no-op apart from field
// updates.
func Import(ctx context.Context, db *sql.DB, cards []Card, opts ImportOptions) (ImportResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var res ImportResult
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	st, err := prepareImport(ctx, tx)
	if err != nil {
		return res, err
	}
	defer st.close()

	for i, c := range cards {
		if _, err := st.card.ExecContext(ctx,
			c.UniqueID, c.Name,
			nullString(string(c.Pitch)), nullString(string(c.Cost)),
			nullString(string(c.Power)), nullString(string(c.Defense)),
			nullString(string(c.Health)), nullString(string(c.Intelligence)),
			nullString(string(c.Arcane)), nullString(c.FunctionalText), nullString(c.TypeText),
			c.PlayedHorizontally, c.BlitzLegal, c.CCLegal, c.CommonerLegal, c.LLLegal,
			c.BlitzBanned, c.CCBanned, c.CommonerBanned, c.LLBanned,
		); err != nil {
			return res, fmt.Errorf("upsert card %s: %w", c.UniqueID, err)
		}

		for _, t := range c.Types {
			if t = strings.TrimSpace(t); t == "" {
				continue
			}
			if _, err := st.cardType.ExecContext(ctx, c.UniqueID, t); err != nil {
				return res, fmt.Errorf("insert type %s/%s: %w", c.UniqueID, t, err)
			}
		}
		for _, k := range c.Keywords {
			if k = strings.TrimSpace(k); k == "" {
				continue
			}
			if _, err := st.keyword.ExecContext(ctx, c.UniqueID, k); err != nil {
				return res, fmt.Errorf("insert keyword %s/%s: %w", c.UniqueID, k, err)
			}
		}

		for _, p := range c.Printings {
			if p.UniqueID == "" {
				continue
			}
			if _, err := st.printing.ExecContext(ctx,
				p.UniqueID, c.UniqueID, nullString(p.SetID), nullString(p.SetPrintingUniqueID),
				nullString(p.Edition), nullString(p.Foiling), nullString(p.Rarity),
				p.ExpansionSlot, nullString(p.FlavorText), nullString(p.ImageURL),
				nullString(string(p.TCGPlayerProductID)), nullString(p.TCGPlayerURL),
			); err != nil {
				return res, fmt.Errorf("upsert printing %s: %w", p.UniqueID, err)
			}
			for _, a := range p.Artists {
				if a = strings.TrimSpace(a); a == "" {
					continue
				}
				if _, err := st.artist.ExecContext(ctx, p.UniqueID, a); err != nil {
					return res, fmt.Errorf("insert artist %s/%s: %w", p.UniqueID, a, err)
				}
			}
			if opts.SeedStock > 0 {
				out, err := st.stock.ExecContext(ctx, p.UniqueID, opts.SeedStock)
				if err != nil {
					return res, fmt.Errorf("seed stock %s: %w", p.UniqueID, err)
				}
				if n, _ := out.RowsAffected(); n > 0 {
					res.Seeded++
				}
			}
			res.Printings++
		}

		res.Cards++
		if (i+1)%500 == 0 {
			logger.Info("import progress", "cards", i+1, "of", len(cards))
		}
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit import: %w", err)
	}
	return res, nil
}

type importStmts struct {
	card, cardType, keyword, printing, artist, stock *sql.Stmt
}

const (
	upsertCardSQL = `
		INSERT INTO Cards (
			card_id, name, pitch, cost, power, defense, health,
			intelligence, arcane, functional_text, type_text,
			played_horizontally, blitz_legal, cc_legal, commoner_legal, ll_legal,
			blitz_banned, cc_banned, commoner_banned, ll_banned
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(card_id) DO UPDATE SET
			name = excluded.name,
			pitch = excluded.pitch,
			cost = excluded.cost,
			power = excluded.power,
			defense = excluded.defense,
			health = excluded.health,
			intelligence = excluded.intelligence,
			arcane = excluded.arcane,
			functional_text = excluded.functional_text,
			type_text = excluded.type_text,
			played_horizontally = excluded.played_horizontally,
			blitz_legal = excluded.blitz_legal,
			cc_legal = excluded.cc_legal,
			commoner_legal = excluded.commoner_legal,
			ll_legal = excluded.ll_legal,
			blitz_banned = excluded.blitz_banned,
			cc_banned = excluded.cc_banned,
			commoner_banned = excluded.commoner_banned,
			ll_banned = excluded.ll_banned`

	upsertPrintingSQL = `
		INSERT INTO Printings (
			printing_id, card_id, set_id, set_printing_id, edition, foiling, rarity,
			expansion_slot, flavor_text, image_url, tcgplayer_product_id, tcgplayer_url
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(printing_id) DO UPDATE SET
			card_id = excluded.card_id,
			set_id = excluded.set_id,
			set_printing_id = excluded.set_printing_id,
			edition = excluded.edition,
			foiling = excluded.foiling,
			rarity = excluded.rarity,
			expansion_slot = excluded.expansion_slot,
			flavor_text = excluded.flavor_text,
			image_url = excluded.image_url,
			tcgplayer_product_id = excluded.tcgplayer_product_id,
			tcgplayer_url = excluded.tcgplayer_url`

	seedStockSQL = `
		INSERT INTO ProductInventory (printing_id, stock_quantity, last_updated)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(printing_id) DO NOTHING`
)

func prepareImport(ctx context.Context, tx *sql.Tx) (*importStmts, error) {
	st := &importStmts{}
	for _, q := range []struct {
		dst   **sql.Stmt
		query string
	}{
		{&st.card, upsertCardSQL},
		{&st.cardType, `INSERT OR IGNORE INTO CardTypes (card_id, type_name) VALUES (?, ?)`},
		{&st.keyword, `INSERT OR IGNORE INTO CardKeywords (card_id, keyword) VALUES (?, ?)`},
		{&st.printing, upsertPrintingSQL},
		{&st.artist, `INSERT OR IGNORE INTO Artists (printing_id, artist_name) VALUES (?, ?)`},
		{&st.stock, seedStockSQL},
	} {
		s, err := tx.PrepareContext(ctx, q.query)
		if err != nil {
			st.close()
			return nil, fmt.Errorf("prepare import: %w", err)
		}
		*q.dst = s
	}
	return st, nil
}

func (st *importStmts) close() {
	for _, s := range []*sql.Stmt{st.card, st.cardType, st.keyword, st.printing, st.artist, st.stock} {
		if s != nil {
			_ = s.Close()
		}
	}
}

func nullString(raw string) sql.NullString {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: raw, Valid: true}
}
