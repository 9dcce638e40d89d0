package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tradingcards/internal/metrics"
	"tradingcards/pkg/models"
)

var ErrNotFound = errors.New("card not found")

type Repo struct {
	DB *sql.DB

	// PriceColumn is an SQL expression over the joined printing row (alias p)
	// holding a numeric price. The schema has no price attribute, so it is
	// empty by default and minPrice/maxPrice are ignored.
	PriceColumn string

	Metrics *metrics.Metrics
}

// SearchResult is the paged search response.
type SearchResult struct {
	Total      int                  `json:"total"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	TotalPages int                  `json:"totalPages"`
	Cards      []models.CardSummary `json:"cards"`
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Search runs the count and the paged list for q. A failure in either
// aborts the whole search.
func (r *Repo) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	q = q.Normalize()

	total, err := r.Count(ctx, q)
	if err != nil {
		return nil, err
	}

	cards, err := r.List(ctx, q)
	if err != nil {
		return nil, err
	}

	return &SearchResult{
		Total:      total,
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: TotalPages(total, q.Limit),
		Cards:      cards,
	}, nil
}

func (r *Repo) Count(ctx context.Context, q SearchQuery) (total int, err error) {
	defer r.observe("search_count", time.Now(), &err)

	sqlStr, args := buildSearchSQL(q, r.PriceColumn, true)
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q SearchQuery) (_ []models.CardSummary, err error) {
	defer r.observe("search_list", time.Now(), &err)

	q = q.Normalize()
	sqlStr, args := buildSearchSQL(q, r.PriceColumn, false)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	out := make([]models.CardSummary, 0, q.Limit)
	for rows.Next() {
		var (
			c          models.CardSummary
			pitch      sql.NullString
			cost       sql.NullString
			typeText   sql.NullString
			defense    sql.NullString
			power      sql.NullString
			types      sql.NullString
			keywords   sql.NullString
			printingID sql.NullString
			imageURL   sql.NullString
			rarity     sql.NullString
		)

		if err := rows.Scan(
			&c.CardID, &c.Name, &pitch, &cost, &typeText, &defense, &power,
			&types, &keywords, &printingID, &imageURL, &rarity,
		); err != nil {
			return nil, fmt.Errorf("search scan: %w", err)
		}

		c.Pitch = pitch.String
		c.Cost = cost.String
		c.TypeText = typeText.String
		c.Defense = defense.String
		c.Power = power.String
		c.Types = splitAggregate(types.String)
		c.Keywords = splitAggregate(keywords.String)
		c.PrintingID = printingID.String
		c.ImageURL = imageURL.String
		c.Rarity = rarity.String
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (_ *models.CardDetail, err error) {
	defer r.observe("card_get", time.Now(), &err)

	row := r.DB.QueryRowContext(ctx, `
		SELECT c.card_id, c.name, c.pitch, c.cost, c.power, c.defense, c.health,
		       c.intelligence, c.arcane, c.functional_text, c.type_text,
		       c.played_horizontally, c.blitz_legal, c.cc_legal, c.commoner_legal, c.ll_legal,
		       c.blitz_banned, c.cc_banned, c.commoner_banned, c.ll_banned,
		       GROUP_CONCAT(DISTINCT t.type_name) AS types,
		       GROUP_CONCAT(DISTINCT k.keyword) AS keywords
		FROM Cards c
		LEFT JOIN CardTypes t ON c.card_id = t.card_id
		LEFT JOIN CardKeywords k ON c.card_id = k.card_id
		WHERE c.card_id = ?
		GROUP BY c.card_id
	`, id)

	var (
		d                                        models.CardDetail
		pitch, cost, power, defense, health      sql.NullString
		intelligence, arcane, functional, typeTx sql.NullString
		types, keywords                          sql.NullString
	)
	if err := row.Scan(
		&d.CardID, &d.Name, &pitch, &cost, &power, &defense, &health,
		&intelligence, &arcane, &functional, &typeTx,
		&d.PlayedHorizontally, &d.BlitzLegal, &d.CCLegal, &d.CommonerLegal, &d.LLLegal,
		&d.BlitzBanned, &d.CCBanned, &d.CommonerBanned, &d.LLBanned,
		&types, &keywords,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan card: %w", err)
	}

	d.Pitch = pitch.String
	d.Cost = cost.String
	d.Power = power.String
	d.Defense = defense.String
	d.Health = health.String
	d.Intelligence = intelligence.String
	d.Arcane = arcane.String
	d.FunctionalText = functional.String
	d.TypeText = typeTx.String
	d.Types = splitAggregate(types.String)
	d.Keywords = splitAggregate(keywords.String)

	printings, err := r.printingsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Printings = printings
	return &d, nil
}

func (r *Repo) printingsFor(ctx context.Context, cardID string) ([]models.Printing, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT p.printing_id, p.card_id, p.set_id, p.set_printing_id, p.edition, p.foiling,
		       p.rarity, p.expansion_slot, p.flavor_text, p.image_url,
		       p.tcgplayer_product_id, p.tcgplayer_url,
		       GROUP_CONCAT(DISTINCT a.artist_name) AS artists
		FROM Printings p
		LEFT JOIN Artists a ON p.printing_id = a.printing_id
		WHERE p.card_id = ?
		GROUP BY p.printing_id
		ORDER BY p.printing_id
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("printings query: %w", err)
	}
	defer rows.Close()

	out := []models.Printing{}
	for rows.Next() {
		var (
			p                                 models.Printing
			setID, setPrintingID, edition     sql.NullString
			foiling, rarity, flavor, imageURL sql.NullString
			tcgProduct, tcgURL, artists       sql.NullString
		)
		if err := rows.Scan(
			&p.PrintingID, &p.CardID, &setID, &setPrintingID, &edition, &foiling,
			&rarity, &p.ExpansionSlot, &flavor, &imageURL,
			&tcgProduct, &tcgURL, &artists,
		); err != nil {
			return nil, fmt.Errorf("printings scan: %w", err)
		}
		p.SetID = setID.String
		p.SetPrintingID = setPrintingID.String
		p.Edition = edition.String
		p.Foiling = foiling.String
		p.Rarity = rarity.String
		p.FlavorText = flavor.String
		p.ImageURL = imageURL.String
		p.TCGPlayerProductID = tcgProduct.String
		p.TCGPlayerURL = tcgURL.String
		p.Artists = splitAggregate(artists.String)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) ListTypes(ctx context.Context) (_ []string, err error) {
	defer r.observe("types_list", time.Now(), &err)
	return r.distinctNames(ctx, `SELECT DISTINCT type_name FROM CardTypes ORDER BY type_name`)
}

func (r *Repo) ListKeywords(ctx context.Context) (_ []string, err error) {
	defer r.observe("keywords_list", time.Now(), &err)
	return r.distinctNames(ctx, `SELECT DISTINCT keyword FROM CardKeywords ORDER BY keyword`)
}

func (r *Repo) distinctNames(ctx context.Context, query string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("names query: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("names scan: %w", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// CardName is one entry of the suggestion corpus.
type CardName struct {
	CardID string
	Name   string
}

func (r *Repo) ListNames(ctx context.Context) (_ []CardName, err error) {
	defer r.observe("names_list", time.Now(), &err)

	rows, err := r.DB.QueryContext(ctx, `SELECT card_id, name FROM Cards ORDER BY name, card_id`)
	if err != nil {
		return nil, fmt.Errorf("card names query: %w", err)
	}
	defer rows.Close()

	var out []CardName
	for rows.Next() {
		var n CardName
		if err := rows.Scan(&n.CardID, &n.Name); err != nil {
			return nil, fmt.Errorf("card names scan: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// observe records the query; a missing row is an answer, not a failure.
func (r *Repo) observe(name string, start time.Time, errp *error) {
	err := *errp
	if errors.Is(err, ErrNotFound) {
		err = nil
	}
	r.Metrics.ObserveQuery(name, time.Since(start), err)
}
