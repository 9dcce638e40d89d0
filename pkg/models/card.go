package models

// CardSummary is one row of a catalog search result. Types and Keywords are
// deduplicated per card; ImageURL and Rarity come from a single printing of
// the card, and which printing is picked is not specified.
type CardSummary struct {
	CardID   string   `json:"card_id"`
	Name     string   `json:"name"`
	Pitch    string   `json:"pitch"`
	Cost     string   `json:"cost"`
	TypeText string   `json:"type_text"`
	Defense  string   `json:"defense"`
	Power    string   `json:"power"`
	Types    []string `json:"types"`
	Keywords []string `json:"keywords"`

	PrintingID string `json:"printing_id,omitempty"`
	ImageURL   string `json:"image_url"`
	Rarity     string `json:"rarity"`
}

// CardDetail is the full card record served by the single-card lookup.
type CardDetail struct {
	CardID             string     `json:"card_id"`
	Name               string     `json:"name"`
	Pitch              string     `json:"pitch"`
	Cost               string     `json:"cost"`
	Power              string     `json:"power"`
	Defense            string     `json:"defense"`
	Health             string     `json:"health"`
	Intelligence       string     `json:"intelligence"`
	Arcane             string     `json:"arcane"`
	FunctionalText     string     `json:"functional_text"`
	TypeText           string     `json:"type_text"`
	PlayedHorizontally bool       `json:"played_horizontally"`
	BlitzLegal         bool       `json:"blitz_legal"`
	CCLegal            bool       `json:"cc_legal"`
	CommonerLegal      bool       `json:"commoner_legal"`
	LLLegal            bool       `json:"ll_legal"`
	BlitzBanned        bool       `json:"blitz_banned"`
	CCBanned           bool       `json:"cc_banned"`
	CommonerBanned     bool       `json:"commoner_banned"`
	LLBanned           bool       `json:"ll_banned"`
	Types              []string   `json:"types"`
	Keywords           []string   `json:"keywords"`
	Printings          []Printing `json:"printings"`
}
