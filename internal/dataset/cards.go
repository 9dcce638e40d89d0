// Package dataset moves the card catalog in and out of the store: JSON dump
// import, CSV export and a small summary report.
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Card mirrors one entry of the card JSON dump.
type Card struct {
	UniqueID           string     `json:"unique_id"`
	Name               string     `json:"name"`
	Pitch              FlexString `json:"pitch"`
	Cost               FlexString `json:"cost"`
	Power              FlexString `json:"power"`
	Defense            FlexString `json:"defense"`
	Health             FlexString `json:"health"`
	Intelligence       FlexString `json:"intelligence"`
	Arcane             FlexString `json:"arcane"`
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
	Keywords           []string   `json:"card_keywords"`
	Printings          []Printing `json:"printings"`
}

type Printing struct {
	UniqueID            string     `json:"unique_id"`
	SetID               string     `json:"set_id"`
	SetPrintingUniqueID string     `json:"set_printing_unique_id"`
	Edition             string     `json:"edition"`
	Foiling             string     `json:"foiling"`
	Rarity              string     `json:"rarity"`
	ExpansionSlot       bool       `json:"expansion_slot"`
	FlavorText          string     `json:"flavor_text"`
	ImageURL            string     `json:"image_url"`
	TCGPlayerProductID  FlexString `json:"tcgplayer_product_id"`
	TCGPlayerURL        string     `json:"tcgplayer_url"`
	Artists             []string   `json:"artists"`
}

// FlexString is a stat value that the dump writes as a string, a number or
// null. It always decodes to text, with null as "".
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*f = FlexString(n.String())
	}
	return nil
}

// Decode reads the dump. It takes either a JSON array or a comma-separated
// run of objects without the surrounding brackets.
func Decode(r io.Reader) ([]Card, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read dump: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if raw[0] != '[' {
		raw = append(append([]byte{'['}, raw...), ']')
	}

	var cards []Card
	if err := json.Unmarshal(raw, &cards); err != nil {
		return nil, fmt.Errorf("decode dump: %w", err)
	}

	out := cards[:0]
	for _, c := range cards {
		c.UniqueID = strings.TrimSpace(c.UniqueID)
		c.Name = strings.TrimSpace(c.Name)
		if c.UniqueID == "" || c.Name == "" {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
