package models

type Printing struct {
	PrintingID         string   `json:"printing_id"`
	CardID             string   `json:"card_id"`
	SetID              string   `json:"set_id"`
	SetPrintingID      string   `json:"set_printing_id,omitempty"`
	Edition            string   `json:"edition"`
	Foiling            string   `json:"foiling"`
	Rarity             string   `json:"rarity"`
	ExpansionSlot      bool     `json:"expansion_slot"`
	FlavorText         string   `json:"flavor_text,omitempty"`
	ImageURL           string   `json:"image_url"`
	TCGPlayerProductID string   `json:"tcgplayer_product_id,omitempty"`
	TCGPlayerURL       string   `json:"tcgplayer_url,omitempty"`
	Artists            []string `json:"artists"`
}
