package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CollectionItem is one (card, printing) entry in a user's collection.
type CollectionItem struct {
	InventoryID   int64           `json:"inventory_id"`
	UserID        string          `json:"user_id"`
	CardID        string          `json:"card_id"`
	PrintingID    string          `json:"printing_id"`
	Quantity      int             `json:"quantity"`
	Condition     string          `json:"condition"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	TotalValue    decimal.Decimal `json:"total_value"`
	DateAcquired  time.Time       `json:"date_acquired"`

	CardName string `json:"card_name"`
	Pitch    string `json:"pitch"`
	TypeText string `json:"type_text"`
	Cost     string `json:"cost"`
	SetID    string `json:"set_id"`
	Edition  string `json:"edition"`
	Foiling  string `json:"foiling"`
	Rarity   string `json:"rarity"`
	ImageURL string `json:"image_url"`
}

// CollectionBucket aggregates a user's collection over one grouping key
// (a rarity, a card type or a pitch value).
type CollectionBucket struct {
	Key         string          `json:"key"`
	UniqueCards int             `json:"unique_cards"`
	TotalCards  int             `json:"total_cards"`
	TotalValue  decimal.Decimal `json:"total_value"`
}

type CollectionStats struct {
	ByRarity []CollectionBucket `json:"byRarity"`
	ByType   []CollectionBucket `json:"byType"`
	ByPitch  []CollectionBucket `json:"byPitch"`
}
