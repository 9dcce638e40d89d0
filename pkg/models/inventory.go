package models

import "time"

// StockItem is the storefront's stock level for one printing.
type StockItem struct {
	InventoryID   int64     `json:"inventory_id"`
	PrintingID    string    `json:"printing_id"`
	CardID        string    `json:"card_id,omitempty"`
	CardName      string    `json:"card_name"`
	SetID         string    `json:"set_id"`
	Edition       string    `json:"edition"`
	Foiling       string    `json:"foiling"`
	Rarity        string    `json:"rarity"`
	StockQuantity int       `json:"stock_quantity"`
	LastUpdated   time.Time `json:"last_updated"`
}
