package sync

import "time"

const StockUpdateEvent = "inventory.update"

// StockEvent tells storefront clients that a printing's stock changed.
type StockEvent struct {
	Type       string    `json:"type"`
	PrintingID string    `json:"printing_id"`
	Quantity   int       `json:"quantity"`
	NewStock   int       `json:"new_stock"`
	At         time.Time `json:"at"`
}
