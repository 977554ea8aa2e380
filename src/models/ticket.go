package models

import "taquilla/src/types"

// Ticket is one seat or general-admission allocation. Rows are never
// deleted and stay immutable once created, except for the code fields
// filled in downstream by fulfillment.
type Ticket struct {
	ID         string  `gorm:"primarykey" json:"id"`
	Zone       string  `json:"zone"`
	Row        *string `json:"row,omitempty"`
	SeatNumber *int    `json:"seat_number,omitempty"`
	BasePrice  float64 `json:"base_price"`
	SeatID     *string `json:"seat_id,omitempty"`
	Barcode    *string `json:"barcode,omitempty"`

	types.Timestamps
}

// TicketSale is a Ticket together with the price it was sold for in a
// specific Movement, read through the movement_tickets join.
type TicketSale struct {
	Ticket
	SoldPrice float64 `json:"sold_price"`
}
