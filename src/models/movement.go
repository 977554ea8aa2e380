package models

import "taquilla/src/types"

// Movement is one checkout transaction. Status transitions are monotonic:
// pending moves to paid or cancelled, both terminal.
type Movement struct {
	ID            string               `gorm:"primarykey" json:"id"`
	Total         float64              `json:"total"`
	Subtotal      float64              `json:"subtotal"`
	ServiceCharge float64              `json:"service_charge"`
	PaymentMethod string               `json:"payment_method,omitempty"`
	BuyerEmail    string               `json:"buyer_email,omitempty"`
	BuyerName     string               `json:"buyer_name,omitempty"`
	EventID       string               `json:"event_id,omitempty"`
	Status        types.MovementStatus `gorm:"default:'pending'" json:"status"`
	Metadata      *types.JSONB         `gorm:"type:jsonb" json:"metadata,omitempty"`

	Tickets []*Ticket `gorm:"many2many:movement_tickets;" json:"tickets,omitempty"`

	types.Timestamps
}

// MovementTicket joins a Ticket to the Movement it was sold in, recording
// the price actually charged (supports overrides and courtesy tickets).
type MovementTicket struct {
	MovementID string  `gorm:"primarykey" json:"movement_id"`
	TicketID   string  `gorm:"primarykey" json:"ticket_id"`
	SoldPrice  float64 `json:"sold_price"`

	types.Timestamps
}
