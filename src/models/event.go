package models

import (
	"time"

	"taquilla/src/types"
)

type Event struct {
	ID        string     `gorm:"primarykey" json:"id"`
	Name      string     `json:"name"`
	DateTime  *time.Time `json:"date_time,omitempty"`
	VenueName string     `json:"venue_name,omitempty"`
	VenueKey  string     `json:"venue_key,omitempty"`

	types.Timestamps
}
