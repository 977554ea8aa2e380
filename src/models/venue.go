package models

import "taquilla/src/types"

// VenueLayout persists the entire seat inventory of a venue as one JSONB
// document. Version is the optimistic concurrency token checked and
// incremented on every write; exportDate inside the document is only a
// last-write marker.
type VenueLayout struct {
	Key      string             `gorm:"primarykey" json:"key"`
	Document types.SeatDocument `gorm:"type:jsonb" json:"document"`
	Version  uint               `gorm:"default:0" json:"version"`

	types.Timestamps
}
