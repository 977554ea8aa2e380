package inventory

import (
	"errors"
	"fmt"
	"log"
	"time"

	"taquilla/src/models"
	"taquilla/src/types"

	"gorm.io/gorm"
)

// ErrConflict is returned when the optimistic write loop exhausts its
// retries without landing an update.
var ErrConflict = errors.New("seat document version conflict")

const defaultMaxRetries = 5

// Store owns the authoritative status and price of every seat of a venue.
// The whole venue is one versioned JSONB document; every write is a
// read-modify-write loop guarded by the version column, so two concurrent
// updates on disjoint seat sets land as the union instead of the last
// writer silently discarding the other.
type Store struct {
	db         *gorm.DB
	maxRetries int
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, maxRetries: defaultMaxRetries}
}

// GetConfig fetches and deserializes the whole seat document.
func (s *Store) GetConfig(venueKey string) (*types.SeatDocument, error) {
	var layout models.VenueLayout
	if err := s.db.
		Where(&models.VenueLayout{Key: venueKey}).
		First(&layout).
		Error; err != nil {
		return nil, err
	}
	return &layout.Document, nil
}

// UpdateStatus replaces the status of each matching seat record and writes
// the document back. Seat ids with no matching record are ignored, the way
// the seat-map editor expects. On version conflict the whole
// read-modify-write is retried.
func (s *Store) UpdateStatus(venueKey string, updates []types.SeatStatusUpdate) error {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		var layout models.VenueLayout
		if err := s.db.
			Where(&models.VenueLayout{Key: venueKey}).
			First(&layout).
			Error; err != nil {
			return err
		}

		doc := layout.Document
		byId := make(map[string]types.SeatStatus, len(updates))
		for _, u := range updates {
			byId[u.SeatID] = u.Status
		}
		for i := range doc.CreatedSeats {
			if status, ok := byId[doc.CreatedSeats[i].ID]; ok {
				doc.CreatedSeats[i].Status = status
			}
		}
		doc.ExportDate = time.Now().UTC().Format(time.RFC3339)

		res := s.db.
			Model(&models.VenueLayout{}).
			Where("key = ? AND version = ?", venueKey, layout.Version).
			Updates(map[string]any{
				"document": doc,
				"version":  layout.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		log.Printf("[inventory] version conflict on %s (attempt %d), retrying\n", venueKey, attempt+1)
	}
	return fmt.Errorf("%w: %s", ErrConflict, venueKey)
}

// ValidateAvailability partitions the requested seat ids by current status.
// Unknown ids count as unavailable.
func (s *Store) ValidateAvailability(venueKey string, seatIds []string) (available []string, unavailable []string, err error) {
	doc, err := s.GetConfig(venueKey)
	if err != nil {
		return nil, nil, err
	}
	statusById := make(map[string]types.SeatStatus, len(doc.CreatedSeats))
	for _, seat := range doc.CreatedSeats {
		statusById[seat.ID] = seat.Status
	}
	for _, id := range seatIds {
		if status, ok := statusById[id]; ok && status == types.SEAT_AVAILABLE {
			available = append(available, id)
		} else {
			unavailable = append(unavailable, id)
		}
	}
	return available, unavailable, nil
}

// Release sets the given seats back to available, used by compensating
// admin flows. Cancelling a movement never triggers this implicitly.
func (s *Store) Release(venueKey string, seatIds []string) error {
	updates := make([]types.SeatStatusUpdate, 0, len(seatIds))
	for _, id := range seatIds {
		updates = append(updates, types.SeatStatusUpdate{SeatID: id, Status: types.SEAT_AVAILABLE})
	}
	return s.UpdateStatus(venueKey, updates)
}

// Import stores a new layout document under the given key with a fresh
// version counter.
func (s *Store) Import(venueKey string, doc types.SeatDocument) error {
	doc.ExportDate = time.Now().UTC().Format(time.RFC3339)
	layout := models.VenueLayout{
		Key:      venueKey,
		Document: doc,
		Version:  0,
	}
	return s.db.Create(&layout).Error
}
