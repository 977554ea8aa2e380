package sales

import (
	"errors"
	"fmt"
	"log"

	"taquilla/src/models"
	"taquilla/src/types"

	"gorm.io/gorm"
)

// ErrTerminalStatus is returned when a transition out of paid or cancelled
// is requested. Movement status only ever moves forward.
var ErrTerminalStatus = errors.New("movement status is terminal")

// Store owns Movement, Ticket and MovementTicket records. Creating a sale
// is three sequential writes with no wrapping transaction; a partially
// created sale (movement present, joins missing) is an observable state
// that readers treat as "not yet fulfilled".
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateMovement(movement *models.Movement, tickets []*models.Ticket, soldPrices map[string]float64) error {
	if err := s.db.Create(movement).Error; err != nil {
		return err
	}
	for _, t := range tickets {
		if err := s.db.Create(t).Error; err != nil {
			return err
		}
	}
	for _, t := range tickets {
		price, ok := soldPrices[t.ID]
		if !ok {
			price = t.BasePrice
		}
		join := models.MovementTicket{
			MovementID: movement.ID,
			TicketID:   t.ID,
			SoldPrice:  price,
		}
		if err := s.db.Create(&join).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetMovement(id string) (*models.Movement, error) {
	var movement models.Movement
	if err := s.db.
		Where(&models.Movement{ID: id}).
		First(&movement).
		Error; err != nil {
		return nil, err
	}
	return &movement, nil
}

// UpdateStatus applies a monotonic status transition. Setting the status a
// movement already has is a no-op, so resend flows never fail here.
func (s *Store) UpdateStatus(id string, status types.MovementStatus, metadata *types.JSONB) error {
	movement, err := s.GetMovement(id)
	if err != nil {
		return err
	}
	if movement.Status == status {
		return nil
	}
	if movement.Status != types.MOVEMENT_PENDING {
		return fmt.Errorf("%w: %s is already %s", ErrTerminalStatus, id, movement.Status)
	}
	updates := models.Movement{Status: status}
	if metadata != nil {
		updates.Metadata = metadata
	}
	res := s.db.
		Model(&models.Movement{}).
		Where("id = ? AND status = ?", id, types.MOVEMENT_PENDING).
		Updates(&updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Raced with another writer; re-read to tell idempotent from illegal.
		current, err := s.GetMovement(id)
		if err != nil {
			return err
		}
		if current.Status == status {
			return nil
		}
		return fmt.Errorf("%w: %s is already %s", ErrTerminalStatus, id, current.Status)
	}
	log.Printf("[sales] movement %s status set to %s\n", id, status)
	return nil
}

// GetTicketsForMovement reads the tickets of a movement through the join,
// carrying each ticket's sold price. Missing joins simply shorten the
// result; they never signal cancellation.
func (s *Store) GetTicketsForMovement(id string) ([]models.TicketSale, error) {
	var sales []models.TicketSale
	err := s.db.
		Model(&models.Ticket{}).
		Select("tickets.*, movement_tickets.sold_price AS sold_price").
		Joins("JOIN movement_tickets ON movement_tickets.ticket_id = tickets.id").
		Where("movement_tickets.movement_id = ?", id).
		Order("tickets.created_at ASC").
		Scan(&sales).
		Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) GetTicket(id string) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := s.db.
		Where(&models.Ticket{ID: id}).
		First(&ticket).
		Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

// GetMovementForTicket resolves the movement a ticket was sold in, used by
// entry-time validation.
func (s *Store) GetMovementForTicket(ticketId string) (*models.Movement, error) {
	var join models.MovementTicket
	if err := s.db.
		Where(&models.MovementTicket{TicketID: ticketId}).
		First(&join).
		Error; err != nil {
		return nil, err
	}
	return s.GetMovement(join.MovementID)
}

func (s *Store) GetEvent(id string) (*models.Event, error) {
	var event models.Event
	if err := s.db.
		Where(&models.Event{ID: id}).
		First(&event).
		Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// SetTicketBarcode records the printable code on the ticket row. This is
// the only mutation tickets see after creation.
func (s *Store) SetTicketBarcode(ticketId string, barcode string) error {
	return s.db.
		Model(&models.Ticket{}).
		Where(&models.Ticket{ID: ticketId}).
		Update("barcode", barcode).
		Error
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
