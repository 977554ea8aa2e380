package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type MovementStatus string

const (
	MOVEMENT_PENDING   MovementStatus = "pending"
	MOVEMENT_PAID      MovementStatus = "paid"
	MOVEMENT_CANCELLED MovementStatus = "cancelled"
)

type SeatStatus string

const (
	SEAT_AVAILABLE SeatStatus = "available"
	SEAT_RESERVED  SeatStatus = "reserved"
	SEAT_OCCUPIED  SeatStatus = "occupied"
	SEAT_SOLD      SeatStatus = "sold"
)

type JobStatus string

const (
	JOB_QUEUED  JobStatus = "queued"
	JOB_RUNNING JobStatus = "running"
	JOB_DONE    JobStatus = "done"
	JOB_DEAD    JobStatus = "dead"
)

// VenueInfo describes the venue a seat document belongs to.
type VenueInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Capacity int    `json:"capacity"`
	Layout   string `json:"layout"`
}

// SeatRecord is one entry of the seat inventory document. The whole venue
// is persisted as a single document, not one row per seat.
type SeatRecord struct {
	ID     string     `json:"id"`
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	Zone   string     `json:"zone"`
	Row    *string    `json:"row,omitempty"`
	Number *int       `json:"seatNumber,omitempty"`
	Price  float64    `json:"price"`
	Status SeatStatus `json:"status"`
}

// SeatDocument is the persisted JSON shape of a venue's seat inventory.
// ExportDate is a last-write marker only; the concurrency token is the
// version column of the row holding the document.
type SeatDocument struct {
	Venue        VenueInfo    `json:"venue"`
	Ruedo        JSONB        `json:"ruedo"`
	CreatedSeats []SeatRecord `json:"createdSeats"`
	ExportDate   string       `json:"exportDate"`
}

func (d SeatDocument) Value() (driver.Value, error) {
	valueString, err := json.Marshal(d)
	return string(valueString), err
}
func (d *SeatDocument) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, d)
}

// TicketCode is the payload embedded in a ticket's scannable code. It is
// derived from Ticket + Movement and regenerable at any time; the QR image
// embedded in the rendered document is the persisted artifact.
type TicketCode struct {
	TicketID   string `json:"ticketId"`
	MovementID string `json:"movementId"`
	Zone       string `json:"zone"`
	Row        string `json:"row,omitempty"`
	SeatNumber *int   `json:"seatNumber,omitempty"`
	Timestamp  int64  `json:"timestamp"`
	Type       string `json:"type"`
}

// EventInfo is the resolved event context rendered onto every ticket block.
type EventInfo struct {
	Name  string `json:"name"`
	Date  string `json:"date"`
	Venue string `json:"venue"`
}

// PaymentMetadata is the closed schema for context carried through an
// external payment session. Parsed and validated at the trust boundary
// before any use.
type PaymentMetadata struct {
	MovementID string `json:"movementId"`
	EventID    string `json:"eventId,omitempty"`
	Version    int    `json:"v"`
}

func ParsePaymentMetadata(md map[string]string) (*PaymentMetadata, error) {
	movementId, ok := md["movementId"]
	if !ok || movementId == "" {
		return nil, errors.New("metadata is missing movementId")
	}
	meta := PaymentMetadata{
		MovementID: movementId,
		EventID:    md["eventId"],
		Version:    1,
	}
	return &meta, nil
}

type ProcessPaymentRequestBody struct {
	MovementID string `json:"movementId" binding:"required"`
	Status     string `json:"status" binding:"required,movementstatus"`
}

type GenerateRequestBody struct {
	MovementID string `json:"movementId" binding:"required"`
}

type GenerateCodesRequestBody struct {
	TicketID   string `json:"ticketId" binding:"required"`
	MovementID string `json:"movementId" binding:"required"`
}

type SeatStatusUpdate struct {
	SeatID string     `json:"seatId" binding:"required"`
	Status SeatStatus `json:"status" binding:"required,seatstatus"`
}

type UpdateSeatsRequestBody struct {
	Updates []SeatStatusUpdate `json:"updates" binding:"required,min=1,dive"`
}

type ValidateSeatsRequestBody struct {
	Seats []string `json:"seats" binding:"required,min=1"`
}

type ReleaseSeatsRequestBody struct {
	Seats []string `json:"seats" binding:"required,min=1"`
}

type ImportLayoutRequestBody struct {
	Venue        VenueInfo    `json:"venue" binding:"required"`
	Ruedo        JSONB        `json:"ruedo"`
	CreatedSeats []SeatRecord `json:"createdSeats" binding:"required"`
}

// Handler consumes one raw queue message.
type Handler func(msg string)
