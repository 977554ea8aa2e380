package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePaymentMetadata(t *testing.T) {
	meta, err := ParsePaymentMetadata(map[string]string{
		"movementId": "mov_123",
		"eventId":    "ev_9",
		"ignored":    "anything",
	})
	assert.Nil(t, err)
	assert.Equal(t, "mov_123", meta.MovementID)
	assert.Equal(t, "ev_9", meta.EventID)
}

func TestParsePaymentMetadataRequiresMovement(t *testing.T) {
	_, err := ParsePaymentMetadata(map[string]string{"eventId": "ev_9"})
	assert.NotNil(t, err)

	_, err = ParsePaymentMetadata(map[string]string{"movementId": ""})
	assert.NotNil(t, err)
}

func TestSeatDocumentRoundTrip(t *testing.T) {
	row := "A"
	num := 4
	doc := SeatDocument{
		Venue: VenueInfo{Name: "La Plaza", Type: "ruedo", Capacity: 2},
		CreatedSeats: []SeatRecord{
			{ID: "s1", Zone: "Sombra", Row: &row, Number: &num, Price: 350, Status: SEAT_AVAILABLE},
			{ID: "s2", Zone: "Sol", Price: 200, Status: SEAT_SOLD},
		},
		ExportDate: "2026-01-01T00:00:00Z",
	}

	value, err := doc.Value()
	assert.Nil(t, err)

	var decoded SeatDocument
	assert.Nil(t, decoded.Scan([]byte(value.(string))))
	assert.Equal(t, doc.Venue.Name, decoded.Venue.Name)
	assert.Len(t, decoded.CreatedSeats, 2)
	assert.Equal(t, SEAT_SOLD, decoded.CreatedSeats[1].Status)
	assert.Nil(t, decoded.CreatedSeats[1].Row)
}

func TestTicketCodeOmitsEmptySeat(t *testing.T) {
	code := TicketCode{
		TicketID:   "ticket_1",
		MovementID: "mov_123",
		Zone:       "General",
		Timestamp:  1767225600,
		Type:       "admission",
	}
	b, err := json.Marshal(&code)
	assert.Nil(t, err)
	assert.NotContains(t, string(b), "seatNumber")
	assert.NotContains(t, string(b), "row")
	assert.Contains(t, string(b), `"type":"admission"`)
}
