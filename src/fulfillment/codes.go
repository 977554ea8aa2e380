package fulfillment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"taquilla/src/config"
	"taquilla/src/models"
	"taquilla/src/types"

	"github.com/yeqown/go-qrcode"
)

// CodeGenerator derives scannable codes from a ticket and its movement.
// Codes carry a generation timestamp, so a resend produces fresh ones; a
// scanned code is validated by looking the ticket up, not by verifying a
// signature.
type CodeGenerator struct{}

func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{}
}

// Barcode is the printable text code: "{movementId}-{ticketId}".
func (g *CodeGenerator) Barcode(movementId, ticketId string) string {
	return fmt.Sprintf("%s-%s", movementId, ticketId)
}

// Payload builds the serialized code structure embedded in the QR image.
func (g *CodeGenerator) Payload(ticket *models.Ticket, movementId string) ([]byte, error) {
	code := types.TicketCode{
		TicketID:   ticket.ID,
		MovementID: movementId,
		Zone:       ticket.Zone,
		SeatNumber: ticket.SeatNumber,
		Timestamp:  time.Now().Unix(),
		Type:       "admission",
	}
	if ticket.Row != nil {
		code.Row = *ticket.Row
	}
	return json.Marshal(&code)
}

// Generate renders the QR image for one ticket. The image has a fixed
// module width, a quiet-zone border and the default two-tone palette.
func (g *CodeGenerator) Generate(ticket *models.Ticket, movementId string) ([]byte, string, error) {
	payload, err := g.Payload(ticket, movementId)
	if err != nil {
		return nil, "", err
	}
	qrc, err := qrcode.New(string(payload),
		qrcode.WithQRWidth(config.QR_MODULE_WIDTH),
		qrcode.WithBorderWidth(config.QR_BORDER_WIDTH),
		qrcode.WithBuiltinImageEncoder(qrcode.JPEG_FORMAT),
	)
	if err != nil {
		return nil, "", err
	}
	var buf bytes.Buffer
	if err := qrc.SaveTo(&buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), g.Barcode(movementId, ticket.ID), nil
}
