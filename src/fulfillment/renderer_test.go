package fulfillment

import (
	"testing"

	"taquilla/src/models"
	"taquilla/src/types"

	"github.com/stretchr/testify/assert"
)

func renderViews(t *testing.T, n int) []TicketView {
	t.Helper()
	g := NewCodeGenerator()
	event := types.EventInfo{Name: "Corrida de Feria", Date: "15/08/2026 18:00", Venue: "La Plaza"}
	views := make([]TicketView, 0, n)
	for i := 0; i < n; i++ {
		row := "A"
		seat := i + 1
		ticket := models.TicketSale{
			Ticket: models.Ticket{
				ID:         string(rune('a'+i)) + "_ticket",
				Zone:       "Sombra",
				Row:        &row,
				SeatNumber: &seat,
			},
			SoldPrice: 350,
		}
		qr, barcode, err := g.Generate(&ticket.Ticket, "mov_123")
		assert.Nil(t, err)
		views = append(views, TicketView{
			Ticket:    ticket,
			Event:     event,
			BuyerName: "Comprador de Prueba",
			QRImage:   qr,
			Barcode:   barcode,
		})
	}
	return views
}

func TestRenderDocument(t *testing.T) {
	r := NewRenderer()

	out, err := r.Render(renderViews(t, 1))
	assert.Nil(t, err)
	assert.Greater(t, len(out), 0)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestRenderMultipleTickets(t *testing.T) {
	r := NewRenderer()

	one, err := r.Render(renderViews(t, 1))
	assert.Nil(t, err)
	three, err := r.Render(renderViews(t, 3))
	assert.Nil(t, err)
	// One page per ticket: three tickets produce a strictly larger document.
	assert.Greater(t, len(three), len(one))
}

func TestRenderGeneralAdmission(t *testing.T) {
	r := NewRenderer()
	g := NewCodeGenerator()

	ticket := models.TicketSale{
		Ticket:    models.Ticket{ID: "ticket_ga", Zone: "General"},
		SoldPrice: 150,
	}
	qr, barcode, err := g.Generate(&ticket.Ticket, "mov_789")
	assert.Nil(t, err)

	out, err := r.Render([]TicketView{{
		Ticket:  ticket,
		Event:   types.EventInfo{Name: "Evento"},
		QRImage: qr,
		Barcode: barcode,
	}})
	assert.Nil(t, err)
	assert.Greater(t, len(out), 0)
}
