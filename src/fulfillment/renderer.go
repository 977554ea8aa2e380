package fulfillment

import (
	"bytes"
	"fmt"

	"taquilla/src/models"
	"taquilla/src/types"

	"github.com/go-pdf/fpdf"
)

// TicketView is the per-ticket view model merged into the document
// template: ticket fields, the resolved event context and the codes from
// the generator.
type TicketView struct {
	Ticket    models.TicketSale
	Event     types.EventInfo
	BuyerName string
	QRImage   []byte
	Barcode   string
}

// Renderer merges ticket view models into one paginated PDF, one ticket
// block per page so a block never splits across a page break.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Render(views []TicketView) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, v := range views {
		pdf.AddPage()

		pdf.SetFont("Helvetica", "B", 22)
		pdf.CellFormat(0, 14, v.Event.Name, "", 1, "C", false, 0, "")

		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(0, 8, v.Event.Date, "", 1, "C", false, 0, "")
		pdf.CellFormat(0, 8, v.Event.Venue, "", 1, "C", false, 0, "")
		pdf.Ln(6)

		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 10, fmt.Sprintf("Zona: %s", v.Ticket.Zone), "", 1, "L", false, 0, "")
		if v.Ticket.Row != nil {
			pdf.CellFormat(0, 10, fmt.Sprintf("Fila: %s", *v.Ticket.Row), "", 1, "L", false, 0, "")
		}
		if v.Ticket.SeatNumber != nil {
			pdf.CellFormat(0, 10, fmt.Sprintf("Asiento: %d", *v.Ticket.SeatNumber), "", 1, "L", false, 0, "")
		}
		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(0, 8, fmt.Sprintf("Precio: $%.2f", v.Ticket.SoldPrice), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 8, v.BuyerName, "", 1, "L", false, 0, "")
		pdf.Ln(4)

		imageName := fmt.Sprintf("qr_%d", i)
		pdf.RegisterImageOptionsReader(imageName, fpdf.ImageOptions{ImageType: "JPEG"}, bytes.NewReader(v.QRImage))
		pdf.ImageOptions(imageName, 75, pdf.GetY(), 60, 60, false, fpdf.ImageOptions{ImageType: "JPEG"}, 0, "")
		pdf.SetY(pdf.GetY() + 64)

		pdf.SetFont("Courier", "", 12)
		pdf.CellFormat(0, 8, v.Barcode, "", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
