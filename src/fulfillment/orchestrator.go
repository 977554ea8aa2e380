package fulfillment

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"time"

	"taquilla/src/inventory"
	"taquilla/src/models"
	"taquilla/src/notify"
	"taquilla/src/sales"
	"taquilla/src/types"
	"taquilla/src/utils"

	"github.com/redis/go-redis/v9"
)

var fallbackEvent = types.EventInfo{
	Name:  "Evento",
	Date:  "",
	Venue: "",
}

// Orchestrator drives the post-payment pipeline: movement status update,
// confirmation email, then codes, document, artifact and tickets email as
// durable background work.
type Orchestrator struct {
	sales     *sales.Store
	seats     *inventory.Store
	codes     *CodeGenerator
	renderer  *Renderer
	publisher *Publisher
	mailer    *notify.Mailer
	queue     *JobQueue
	rdb       *redis.Client
}

func NewOrchestrator(
	salesStore *sales.Store,
	seatStore *inventory.Store,
	publisher *Publisher,
	mailer *notify.Mailer,
	queue *JobQueue,
	rdb *redis.Client,
) *Orchestrator {
	return &Orchestrator{
		sales:     salesStore,
		seats:     seatStore,
		codes:     NewCodeGenerator(),
		renderer:  NewRenderer(),
		publisher: publisher,
		mailer:    mailer,
		queue:     queue,
		rdb:       rdb,
	}
}

// ProcessStatus applies a payment-status transition. For "paid" the
// movement update and confirmation email happen before returning; the
// delivery work itself lands on the durable queue and the caller never
// waits for it. For "cancelled" only the status changes; seats are
// released by a separate explicit operation.
func (o *Orchestrator) ProcessStatus(ctx context.Context, movementId string, status types.MovementStatus) error {
	if _, err := o.sales.GetMovement(movementId); err != nil {
		return err
	}
	if err := o.sales.UpdateStatus(movementId, status, nil); err != nil {
		return err
	}
	if status != types.MOVEMENT_PAID {
		return nil
	}
	movement, err := o.sales.GetMovement(movementId)
	if err != nil {
		return err
	}
	if movement.BuyerEmail != "" {
		if err := o.mailer.SendPaymentConfirmed(movement); err != nil {
			log.Printf("Error sending confirmation email for movement %s: %s\n", movementId, err.Error())
		}
	}
	if o.rdb != nil {
		// Repeated webhook deliveries for the same payment collapse into
		// one enqueue; manual resends are never deduplicated.
		ok, err := o.rdb.SetNX(ctx, fmt.Sprintf("fulfill:%s", movementId), 1, 10*time.Minute).Result()
		if err == nil && !ok {
			return nil
		}
	}
	if _, err := o.queue.Enqueue(movementId); err != nil {
		log.Printf("Error enqueueing fulfillment for movement %s: %s\n", movementId, err.Error())
		return err
	}
	return nil
}

// Fulfill runs the whole delivery sequence for one movement: tickets,
// event context, seat reconciliation, codes, document, artifact, email.
// Any error aborts the rest of the run; the queue decides whether it runs
// again.
func (o *Orchestrator) Fulfill(ctx context.Context, movementId string) error {
	movement, err := o.sales.GetMovement(movementId)
	if err != nil {
		return err
	}
	ticketSales, err := o.sales.GetTicketsForMovement(movementId)
	if err != nil {
		return err
	}
	if len(ticketSales) == 0 {
		return fmt.Errorf("movement %s has no tickets yet", movementId)
	}

	eventInfo := fallbackEvent
	var venueKey string
	event, err := o.sales.GetEvent(movement.EventID)
	if err != nil {
		log.Printf("Could not resolve event %s for movement %s: %s\n", movement.EventID, movementId, err.Error())
	} else {
		eventInfo = types.EventInfo{
			Name:  event.Name,
			Venue: event.VenueName,
		}
		if event.DateTime != nil {
			eventInfo.Date = event.DateTime.Format("02/01/2006 15:04")
		}
		venueKey = event.VenueKey
	}

	if venueKey != "" {
		updates := []types.SeatStatusUpdate{}
		for _, ts := range ticketSales {
			if ts.SeatID != nil {
				updates = append(updates, types.SeatStatusUpdate{SeatID: *ts.SeatID, Status: types.SEAT_SOLD})
			}
		}
		if len(updates) > 0 {
			if err := o.seats.UpdateStatus(venueKey, updates); err != nil {
				return fmt.Errorf("error marking seats sold for movement %s: %w", movementId, err)
			}
		}
	}

	views := make([]TicketView, 0, len(ticketSales))
	for _, ts := range ticketSales {
		ticket := ts.Ticket
		qr, barcode, err := o.codes.Generate(&ticket, movementId)
		if err != nil {
			return fmt.Errorf("error generating codes for ticket %s: %w", ticket.ID, err)
		}
		if err := o.sales.SetTicketBarcode(ticket.ID, barcode); err != nil {
			log.Printf("Error persisting barcode for ticket %s: %s\n", ticket.ID, err.Error())
		}
		views = append(views, TicketView{
			Ticket:    ts,
			Event:     eventInfo,
			BuyerName: movement.BuyerName,
			QRImage:   qr,
			Barcode:   barcode,
		})
	}

	document, err := o.renderer.Render(views)
	if err != nil {
		return fmt.Errorf("error rendering document for movement %s: %w", movementId, err)
	}
	signedURL, err := o.publisher.Publish(ctx, document, movementId)
	if err != nil {
		return fmt.Errorf("error publishing artifact for movement %s: %w", movementId, err)
	}

	if movement.BuyerEmail == "" {
		log.Printf("Movement %s has no buyer email, skipping delivery\n", movementId)
		return nil
	}
	token, err := utils.MintDownloadToken(movementId)
	if err != nil {
		return err
	}
	persistentLink := fmt.Sprintf("%s/download/%s", os.Getenv("APP_HOST"), token)
	if err := o.mailer.SendTicketsReady(movement, document, signedURL, persistentLink); err != nil {
		return err
	}
	log.Printf("Fulfillment for movement %s completed: %d tickets\n", movementId, len(views))
	return nil
}

// GenerateCodes backs the standalone code endpoint: the QR image as a
// base64 data URL plus the printable barcode.
func (o *Orchestrator) GenerateCodes(ticketId string, movementId string) (string, string, error) {
	ticket, err := o.sales.GetTicket(ticketId)
	if err != nil {
		return "", "", err
	}
	qr, barcode, err := o.codes.Generate(ticket, movementId)
	if err != nil {
		return "", "", err
	}
	dataURL := fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(qr))
	return dataURL, barcode, nil
}

// Models exposed for handlers that page through delivery attempts.
func (o *Orchestrator) Jobs(movementId string) ([]models.FulfillmentJob, error) {
	return o.queue.ListForMovement(movementId)
}
