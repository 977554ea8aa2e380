package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"

	"taquilla/src/lib"
	"taquilla/src/types"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// stripeWebhookRoute adapts checkout session events into the same status
// transitions the payment endpoint applies. The signature check is the
// trust boundary; everything past it goes through the metadata schema.
func stripeWebhookRoute(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhook/stripe", func(ctx *gin.Context) {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		whsecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
		event, err := webhook.ConstructEvent(payload, ctx.GetHeader("Stripe-Signature"), whsecret)
		if err != nil {
			log.Printf("Error verifying webhook signature: %s\n", err.Error())
			ctx.Status(http.StatusBadRequest)
			return
		}
		log.Printf("[StripeEvent] %s\n", event.Type)
		switch event.Type {
		case "checkout.session.completed":
			var cs stripe.CheckoutSession
			if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
				log.Printf("[Stripe] Error parsing CheckoutSession: %s\n", err.Error())
				break
			}
			// Re-retrieve the session instead of trusting the event copy;
			// a completed session can still be unpaid (async methods).
			sc := lib.GetStripeClient()
			session, err := sc.V1CheckoutSessions.Retrieve(context.Background(), cs.ID, nil)
			if err != nil {
				log.Printf("[Stripe] Unable to retrieve session %s: %s\n", cs.ID, err.Error())
				ctx.Status(http.StatusServiceUnavailable)
				return
			}
			if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
				log.Printf("[Stripe] Session %s completed but payment status is %s, skipping\n", session.ID, session.PaymentStatus)
				break
			}
			meta, err := types.ParsePaymentMetadata(session.Metadata)
			if err != nil {
				log.Printf("[Stripe] Rejecting session %s: %s\n", session.ID, err.Error())
				break
			}
			if err := orch.ProcessStatus(ctx.Copy(), meta.MovementID, types.MOVEMENT_PAID); err != nil {
				log.Printf("[Stripe] Error processing movement %s: %s\n", meta.MovementID, err.Error())
			}
		case "checkout.session.expired":
			var cs stripe.CheckoutSession
			if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
				log.Printf("[Stripe] Error parsing CheckoutSession: %s\n", err.Error())
				break
			}
			meta, err := types.ParsePaymentMetadata(cs.Metadata)
			if err != nil {
				log.Printf("[Stripe] Rejecting session %s: %s\n", cs.ID, err.Error())
				break
			}
			if err := orch.ProcessStatus(ctx.Copy(), meta.MovementID, types.MOVEMENT_CANCELLED); err != nil {
				log.Printf("[Stripe] Error cancelling movement %s: %s\n", meta.MovementID, err.Error())
			}
		default:
			log.Printf("[Stripe] Ignoring event %s\n", event.Type)
		}
		ctx.Status(http.StatusOK)
	})
	return apiv1
}
