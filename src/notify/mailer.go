package notify

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"taquilla/src/lib"
	"taquilla/src/models"
	"taquilla/src/utils"
)

// Mailer composes the two transactional messages of the pipeline. The
// confirmation email travels through the email queue; the tickets-ready
// email is delivered directly over SMTP because it carries the PDF.
type Mailer struct {
	From     string
	FromName string
}

func NewMailer() *Mailer {
	return &Mailer{
		From:     os.Getenv("EMAIL_FROM"),
		FromName: os.Getenv("EMAIL_FROM_NAME"),
	}
}

// enqueue follows the email-queue contract: Kafka when running locally,
// SQS everywhere else.
func (m *Mailer) enqueue(to []string, subject string, body string, html bool) error {
	emailQueue := os.Getenv("EMAIL_QUEUE")
	apiEnv := os.Getenv("API_ENV")
	emailBody := map[string]any{
		"from":      m.From,
		"from-name": m.FromName,
		"to":        to,
		"body":      body,
		"html":      html,
		"subject":   subject,
	}
	if apiEnv == "local" {
		if err := lib.KafkaProduceMessage("emails", utils.WithSuffix(emailQueue), emailBody); err != nil {
			return fmt.Errorf("error sending message to queue: %s", err.Error())
		}
		return nil
	}
	bBody, err := json.Marshal(&emailBody)
	if err != nil {
		return err
	}
	if err := lib.SQSProduceMessage(utils.WithSuffix(emailQueue), string(bBody)); err != nil {
		return fmt.Errorf("error sending message to queue: %s", err.Error())
	}
	return nil
}

// SendPaymentConfirmed dispatches the synchronous "payment confirmed"
// message. Callers treat a failure here as a logged warning; the committed
// movement status is never reverted.
func (m *Mailer) SendPaymentConfirmed(movement *models.Movement) error {
	subject := "Pago confirmado"
	body := fmt.Sprintf(
		"<p>Hola %s,</p><p>Tu pago de $%.2f fue confirmado. Recibir&aacute;s tus boletos en un correo aparte.</p><p>Referencia: %s</p>",
		movement.BuyerName, movement.Total, movement.ID,
	)
	return m.enqueue([]string{movement.BuyerEmail}, subject, body, true)
}

// SendTicketsReady delivers the rendered document. The signed URL expires,
// so the body also carries a persistent link that re-mints it on demand.
func (m *Mailer) SendTicketsReady(movement *models.Movement, document []byte, signedURL string, persistentLink string) error {
	subject := "Tus boletos"
	body := fmt.Sprintf(
		"<p>Hola %s,</p><p>Adjuntamos tus boletos. Tambi&eacute;n puedes descargarlos aqu&iacute;: <a href=\"%s\">descargar boletos</a>.</p><p>Enlace permanente: <a href=\"%s\">%s</a></p>",
		movement.BuyerName, signedURL, persistentLink, persistentLink,
	)
	input := &lib.SendMailInput{
		From:           m.From,
		FromName:       m.FromName,
		To:             []string{movement.BuyerEmail},
		Subject:        subject,
		Body:           body,
		Html:           true,
		AttachmentName: fmt.Sprintf("boletos-%s.pdf", movement.ID),
		AttachmentMime: "application/pdf",
		Attachment:     document,
	}
	if err := lib.SendMail(input); err != nil {
		log.Printf("Error sending tickets email for movement %s: %s\n", movement.ID, err.Error())
		return err
	}
	return nil
}
