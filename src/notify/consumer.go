package notify

import (
	"encoding/json"
	"log"
	"os"

	"taquilla/src/lib"
	awslib "taquilla/src/lib/aws"
	"taquilla/src/utils"
)

type queuedEmail struct {
	From     string   `json:"from"`
	FromName string   `json:"from-name"`
	To       []string `json:"to"`
	Subject  string   `json:"subject"`
	Body     string   `json:"body"`
	Html     bool     `json:"html"`
}

func deliver(msg string) {
	var email queuedEmail
	if err := json.Unmarshal([]byte(msg), &email); err != nil {
		log.Printf("[emails] Error decoding queued message: %s\n", err.Error())
		return
	}
	if os.Getenv("MAIL_TRANSPORT") == "ses" {
		if err := awslib.SESSendEmail(email.From, email.To, email.Subject, email.Body, email.Html); err != nil {
			log.Printf("[emails] Error delivering message over SES: %s\n", err.Error())
		}
		return
	}
	if err := lib.SendMail(&lib.SendMailInput{
		From:     email.From,
		FromName: email.FromName,
		To:       email.To,
		Subject:  email.Subject,
		Body:     email.Body,
		Html:     email.Html,
	}); err != nil {
		log.Printf("[emails] Error delivering message: %s\n", err.Error())
	}
}

// StartConsumer drains the email queue: the Kafka topic locally, the SQS
// queue everywhere else.
func StartConsumer() {
	emailQueue := utils.WithSuffix(os.Getenv("EMAIL_QUEUE"))
	if os.Getenv("API_ENV") == "local" {
		lib.KafkaConsume("emails", emailQueue, deliver)
		return
	}
	consumer := awslib.NewSQSConsumer(emailQueue, deliver)
	consumer.Listen()
}
