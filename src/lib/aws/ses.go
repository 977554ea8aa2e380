package aws

import (
	"context"
	"errors"
	"log"

	"taquilla/src/lib"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESSendEmail delivers one transactional email through SES. Attachments
// are not supported on this transport; the ticket-delivery path always uses
// SMTP for that reason.
func SESSendEmail(from string, to []string, subject string, body string, html bool) error {
	client := lib.AWSGetSESClient()
	if client == nil {
		return errors.New("ses client unavailable")
	}
	content := sestypes.Content{Data: aws.String(body)}
	msgBody := sestypes.Body{}
	if html {
		msgBody.Html = &content
	} else {
		msgBody.Text = &content
	}
	out, err := client.SendEmail(context.TODO(), &ses.SendEmailInput{
		Source:      aws.String(from),
		Destination: &sestypes.Destination{ToAddresses: to},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body:    &msgBody,
		},
	})
	if err != nil {
		log.Printf("[ses] Error sending email: %s\n", err.Error())
		return err
	}
	log.Printf("[ses] Sent email with id: %s\n", *out.MessageId)
	return nil
}
