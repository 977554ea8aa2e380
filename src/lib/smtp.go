package lib

import (
	"bytes"
	"log"
	"os"
	"strconv"

	"github.com/wneessen/go-mail"
)

func GetSMTPClient() (*mail.Client, error) {
	host := os.Getenv("SMTP_HOST")
	portEnv := os.Getenv("SMTP_PORT")
	port, err := strconv.Atoi(portEnv)
	if err != nil {
		port = 587
	}
	user := os.Getenv("SMTP_USERNAME")
	pass := os.Getenv("SMTP_PASSWORD")
	if secretId := os.Getenv("SMTP_SECRET_ID"); pass == "" && secretId != "" {
		pass, err = SecretsManagerGetValue(secretId)
		if err != nil {
			return nil, err
		}
	}
	c, err := mail.NewClient(host, mail.WithPort(port), mail.WithSMTPAuth(mail.SMTPAuthPlain), mail.WithUsername(user), mail.WithPassword(pass))
	if err != nil {
		log.Printf("Could not initialize smtp client: %s\n", err.Error())
		return nil, err
	}
	return c, nil
}

type SendMailInput struct {
	From           string
	FromName       string
	To             []string
	ReplyTo        string
	Subject        string
	Body           string
	Html           bool
	AttachmentName string
	AttachmentMime string
	Attachment     []byte
}

func SendMail(inputParams *SendMailInput) error {
	c, err := GetSMTPClient()
	if err != nil {
		return err
	}
	msg, err := NewMailMessage(inputParams)
	if err != nil {
		return err
	}
	if err := c.DialAndSend(msg); err != nil {
		return err
	}
	return nil
}

func NewMailMessage(inputParams *SendMailInput) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(inputParams.FromName, inputParams.From); err != nil {
		log.Printf("Failed to set From address: %s\n", err.Error())
		return nil, err
	}
	if err := msg.To(inputParams.To...); err != nil {
		log.Printf("Failed to set To address: %s\n", err.Error())
		return nil, err
	}
	if inputParams.ReplyTo != "" {
		if err := msg.ReplyTo(inputParams.ReplyTo); err != nil {
			log.Printf("Failed to set Reply-To address: %s\n", err.Error())
		}
	}
	msg.Subject(inputParams.Subject)
	if inputParams.Html {
		msg.SetBodyString(mail.TypeTextHTML, inputParams.Body)
	} else {
		msg.SetBodyString(mail.TypeTextPlain, inputParams.Body)
	}
	if len(inputParams.Attachment) > 0 {
		mime := inputParams.AttachmentMime
		if mime == "" {
			mime = "application/octet-stream"
		}
		if err := msg.AttachReader(inputParams.AttachmentName, bytes.NewReader(inputParams.Attachment), mail.WithFileContentType(mail.ContentType(mime))); err != nil {
			log.Printf("Failed to attach file %s: %s\n", inputParams.AttachmentName, err.Error())
			return nil, err
		}
	}
	return msg, nil
}
