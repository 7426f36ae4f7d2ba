package mail

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/sirupsen/logrus"
)

// sesAPI is the subset of the SES v2 client used here
type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, opts ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender sends email through Amazon SES v2
type SESSender struct {
	client sesAPI
	from   string
	logger *logrus.Logger
}

// NewSESSender creates a sender from an aws.Config
func NewSESSender(cfg aws.Config, from string, logger *logrus.Logger) *SESSender {
	return newSESSender(sesv2.NewFromConfig(cfg), from, logger)
}

func newSESSender(client sesAPI, from string, logger *logrus.Logger) *SESSender {
	return &SESSender{client: client, from: from, logger: logger}
}

// Send implements Sender
func (s *SESSender) Send(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	body := &types.Body{}
	if msg.Text != "" {
		body.Text = &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")}
	}
	if msg.HTML != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")}
	}

	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: msg.To},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send failed: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"message_id": aws.ToString(out.MessageId),
		"recipients": len(msg.To),
	}).Info("Email sent")
	return nil
}
