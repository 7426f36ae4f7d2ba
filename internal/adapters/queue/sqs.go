package queue

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/sirupsen/logrus"
)

// sqsAPI is the subset of the SQS client used here
type sqsAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, opts ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher publishes tasks to an SQS queue
type SQSPublisher struct {
	client   sqsAPI
	queueURL string
	logger   *logrus.Logger
}

// NewSQSPublisher creates a publisher from an aws.Config
func NewSQSPublisher(cfg aws.Config, queueURL string, logger *logrus.Logger) *SQSPublisher {
	return newSQSPublisher(sqs.NewFromConfig(cfg), queueURL, logger)
}

func newSQSPublisher(client sqsAPI, queueURL string, logger *logrus.Logger) *SQSPublisher {
	return &SQSPublisher{client: client, queueURL: queueURL, logger: logger}
}

// Publish implements Publisher. The task type is copied into a message
// attribute so queue subscriptions can filter on it.
func (p *SQSPublisher) Publish(ctx context.Context, task Task) error {
	body, err := task.Encode()
	if err != nil {
		return err
	}

	out, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(body),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"type": {DataType: aws.String("String"), StringValue: aws.String(string(task.Type))},
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s task: %w", task.Type, err)
	}

	p.logger.WithFields(logrus.Fields{
		"task_id":    task.ID,
		"task_type":  task.Type,
		"rid":        task.RID,
		"message_id": aws.ToString(out.MessageId),
	}).Info("Task published")
	return nil
}
