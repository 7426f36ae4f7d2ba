package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/sirupsen/logrus"
)

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, in)
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestTask_EncodeDecode(t *testing.T) {
	task := NewTask(TaskProfileImage, 7, "pub-7")
	if task.ID == "" || task.EnqueuedAt.IsZero() {
		t.Fatalf("Expected id and timestamp, got %+v", task)
	}

	body, err := task.Encode()
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	decoded, err := DecodeTask(body)
	if err != nil {
		t.Fatalf("DecodeTask() failed: %v", err)
	}
	if decoded.ID != task.ID || decoded.RID != 7 || decoded.Type != TaskProfileImage {
		t.Errorf("Unexpected decoded task %+v", decoded)
	}

	bad := []string{
		`not json`,
		`{"type":"resize","user_id":"u"}`,
		`{"type":"purge_media"}`,
	}
	for _, body := range bad {
		if _, err := DecodeTask(body); err == nil {
			t.Errorf("Expected %s to be rejected", body)
		}
	}
}

func TestSQSPublisher_Publish(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	fake := &fakeSQS{}
	p := newSQSPublisher(fake, "https://sqs.local/tasks", logger)

	if err := p.Publish(context.Background(), NewTask(TaskPurgeMedia, 3, "pub-3")); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}
	in := fake.inputs[0]
	if aws.ToString(in.QueueUrl) != "https://sqs.local/tasks" {
		t.Errorf("Unexpected queue url %s", aws.ToString(in.QueueUrl))
	}
	if aws.ToString(in.MessageAttributes["type"].StringValue) != "purge_media" {
		t.Error("Expected type attribute")
	}
	if _, err := DecodeTask(aws.ToString(in.MessageBody)); err != nil {
		t.Errorf("Published body does not decode: %v", err)
	}

	fake.err = errors.New("unavailable")
	if err := p.Publish(context.Background(), NewTask(TaskPurgeMedia, 3, "pub-3")); err == nil {
		t.Error("Expected publish error")
	}
}

func TestMemoryQueue(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	_ = q.Publish(ctx, NewTask(TaskProfileImage, 1, "a"))
	_ = q.Publish(ctx, NewTask(TaskPurgeMedia, 2, "b"))
	if q.Len() != 2 {
		t.Fatalf("Expected 2 tasks, got %d", q.Len())
	}

	drained := q.Drain()
	if len(drained) != 2 || drained[0].UserID != "a" || q.Len() != 0 {
		t.Errorf("Unexpected drain result %+v", drained)
	}

	q.FailWith(errors.New("full"))
	if err := q.Publish(ctx, NewTask(TaskProfileImage, 1, "a")); err == nil {
		t.Error("Expected injected failure")
	}
}
