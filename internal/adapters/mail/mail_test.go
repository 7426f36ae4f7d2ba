package mail

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sirupsen/logrus"
)

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func TestMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{"valid", Message{To: []string{"a@example.com"}, Subject: "Hi", Text: "body"}, false},
		{"no recipients", Message{Subject: "Hi", Text: "body"}, true},
		{"bad recipient", Message{To: []string{"not-an-email"}, Subject: "Hi", Text: "body"}, true},
		{"no subject", Message{To: []string{"a@example.com"}, Text: "body"}, true},
		{"no body", Message{To: []string{"a@example.com"}, Subject: "Hi"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.msg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSESSender_Send(t *testing.T) {
	fake := &fakeSES{}
	s := newSESSender(fake, "no-reply@example.com", quietLogger())

	msg := &Message{To: []string{"a@example.com"}, Subject: "Reset", Text: "text", HTML: "<p>html</p>"}
	if err := s.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send() failed: %v", err)
	}

	in := fake.input
	if aws.ToString(in.FromEmailAddress) != "no-reply@example.com" {
		t.Errorf("Unexpected sender %s", aws.ToString(in.FromEmailAddress))
	}
	if aws.ToString(in.Content.Simple.Subject.Data) != "Reset" {
		t.Errorf("Unexpected subject")
	}
	if in.Content.Simple.Body.Text == nil || in.Content.Simple.Body.Html == nil {
		t.Error("Expected both text and html parts")
	}

	fake.err = errors.New("throttled")
	if err := s.Send(context.Background(), msg); err == nil {
		t.Error("Expected SES error to surface")
	}
}

func TestLogSender(t *testing.T) {
	s := NewLogSender(quietLogger())
	msg := &Message{To: []string{"a@example.com"}, Subject: "Hi", Text: "body"}

	if err := s.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send() failed: %v", err)
	}
	if sent := s.Sent(); len(sent) != 1 || sent[0].Subject != "Hi" {
		t.Errorf("Unexpected captured messages %+v", sent)
	}

	s.FailWith(errors.New("down"))
	if err := s.Send(context.Background(), msg); err == nil {
		t.Error("Expected injected failure")
	}
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML("Hello <Ann>\n\nClick below\nhttps://x.test/r", "https://x.test/r")
	if err != nil {
		t.Fatalf("RenderHTML() failed: %v", err)
	}
	if !strings.Contains(html, "<p>Hello &lt;Ann&gt;</p>") {
		t.Errorf("Expected escaped paragraph, got %s", html)
	}
	if !strings.Contains(html, `<a href="https://x.test/r">`) {
		t.Errorf("Expected link anchor, got %s", html)
	}
	if strings.Count(html, "https://x.test/r") != 2 {
		t.Errorf("Expected the bare link line to be folded into the anchor, got %s", html)
	}
}
