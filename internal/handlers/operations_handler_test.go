package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"profiles-api/internal/adapters/queue"
	"profiles-api/internal/services"
	"profiles-api/pkg/server"

	"github.com/aws/aws-lambda-go/events"
)

func TestHealth(t *testing.T) {
	t.Run("Healthy", func(t *testing.T) {
		h, _ := setupHandlers(t)

		resp, err := h.Health(context.Background(), jsonRequest(t, nil, nil))
		if err != nil {
			t.Fatalf("Health() failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected status 200, got %d: %s", resp.StatusCode, resp.Body)
		}

		var report services.HealthReport
		decodeBody(t, resp, &report)
		if !report.Healthy || len(report.Checks) == 0 {
			t.Errorf("Unexpected report %+v", report)
		}
	})

	t.Run("BillingDown", func(t *testing.T) {
		h, _ := setupHandlers(t, server.WithBilling(&stubBilling{pingErr: errors.New("connection refused")}))

		resp, err := h.Health(context.Background(), jsonRequest(t, nil, nil))
		if err != nil {
			t.Fatalf("Health() failed: %v", err)
		}
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", resp.StatusCode)
		}

		var report services.HealthReport
		decodeBody(t, resp, &report)
		for _, check := range report.Checks {
			if check.Name == "billing" && check.Error == "" {
				t.Error("Expected billing check to carry the error")
			}
		}
	})
}

func TestWorker_DropsUndecodableRecords(t *testing.T) {
	h, _ := setupHandlers(t)

	purge, err := queue.NewTask(queue.TaskPurgeMedia, 1, "user-1").Encode()
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	gone, err := queue.NewTask(queue.TaskProfileImage, 999, "user-999").Encode()
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	resp, err := h.Worker(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m1", Body: "not a task"},
		{MessageId: "m2", Body: `{"type":"reindex","user_id":"user-1"}`},
		{MessageId: "m3", Body: purge},
		{MessageId: "m4", Body: gone},
	}})
	if err != nil {
		t.Fatalf("Worker() failed: %v", err)
	}
	if len(resp.BatchItemFailures) != 0 {
		t.Errorf("Expected no batch failures, got %+v", resp.BatchItemFailures)
	}
}

func TestWorker_ReportsFailedRecords(t *testing.T) {
	h, container := setupHandlers(t)

	task, err := queue.NewTask(queue.TaskProfileImage, 1, "user-1").Encode()
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	// Loading the account fails once the database is gone
	container.Close()

	resp, err := h.Worker(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m1", Body: task},
		{MessageId: "m2", Body: "not a task"},
	}})
	if err != nil {
		t.Fatalf("Worker() failed: %v", err)
	}
	if len(resp.BatchItemFailures) != 1 || resp.BatchItemFailures[0].ItemIdentifier != "m1" {
		t.Errorf("Expected m1 to be reported, got %+v", resp.BatchItemFailures)
	}
}

func TestRunLocalWorker_DrainsQueue(t *testing.T) {
	h, container := setupHandlers(t)
	signUp(t, h, "jane@example.com")

	if container.Queue.Len() == 0 {
		t.Fatal("Expected signup to queue a task")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.RunLocalWorker(ctx, container.Queue, time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for container.Queue.Len() > 0 {
		select {
		case <-deadline:
			t.Fatal("Queue was not drained")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}
