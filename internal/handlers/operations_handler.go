package handlers

import (
	"context"
	"net/http"
	"time"

	"profiles-api/internal/adapters/queue"
	"profiles-api/internal/services"
	"profiles-api/pkg/lambda"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"
)

// Health godoc
// @Summary Health check
// @Description Check the database, object storage, billing and the Graph API
// @Tags operations
// @Produce json
// @Success 200 {object} services.HealthReport
// @Failure 503 {object} services.HealthReport
// @Router /health [get]
func (h *Handlers) Health(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	report := h.services.OperationsService.Health(ctx)
	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusServiceUnavailable
	}
	return lambda.JSON(status, report), nil
}

// Warm fires the keep-warm event at every configured function. It runs on
// a schedule, not behind the API.
func (h *Handlers) Warm(ctx context.Context) (*services.WarmReport, error) {
	return h.services.OperationsService.WarmFunctions(ctx)
}

// Worker runs the queued tasks of an SQS batch. Records that fail are
// returned as batch item failures so that only they are redelivered;
// records that cannot be decoded are dropped.
func (h *Handlers) Worker(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, record := range event.Records {
		logger := h.logger.WithField("message_id", record.MessageId)

		task, err := queue.DecodeTask(record.Body)
		if err != nil {
			logger.WithError(err).Error("Dropping undecodable task")
			continue
		}

		if err := h.services.OperationsService.HandleTask(ctx, task); err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"task_id":   task.ID,
				"task_type": task.Type,
			}).Error("Task failed")
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{
				ItemIdentifier: record.MessageId,
			})
		}
	}
	return resp, nil
}

// RunLocalWorker drains an in-process queue until ctx is done. It stands in
// for the SQS worker when the API runs as a single server.
func (h *Handlers) RunLocalWorker(ctx context.Context, q *queue.MemoryQueue, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, task := range q.Drain() {
				if err := h.services.OperationsService.HandleTask(ctx, task); err != nil {
					h.logger.WithError(err).WithFields(logrus.Fields{
						"task_id":   task.ID,
						"task_type": task.Type,
					}).Error("Task failed")
				}
			}
		}
	}
}
