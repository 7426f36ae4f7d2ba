// Package queue carries background tasks from request handlers to the
// worker function.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskType names a background job
type TaskType string

const (
	// TaskProfileImage fetches the account's picture and stores the
	// generated profile image
	TaskProfileImage TaskType = "profile_image"
	// TaskPurgeMedia deletes every stored object of a removed account
	TaskPurgeMedia TaskType = "purge_media"
)

// Valid reports whether t is a known task type
func (t TaskType) Valid() bool {
	return t == TaskProfileImage || t == TaskPurgeMedia
}

// Task is the message body on the queue. Delivery is at least once, so
// every task handler must be idempotent.
type Task struct {
	ID         string    `json:"id"`
	Type       TaskType  `json:"type"`
	RID        int64     `json:"rid"`
	UserID     string    `json:"user_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewTask builds a task with a fresh id
func NewTask(taskType TaskType, rid int64, userID string) Task {
	return Task{
		ID:         uuid.NewString(),
		Type:       taskType,
		RID:        rid,
		UserID:     userID,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Encode serializes the task
func (t Task) Encode() (string, error) {
	body, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("encode task: %w", err)
	}
	return string(body), nil
}

// DecodeTask parses and validates a message body
func DecodeTask(body string) (Task, error) {
	var t Task
	if err := json.Unmarshal([]byte(body), &t); err != nil {
		return Task{}, fmt.Errorf("decode task: %w", err)
	}
	if !t.Type.Valid() {
		return Task{}, fmt.Errorf("decode task: unknown type %q", t.Type)
	}
	if t.UserID == "" {
		return Task{}, fmt.Errorf("decode task: missing user_id")
	}
	return t, nil
}

// Publisher enqueues tasks
type Publisher interface {
	Publish(ctx context.Context, task Task) error
}
