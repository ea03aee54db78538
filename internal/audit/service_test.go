package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-fooddist/internal/queue"
)

type captureEnqueuer struct {
	tasks []queue.Task
	err   error
}

func (c *captureEnqueuer) Enqueue(_ context.Context, t queue.Task) error {
	if c.err != nil {
		return c.err
	}
	c.tasks = append(c.tasks, t)
	return nil
}

type memStore struct {
	records []Record
	err     error
}

func (m *memStore) Insert(_ context.Context, r Record) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, r)
	return nil
}

func (m *memStore) List(context.Context, ListParams) ([]Record, error) {
	return m.records, nil
}

func TestSubmitEnqueuesRecord(t *testing.T) {
	enq := &captureEnqueuer{}
	service := Service{Enqueuer: enq, Enabled: true, MaxAttempts: 5, Logger: zerolog.Nop()}

	service.Submit(context.Background(), Record{VariantID: "v-1", ProductID: "prod-1", Quantity: 25, Total: 112500, Viable: true})

	if len(enq.tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(enq.tasks))
	}
	task := enq.tasks[0]
	if task.Kind != TaskKind {
		t.Fatalf("unexpected kind %q", task.Kind)
	}
	var got Record
	if err := json.Unmarshal(task.Payload, &got); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if got.ID == "" || got.CreatedAt.IsZero() {
		t.Fatalf("expected generated id and timestamp, got %+v", got)
	}
	if task.IdempotencyKey != got.ID {
		t.Fatalf("idempotency key %q does not match record id %q", task.IdempotencyKey, got.ID)
	}
	if task.MaxAttempts != 5 {
		t.Fatalf("expected configured retry cap on task, got %d", task.MaxAttempts)
	}
}

func TestSubmitDisabledIsNoop(t *testing.T) {
	enq := &captureEnqueuer{}
	service := Service{Enqueuer: enq, Enabled: false, Logger: zerolog.Nop()}
	service.Submit(context.Background(), Record{VariantID: "v-1"})
	if len(enq.tasks) != 0 {
		t.Fatalf("expected no tasks, got %d", len(enq.tasks))
	}
}

func TestSubmitSwallowsEnqueueFailure(t *testing.T) {
	service := Service{Enqueuer: &captureEnqueuer{err: errors.New("redis down")}, Enabled: true, Logger: zerolog.Nop()}
	service.Submit(context.Background(), Record{VariantID: "v-1"})
}

func TestHandleTaskPersistsRecord(t *testing.T) {
	store := &memStore{}
	service := Service{Store: store, Logger: zerolog.Nop()}

	payload, err := json.Marshal(Record{ID: "rec-1", VariantID: "v-1", Quantity: 10})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := service.HandleTask(context.Background(), queue.Task{Kind: TaskKind, Payload: payload}); err != nil {
		t.Fatalf("handle task: %v", err)
	}
	if len(store.records) != 1 || store.records[0].ID != "rec-1" {
		t.Fatalf("unexpected records %+v", store.records)
	}
}

func TestHandleTaskDropsMalformedPayload(t *testing.T) {
	service := Service{Store: &memStore{}, Logger: zerolog.Nop()}
	if err := service.HandleTask(context.Background(), queue.Task{Kind: TaskKind, Payload: []byte("{broken")}); err != nil {
		t.Fatalf("malformed payload should not be retried, got %v", err)
	}
}

func TestHandleTaskReturnsStoreError(t *testing.T) {
	service := Service{Store: &memStore{err: errors.New("db down")}, Logger: zerolog.Nop()}
	payload, _ := json.Marshal(Record{ID: "rec-1"})
	if err := service.HandleTask(context.Background(), queue.Task{Kind: TaskKind, Payload: payload}); err == nil {
		t.Fatal("expected store error to propagate for retry")
	}
}
