package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-fooddist/internal/obs"
	"github.com/noah-isme/backend-fooddist/internal/queue"
)

type taskEnqueuer interface {
	Enqueue(ctx context.Context, t queue.Task) error
}

type recordStore interface {
	Insert(ctx context.Context, r Record) error
	List(ctx context.Context, params ListParams) ([]Record, error)
}

// Service submits pricing audit records through the task queue and
// persists them on the worker side.
type Service struct {
	Enqueuer taskEnqueuer
	Store    recordStore
	Enabled  bool
	// MaxAttempts caps queue redelivery per record. Zero leaves the
	// queue default in place.
	MaxAttempts int
	Logger      zerolog.Logger
}

// Submit queues an audit record for asynchronous persistence. Best
// effort: an unreachable queue is logged, never surfaced to the quote.
func (s Service) Submit(ctx context.Context, r Record) {
	if !s.Enabled || s.Enqueuer == nil {
		return
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(r)
	if err != nil {
		s.Logger.Error().Err(err).Msg("audit record marshal failed")
		return
	}
	if err := s.Enqueuer.Enqueue(ctx, queue.Task{
		Kind:           TaskKind,
		Payload:        payload,
		IdempotencyKey: r.ID,
		MaxAttempts:    s.MaxAttempts,
	}); err != nil {
		s.Logger.Warn().Err(err).Str("record_id", r.ID).Msg("audit enqueue failed")
		recordWrite("enqueue_failed")
	}
}

// HandleTask persists one queued audit record. Wired as the worker
// handler for TaskKind.
func (s Service) HandleTask(ctx context.Context, t queue.Task) error {
	if s.Store == nil {
		return errors.New("audit: store not configured")
	}
	var r Record
	if err := json.Unmarshal(t.Payload, &r); err != nil {
		// Malformed payloads can never succeed, drop instead of retrying.
		s.Logger.Error().Err(err).Msg("audit payload unmarshal failed")
		recordWrite("malformed")
		return nil
	}
	if err := s.Store.Insert(ctx, r); err != nil {
		recordWrite("error")
		return fmt.Errorf("persist audit record: %w", err)
	}
	recordWrite("ok")
	return nil
}

// List returns audit records matching the filter.
func (s Service) List(ctx context.Context, params ListParams) ([]Record, error) {
	if s.Store == nil {
		return nil, errors.New("audit: store not configured")
	}
	rows, err := s.Store.List(ctx, params)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []Record{}
	}
	return rows, nil
}

func recordWrite(result string) {
	if obs.AuditWritesTotal != nil {
		obs.AuditWritesTotal.WithLabelValues(result).Inc()
	}
}
