// Package relay drains outbox_events into Pub/Sub. Each pass claims a batch
// under FOR UPDATE SKIP LOCKED, so several relays can run side by side, and
// records every row's outcome in the same transaction.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/cafe-backend/pkg/config"
	"github.com/angelmondragon/cafe-backend/pkg/db"
	"github.com/angelmondragon/cafe-backend/pkg/db/models"
	"github.com/angelmondragon/cafe-backend/pkg/enums"
	"github.com/angelmondragon/cafe-backend/pkg/logger"
	"github.com/angelmondragon/cafe-backend/pkg/metrics"
	"github.com/angelmondragon/cafe-backend/pkg/outbox/registry"
)

type Store interface {
	ClaimBatch(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(tx *gorm.DB, id uuid.UUID) error
	RecordFailure(tx *gorm.DB, id uuid.UUID, cause error) error
	DeadLetter(tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, ceiling int) error
}

type Resolver interface {
	Resolve(models.OutboxEvent) (*registry.Resolved, error)
}

// Sink delivers one message and returns its broker ID.
type Sink interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
}

type attributer interface {
	MessageAttributes() map[string]string
}

type Params struct {
	Config   config.OutboxConfig
	Logger   *logger.Logger
	Tx       db.TxRunner
	Store    Store
	Resolver Resolver
	Sink     Sink
	Metrics  *metrics.OutboxMetrics
	// Probes must all answer before the first pass.
	Probes map[string]db.Pinger
}

type Relay struct {
	cfg      config.OutboxConfig
	logg     *logger.Logger
	tx       db.TxRunner
	store    Store
	resolver Resolver
	sink     Sink
	metrics  *metrics.OutboxMetrics
	probes   map[string]db.Pinger
	now      func() time.Time
}

func New(p Params) (*Relay, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.Tx == nil:
		return nil, errors.New("transaction runner is required")
	case p.Store == nil:
		return nil, errors.New("outbox store is required")
	case p.Resolver == nil:
		return nil, errors.New("event resolver is required")
	case p.Sink == nil:
		return nil, errors.New("sink is required")
	}
	return &Relay{
		cfg:      withDefaults(p.Config),
		logg:     p.Logger,
		tx:       p.Tx,
		store:    p.Store,
		resolver: p.Resolver,
		sink:     p.Sink,
		metrics:  p.Metrics,
		probes:   p.Probes,
		now:      time.Now,
	}, nil
}

func withDefaults(cfg config.OutboxConfig) config.OutboxConfig {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.PollInterval {
		cfg.MaxBackoff = 20 * cfg.PollInterval
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 15 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	return cfg
}

// Run polls until ctx is cancelled. A full batch is followed immediately by
// the next pass; an empty one waits PollInterval; a failed one backs off.
func (r *Relay) Run(ctx context.Context) error {
	for name, probe := range r.probes {
		if err := probe.Ping(ctx); err != nil {
			return fmt.Errorf("%s not ready: %w", name, err)
		}
	}

	wait := backoff{base: r.cfg.PollInterval, max: r.cfg.MaxBackoff}
	for {
		n, err := r.drain(ctx)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			r.logg.Error(ctx, "relay.pass_failed", err)
			wait.fail()
		case n == r.cfg.BatchSize:
			wait.reset()
			continue
		default:
			wait.reset()
		}
		if err := sleep(ctx, wait.next()); err != nil {
			return err
		}
	}
}

// drain runs one pass and returns how many rows it claimed.
func (r *Relay) drain(ctx context.Context) (int, error) {
	var claimed int
	err := r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := r.store.ClaimBatch(tx, r.cfg.BatchSize, r.cfg.MaxAttempts)
		if err != nil {
			return fmt.Errorf("claim batch: %w", err)
		}
		claimed = len(events)
		r.metrics.ObserveBatch(claimed)
		for _, ev := range events {
			if err := r.handle(ctx, tx, ev); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed, err
}

// handle delivers one row and records the outcome. Only bookkeeping errors
// are returned; delivery errors are absorbed into the row's state.
func (r *Relay) handle(ctx context.Context, tx *gorm.DB, ev models.OutboxEvent) error {
	ctx = r.logg.WithFields(ctx, map[string]any{
		"outbox_id":     ev.ID.String(),
		"event_type":    ev.EventType,
		"aggregate_id":  ev.AggregateID.String(),
		"attempt_count": ev.AttemptCount,
	})

	resolved, err := r.resolver.Resolve(ev)
	if err != nil {
		return r.bury(ctx, tx, ev, enums.OutboxDLQReasonNonRetryable, err)
	}
	ctx = r.logg.WithFields(ctx, map[string]any{
		"event_id": resolved.Envelope.EventID,
		"topic":    resolved.Route.Topic,
	})

	start := r.now()
	msgID, err := r.send(ctx, ev, resolved)
	took := r.now().Sub(start)

	switch {
	case err == nil:
		if err := r.store.MarkPublished(tx, ev.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", ev.ID, err)
		}
		r.metrics.ObserveDelivery(string(ev.EventType), metrics.DeliveryPublished, took)
		r.logg.Info(r.logg.WithField(ctx, "message_id", msgID), "relay.published")
		return nil
	case registry.IsPermanent(err):
		return r.bury(ctx, tx, ev, enums.OutboxDLQReasonNonRetryable, err)
	case ev.AttemptCount+1 >= r.cfg.MaxAttempts:
		return r.bury(ctx, tx, ev, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", err))
	}

	if err := r.store.RecordFailure(tx, ev.ID, err); err != nil {
		return fmt.Errorf("record failure %s: %w", ev.ID, err)
	}
	r.metrics.ObserveDelivery(string(ev.EventType), metrics.DeliveryRetry, took)
	r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "relay.retry_scheduled")
	return nil
}

func (r *Relay) bury(ctx context.Context, tx *gorm.DB, ev models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	if err := r.store.DeadLetter(tx, ev, reason, cause, r.cfg.MaxAttempts); err != nil {
		return fmt.Errorf("dead-letter %s: %w", ev.ID, err)
	}
	r.metrics.ObserveDelivery(string(ev.EventType), metrics.DeliveryDeadLettered, 0)
	r.metrics.ObserveDeadLetter(string(ev.EventType), string(reason))
	r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
		"error":        cause.Error(),
		"error_reason": reason,
	}), "relay.dead_lettered")
	return nil
}

// send publishes the stored envelope verbatim with routing attributes.
func (r *Relay) send(ctx context.Context, ev models.OutboxEvent, resolved *registry.Resolved) (string, error) {
	attrs := map[string]string{
		"event_id":       resolved.Envelope.EventID,
		"event_type":     string(ev.EventType),
		"aggregate_type": string(ev.AggregateType),
		"aggregate_id":   ev.AggregateID.String(),
		"created_at":     ev.CreatedAt.UTC().Format(time.RFC3339Nano),
		"schema_version": strconv.Itoa(resolved.Envelope.Version),
	}
	if a, ok := resolved.Payload.(attributer); ok {
		for k, v := range a.MessageAttributes() {
			if v != "" {
				attrs[k] = v
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.PublishTimeout)
	defer cancel()
	return r.sink.Publish(ctx, resolved.Route.Topic, ev.Payload, attrs)
}
