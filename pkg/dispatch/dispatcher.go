// Package dispatch delivers stage-entry notifications to the external
// notification collaborator: at-most-once per dedupe key, retried with
// exponential backoff, and never surfacing delivery failure to the engine.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/enrollhq/admitflow/pkg/eventbus"
	"github.com/enrollhq/admitflow/pkg/events"
	"github.com/enrollhq/admitflow/pkg/models"
	"github.com/enrollhq/admitflow/pkg/notify"
)

// Config tunes retry behavior. Backoff doubles per attempt from InitialBackoff
// up to MaxBackoff; after MaxAttempts the notification is dropped and the
// failure logged.
type Config struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultConfig mirrors the delivery policy of the production deployment:
// five attempts starting at one second, capped at thirty.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    5,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

// Request is one deliverable notification.
type Request struct {
	ApplicationID string
	TemplateKey   string
	Channels      []models.DeliveryChannel
	DedupeKey     string
}

// Dispatcher routes notification requests to the notifier, deduplicated per
// stage-entry instance.
type Dispatcher struct {
	notifier notify.Notifier
	dedupe   DedupeStore
	logger   *slog.Logger
	config   Config

	// sleep is swapped in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(notifier notify.Notifier, dedupe DedupeStore, logger *slog.Logger, config Config) *Dispatcher {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultConfig().MaxAttempts
	}

	if config.InitialBackoff <= 0 {
		config.InitialBackoff = DefaultConfig().InitialBackoff
	}

	if config.MaxBackoff < config.InitialBackoff {
		config.MaxBackoff = DefaultConfig().MaxBackoff
	}

	return &Dispatcher{
		notifier: notifier,
		dedupe:   dedupe,
		logger:   logger.With("module", "notification_dispatcher"),
		config:   config,
		sleep:    sleepContext,
	}
}

// Dispatch delivers one notification at most once per dedupe key. A second
// dispatch with the same key is a no-op. Permanent delivery failure is
// logged and absorbed; it is an observability event, not an engine error.
func (d *Dispatcher) Dispatch(ctx context.Context, request Request) error {
	first, err := d.dedupe.MarkIfAbsent(ctx, request.DedupeKey)
	if err != nil {
		return err
	}

	if !first {
		d.logger.DebugContext(ctx, "Duplicate dispatch suppressed",
			"dedupe_key", request.DedupeKey)

		return nil
	}

	backoff := d.config.InitialBackoff

	for attempt := 1; attempt <= d.config.MaxAttempts; attempt++ {
		err := d.notifier.Send(ctx, request.TemplateKey, request.Channels, request.ApplicationID)
		if err == nil {
			d.logger.InfoContext(ctx, "Notification delivered",
				"application_id", request.ApplicationID,
				"template_key", request.TemplateKey,
				"attempt", attempt)

			return nil
		}

		d.logger.WarnContext(ctx, "Notification delivery failed",
			"application_id", request.ApplicationID,
			"template_key", request.TemplateKey,
			"attempt", attempt,
			"error", err)

		if attempt == d.config.MaxAttempts {
			break
		}

		if err := d.sleep(ctx, backoff); err != nil {
			return err
		}

		backoff *= 2
		if backoff > d.config.MaxBackoff {
			backoff = d.config.MaxBackoff
		}
	}

	d.logger.ErrorContext(ctx, "Notification delivery permanently failed",
		"application_id", request.ApplicationID,
		"template_key", request.TemplateKey,
		"dedupe_key", request.DedupeKey,
		"attempts", d.config.MaxAttempts)

	return nil
}

// HandleEvent adapts the dispatcher to the event bus: it consumes
// notification.requested events published by the transition executor.
func (d *Dispatcher) HandleEvent(ctx context.Context, event any) error {
	request, ok := event.(*events.NotificationRequested)
	if !ok {
		return nil
	}

	return d.Dispatch(ctx, Request{
		ApplicationID: request.ApplicationID,
		TemplateKey:   request.TemplateKey,
		Channels:      request.Channels,
		DedupeKey:     request.DedupeKey,
	})
}

// Subscribe registers the dispatcher on the event bus and starts consuming.
func (d *Dispatcher) Subscribe(ctx context.Context, bus eventbus.EventBus) error {
	if err := bus.Handle(events.NotificationRequestedEvent, d.HandleEvent); err != nil {
		return err
	}

	return bus.Subscribe(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
