// Package notify defines the outbound notification collaborator contract.
// Delivery mechanics (email, SMS, in-app) live outside the engine; the
// dispatcher only handles retry, backoff and dedupe around this interface.
package notify

import (
	"context"
	"log/slog"

	"github.com/enrollhq/admitflow/pkg/models"
)

// Notifier delivers one notification. Success and failure are opaque to the
// engine beyond triggering retries.
type Notifier interface {
	Send(ctx context.Context, templateKey string, channels []models.DeliveryChannel, applicationID string) error
}

// LogNotifier writes notifications to the log instead of delivering them.
// Useful for local development.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("module", "log_notifier")}
}

func (n *LogNotifier) Send(ctx context.Context, templateKey string, channels []models.DeliveryChannel, applicationID string) error {
	n.logger.InfoContext(ctx, "Delivering notification",
		"template_key", templateKey,
		"channels", channels,
		"application_id", applicationID)

	return nil
}
