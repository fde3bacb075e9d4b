// Package notify fans out post-processing notifications to the configured
// channels.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// CallNotification is the material a channel formats into its own message.
type CallNotification struct {
	Call         *models.Call
	Summary      *models.CallSummary
	ActionItems  []models.ActionItem
	DashboardURL string
}

// Channel delivers a call notification over one medium.
type Channel interface {
	Name() string
	Send(ctx context.Context, notification *CallNotification) error
}

// Config holds notifier behavior settings.
type Config struct {
	// MinUrgency suppresses notifications for calls scored below it.
	// Zero means notify on every processed call.
	MinUrgency int
}

// Notifier dispatches a notification to every channel concurrently. A
// failing channel never blocks or fails the others.
type Notifier struct {
	channels []Channel
	config   Config
	logger   ectologger.Logger
}

// NewNotifier creates a notifier over the given channels.
func NewNotifier(channels []Channel, config Config, logger ectologger.Logger) *Notifier {
	return &Notifier{
		channels: channels,
		config:   config,
		logger:   logger,
	}
}

// Notify sends the notification on all channels and waits for them to
// finish. The returned error aggregates per-channel failures; callers
// treat it as best-effort.
func (n *Notifier) Notify(ctx context.Context, notification *CallNotification) error {
	ctx, span := tracing.StartSpan(ctx, "notify.Notifier.Notify")
	defer span.End()

	if len(n.channels) == 0 {
		n.logger.WithContext(ctx).Warn("No notification channels configured, skipping")
		return nil
	}

	if n.config.MinUrgency > 0 && notification.Summary != nil && notification.Summary.UrgencyScore != nil {
		if *notification.Summary.UrgencyScore < n.config.MinUrgency {
			n.logger.WithContext(ctx).WithFields(map[string]any{
				"urgency_score": *notification.Summary.UrgencyScore,
				"min_urgency":   n.config.MinUrgency,
			}).Debug("Urgency below notification threshold, skipping")
			return nil
		}
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(n.channels))

	for _, channel := range n.channels {
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()

			if err := ch.Send(ctx, notification); err != nil {
				metrics.NotificationsTotal.WithLabelValues(ch.Name(), "failure").Inc()
				n.logger.WithContext(ctx).WithError(err).Errorf("Notification channel %s failed", ch.Name())
				errCh <- fmt.Errorf("%s: %w", ch.Name(), err)
				return
			}

			metrics.NotificationsTotal.WithLabelValues(ch.Name(), "success").Inc()
			n.logger.WithContext(ctx).Infof("Sent notification via %s", ch.Name())
		}(channel)
	}

	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d notification channels failed: %v", len(errs), len(n.channels), errs)
	}

	return nil
}
