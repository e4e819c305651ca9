package hooks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mortarline/notify-backend/pkg/config"
	"github.com/mortarline/notify-backend/pkg/enums"
	"github.com/mortarline/notify-backend/pkg/logger"
	"github.com/mortarline/notify-backend/pkg/types"
)

// Feature names a stream of countable activity a watcher can observe.
type Feature string

const (
	FeaturePayments Feature = "payments"
	FeatureOrders   Feature = "orders"
	FeatureMessages Feature = "messages"
)

// NotificationType maps a watched feature onto the notification taxonomy.
func (f Feature) NotificationType() enums.NotificationType {
	switch f {
	case FeaturePayments:
		return enums.NotificationTypePayment
	case FeatureOrders:
		return enums.NotificationTypeOrder
	case FeatureMessages:
		return enums.NotificationTypeMessage
	default:
		return enums.NotificationTypeGeneral
	}
}

// CountSource reports the current count of items for a feature, e.g. unread
// messages or undelivered order updates.
type CountSource interface {
	Count(ctx context.Context, feature Feature) (int, error)
}

// Notifier receives a payload whenever a watcher observes new activity.
type Notifier interface {
	Notify(ctx context.Context, payload types.NotificationPayload)
}

// Watcher polls a count source on an interval and fires a notification when
// the count rises. The first observation only primes the baseline; a falling
// count (items consumed elsewhere) re-baselines silently.
type Watcher struct {
	feature  Feature
	interval time.Duration
	source   CountSource
	notifier Notifier
	logg     *logger.Logger

	mu        sync.Mutex
	enabled   bool
	primed    bool
	lastCount int

	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher builds a watcher for one feature. It does not start polling
// until Start is called.
func NewWatcher(feature Feature, interval time.Duration, source CountSource, notifier Notifier, logg *logger.Logger) *Watcher {
	return &Watcher{
		feature:  feature,
		interval: interval,
		source:   source,
		notifier: notifier,
		logg:     logg,
		enabled:  true,
	}
}

// SetEnabled gates the poll loop. While disabled the watcher is inert: ticks
// are skipped entirely and the source is never queried. Re-enabling drops the
// baseline, so the first poll afterwards primes silently rather than
// replaying activity that happened in the gap.
func (w *Watcher) SetEnabled(enabled bool) {
	w.mu.Lock()
	if enabled && !w.enabled {
		w.primed = false
	}
	w.enabled = enabled
	w.mu.Unlock()
}

// Start launches the poll loop. Calling Start on a running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != nil {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.run(ctx, w.done)
}

// Stop tears the poll loop down and waits for it to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Watcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Watcher) poll(ctx context.Context) {
	w.mu.Lock()
	enabled := w.enabled
	w.mu.Unlock()
	if !enabled {
		return
	}

	count, err := w.source.Count(ctx, w.feature)
	if err != nil {
		// Transient fetch failures keep the previous baseline; the next tick
		// retries.
		logCtx := w.logg.WithField(ctx, "feature", string(w.feature))
		w.logg.Warn(logCtx, "count poll failed")
		return
	}

	w.mu.Lock()
	primed, last := w.primed, w.lastCount
	w.primed, w.lastCount = true, count
	w.mu.Unlock()

	if !primed || count <= last {
		return
	}
	w.notifier.Notify(ctx, w.payloadFor(count-last))
}

func (w *Watcher) payloadFor(delta int) types.NotificationPayload {
	var title, body string
	switch w.feature {
	case FeaturePayments:
		title = "Payment update"
		body = fmt.Sprintf("You have %d new payment update(s)", delta)
	case FeatureOrders:
		title = "Order update"
		body = fmt.Sprintf("You have %d new order update(s)", delta)
	case FeatureMessages:
		title = "New message"
		body = fmt.Sprintf("You have %d new message(s)", delta)
	default:
		title = "New activity"
		body = fmt.Sprintf("You have %d new update(s)", delta)
	}
	return types.NotificationPayload{
		Title: title,
		Body:  body,
		Data: types.NotificationData{
			URL:  "/" + string(w.feature),
			Type: w.feature.NotificationType(),
		},
	}
}

// Set bundles one watcher per feature, configured from HooksConfig.
type Set struct {
	watchers []*Watcher
}

// NewSet builds the standard payments, orders and messages watchers.
func NewSet(cfg config.HooksConfig, source CountSource, notifier Notifier, logg *logger.Logger) *Set {
	return &Set{watchers: []*Watcher{
		NewWatcher(FeaturePayments, cfg.PaymentsInterval, source, notifier, logg),
		NewWatcher(FeatureOrders, cfg.OrdersInterval, source, notifier, logg),
		NewWatcher(FeatureMessages, cfg.MessagesInterval, source, notifier, logg),
	}}
}

// SetEnabled gates every watcher in the set.
func (s *Set) SetEnabled(enabled bool) {
	for _, w := range s.watchers {
		w.SetEnabled(enabled)
	}
}

// Start launches every watcher in the set.
func (s *Set) Start(ctx context.Context) {
	for _, w := range s.watchers {
		w.Start(ctx)
	}
}

// Stop tears every watcher down.
func (s *Set) Stop() {
	for _, w := range s.watchers {
		w.Stop()
	}
}
