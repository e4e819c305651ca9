package dispatch

import (
	"context"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/mortarline/notify-backend/pkg/config"
	"github.com/mortarline/notify-backend/pkg/db/models"
	pkgerrors "github.com/mortarline/notify-backend/pkg/errors"
)

// WebPushTransport sends VAPID-signed payloads through the browser push
// services. Statuses 404/410 from the push service map to ErrSubscriptionGone.
type WebPushTransport struct {
	cfg    config.WebPushConfig
	client *http.Client
}

// NewWebPushTransport builds the transport from the configured VAPID key pair.
func NewWebPushTransport(cfg config.WebPushConfig) (*WebPushTransport, error) {
	if !cfg.Enabled() {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "VAPID keys not configured")
	}
	return &WebPushTransport{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (t *WebPushTransport) Send(ctx context.Context, sub models.PushSubscription, payload []byte) error {
	target := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, target, &webpush.Options{
		HTTPClient:      t.client,
		Subscriber:      t.cfg.Subscriber,
		VAPIDPublicKey:  t.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: t.cfg.VAPIDPrivateKey,
		TTL:             int(t.cfg.TTL.Seconds()),
	})
	if err != nil {
		return fmt.Errorf("webpush send: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrSubscriptionGone
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	default:
		return fmt.Errorf("webpush status %d", resp.StatusCode)
	}
}
