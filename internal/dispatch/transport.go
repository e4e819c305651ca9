package dispatch

import (
	"context"
	"errors"

	"github.com/mortarline/notify-backend/pkg/db/models"
)

// ErrSubscriptionGone signals the push service no longer knows the endpoint
// (expired or unsubscribed at the browser). The dispatcher reacts by
// soft-disabling the subscription; any other transport error is treated as
// transient and leaves the subscription active.
var ErrSubscriptionGone = errors.New("push subscription gone")

// Transport delivers one serialized payload to one push endpoint. Payload
// encryption against the subscription's key material is the transport's
// responsibility.
type Transport interface {
	Send(ctx context.Context, sub models.PushSubscription, payload []byte) error
}

// IsGone reports whether the delivery failure is permanent.
func IsGone(err error) bool {
	return errors.Is(err, ErrSubscriptionGone)
}

// disabledTransport stands in when no VAPID key pair is configured. Clients
// cannot register endpoints in that state, so it only ever sees rows left
// over from before push was turned off.
type disabledTransport struct{}

// NewDisabledTransport returns a transport that fails every send as transient.
func NewDisabledTransport() Transport {
	return disabledTransport{}
}

func (disabledTransport) Send(context.Context, models.PushSubscription, []byte) error {
	return errors.New("web push is not configured")
}
