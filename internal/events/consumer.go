package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/mortarline/notify-backend/internal/dispatch"
	"github.com/mortarline/notify-backend/internal/notifications"
	"github.com/mortarline/notify-backend/pkg/enums"
	"github.com/mortarline/notify-backend/pkg/idempotency"
	"github.com/mortarline/notify-backend/pkg/logger"
	"github.com/mortarline/notify-backend/pkg/types"
)

const notifyConsumer = "notify-dispatch"

// Consumer watches marketplace domain events and turns them into user
// notifications: one durable in-app row plus a push fan-out to the user's
// registered devices.
type Consumer struct {
	store        notifications.Service
	dispatcher   dispatch.Service
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the notify event consumer.
func NewConsumer(store notifications.Service, dispatcher dispatch.Service, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if store == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatch service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		store:        store,
		dispatcher:   dispatcher,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.EventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	if !eventType.IsValid() {
		c.logg.Info(logCtx, "skipping unhandled event")
		return processResult{ack: true}
	}

	var envelope Envelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	// The routing attribute and the envelope body must agree on the event
	// type; a mismatch means a misrouted or malformed publish.
	if envelope.EventType != "" && envelope.EventType != string(eventType) {
		mismatchCtx := c.logg.WithField(logCtx, "envelope_event_type", envelope.EventType)
		c.logg.Warn(mismatchCtx, "event type mismatch between attribute and envelope")
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, notifyConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handleEvent(ctx, eventType, envelope, logCtx); err != nil {
		c.logg.Error(logCtx, "event handling failed", err)
		_ = c.idempotency.Delete(ctx, notifyConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) handleEvent(ctx context.Context, eventType enums.EventType, envelope Envelope, logCtx context.Context) error {
	switch eventType {
	case enums.EventPaymentVerified:
		return c.handlePaymentVerified(ctx, envelope, logCtx)
	case enums.EventOrderShipped:
		return c.handleOrderShipped(ctx, envelope, logCtx)
	case enums.EventMessageSent:
		return c.handleMessageSent(ctx, envelope, logCtx)
	default:
		c.logg.Info(logCtx, "event type not handled")
		return nil
	}
}

func (c *Consumer) handlePaymentVerified(ctx context.Context, envelope Envelope, logCtx context.Context) error {
	var payload paymentVerifiedPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return fmt.Errorf("parse payment payload: %w", err)
	}
	if payload.UserID == uuid.Nil {
		return fmt.Errorf("user id missing")
	}

	link := fmt.Sprintf("/orders/%s/payment", payload.OrderID)
	body := fmt.Sprintf("Your payment of %s %s was verified.", payload.Amount.StringFixed(2), strings.ToUpper(payload.Currency))
	return c.notify(ctx, payload.UserID, notification{
		Type:  enums.NotificationTypePayment,
		Title: "Payment verified",
		Body:  body,
		Link:  link,
		Extra: map[string]any{
			"paymentId": payload.PaymentID.String(),
			"orderId":   payload.OrderID.String(),
		},
	}, logCtx)
}

func (c *Consumer) handleOrderShipped(ctx context.Context, envelope Envelope, logCtx context.Context) error {
	var payload orderShippedPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return fmt.Errorf("parse order payload: %w", err)
	}
	if payload.UserID == uuid.Nil {
		return fmt.Errorf("user id missing")
	}

	body := "Your order has shipped."
	if payload.Carrier != "" && payload.TrackingNumber != "" {
		body = fmt.Sprintf("Your order shipped via %s. Tracking: %s", payload.Carrier, payload.TrackingNumber)
	}
	return c.notify(ctx, payload.UserID, notification{
		Type:  enums.NotificationTypeOrder,
		Title: "Order shipped",
		Body:  body,
		Link:  fmt.Sprintf("/orders/%s", payload.OrderID),
		Extra: map[string]any{"orderId": payload.OrderID.String()},
	}, logCtx)
}

func (c *Consumer) handleMessageSent(ctx context.Context, envelope Envelope, logCtx context.Context) error {
	var payload messageSentPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return fmt.Errorf("parse message payload: %w", err)
	}
	if payload.RecipientID == uuid.Nil {
		return fmt.Errorf("recipient id missing")
	}

	title := "New message"
	if payload.SenderName != "" {
		title = fmt.Sprintf("New message from %s", payload.SenderName)
	}
	body := strings.TrimSpace(payload.Preview)
	if body == "" {
		body = "You received a new message."
	}
	return c.notify(ctx, payload.RecipientID, notification{
		Type:  enums.NotificationTypeMessage,
		Title: title,
		Body:  body,
		Link:  fmt.Sprintf("/messages/%s", payload.MessageID),
		Extra: map[string]any{"senderId": payload.SenderID.String()},
	}, logCtx)
}

type notification struct {
	Type  enums.NotificationType
	Title string
	Body  string
	Link  string
	Extra map[string]any
}

// notify writes the durable in-app row first, then fans out to push
// endpoints. A dispatch report full of failures is not an error: active
// transports already got their chance and the in-app row catches up the rest.
func (c *Consumer) notify(ctx context.Context, userID uuid.UUID, n notification, logCtx context.Context) error {
	link := n.Link
	if _, err := c.store.Create(ctx, notifications.CreateParams{
		UserID: userID,
		Type:   n.Type,
		Title:  n.Title,
		Body:   n.Body,
		Link:   &link,
	}); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	report, err := c.dispatcher.Dispatch(ctx, userID, types.NotificationPayload{
		Title: n.Title,
		Body:  n.Body,
		Data: types.NotificationData{
			URL:   n.Link,
			Type:  n.Type,
			Extra: n.Extra,
		},
	})
	if err != nil {
		return fmt.Errorf("dispatch notification: %w", err)
	}

	c.logg.Info(c.logg.WithFields(logCtx, map[string]any{
		"success_count": report.SuccessCount,
		"failure_count": report.FailureCount,
	}), "notification dispatched")
	return nil
}
