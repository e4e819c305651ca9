package enums

// EventType identifies the marketplace domain events the notify worker consumes.
type EventType string

const (
	EventPaymentVerified EventType = "payment.verified"
	EventOrderShipped    EventType = "order.shipped"
	EventMessageSent     EventType = "message.sent"
)

var validEventTypes = []EventType{
	EventPaymentVerified,
	EventOrderShipped,
	EventMessageSent,
}

// IsValid checks whether the event type matches the canonical enum.
func (e EventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// NotificationType returns the corresponding notification category for an event.
func (e EventType) NotificationType() NotificationType {
	switch e {
	case EventPaymentVerified:
		return NotificationTypePayment
	case EventOrderShipped:
		return NotificationTypeOrder
	case EventMessageSent:
		return NotificationTypeMessage
	}
	return NotificationTypeGeneral
}
