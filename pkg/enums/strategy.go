package enums

// DeliveryStrategy names the transport a client should use to receive
// notifications. Derived per session from device capabilities, never persisted.
type DeliveryStrategy string

const (
	DeliveryStrategyWebPush DeliveryStrategy = "web_push"
	DeliveryStrategySSE     DeliveryStrategy = "sse"
	DeliveryStrategyPolling DeliveryStrategy = "polling"
	DeliveryStrategyInApp   DeliveryStrategy = "in_app"
)

var validDeliveryStrategies = []DeliveryStrategy{
	DeliveryStrategyWebPush,
	DeliveryStrategySSE,
	DeliveryStrategyPolling,
	DeliveryStrategyInApp,
}

// IsValid checks whether the strategy matches the canonical enum.
func (s DeliveryStrategy) IsValid() bool {
	for _, candidate := range validDeliveryStrategies {
		if candidate == s {
			return true
		}
	}
	return false
}
