package strategy

import (
	"github.com/mortarline/notify-backend/internal/device"
	"github.com/mortarline/notify-backend/pkg/enums"
)

// Decision is the advisory result of strategy selection. The caller owns
// actually establishing the chosen transport.
type Decision struct {
	Strategy      enums.DeliveryStrategy `json:"strategy"`
	Guidance      string                 `json:"guidance"`
	RequiresSetup bool                   `json:"requiresSetup"`
}

const (
	guidanceInstall = "Push notifications on iOS require the app to be added to your home screen first. Install it, then enable notifications."
	guidanceWebPush = "Push notifications are supported on this device."
	guidanceSSE     = "Push is unavailable here; live updates will arrive over a server connection while the app is open."
	guidancePolling = "Push is unavailable here; the app will check for updates periodically while open."
)

// Select maps capabilities to exactly one delivery strategy. Deterministic
// and total; first matching rule wins. Callers must re-evaluate after any
// permission or install-state change rather than caching the result.
func Select(caps device.Capabilities) Decision {
	switch {
	case caps.IsIOS && !caps.IsStandalone:
		return Decision{
			Strategy:      enums.DeliveryStrategyInApp,
			Guidance:      guidanceInstall,
			RequiresSetup: true,
		}
	case caps.CanUseWebPush:
		return Decision{
			Strategy: enums.DeliveryStrategyWebPush,
			Guidance: guidanceWebPush,
		}
	case caps.HasEventSource:
		return Decision{
			Strategy: enums.DeliveryStrategySSE,
			Guidance: guidanceSSE,
		}
	default:
		return Decision{
			Strategy: enums.DeliveryStrategyPolling,
			Guidance: guidancePolling,
		}
	}
}
