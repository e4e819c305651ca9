package strategy

import (
	"testing"

	"github.com/mortarline/notify-backend/internal/device"
	"github.com/mortarline/notify-backend/pkg/enums"
)

func TestSelectIOSBrowserTab(t *testing.T) {
	decision := Select(device.Capabilities{
		IsIOS:          true,
		IsStandalone:   false,
		HasEventSource: true,
	})
	if decision.Strategy != enums.DeliveryStrategyInApp {
		t.Fatalf("strategy = %s, want %s", decision.Strategy, enums.DeliveryStrategyInApp)
	}
	if !decision.RequiresSetup {
		t.Fatal("expected RequiresSetup for iOS browser tab")
	}
	if decision.Guidance == "" {
		t.Fatal("expected install guidance")
	}
}

func TestSelectIOSStandaloneWithPush(t *testing.T) {
	decision := Select(device.Capabilities{
		IsIOS:         true,
		IsStandalone:  true,
		CanUseWebPush: true,
	})
	if decision.Strategy != enums.DeliveryStrategyWebPush {
		t.Fatalf("strategy = %s, want %s", decision.Strategy, enums.DeliveryStrategyWebPush)
	}
	if decision.RequiresSetup {
		t.Fatal("standalone install needs no further setup")
	}
}

func TestSelectWebPushPreferredOverSSE(t *testing.T) {
	decision := Select(device.Capabilities{
		CanUseWebPush:  true,
		HasEventSource: true,
	})
	if decision.Strategy != enums.DeliveryStrategyWebPush {
		t.Fatalf("strategy = %s, want %s", decision.Strategy, enums.DeliveryStrategyWebPush)
	}
}

func TestSelectSSEFallback(t *testing.T) {
	decision := Select(device.Capabilities{HasEventSource: true})
	if decision.Strategy != enums.DeliveryStrategySSE {
		t.Fatalf("strategy = %s, want %s", decision.Strategy, enums.DeliveryStrategySSE)
	}
}

func TestSelectPollingLastResort(t *testing.T) {
	decision := Select(device.Capabilities{})
	if decision.Strategy != enums.DeliveryStrategyPolling {
		t.Fatalf("strategy = %s, want %s", decision.Strategy, enums.DeliveryStrategyPolling)
	}
	if decision.RequiresSetup {
		t.Fatal("polling must not require setup")
	}
}

func TestSelectIsTotal(t *testing.T) {
	// Every combination of the three inputs the rules read must yield a
	// valid strategy.
	for _, ios := range []bool{false, true} {
		for _, standalone := range []bool{false, true} {
			for _, push := range []bool{false, true} {
				for _, es := range []bool{false, true} {
					decision := Select(device.Capabilities{
						IsIOS:          ios,
						IsStandalone:   standalone,
						CanUseWebPush:  push,
						HasEventSource: es,
					})
					if !decision.Strategy.IsValid() {
						t.Fatalf("invalid strategy %q for ios=%v standalone=%v push=%v es=%v",
							decision.Strategy, ios, standalone, push, es)
					}
				}
			}
		}
	}
}
