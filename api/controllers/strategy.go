package controllers

import (
	"net/http"
	"strings"

	"github.com/mortarline/notify-backend/api/responses"
	"github.com/mortarline/notify-backend/api/validators"
	"github.com/mortarline/notify-backend/internal/device"
	"github.com/mortarline/notify-backend/internal/strategy"
	"github.com/mortarline/notify-backend/pkg/logger"
)

type strategyRequest struct {
	UserAgent             string `json:"userAgent,omitempty"`
	DisplayModeStandalone bool   `json:"displayModeStandalone"`
	HasServiceWorker      bool   `json:"hasServiceWorker"`
	HasPushManager        bool   `json:"hasPushManager"`
	HasEventSource        bool   `json:"hasEventSource"`
}

type strategyResponse struct {
	Decision     strategy.Decision   `json:"decision"`
	Capabilities device.Capabilities `json:"capabilities"`
}

// SelectStrategy classifies the reported client environment and returns the
// delivery strategy it should use. The User-Agent header fills in when the
// body omits one.
func SelectStrategy(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req strategyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ua := strings.TrimSpace(req.UserAgent)
		if ua == "" {
			ua = r.UserAgent()
		}

		caps := device.Detect(device.Probe{
			UserAgent:             ua,
			DisplayModeStandalone: req.DisplayModeStandalone,
			HasServiceWorker:      req.HasServiceWorker,
			HasPushManager:        req.HasPushManager,
			HasEventSource:        req.HasEventSource,
		})

		responses.WriteSuccess(w, strategyResponse{
			Decision:     strategy.Select(caps),
			Capabilities: caps,
		})
	}
}
