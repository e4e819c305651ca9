package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mortarline/notify-backend/api/responses"
	"github.com/mortarline/notify-backend/internal/sse"
	"github.com/mortarline/notify-backend/pkg/config"
	pkgerrors "github.com/mortarline/notify-backend/pkg/errors"
	"github.com/mortarline/notify-backend/pkg/logger"
)

// EventStream holds an SSE connection open and relays the user's
// notifications as they are dispatched. Heartbeat comments keep
// intermediaries from closing the idle connection.
func EventStream(hub *sse.Hub, cfg config.SSEConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hub == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event stream unavailable"))
			return
		}

		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		events, unsubscribe := hub.Subscribe(userID)
		defer unsubscribe()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		fmt.Fprint(w, ": connected\n\n")
		flusher.Flush()

		heartbeat := cfg.HeartbeatInterval
		if heartbeat <= 0 {
			heartbeat = 25 * time.Second
		}
		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				fmt.Fprint(w, ": heartbeat\n\n")
				flusher.Flush()
			case payload, ok := <-events:
				if !ok {
					return
				}
				data, err := json.Marshal(payload)
				if err != nil {
					if logg != nil {
						logg.Error(r.Context(), "failed to encode event", err)
					}
					continue
				}
				fmt.Fprintf(w, "event: notification\ndata: %s\n\n", data)
				flusher.Flush()
			}
		}
	}
}
