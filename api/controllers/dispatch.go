package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mortarline/notify-backend/api/responses"
	"github.com/mortarline/notify-backend/api/validators"
	"github.com/mortarline/notify-backend/internal/dispatch"
	"github.com/mortarline/notify-backend/pkg/enums"
	pkgerrors "github.com/mortarline/notify-backend/pkg/errors"
	"github.com/mortarline/notify-backend/pkg/logger"
	"github.com/mortarline/notify-backend/pkg/types"
)

type dispatchRequest struct {
	UserID string         `json:"userId" validate:"required,uuid"`
	Title  string         `json:"title" validate:"required,max=200"`
	Body   string         `json:"body" validate:"required,max=2000"`
	Type   string         `json:"type,omitempty" validate:"omitempty,oneof=payment order message general"`
	URL    string         `json:"url,omitempty"`
	Icon   string         `json:"icon,omitempty"`
	Badge  string         `json:"badge,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// DispatchNotification fans one notification out to every active device of
// the target user. Reserved for trusted internal callers; the response
// reports per-endpoint outcomes so operators can see partial failures.
func DispatchNotification(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispatch service unavailable"))
			return
		}

		var req dispatchRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
			return
		}

		notificationType := enums.NotificationTypeGeneral
		if req.Type != "" {
			parsed, err := enums.ParseNotificationType(req.Type)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification type"))
				return
			}
			notificationType = parsed
		}

		report, err := svc.Dispatch(r.Context(), userID, types.NotificationPayload{
			Title: req.Title,
			Body:  req.Body,
			Icon:  req.Icon,
			Badge: req.Badge,
			Data: types.NotificationData{
				URL:   req.URL,
				Type:  notificationType,
				Extra: req.Extra,
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
