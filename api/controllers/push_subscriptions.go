package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mortarline/notify-backend/api/middleware"
	"github.com/mortarline/notify-backend/api/responses"
	"github.com/mortarline/notify-backend/api/validators"
	"github.com/mortarline/notify-backend/internal/subscriptions"
	"github.com/mortarline/notify-backend/pkg/config"
	pkgerrors "github.com/mortarline/notify-backend/pkg/errors"
	"github.com/mortarline/notify-backend/pkg/logger"
)

type registerSubscriptionRequest struct {
	Endpoint string                  `json:"endpoint" validate:"required,url"`
	Keys     subscriptionKeysRequest `json:"keys" validate:"required"`
}

type subscriptionKeysRequest struct {
	P256dh string `json:"p256dh" validate:"required"`
	Auth   string `json:"auth" validate:"required"`
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
}

// RegisterPushSubscription stores (or refreshes) a browser push registration
// for the authenticated user.
func RegisterPushSubscription(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscriptions service unavailable"))
			return
		}

		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req registerSubscriptionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.Register(r.Context(), subscriptions.RegisterParams{
			UserID:    userID,
			Endpoint:  req.Endpoint,
			P256dh:    req.Keys.P256dh,
			Auth:      req.Keys.Auth,
			UserAgent: r.UserAgent(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sub)
	}
}

// RemovePushSubscription hard-deletes a registration by endpoint. Users may
// only remove their own endpoints.
func RemovePushSubscription(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscriptions service unavailable"))
			return
		}

		if _, err := authenticatedUserID(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req unsubscribeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Unsubscribe(r.Context(), req.Endpoint); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

// VAPIDPublicKey hands clients the key they need to call
// PushManager.subscribe.
func VAPIDPublicKey(cfg config.WebPushConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !cfg.Enabled() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "web push is not configured"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"publicKey": cfg.VAPIDPublicKey})
	}
}

func authenticatedUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return userID, nil
}
