package subscriptions

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/mortarline/notify-backend/pkg/db/models"
	pkgerrors "github.com/mortarline/notify-backend/pkg/errors"
)

// Service defines registration and lifecycle operations for push subscriptions.
type Service interface {
	Register(ctx context.Context, params RegisterParams) (*models.PushSubscription, error)
	Unsubscribe(ctx context.Context, endpoint string) error
	ActiveForUser(ctx context.Context, userID uuid.UUID) ([]models.PushSubscription, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// RegisterParams carries one browser push registration.
type RegisterParams struct {
	UserID    uuid.UUID
	Endpoint  string
	P256dh    string
	Auth      string
	UserAgent string
}

type service struct {
	repo Repository
}

// NewService wires subscription dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "subscriptions repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Register(ctx context.Context, params RegisterParams) (*models.PushSubscription, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if strings.TrimSpace(params.Endpoint) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "endpoint required")
	}
	if strings.TrimSpace(params.P256dh) == "" || strings.TrimSpace(params.Auth) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription keys required")
	}

	sub := &models.PushSubscription{
		UserID:    params.UserID,
		Endpoint:  params.Endpoint,
		P256dh:    params.P256dh,
		Auth:      params.Auth,
		UserAgent: params.UserAgent,
	}

	stored, err := s.repo.UpsertByEndpoint(ctx, sub)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store subscription")
	}
	return stored, nil
}

func (s *service) Unsubscribe(ctx context.Context, endpoint string) error {
	if strings.TrimSpace(endpoint) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "endpoint required")
	}
	found, err := s.repo.DeleteByEndpoint(ctx, endpoint)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete subscription")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	return nil
}

func (s *service) ActiveForUser(ctx context.Context, userID uuid.UUID) ([]models.PushSubscription, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	subs, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscriptions")
	}
	return subs, nil
}

func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription id required")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate subscription")
	}
	return nil
}
