package dispatch

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/mortarline/notify-backend/pkg/db/models"
	pkgerrors "github.com/mortarline/notify-backend/pkg/errors"
	"github.com/mortarline/notify-backend/pkg/logger"
	"github.com/mortarline/notify-backend/pkg/metrics"
	"github.com/mortarline/notify-backend/pkg/types"
)

// EndpointResult records the outcome of one delivery attempt.
type EndpointResult struct {
	Endpoint string `json:"endpoint"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// Report aggregates a fan-out. Partial failure is data, not an error: a user
// with zero reachable devices gets a zero-target report, never a failure.
type Report struct {
	SuccessCount int              `json:"successCount"`
	FailureCount int              `json:"failureCount"`
	Results      []EndpointResult `json:"results"`
}

// Service delivers one logical notification to every active device of a user.
type Service interface {
	Dispatch(ctx context.Context, userID uuid.UUID, payload types.NotificationPayload) (*Report, error)
}

type subscriptionStore interface {
	FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.PushSubscription, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type broadcaster interface {
	Publish(userID uuid.UUID, payload types.NotificationPayload)
}

// ServiceParams wires dispatcher dependencies. Hub and Metrics are optional.
type ServiceParams struct {
	Store     subscriptionStore
	Transport Transport
	Hub       broadcaster
	Metrics   *metrics.DispatchMetrics
	Logger    *logger.Logger
}

type service struct {
	store     subscriptionStore
	transport Transport
	hub       broadcaster
	metrics   *metrics.DispatchMetrics
	logg      *logger.Logger
}

// NewService builds the notification dispatcher.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "subscription store required")
	}
	if params.Transport == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "delivery transport required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		store:     params.Store,
		transport: params.Transport,
		hub:       params.Hub,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

func (s *service) Dispatch(ctx context.Context, userID uuid.UUID, payload types.NotificationPayload) (*Report, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if strings.TrimSpace(payload.Title) == "" || strings.TrimSpace(payload.Body) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification title and body required")
	}

	subs, err := s.store.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active subscriptions")
	}

	// Fallback transports see the event even when the user has no push
	// endpoints registered.
	if s.hub != nil {
		s.hub.Publish(userID, payload)
	}

	s.metrics.ObserveTargets(len(subs))

	report := &Report{Results: make([]EndpointResult, len(subs))}
	if len(subs) == 0 {
		return report, nil
	}

	serialized, err := payload.Marshal()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "serialize payload")
	}

	// One goroutine per endpoint; every attempt runs to completion so a dead
	// endpoint cannot block delivery to the user's other devices.
	var wg sync.WaitGroup
	for i := range subs {
		wg.Add(1)
		go func(i int, sub models.PushSubscription) {
			defer wg.Done()
			report.Results[i] = s.attempt(ctx, sub, serialized)
		}(i, subs[i])
	}
	wg.Wait()

	var failures error
	for _, result := range report.Results {
		if result.Success {
			report.SuccessCount++
			continue
		}
		report.FailureCount++
		failures = multierr.Append(failures, pkgerrors.New(pkgerrors.CodeDependency, result.Error))
	}

	if failures != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"user_id":       userID.String(),
			"success_count": report.SuccessCount,
			"failure_count": report.FailureCount,
		})
		s.logg.Error(logCtx, "dispatch completed with delivery failures", failures)
	}

	return report, nil
}

func (s *service) attempt(ctx context.Context, sub models.PushSubscription, payload []byte) EndpointResult {
	start := time.Now()
	err := s.transport.Send(ctx, sub, payload)
	duration := time.Since(start)

	if err == nil {
		s.metrics.ObserveAttempt(metrics.ResultSuccess, duration)
		return EndpointResult{Endpoint: sub.Endpoint, Success: true}
	}

	if IsGone(err) {
		s.metrics.ObserveAttempt(metrics.ResultGone, duration)
		if deactivateErr := s.store.Deactivate(ctx, sub.ID); deactivateErr != nil {
			logCtx := s.logg.WithField(ctx, "subscription_id", sub.ID.String())
			s.logg.Error(logCtx, "failed to deactivate gone subscription", deactivateErr)
		}
		return EndpointResult{Endpoint: sub.Endpoint, Error: err.Error()}
	}

	s.metrics.ObserveAttempt(metrics.ResultTransient, duration)
	return EndpointResult{Endpoint: sub.Endpoint, Error: err.Error()}
}
