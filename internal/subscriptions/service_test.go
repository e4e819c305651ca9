package subscriptions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mortarline/notify-backend/pkg/db/models"
	pkgerrors "github.com/mortarline/notify-backend/pkg/errors"
)

type fakeRepository struct {
	upsertFn     func(ctx context.Context, sub *models.PushSubscription) (*models.PushSubscription, error)
	findActiveFn func(ctx context.Context, userID uuid.UUID) ([]models.PushSubscription, error)
	deleteFn     func(ctx context.Context, endpoint string) (bool, error)
	deactivateFn func(ctx context.Context, id uuid.UUID) error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.PushSubscription, error) {
	if f.findActiveFn != nil {
		return f.findActiveFn(ctx, userID)
	}
	return nil, nil
}

func (f *fakeRepository) FindByEndpoint(ctx context.Context, endpoint string) (*models.PushSubscription, error) {
	return nil, nil
}

func (f *fakeRepository) UpsertByEndpoint(ctx context.Context, sub *models.PushSubscription) (*models.PushSubscription, error) {
	if f.upsertFn != nil {
		return f.upsertFn(ctx, sub)
	}
	return sub, nil
}

func (f *fakeRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	if f.deactivateFn != nil {
		return f.deactivateFn(ctx, id)
	}
	return nil
}

func (f *fakeRepository) DeleteByEndpoint(ctx context.Context, endpoint string) (bool, error) {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, endpoint)
	}
	return false, nil
}

func (f *fakeRepository) DeleteInactiveBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	return 0, nil
}

func newServiceWithRepo(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}
	return svc
}

func validParams() RegisterParams {
	return RegisterParams{
		UserID:    uuid.New(),
		Endpoint:  "https://push.example/endpoint",
		P256dh:    "p256dh-key",
		Auth:      "auth-secret",
		UserAgent: "Mozilla/5.0",
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{})

	cases := []struct {
		name   string
		mutate func(*RegisterParams)
	}{
		{"missing user", func(p *RegisterParams) { p.UserID = uuid.Nil }},
		{"missing endpoint", func(p *RegisterParams) { p.Endpoint = "" }},
		{"missing p256dh", func(p *RegisterParams) { p.P256dh = "" }},
		{"missing auth", func(p *RegisterParams) { p.Auth = "  " }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := validParams()
			tc.mutate(&params)
			_, err := svc.Register(context.Background(), params)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeValidation {
				t.Fatalf("expected validation code, got %s", code)
			}
		})
	}
}

func TestRegisterUpserts(t *testing.T) {
	var captured *models.PushSubscription
	repo := &fakeRepository{
		upsertFn: func(ctx context.Context, sub *models.PushSubscription) (*models.PushSubscription, error) {
			captured = sub
			stored := *sub
			stored.ID = uuid.New()
			stored.IsActive = true
			return &stored, nil
		},
	}
	svc := newServiceWithRepo(t, repo)

	params := validParams()
	stored, err := svc.Register(context.Background(), params)
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if captured == nil {
		t.Fatal("expected upsert call")
	}
	if captured.Endpoint != params.Endpoint || captured.UserID != params.UserID {
		t.Fatalf("upsert got wrong row: %+v", captured)
	}
	if stored.ID == uuid.Nil || !stored.IsActive {
		t.Fatalf("expected stored active row, got %+v", stored)
	}
}

func TestRegisterRepoFailure(t *testing.T) {
	repo := &fakeRepository{
		upsertFn: func(ctx context.Context, sub *models.PushSubscription) (*models.PushSubscription, error) {
			return nil, errors.New("db down")
		},
	}
	svc := newServiceWithRepo(t, repo)

	_, err := svc.Register(context.Background(), validParams())
	if err == nil {
		t.Fatal("expected error")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency code, got %s", code)
	}
}

func TestUnsubscribe(t *testing.T) {
	deleted := ""
	repo := &fakeRepository{
		deleteFn: func(ctx context.Context, endpoint string) (bool, error) {
			deleted = endpoint
			return true, nil
		},
	}
	svc := newServiceWithRepo(t, repo)

	if err := svc.Unsubscribe(context.Background(), "https://push.example/endpoint"); err != nil {
		t.Fatalf("Unsubscribe() error: %v", err)
	}
	if deleted != "https://push.example/endpoint" {
		t.Fatalf("deleted wrong endpoint: %q", deleted)
	}
}

func TestUnsubscribeNotFound(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{
		deleteFn: func(ctx context.Context, endpoint string) (bool, error) {
			return false, nil
		},
	})

	err := svc.Unsubscribe(context.Background(), "https://push.example/unknown")
	if err == nil {
		t.Fatal("expected not found error")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %s", code)
	}
}

func TestActiveForUser(t *testing.T) {
	userID := uuid.New()
	repo := &fakeRepository{
		findActiveFn: func(ctx context.Context, got uuid.UUID) ([]models.PushSubscription, error) {
			if got != userID {
				t.Fatalf("queried wrong user: %s", got)
			}
			return []models.PushSubscription{{ID: uuid.New(), UserID: userID, IsActive: true}}, nil
		},
	}
	svc := newServiceWithRepo(t, repo)

	subs, err := svc.ActiveForUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("ActiveForUser() error: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected 1 subscription, got %d", len(subs))
	}
}
