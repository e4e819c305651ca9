package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/mortarline/notify-backend/pkg/db/models"
	pkgerrors "github.com/mortarline/notify-backend/pkg/errors"
	"github.com/mortarline/notify-backend/pkg/logger"
	"github.com/mortarline/notify-backend/pkg/types"
)

type fakeStore struct {
	mu          sync.Mutex
	subs        []models.PushSubscription
	findErr     error
	deactivated []uuid.UUID
}

func (f *fakeStore) FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.PushSubscription, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.subs, nil
}

func (f *fakeStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deactivated = append(f.deactivated, id)
	return nil
}

// fakeTransport fails endpoints by name: entries in gone return
// ErrSubscriptionGone, entries in transient return a generic error.
type fakeTransport struct {
	mu        sync.Mutex
	gone      map[string]bool
	transient map[string]bool
	sent      []string
	payloads  [][]byte
}

func (f *fakeTransport) Send(ctx context.Context, sub models.PushSubscription, payload []byte) error {
	f.mu.Lock()
	f.sent = append(f.sent, sub.Endpoint)
	f.payloads = append(f.payloads, payload)
	f.mu.Unlock()
	if f.gone[sub.Endpoint] {
		return ErrSubscriptionGone
	}
	if f.transient[sub.Endpoint] {
		return errors.New("push service unavailable")
	}
	return nil
}

type fakeHub struct {
	mu        sync.Mutex
	published []types.NotificationPayload
}

func (f *fakeHub) Publish(userID uuid.UUID, payload types.NotificationPayload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, payload)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test"})
}

func newTestService(t *testing.T, store *fakeStore, transport Transport, hub *fakeHub) Service {
	t.Helper()
	params := ServiceParams{
		Store:     store,
		Transport: transport,
		Logger:    testLogger(),
	}
	if hub != nil {
		params.Hub = hub
	}
	svc, err := NewService(params)
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}
	return svc
}

func subscription(endpoint string) models.PushSubscription {
	return models.PushSubscription{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Endpoint: endpoint,
		P256dh:   "p256dh-key",
		Auth:     "auth-secret",
		IsActive: true,
	}
}

func payload() types.NotificationPayload {
	return types.NotificationPayload{Title: "Order shipped", Body: "Your order is on the way"}
}

func TestDispatchValidation(t *testing.T) {
	svc := newTestService(t, &fakeStore{}, &fakeTransport{}, nil)

	cases := []struct {
		name    string
		userID  uuid.UUID
		payload types.NotificationPayload
	}{
		{"missing user", uuid.Nil, payload()},
		{"missing title", uuid.New(), types.NotificationPayload{Body: "body"}},
		{"missing body", uuid.New(), types.NotificationPayload{Title: "title"}},
		{"blank title", uuid.New(), types.NotificationPayload{Title: "   ", Body: "body"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Dispatch(context.Background(), tc.userID, tc.payload)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeValidation {
				t.Fatalf("expected validation code, got %s", code)
			}
		})
	}
}

func TestDispatchZeroTargets(t *testing.T) {
	transport := &fakeTransport{}
	svc := newTestService(t, &fakeStore{}, transport, nil)

	report, err := svc.Dispatch(context.Background(), uuid.New(), payload())
	if err != nil {
		t.Fatalf("zero targets must not error: %v", err)
	}
	if report.SuccessCount != 0 || report.FailureCount != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
	if len(transport.sent) != 0 {
		t.Fatalf("expected no sends, got %d", len(transport.sent))
	}
}

func TestDispatchAllSucceed(t *testing.T) {
	store := &fakeStore{subs: []models.PushSubscription{
		subscription("https://push.example/a"),
		subscription("https://push.example/b"),
		subscription("https://push.example/c"),
	}}
	transport := &fakeTransport{}
	svc := newTestService(t, store, transport, nil)

	report, err := svc.Dispatch(context.Background(), uuid.New(), payload())
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if report.SuccessCount != 3 || report.FailureCount != 0 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if len(report.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(report.Results))
	}
	for _, result := range report.Results {
		if !result.Success || result.Error != "" {
			t.Fatalf("unexpected result %+v", result)
		}
	}
}

func TestDispatchPartialFailureIsNotAnError(t *testing.T) {
	good := subscription("https://push.example/good")
	dead := subscription("https://push.example/dead")
	flaky := subscription("https://push.example/flaky")
	store := &fakeStore{subs: []models.PushSubscription{good, dead, flaky}}
	transport := &fakeTransport{
		gone:      map[string]bool{dead.Endpoint: true},
		transient: map[string]bool{flaky.Endpoint: true},
	}
	svc := newTestService(t, store, transport, nil)

	report, err := svc.Dispatch(context.Background(), uuid.New(), payload())
	if err != nil {
		t.Fatalf("partial failure must not error: %v", err)
	}
	if report.SuccessCount != 1 || report.FailureCount != 2 {
		t.Fatalf("unexpected counts: %+v", report)
	}

	// Results keep subscription order.
	if !report.Results[0].Success {
		t.Fatalf("expected first endpoint to succeed: %+v", report.Results[0])
	}
	if report.Results[1].Success || report.Results[1].Error == "" {
		t.Fatalf("expected gone endpoint failure with message: %+v", report.Results[1])
	}
	if report.Results[2].Success {
		t.Fatalf("expected transient endpoint failure: %+v", report.Results[2])
	}

	// Every endpoint got an attempt despite the failures.
	if len(transport.sent) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(transport.sent))
	}
}

func TestDispatchDeactivatesGoneOnly(t *testing.T) {
	dead := subscription("https://push.example/dead")
	flaky := subscription("https://push.example/flaky")
	store := &fakeStore{subs: []models.PushSubscription{dead, flaky}}
	transport := &fakeTransport{
		gone:      map[string]bool{dead.Endpoint: true},
		transient: map[string]bool{flaky.Endpoint: true},
	}
	svc := newTestService(t, store, transport, nil)

	if _, err := svc.Dispatch(context.Background(), uuid.New(), payload()); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if len(store.deactivated) != 1 {
		t.Fatalf("expected exactly one deactivation, got %d", len(store.deactivated))
	}
	if store.deactivated[0] != dead.ID {
		t.Fatalf("deactivated wrong subscription: %s", store.deactivated[0])
	}
}

func TestDispatchSerializesPayloadOnce(t *testing.T) {
	store := &fakeStore{subs: []models.PushSubscription{
		subscription("https://push.example/a"),
		subscription("https://push.example/b"),
	}}
	transport := &fakeTransport{}
	svc := newTestService(t, store, transport, nil)

	if _, err := svc.Dispatch(context.Background(), uuid.New(), payload()); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if len(transport.payloads) != 2 {
		t.Fatalf("expected 2 payloads, got %d", len(transport.payloads))
	}
	if string(transport.payloads[0]) != string(transport.payloads[1]) {
		t.Fatal("expected identical serialized payload for every target")
	}
}

func TestDispatchPublishesToHub(t *testing.T) {
	hub := &fakeHub{}
	svc := newTestService(t, &fakeStore{}, &fakeTransport{}, hub)

	p := payload()
	if _, err := svc.Dispatch(context.Background(), uuid.New(), p); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if len(hub.published) != 1 {
		t.Fatalf("expected 1 hub publish, got %d", len(hub.published))
	}
	if hub.published[0].Title != p.Title {
		t.Fatalf("hub got wrong payload: %+v", hub.published[0])
	}
}

func TestDispatchStoreFailure(t *testing.T) {
	store := &fakeStore{findErr: errors.New("db down")}
	svc := newTestService(t, store, &fakeTransport{}, nil)

	_, err := svc.Dispatch(context.Background(), uuid.New(), payload())
	if err == nil {
		t.Fatal("expected error when subscriptions cannot be loaded")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency code, got %s", code)
	}
}

func TestIsGone(t *testing.T) {
	if !IsGone(ErrSubscriptionGone) {
		t.Fatal("ErrSubscriptionGone must classify as gone")
	}
	if !IsGone(errors.Join(errors.New("wrapper"), ErrSubscriptionGone)) {
		t.Fatal("wrapped gone error must classify as gone")
	}
	if IsGone(errors.New("timeout")) {
		t.Fatal("generic error must not classify as gone")
	}
}
