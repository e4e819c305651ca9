package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mortarline/notify-backend/pkg/db/models"
	"github.com/mortarline/notify-backend/pkg/enums"
	pkgerrors "github.com/mortarline/notify-backend/pkg/errors"
	paginationpkg "github.com/mortarline/notify-backend/pkg/pagination"
)

type fakeRepository struct {
	createFn      func(ctx context.Context, notification *models.Notification) error
	listFn        func(ctx context.Context, userID uuid.UUID, cursor *paginationpkg.Cursor, limit int, unreadOnly bool) ([]models.Notification, error)
	countFn       func(ctx context.Context, userID uuid.UUID, notificationType *enums.NotificationType) (int64, error)
	markReadFn    func(ctx context.Context, userID, id uuid.UUID) (bool, error)
	markAllReadFn func(ctx context.Context, userID uuid.UUID) (int64, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, notification *models.Notification) error {
	if f.createFn != nil {
		return f.createFn(ctx, notification)
	}
	return nil
}

func (f *fakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	return nil, nil
}

func (f *fakeRepository) ListByUser(ctx context.Context, userID uuid.UUID, cursor *paginationpkg.Cursor, limit int, unreadOnly bool) ([]models.Notification, error) {
	if f.listFn != nil {
		return f.listFn(ctx, userID, cursor, limit, unreadOnly)
	}
	return nil, nil
}

func (f *fakeRepository) CountUnread(ctx context.Context, userID uuid.UUID, notificationType *enums.NotificationType) (int64, error) {
	if f.countFn != nil {
		return f.countFn(ctx, userID, notificationType)
	}
	return 0, nil
}

func (f *fakeRepository) MarkRead(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	if f.markReadFn != nil {
		return f.markReadFn(ctx, userID, id)
	}
	return false, nil
}

func (f *fakeRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if f.markAllReadFn != nil {
		return f.markAllReadFn(ctx, userID)
	}
	return 0, nil
}

func (f *fakeRepository) DeleteReadBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
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

func TestCreateValidation(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{})

	cases := []struct {
		name   string
		params CreateParams
	}{
		{"missing user", CreateParams{Type: enums.NotificationTypeOrder, Title: "t", Body: "b"}},
		{"invalid type", CreateParams{UserID: uuid.New(), Type: "bogus", Title: "t", Body: "b"}},
		{"missing title", CreateParams{UserID: uuid.New(), Type: enums.NotificationTypeOrder, Body: "b"}},
		{"missing body", CreateParams{UserID: uuid.New(), Type: enums.NotificationTypeOrder, Title: "t"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.params)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeValidation {
				t.Fatalf("expected validation code, got %s", code)
			}
		})
	}
}

func TestCreateStoresRow(t *testing.T) {
	var captured *models.Notification
	repo := &fakeRepository{
		createFn: func(ctx context.Context, notification *models.Notification) error {
			captured = notification
			return nil
		},
	}
	svc := newServiceWithRepo(t, repo)

	userID := uuid.New()
	_, err := svc.Create(context.Background(), CreateParams{
		UserID: userID,
		Type:   enums.NotificationTypePayment,
		Title:  "Payment verified",
		Body:   "Your payment went through.",
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if captured == nil || captured.UserID != userID || captured.Type != enums.NotificationTypePayment {
		t.Fatalf("stored wrong row: %+v", captured)
	}
}

func TestListPagination(t *testing.T) {
	now := time.Now().UTC()
	rows := []models.Notification{
		{ID: uuid.New(), CreatedAt: now},
		{ID: uuid.New(), CreatedAt: now.Add(-time.Minute)},
		{ID: uuid.New(), CreatedAt: now.Add(-2 * time.Minute)},
	}
	repo := &fakeRepository{
		listFn: func(ctx context.Context, userID uuid.UUID, cursor *paginationpkg.Cursor, limit int, unreadOnly bool) ([]models.Notification, error) {
			if limit != paginationpkg.LimitWithBuffer(2) {
				t.Fatalf("unexpected limit %d", limit)
			}
			return rows, nil
		},
	}
	svc := newServiceWithRepo(t, repo)

	page, err := svc.List(context.Background(), ListParams{UserID: uuid.New(), Limit: 2})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(page.Notifications) != 2 {
		t.Fatalf("expected trimmed page of 2, got %d", len(page.Notifications))
	}
	if page.NextCursor == "" {
		t.Fatal("expected next cursor")
	}
	decoded, err := paginationpkg.ParseCursor(page.NextCursor)
	if err != nil {
		t.Fatalf("invalid cursor %q: %v", page.NextCursor, err)
	}
	if decoded.ID != rows[1].ID {
		t.Fatalf("cursor points at wrong row: %s", decoded.ID)
	}
}

func TestListLastPageHasNoCursor(t *testing.T) {
	repo := &fakeRepository{
		listFn: func(ctx context.Context, userID uuid.UUID, cursor *paginationpkg.Cursor, limit int, unreadOnly bool) ([]models.Notification, error) {
			return []models.Notification{{ID: uuid.New()}}, nil
		},
	}
	svc := newServiceWithRepo(t, repo)

	page, err := svc.List(context.Background(), ListParams{UserID: uuid.New(), Limit: 10})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if page.NextCursor != "" {
		t.Fatalf("expected no cursor on last page, got %q", page.NextCursor)
	}
}

func TestListInvalidCursor(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{})
	_, err := svc.List(context.Background(), ListParams{UserID: uuid.New(), Cursor: "not-base64!"})
	if err == nil {
		t.Fatal("expected error for invalid cursor")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %s", code)
	}
}

func TestUnreadCountScopesToType(t *testing.T) {
	var gotType *enums.NotificationType
	repo := &fakeRepository{
		countFn: func(ctx context.Context, userID uuid.UUID, notificationType *enums.NotificationType) (int64, error) {
			gotType = notificationType
			return 4, nil
		},
	}
	svc := newServiceWithRepo(t, repo)

	paymentType := enums.NotificationTypePayment
	count, err := svc.UnreadCount(context.Background(), uuid.New(), &paymentType)
	if err != nil {
		t.Fatalf("UnreadCount() error: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4, got %d", count)
	}
	if gotType == nil || *gotType != enums.NotificationTypePayment {
		t.Fatalf("repo got wrong type filter: %v", gotType)
	}
}

func TestMarkReadNotFound(t *testing.T) {
	repo := &fakeRepository{
		markReadFn: func(ctx context.Context, userID, id uuid.UUID) (bool, error) {
			return false, nil
		},
	}
	svc := newServiceWithRepo(t, repo)

	err := svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	if err == nil {
		t.Fatal("expected not found error")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %s", code)
	}
}

func TestMarkAllRead(t *testing.T) {
	repo := &fakeRepository{
		markAllReadFn: func(ctx context.Context, userID uuid.UUID) (int64, error) {
			return 7, nil
		},
	}
	svc := newServiceWithRepo(t, repo)

	updated, err := svc.MarkAllRead(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("MarkAllRead() error: %v", err)
	}
	if updated != 7 {
		t.Fatalf("expected 7 updated, got %d", updated)
	}
}

func TestMarkAllReadRepoFailure(t *testing.T) {
	repo := &fakeRepository{
		markAllReadFn: func(ctx context.Context, userID uuid.UUID) (int64, error) {
			return 0, errors.New("db down")
		},
	}
	svc := newServiceWithRepo(t, repo)

	_, err := svc.MarkAllRead(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected error")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency code, got %s", code)
	}
}
