package notifications

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/mortarline/notify-backend/pkg/db/models"
	"github.com/mortarline/notify-backend/pkg/enums"
	pkgerrors "github.com/mortarline/notify-backend/pkg/errors"
	"github.com/mortarline/notify-backend/pkg/pagination"
)

// Service defines the in-app notification operations.
type Service interface {
	Create(ctx context.Context, params CreateParams) (*models.Notification, error)
	List(ctx context.Context, params ListParams) (*Page, error)
	UnreadCount(ctx context.Context, userID uuid.UUID, notificationType *enums.NotificationType) (int64, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

// CreateParams carries one in-app notification row.
type CreateParams struct {
	UserID uuid.UUID
	Type   enums.NotificationType
	Title  string
	Body   string
	Link   *string
}

// ListParams carries cursor pagination inputs for a user's feed.
type ListParams struct {
	UserID     uuid.UUID
	Cursor     string
	Limit      int
	UnreadOnly bool
}

// Page is one slice of a user's notification feed.
type Page struct {
	Notifications []models.Notification `json:"notifications"`
	NextCursor    string                `json:"nextCursor,omitempty"`
}

type service struct {
	repo Repository
}

// NewService wires notification dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, params CreateParams) (*models.Notification, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !params.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid notification type")
	}
	if strings.TrimSpace(params.Title) == "" || strings.TrimSpace(params.Body) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification title and body required")
	}

	notification := &models.Notification{
		UserID: params.UserID,
		Type:   params.Type,
		Title:  params.Title,
		Body:   params.Body,
		Link:   params.Link,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store notification")
	}
	return notification, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*Page, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListByUser(ctx, params.UserID, cursor, pagination.LimitWithBuffer(params.Limit), params.UnreadOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	page := &Page{Notifications: rows}
	if len(rows) > limit {
		page.Notifications = rows[:limit]
		last := page.Notifications[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID, notificationType *enums.NotificationType) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if notificationType != nil && !notificationType.IsValid() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid notification type")
	}
	count, err := s.repo.CountUnread(ctx, userID, notificationType)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	return count, nil
}

func (s *service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	if userID == uuid.Nil || id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and notification id required")
	}
	found, err := s.repo.MarkRead(ctx, userID, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	updated, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return updated, nil
}
