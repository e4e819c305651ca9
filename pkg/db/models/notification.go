package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mortarline/notify-backend/pkg/enums"
)

// Notification stores in-app notification rows scoped to users. These back
// the in-app banner strategy and the per-feature unread count endpoints that
// polling clients watch.
type Notification struct {
	ID        uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID              `gorm:"type:uuid;not null;index" json:"userId"`
	Type      enums.NotificationType `gorm:"type:notification_type;not null" json:"type"`
	Title     string                 `gorm:"type:text;not null" json:"title"`
	Body      string                 `gorm:"type:text;not null" json:"body"`
	Link      *string                `gorm:"type:text" json:"link,omitempty"`
	ReadAt    *time.Time             `gorm:"type:timestamptz" json:"readAt,omitempty"`
	CreatedAt time.Time              `gorm:"type:timestamptz;default:now()" json:"createdAt"`
}
