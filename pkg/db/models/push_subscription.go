package models

import (
	"time"

	"github.com/google/uuid"
)

// PushSubscription stores one web push endpoint per device/browser per user.
// Endpoints are unique across the table; re-registration of a known endpoint
// updates the row in place. Rows are soft-disabled on permanent delivery
// failure so delivery history stays inspectable; only an explicit user
// unsubscribe hard-deletes.
type PushSubscription struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"userId"`
	Endpoint  string    `gorm:"type:text;not null;uniqueIndex:idx_push_subscriptions_endpoint" json:"endpoint"`
	P256dh    string    `gorm:"type:text;not null" json:"p256dh"`
	Auth      string    `gorm:"type:text;not null" json:"auth"`
	UserAgent string    `gorm:"type:text" json:"userAgent,omitempty"`
	IsActive  bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt time.Time `gorm:"type:timestamptz;default:now()" json:"createdAt"`
	UpdatedAt time.Time `gorm:"type:timestamptz;default:now()" json:"updatedAt"`
}
