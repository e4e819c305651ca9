package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mortarline/notify-backend/pkg/db/models"
)

// Repository exposes persistence helpers for push subscriptions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.PushSubscription, error)
	FindByEndpoint(ctx context.Context, endpoint string) (*models.PushSubscription, error)
	UpsertByEndpoint(ctx context.Context, sub *models.PushSubscription) (*models.PushSubscription, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	DeleteByEndpoint(ctx context.Context, endpoint string) (bool, error)
	DeleteInactiveBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a push subscription repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.PushSubscription, error) {
	var subs []models.PushSubscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active", userID).
		Order("created_at ASC").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *repositoryImpl) FindByEndpoint(ctx context.Context, endpoint string) (*models.PushSubscription, error) {
	var sub models.PushSubscription
	err := r.db.WithContext(ctx).Where("endpoint = ?", endpoint).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// UpsertByEndpoint creates the subscription or, when the endpoint already
// exists, updates ownership/key material and reactivates it. The conflict
// clause makes the create-vs-update decision a single atomic statement, so
// concurrent re-registrations of the same endpoint cannot race into
// duplicate rows.
func (r *repositoryImpl) UpsertByEndpoint(ctx context.Context, sub *models.PushSubscription) (*models.PushSubscription, error) {
	now := time.Now().UTC()
	sub.IsActive = true
	sub.UpdatedAt = now

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.Assignments(map[string]any{
			"user_id":    sub.UserID,
			"p256dh":     sub.P256dh,
			"auth":       sub.Auth,
			"user_agent": sub.UserAgent,
			"is_active":  true,
			"updated_at": now,
		}),
	}).Create(sub).Error
	if err != nil {
		return nil, err
	}

	// Re-read so the caller always sees the stored row, including the id of a
	// pre-existing subscription the conflict path updated.
	return r.FindByEndpoint(ctx, sub.Endpoint)
}

func (r *repositoryImpl) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PushSubscription{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_active":  false,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repositoryImpl) DeleteByEndpoint(ctx context.Context, endpoint string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("endpoint = ?", endpoint).
		Delete(&models.PushSubscription{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteInactiveBefore purges soft-disabled subscriptions whose last update
// predates the cutoff. Only the retention job calls this.
func (r *repositoryImpl) DeleteInactiveBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	result := conn.WithContext(ctx).
		Where("NOT is_active AND updated_at < ?", cutoff).
		Delete(&models.PushSubscription{})
	return result.RowsAffected, result.Error
}
