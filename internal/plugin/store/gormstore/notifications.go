package gormstore

import (
	"context"
	"fmt"
	"time"

	"github.com/chirino/social-service/internal/model"
	registrystore "github.com/chirino/social-service/internal/registry/store"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- Notifications ---

func (s *Store) ListNotifications(ctx context.Context, userID uuid.UUID, page registrystore.PageRequest) ([]model.Notification, registrystore.PageInfo, error) {
	base := s.db.WithContext(ctx).Model(&model.Notification{}).Where("user_id = ?", userID)
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, registrystore.PageInfo{}, fmt.Errorf("failed to count notifications: %w", err)
	}
	notifications := []model.Notification{}
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC, id DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&notifications).Error
	if err != nil {
		return nil, registrystore.PageInfo{}, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, registrystore.NewPageInfo(page, total), nil
}

// MarkNotificationsRead marks every unread notification of the user read and
// returns how many changed.
func (s *Store) MarkNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// PurgeReadNotifications deletes the oldest read notifications created before
// cutoff, at most limit per call.
func (s *Store) PurgeReadNotifications(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find purgeable notifications: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	result := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}
