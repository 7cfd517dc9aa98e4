/*
Package outbox 集成事件发件箱

Recorder 订阅领域事件并写入 outbox_events 表；Worker 轮询待发送的
记录交给 Publisher（日志或 Redis pub/sub），失败时累加重试次数。
*/
package outbox

import (
	"context"
	"fmt"
	"time"

	"ddd-users/domain/shared"
	"ddd-users/infrastructure/persistence"
	"ddd-users/infrastructure/persistence/gormstore/po"

	"gorm.io/gorm"
)

// Store GORM implementation of the outbox table
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) getDB(ctx context.Context) *gorm.DB {
	if tx := persistence.TxFromContext(ctx); tx != nil {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

// SaveEvent Save domain event to outbox table
func (s *Store) SaveEvent(ctx context.Context, event shared.DomainEvent) error {
	if err := shared.ValidateEvent(event); err != nil {
		return fmt.Errorf("invalid domain event: %w", err)
	}

	outboxPO, err := po.FromDomainEvent(event)
	if err != nil {
		return fmt.Errorf("failed to convert domain event: %w", err)
	}
	if err := s.getDB(ctx).Create(outboxPO).Error; err != nil {
		return fmt.Errorf("failed to save event to outbox: %w", err)
	}
	return nil
}

// GetPendingEvents returns the oldest pending rows first.
func (s *Store) GetPendingEvents(ctx context.Context, limit int) ([]*po.OutboxEventPO, error) {
	var rows []*po.OutboxEventPO
	err := s.getDB(ctx).
		Where("status = ?", string(po.EventStatusPending)).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get pending events: %w", err)
	}
	return rows, nil
}

// MarkEventProcessing claims a pending row. It fails when another worker
// claimed it first.
func (s *Store) MarkEventProcessing(ctx context.Context, eventID string) error {
	result := s.getDB(ctx).Model(&po.OutboxEventPO{}).
		Where("id = ? AND status = ?", eventID, string(po.EventStatusPending)).
		Updates(map[string]interface{}{
			"status":     string(po.EventStatusProcessing),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("event not found or already being processed: %s", eventID)
	}
	return nil
}

func (s *Store) MarkEventPublished(ctx context.Context, eventID string) error {
	result := s.getDB(ctx).Model(&po.OutboxEventPO{}).
		Where("id = ?", eventID).
		Updates(map[string]interface{}{
			"status":     string(po.EventStatusPublished),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("event not found: %s", eventID)
	}
	return nil
}

// MarkEventFailed returns the row to PENDING until maxRetries is reached,
// then parks it as FAILED.
func (s *Store) MarkEventFailed(ctx context.Context, eventID string, maxRetries int) error {
	db := s.getDB(ctx)

	var row po.OutboxEventPO
	if err := db.First(&row, "id = ?", eventID).Error; err != nil {
		return fmt.Errorf("failed to find event: %w", err)
	}

	retries := row.RetryCount + 1
	status := po.EventStatusFailed
	if retries < maxRetries {
		status = po.EventStatusPending
	}

	return db.Model(&po.OutboxEventPO{}).
		Where("id = ?", eventID).
		Updates(map[string]interface{}{
			"status":      string(status),
			"retry_count": retries,
			"updated_at":  time.Now(),
		}).Error
}

// CountByStatus is used by the worker's logs and by tests.
func (s *Store) CountByStatus(ctx context.Context, status po.EventStatus) (int64, error) {
	var count int64
	err := s.getDB(ctx).Model(&po.OutboxEventPO{}).Where("status = ?", string(status)).Count(&count).Error
	return count, err
}
