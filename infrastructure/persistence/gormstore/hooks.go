package gormstore

import (
	"context"
	"fmt"

	"ddd-users/domain/shared"
	"ddd-users/infrastructure/persistence"
	"ddd-users/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AggregateIdentified is implemented by persistence objects that map to an
// aggregate root.
type AggregateIdentified interface {
	AggregateID() string
}

const (
	hookAfterCreate = "users:dispatch_after_create"
	hookAfterUpdate = "users:dispatch_after_update"
	hookAfterDelete = "users:dispatch_after_delete"

	afterCommit = "gorm:commit_or_rollback_transaction"
)

// RegisterDispatchHooks installs callbacks that run after GORM has committed
// a create, update or delete. When the written model is an aggregate and the
// write did not happen inside a unit of work, its pending events are
// dispatched. Inside a unit of work the hooks do nothing.
//
// The write is already committed when dispatch runs, so a failing handler
// is logged and the aggregate stays marked; the statement itself succeeds.
func RegisterDispatchHooks(db *gorm.DB, dispatcher persistence.Dispatcher) error {
	h := &dispatchHook{dispatcher: dispatcher}

	if err := db.Callback().Create().After(afterCommit).Register(hookAfterCreate, h.afterCommit); err != nil {
		return fmt.Errorf("register %s: %w", hookAfterCreate, err)
	}
	if err := db.Callback().Update().After(afterCommit).Register(hookAfterUpdate, h.afterCommit); err != nil {
		return fmt.Errorf("register %s: %w", hookAfterUpdate, err)
	}
	if err := db.Callback().Delete().After(afterCommit).Register(hookAfterDelete, h.afterCommit); err != nil {
		return fmt.Errorf("register %s: %w", hookAfterDelete, err)
	}
	return nil
}

type dispatchHook struct {
	dispatcher persistence.Dispatcher
}

func (h *dispatchHook) afterCommit(db *gorm.DB) {
	if db.Error != nil || db.RowsAffected == 0 || db.Statement == nil {
		return
	}
	ctx := db.Statement.Context
	if persistence.TxFromContext(ctx) != nil {
		return
	}

	id, ok := aggregateIDOf(db.Statement)
	if !ok {
		return
	}

	if err := h.dispatch(ctx, id); err != nil {
		logger.FromContext(ctx).Error("Post-commit dispatch failed",
			zap.String("aggregate_id", id.String()),
			zap.String("table", db.Statement.Table),
			zap.Error(err),
		)
	}
}

// dispatch 优先分发仓储放入 ctx 的那个实例，其他写入只能按 id 查找
func (h *dispatchHook) dispatch(ctx context.Context, id shared.UniqueEntityID) error {
	aggregate := persistence.AggregateFromContext(ctx)
	ctx = persistence.WithoutUnitOfWork(ctx)
	if aggregate != nil && aggregate.ID().Equals(id) {
		return h.dispatcher.DispatchAggregate(ctx, aggregate)
	}
	return h.dispatcher.DispatchEventsForAggregate(ctx, id)
}

func aggregateIDOf(stmt *gorm.Statement) (shared.UniqueEntityID, bool) {
	for _, candidate := range []any{stmt.Model, stmt.Dest} {
		if identified, ok := candidate.(AggregateIdentified); ok && identified.AggregateID() != "" {
			return shared.IDFromString(identified.AggregateID()), true
		}
	}
	return shared.UniqueEntityID{}, false
}
