/*
Package memory 基于 map 的仓储与工作单元

用于 database.type=memory 以及应用层测试。没有真正的事务：
写入立即可见，失败的工作单元只会放弃事件分发。
*/
package memory

import (
	"context"

	"ddd-users/domain/shared"
	"ddd-users/infrastructure/persistence"
	"ddd-users/pkg/logger"

	"go.uber.org/zap"
)

type UnitOfWork struct {
	dispatcher persistence.Dispatcher
}

func NewUnitOfWork(dispatcher persistence.Dispatcher) *UnitOfWork {
	return &UnitOfWork{dispatcher: dispatcher}
}

// Execute runs fn and, when it succeeds, dispatches the events of every
// aggregate registered during the call. A nested Execute joins the outer one.
func (u *UnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if persistence.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session := persistence.NewSession()
	if err := fn(persistence.ContextWithSession(ctx, session)); err != nil {
		for _, aggregate := range session.Aggregates() {
			u.dispatcher.ForgetAggregate(aggregate)
		}
		return err
	}

	return persistence.DispatchRegistered(persistence.WithoutUnitOfWork(ctx), u.dispatcher, session.Aggregates())
}

func (u *UnitOfWork) Register(ctx context.Context, aggregate shared.Aggregate) {
	session := persistence.SessionFromContext(ctx)
	if session == nil {
		logger.FromContext(ctx).Warn("Aggregate registered outside a unit of work",
			zap.String("aggregate_id", aggregate.ID().String()))
		return
	}
	session.Register(aggregate)
}

// dispatchAfterWrite mirrors the GORM post-commit hook for writes made
// outside a unit of work: failures are logged and the aggregate stays marked.
func dispatchAfterWrite(ctx context.Context, dispatcher persistence.Dispatcher, aggregate shared.Aggregate) {
	if err := dispatcher.DispatchAggregate(ctx, aggregate); err != nil {
		logger.FromContext(ctx).Error("Post-write dispatch failed",
			zap.String("aggregate_id", aggregate.ID().String()),
			zap.Error(err),
		)
	}
}

var _ shared.UnitOfWork = (*UnitOfWork)(nil)
