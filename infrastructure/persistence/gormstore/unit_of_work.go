package gormstore

import (
	"context"

	"ddd-users/domain/shared"
	"ddd-users/infrastructure/persistence"
	"ddd-users/infrastructure/persistence/retry"
	"ddd-users/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UnitOfWork runs business logic in one GORM transaction and, once it has
// committed, dispatches the events of every aggregate registered in it.
type UnitOfWork struct {
	db          *gorm.DB
	dispatcher  persistence.Dispatcher
	retryConfig retry.Config
}

func NewUnitOfWork(db *gorm.DB, dispatcher persistence.Dispatcher) *UnitOfWork {
	return &UnitOfWork{
		db:          db,
		dispatcher:  dispatcher,
		retryConfig: retry.DefaultConfig,
	}
}

// SetRetryConfig updates the retry configuration for this UnitOfWork
func (u *UnitOfWork) SetRetryConfig(config retry.Config) {
	u.retryConfig = config
}

// Execute
// 1. begins a transaction and puts it, with a fresh session, into ctx
// 2. runs fn; retryable failures (deadlock, version conflict) run it again
// 3. commits, then dispatches registered aggregates outside the transaction
//
// A nested Execute joins the outer unit of work. Dispatch errors are
// returned, but the data stays committed.
func (u *UnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if persistence.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	var (
		session   *persistence.Session
		abandoned []shared.Aggregate
	)
	executeOnce := func(ctx context.Context) error {
		if session != nil {
			abandoned = append(abandoned, session.Aggregates()...)
		}
		session = persistence.NewSession()

		return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			txCtx := persistence.ContextWithSession(persistence.ContextWithTx(ctx, tx), session)
			return fn(txCtx)
		})
	}

	err := retry.ExecuteWithRetry(ctx, u.retryConfig, executeOnce)
	if err != nil {
		if session != nil {
			abandoned = append(abandoned, session.Aggregates()...)
		}
		u.forget(abandoned, nil)
		return err
	}

	u.forget(abandoned, session)
	if err := persistence.DispatchRegistered(persistence.WithoutUnitOfWork(ctx), u.dispatcher, session.Aggregates()); err != nil {
		logger.FromContext(ctx).Error("Events of a committed unit of work were not fully dispatched", zap.Error(err))
		return err
	}
	return nil
}

// forget unmarks the instances of rolled back attempts, except those the
// committed session registered again. Marks held by other instances of the
// same aggregate belong to other units of work and stay.
func (u *UnitOfWork) forget(aggregates []shared.Aggregate, committed *persistence.Session) {
	for _, aggregate := range aggregates {
		if committed != nil && committed.Contains(aggregate) {
			continue
		}
		u.dispatcher.ForgetAggregate(aggregate)
	}
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

var _ shared.UnitOfWork = (*UnitOfWork)(nil)
