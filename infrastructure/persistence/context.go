package persistence

import (
	"context"

	"ddd-users/domain/shared"

	"gorm.io/gorm"
)

type txKey struct{}

type aggregateKey struct{}

type requestIDKey struct{}

// TxFromContext retrieves the GORM transaction from context
// Returns nil if no transaction is present
func TxFromContext(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return nil
}

// ContextWithTx returns a new context with the GORM transaction attached
func ContextWithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// ContextWithAggregate 标记当前写入属于哪个聚合实例，提交后的钩子据此分发
func ContextWithAggregate(ctx context.Context, aggregate shared.Aggregate) context.Context {
	return context.WithValue(ctx, aggregateKey{}, aggregate)
}

// AggregateFromContext returns the aggregate instance being written, if any.
func AggregateFromContext(ctx context.Context) shared.Aggregate {
	if aggregate, ok := ctx.Value(aggregateKey{}).(shared.Aggregate); ok {
		return aggregate
	}
	return nil
}
