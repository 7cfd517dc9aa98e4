package shared

import "context"

// UnitOfWork 管理事务边界。
// Execute 成功提交后，对 Register 过的每个聚合触发领域事件分发。
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
	Register(ctx context.Context, aggregate Aggregate)
}
