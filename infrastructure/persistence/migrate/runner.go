/*
Package migrate 顺序执行迁移步骤

重复执行同一批迁移时，一些错误是可以忽略的（重复数据、重复字段、
删除不存在的字段或约束）。这类错误只记录日志，其它错误立即中止。
*/
package migrate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ddd-users/pkg/logger"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Step struct {
	Name string
	Run  func(ctx context.Context, db *gorm.DB) error
	// Drop 标记删除字段/索引的步骤，只有它们可以忽略"字段或索引不存在"
	Drop bool
}

type Runner struct {
	steps []Step
	log   *zap.Logger
}

func NewRunner(steps ...Step) *Runner {
	return &Runner{steps: steps, log: logger.Named("migrate")}
}

// WithLogger replaces the runner's logger; nil is ignored.
func (r *Runner) WithLogger(log *zap.Logger) *Runner {
	if log != nil {
		r.log = log
	}
	return r
}

func (r *Runner) Run(ctx context.Context, db *gorm.DB) error {
	for _, step := range r.steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := step.Run(ctx, db.WithContext(ctx))
		if err == nil {
			r.log.Debug("Migration step applied", zap.String("step", step.Name))
			continue
		}
		if reason, ok := Passable(err, step.Drop); ok {
			r.log.Warn("Passable migration error",
				zap.String("step", step.Name),
				zap.String("reason", reason),
				zap.Error(err),
			)
			continue
		}
		r.log.Error("Migration step failed", zap.String("step", step.Name), zap.Error(err))
		return fmt.Errorf("migration %q: %w", step.Name, err)
	}
	return nil
}

const (
	ReasonDuplicateEntry    = "ER_DUP_ENTRY"
	ReasonDuplicateField    = "ER_DUP_FIELDNAME"
	ReasonCantDropField     = "ER_CANT_DROP_FIELD_OR_KEY"
	ReasonUnknownConstraint = "UNKNOWN_CONSTRAINT"
)

// Passable reports whether err only means the step was already applied.
// MySQL errors are matched by number; other drivers by message. A missing
// column or index is passable only for a drop step.
func Passable(err error, drop bool) (string, bool) {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1062:
			return ReasonDuplicateEntry, true
		case 1060:
			return ReasonDuplicateField, true
		case 1091:
			return ReasonCantDropField, true
		}
		return "", false
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint failed"), strings.Contains(msg, "duplicate key value"):
		return ReasonDuplicateEntry, true
	case strings.Contains(msg, "duplicate column"):
		return ReasonDuplicateField, true
	case drop && (strings.Contains(msg, "no such column") || strings.Contains(msg, "no such index")):
		return ReasonCantDropField, true
	case drop && (strings.Contains(msg, `column "`) || strings.Contains(msg, `index "`)) && strings.Contains(msg, "does not exist"):
		return ReasonCantDropField, true
	case strings.Contains(msg, "unknown constraint"),
		strings.Contains(msg, "constraint") && strings.Contains(msg, "does not exist"):
		return ReasonUnknownConstraint, true
	}
	return "", false
}
