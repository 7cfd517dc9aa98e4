package gormstore

import (
	"context"

	"ddd-users/infrastructure/persistence/gormstore/po"
	"ddd-users/infrastructure/persistence/migrate"

	"gorm.io/gorm"
)

func autoMigrate(model any) func(context.Context, *gorm.DB) error {
	return func(_ context.Context, db *gorm.DB) error {
		return db.AutoMigrate(model)
	}
}

// Migrations lists the schema steps in the order they must run.
func Migrations() []migrate.Step {
	return []migrate.Step{
		{Name: "create users", Run: autoMigrate(&po.UserPO{})},
		{Name: "create members", Run: autoMigrate(&po.MemberPO{})},
		{Name: "create outbox_events", Run: autoMigrate(&po.OutboxEventPO{})},
	}
}

func Migrate(ctx context.Context, db *gorm.DB) error {
	return migrate.NewRunner(Migrations()...).Run(ctx, db)
}
