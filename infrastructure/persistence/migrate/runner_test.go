package migrate

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "migrate.db")), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	require.NoError(t, err)
	return db
}

func exec(sql string) func(context.Context, *gorm.DB) error {
	return func(_ context.Context, db *gorm.DB) error { return db.Exec(sql).Error }
}

func TestRunnerSkipsPassableErrors(t *testing.T) {
	db := openSQLite(t)
	core, logs := observer.New(zapcore.WarnLevel)

	runner := NewRunner(
		Step{Name: "create table", Run: exec("CREATE TABLE things (id TEXT PRIMARY KEY)")},
		Step{Name: "add column", Run: exec("ALTER TABLE things ADD COLUMN label TEXT")},
		Step{Name: "add column again", Run: exec("ALTER TABLE things ADD COLUMN label TEXT")},
		Step{Name: "seed", Run: exec("INSERT INTO things (id, label) VALUES ('a', 'x')")},
		Step{Name: "seed again", Run: exec("INSERT INTO things (id, label) VALUES ('a', 'x')")},
	).WithLogger(zap.New(core))

	require.NoError(t, runner.Run(context.Background(), db))

	var count int64
	require.NoError(t, db.Table("things").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	passable := logs.FilterMessage("Passable migration error").All()
	require.Len(t, passable, 2)
	assert.Equal(t, ReasonDuplicateField, passable[0].ContextMap()["reason"])
	assert.Equal(t, ReasonDuplicateEntry, passable[1].ContextMap()["reason"])
}

func TestRunnerAbortsOnOtherErrors(t *testing.T) {
	db := openSQLite(t)
	ran := false

	runner := NewRunner(
		Step{Name: "broken", Run: exec("CREATE TABLOID nope")},
		Step{Name: "never", Run: func(context.Context, *gorm.DB) error { ran = true; return nil }},
	).WithLogger(zap.NewNop())

	err := runner.Run(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `migration "broken"`)
	assert.False(t, ran)
}

func TestRunnerPassesMissingColumnOnlyForDrops(t *testing.T) {
	db := openSQLite(t)

	runner := NewRunner(
		Step{Name: "create table", Run: exec("CREATE TABLE things (id TEXT PRIMARY KEY, label TEXT)")},
		Step{Name: "drop label", Run: exec("ALTER TABLE things DROP COLUMN label"), Drop: true},
		Step{Name: "drop label again", Run: exec("ALTER TABLE things DROP COLUMN label"), Drop: true},
		Step{Name: "drop missing index", Run: exec("DROP INDEX idx_things_label"), Drop: true},
	).WithLogger(zap.NewNop())
	require.NoError(t, runner.Run(context.Background(), db))

	ran := false
	broken := NewRunner(
		Step{Name: "backfill", Run: exec("UPDATE things SET label = 'x'")},
		Step{Name: "never", Run: func(context.Context, *gorm.DB) error { ran = true; return nil }},
	).WithLogger(zap.NewNop())

	err := broken.Run(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `migration "backfill"`)
	assert.False(t, ran)
}

func TestPassable(t *testing.T) {
	tests := []struct {
		err    error
		drop   bool
		reason string
		ok     bool
	}{
		{&mysqlDriver.MySQLError{Number: 1062}, false, ReasonDuplicateEntry, true},
		{&mysqlDriver.MySQLError{Number: 1060}, false, ReasonDuplicateField, true},
		{&mysqlDriver.MySQLError{Number: 1091}, true, ReasonCantDropField, true},
		{&mysqlDriver.MySQLError{Number: 1146}, false, "", false},
		{errors.New(`constraint "fk_x" of relation "members" does not exist`), true, ReasonUnknownConstraint, true},
		{errors.New(`no such column: "label"`), true, ReasonCantDropField, true},
		{errors.New(`no such column: label`), false, "", false},
		{errors.New(`no such index: idx_label`), true, ReasonCantDropField, true},
		{errors.New(`ERROR: column "label" of relation "things" does not exist (SQLSTATE 42703)`), true, ReasonCantDropField, true},
		{errors.New(`ERROR: column "label" does not exist (SQLSTATE 42703)`), false, "", false},
		{errors.New("syntax error"), false, "", false},
	}
	for _, tt := range tests {
		reason, ok := Passable(tt.err, tt.drop)
		assert.Equal(t, tt.ok, ok, tt.err.Error())
		assert.Equal(t, tt.reason, reason, tt.err.Error())
	}
}
