package gormstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ddd-users/config"
	"ddd-users/domain/events"
	"ddd-users/domain/forum"
	"ddd-users/domain/shared"
	"ddd-users/domain/user"
	"ddd-users/infrastructure/persistence/gormstore/po"
	"ddd-users/infrastructure/persistence/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	registry *events.Registry
	users    *UserRepository
	members  *MemberRepository
	uow      *UnitOfWork
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := Open(config.DatabaseConfig{
		Type:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "users.db"),
		LogLevel:   "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	require.NoError(t, Migrate(context.Background(), db))

	registry := events.NewRegistry()
	require.NoError(t, RegisterDispatchHooks(db, registry))

	return &fixture{
		db:       db,
		registry: registry,
		users:    NewUserRepository(db, registry.Marker()),
		members:  NewMemberRepository(db, registry.Marker()),
		uow:      NewUnitOfWork(db, registry),
	}
}

func (f *fixture) newUser(t *testing.T, email, name string) *user.User {
	t.Helper()
	e, err := user.NewEmail(email)
	require.NoError(t, err)
	n, err := user.NewUsername(name)
	require.NoError(t, err)
	p, err := user.NewPassword("secret123")
	require.NoError(t, err)
	hashed, err := p.Hash()
	require.NoError(t, err)

	u, err := user.New(user.Props{Email: e, Username: n, Password: hashed}, f.registry.Marker())
	require.NoError(t, err)
	return u
}

func (f *fixture) countUsers(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&po.UserPO{}).Count(&count).Error)
	return count
}

func TestUnitOfWorkDispatchesAfterCommit(t *testing.T) {
	f := newFixture(t)
	var rowsSeenByHandler int64 = -1
	f.registry.RegisterFunc(user.KindUserCreated, func(ctx context.Context, _ shared.DomainEvent) error {
		return f.db.WithContext(ctx).Model(&po.UserPO{}).Count(&rowsSeenByHandler).Error
	})

	u := f.newUser(t, "khalil@apollographql.com", "khalil")
	err := f.uow.Execute(context.Background(), func(ctx context.Context) error {
		if err := f.users.Save(ctx, u); err != nil {
			return err
		}
		f.uow.Register(ctx, u)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1), rowsSeenByHandler, "handler runs after the row is committed")
	assert.False(t, f.registry.IsMarked(u.ID()))
	assert.Equal(t, 1, u.Version())
}

func TestUnitOfWorkRollbackSkipsDispatch(t *testing.T) {
	f := newFixture(t)
	calls := 0
	f.registry.RegisterFunc(user.KindUserCreated, func(context.Context, shared.DomainEvent) error {
		calls++
		return nil
	})
	boom := errors.New("boom")

	u := f.newUser(t, "a@b.co", "alice")
	err := f.uow.Execute(context.Background(), func(ctx context.Context) error {
		require.NoError(t, f.users.Save(ctx, u))
		f.uow.Register(ctx, u)
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Zero(t, calls)
	assert.Zero(t, f.countUsers(t))
	assert.False(t, f.registry.IsMarked(u.ID()))
}

func TestUnitOfWorkRetryDispatchesCommittedAttemptOnce(t *testing.T) {
	f := newFixture(t)
	f.uow.SetRetryConfig(retry.Config{
		Enabled:                       true,
		MaxAttempts:                   3,
		InitialDelay:                  time.Millisecond,
		MaxDelay:                      5 * time.Millisecond,
		BackoffFactor:                 2,
		RetryOnConcurrentModification: true,
	})
	u := f.newUser(t, "a@b.co", "alice")
	require.NoError(t, f.users.Save(context.Background(), u))

	var verified []shared.DomainEvent
	f.registry.RegisterFunc(user.KindEmailVerified, func(_ context.Context, e shared.DomainEvent) error {
		verified = append(verified, e)
		return nil
	})

	var loaded []*user.User
	err := f.uow.Execute(context.Background(), func(ctx context.Context) error {
		current, err := f.users.FindByID(ctx, u.ID())
		if err != nil {
			return err
		}
		loaded = append(loaded, current)
		f.uow.Register(ctx, current)
		current.VerifyEmail()
		if err := f.users.Save(ctx, current); err != nil {
			return err
		}
		if len(loaded) == 1 {
			return user.ErrConcurrentModified
		}
		return nil
	})

	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.Len(t, verified, 1)
	assert.Empty(t, f.registry.MarkedAggregates())
	assert.Empty(t, loaded[1].DomainEvents())

	reloaded, err := f.users.FindByID(context.Background(), u.ID())
	require.NoError(t, err)
	assert.True(t, reloaded.IsEmailVerified())
	assert.Equal(t, 2, reloaded.Version(), "the rolled back attempt left no write behind")
}

func TestHookDispatchesTheSavedInstance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seen := map[shared.EventKind]int{}
	for _, kind := range []shared.EventKind{user.KindEmailVerified, user.KindUserDeleted} {
		f.registry.RegisterFunc(kind, func(_ context.Context, e shared.DomainEvent) error {
			seen[e.Kind()]++
			return nil
		})
	}

	u := f.newUser(t, "a@b.co", "alice")
	require.NoError(t, f.users.Save(ctx, u))

	pending, err := f.users.FindByID(ctx, u.ID())
	require.NoError(t, err)
	pending.VerifyEmail()

	saved, err := f.users.FindByID(ctx, u.ID())
	require.NoError(t, err)
	saved.Delete()
	require.NoError(t, f.users.Save(ctx, saved))

	assert.Equal(t, map[shared.EventKind]int{user.KindUserDeleted: 1}, seen)
	assert.Empty(t, saved.DomainEvents())
	assert.True(t, f.registry.IsMarked(u.ID()), "the unsaved instance keeps its mark")
	assert.Len(t, pending.DomainEvents(), 1)
}

func TestSaveOutsideUnitOfWorkDispatchesThroughHook(t *testing.T) {
	f := newFixture(t)
	var seen []shared.EventKind
	f.registry.RegisterFunc(user.KindUserCreated, func(_ context.Context, e shared.DomainEvent) error {
		seen = append(seen, e.Kind())
		return nil
	})

	u := f.newUser(t, "a@b.co", "alice")
	require.NoError(t, f.users.Save(context.Background(), u))

	assert.Equal(t, []shared.EventKind{user.KindUserCreated}, seen)
	assert.Empty(t, u.DomainEvents())
}

func TestHookKeepsAggregateMarkedOnDispatchFailure(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("subscriber down")
	f.registry.RegisterFunc(user.KindUserCreated, func(context.Context, shared.DomainEvent) error { return boom })

	u := f.newUser(t, "a@b.co", "alice")
	require.NoError(t, f.users.Save(context.Background(), u))

	assert.Equal(t, int64(1), f.countUsers(t))
	assert.True(t, f.registry.IsMarked(u.ID()))
	assert.Len(t, u.DomainEvents(), 1)
}

func TestHookIsSilentInsideUnitOfWork(t *testing.T) {
	f := newFixture(t)
	calls := 0
	f.registry.RegisterFunc(user.KindUserCreated, func(context.Context, shared.DomainEvent) error {
		calls++
		return nil
	})

	u := f.newUser(t, "a@b.co", "alice")
	err := f.uow.Execute(context.Background(), func(ctx context.Context) error {
		require.NoError(t, f.users.Save(ctx, u))
		assert.Zero(t, calls, "no dispatch before commit")
		f.uow.Register(ctx, u)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestUserRepositoryRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u := f.newUser(t, "a@b.co", "alice")
	require.NoError(t, f.users.Save(ctx, u))

	loaded, err := f.users.FindByEmail(ctx, u.Email())
	require.NoError(t, err)
	assert.True(t, loaded.ID().Equals(u.ID()))
	assert.Equal(t, "alice", loaded.Username().Value())
	assert.True(t, loaded.Password().IsHashed())
	assert.Empty(t, loaded.DomainEvents())

	ok, err := loaded.Password().ComparePassword("secret123")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, loaded.SetAccessToken("access", "refresh"))
	loaded.VerifyEmail()
	require.NoError(t, f.users.Save(ctx, loaded))

	reloaded, err := f.users.FindByUsername(ctx, u.Username())
	require.NoError(t, err)
	assert.True(t, reloaded.IsLoggedIn())
	assert.True(t, reloaded.IsEmailVerified())
	assert.False(t, reloaded.LastLogin().IsZero())
	assert.Equal(t, 2, reloaded.Version())

	exists, err := f.users.Exists(ctx, u.Email())
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = f.users.FindByID(ctx, shared.NewUniqueEntityID())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUserRepositoryDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.users.Save(ctx, f.newUser(t, "a@b.co", "alice")))

	assert.ErrorIs(t, f.users.Save(ctx, f.newUser(t, "a@b.co", "bob")), user.ErrEmailAlreadyExists)
	assert.ErrorIs(t, f.users.Save(ctx, f.newUser(t, "c@d.co", "alice")), user.ErrUsernameTaken)
}

func TestDuplicateUserErrorMatchesIndexName(t *testing.T) {
	p := &po.UserPO{Email: "username@x.io", Username: "alice"}
	tests := []struct {
		msg  string
		want error
	}{
		{"Error 1062 (23000): Duplicate entry 'username@x.io' for key 'users.idx_users_email'", user.ErrEmailAlreadyExists},
		{"Error 1062 (23000): Duplicate entry 'alice' for key 'users.idx_users_username'", user.ErrUsernameTaken},
		{"Error 1062: Duplicate entry 'idx_users_username' for key 'idx_users_email'", user.ErrEmailAlreadyExists},
		{"UNIQUE constraint failed: users.username", user.ErrUsernameTaken},
		{"UNIQUE constraint failed: users.email", user.ErrEmailAlreadyExists},
		{`ERROR: duplicate key value violates unique constraint "idx_users_username" (SQLSTATE 23505)`, user.ErrUsernameTaken},
		{`ERROR: duplicate key value violates unique constraint "idx_users_email" (SQLSTATE 23505)`, user.ErrEmailAlreadyExists},
	}
	for _, tt := range tests {
		assert.ErrorIs(t, duplicateUserError(errors.New(tt.msg), p), tt.want, tt.msg)
	}
}

func TestUserRepositoryOptimisticLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	calls := 0
	f.registry.RegisterFunc(user.KindUserDeleted, func(context.Context, shared.DomainEvent) error {
		calls++
		return nil
	})

	u := f.newUser(t, "a@b.co", "alice")
	require.NoError(t, f.users.Save(ctx, u))

	first, err := f.users.FindByID(ctx, u.ID())
	require.NoError(t, err)
	second, err := f.users.FindByID(ctx, u.ID())
	require.NoError(t, err)

	first.VerifyEmail()
	require.NoError(t, f.users.Save(ctx, first))

	second.Delete()
	assert.ErrorIs(t, f.users.Save(ctx, second), user.ErrConcurrentModified)
	assert.Zero(t, calls, "a rejected update does not dispatch")
}

func TestSubscriberStartsItsOwnUnitOfWork(t *testing.T) {
	f := newFixture(t)
	var memberEvents int
	f.registry.RegisterFunc(forum.KindMemberCreated, func(context.Context, shared.DomainEvent) error {
		memberEvents++
		return nil
	})
	f.registry.RegisterFunc(user.KindUserCreated, func(ctx context.Context, e shared.DomainEvent) error {
		created := e.(*user.UserCreated)
		return f.uow.Execute(ctx, func(ctx context.Context) error {
			m, err := forum.NewMember(created.AggregateID(), created.Username, f.registry.Marker())
			if err != nil {
				return err
			}
			f.uow.Register(ctx, m)
			return f.members.Save(ctx, m)
		})
	})

	u := f.newUser(t, "a@b.co", "alice")
	require.NoError(t, f.uow.Execute(context.Background(), func(ctx context.Context) error {
		f.uow.Register(ctx, u)
		return f.users.Save(ctx, u)
	}))

	m, err := f.members.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, m.UserID().Equals(u.ID()))
	assert.Equal(t, 1, memberEvents)
	assert.Empty(t, f.registry.MarkedAggregates())

	exists, err := f.members.ExistsByUserID(context.Background(), u.ID())
	require.NoError(t, err)
	assert.True(t, exists)

	dup, err := forum.NewMember(u.ID(), "alice", nil)
	require.NoError(t, err)
	assert.ErrorIs(t, f.members.Save(context.Background(), dup), forum.ErrMemberExists)
}

func TestOutboxEventPOPayload(t *testing.T) {
	f := newFixture(t)
	u := f.newUser(t, "a@b.co", "alice")

	row, err := po.FromDomainEvent(u.DomainEvents()[0])
	require.NoError(t, err)
	assert.Equal(t, string(user.KindUserCreated), row.EventType)

	data, err := row.ToEventData()
	require.NoError(t, err)
	assert.Equal(t, u.ID().String(), data["aggregate_id"])
	payload := data["data"].(map[string]any)
	assert.Equal(t, "alice", payload["Username"])
}
