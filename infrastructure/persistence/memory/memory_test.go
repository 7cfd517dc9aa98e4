package memory

import (
	"context"
	"errors"
	"testing"

	"ddd-users/domain/events"
	"ddd-users/domain/forum"
	"ddd-users/domain/shared"
	"ddd-users/domain/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(t *testing.T, r *events.Registry, email, name string) *user.User {
	t.Helper()
	e, err := user.NewEmail(email)
	require.NoError(t, err)
	n, err := user.NewUsername(name)
	require.NoError(t, err)
	p, err := user.NewPassword("secret123")
	require.NoError(t, err)

	u, err := user.New(user.Props{Email: e, Username: n, Password: p}, r.Marker())
	require.NoError(t, err)
	return u
}

func recordKinds(r *events.Registry, kinds ...shared.EventKind) *[]shared.EventKind {
	seen := &[]shared.EventKind{}
	for _, kind := range kinds {
		r.RegisterFunc(kind, func(_ context.Context, e shared.DomainEvent) error {
			*seen = append(*seen, e.Kind())
			return nil
		})
	}
	return seen
}

func TestUnitOfWorkDispatchesAfterSuccess(t *testing.T) {
	r := events.NewRegistry()
	repo := NewUserRepository(r.Marker(), r)
	uow := NewUnitOfWork(r)
	seen := recordKinds(r, user.KindUserCreated)

	u := newUser(t, r, "khalil@apollographql.com", "khalil")
	err := uow.Execute(context.Background(), func(ctx context.Context) error {
		if err := repo.Save(ctx, u); err != nil {
			return err
		}
		uow.Register(ctx, u)
		assert.Empty(t, *seen, "nothing dispatched before the unit completes")
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []shared.EventKind{user.KindUserCreated}, *seen)
	assert.False(t, r.IsMarked(u.ID()))
	assert.Empty(t, u.DomainEvents())
}

func TestUnitOfWorkFailureSkipsDispatch(t *testing.T) {
	r := events.NewRegistry()
	uow := NewUnitOfWork(r)
	seen := recordKinds(r, user.KindUserCreated)
	boom := errors.New("boom")

	u := newUser(t, r, "a@b.co", "alice")
	err := uow.Execute(context.Background(), func(ctx context.Context) error {
		uow.Register(ctx, u)
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Empty(t, *seen)
	assert.False(t, r.IsMarked(u.ID()))
}

func TestUnitOfWorkReturnsDispatchError(t *testing.T) {
	r := events.NewRegistry()
	uow := NewUnitOfWork(r)
	boom := errors.New("subscriber down")
	r.RegisterFunc(user.KindUserCreated, func(context.Context, shared.DomainEvent) error { return boom })

	u := newUser(t, r, "a@b.co", "alice")
	err := uow.Execute(context.Background(), func(ctx context.Context) error {
		uow.Register(ctx, u)
		return nil
	})

	var dispatchErr *events.DispatchError
	require.ErrorAs(t, err, &dispatchErr)
	assert.ErrorIs(t, err, boom)
	assert.True(t, r.IsMarked(u.ID()), "failed dispatch keeps the aggregate marked")
}

func TestNestedExecuteJoinsOuter(t *testing.T) {
	r := events.NewRegistry()
	uow := NewUnitOfWork(r)
	seen := recordKinds(r, user.KindUserCreated)

	u := newUser(t, r, "a@b.co", "alice")
	err := uow.Execute(context.Background(), func(ctx context.Context) error {
		return uow.Execute(ctx, func(ctx context.Context) error {
			uow.Register(ctx, u)
			return nil
		})
	})
	require.NoError(t, err)
	assert.Len(t, *seen, 1)
}

func TestFailedUnitOfWorkKeepsOverlappingMark(t *testing.T) {
	r := events.NewRegistry()
	repo := NewUserRepository(r.Marker(), r)
	uow := NewUnitOfWork(r)
	seen := recordKinds(r, user.KindEmailVerified, user.KindUserDeleted)
	boom := errors.New("boom")

	u := newUser(t, r, "a@b.co", "alice")
	require.NoError(t, repo.Save(context.Background(), u))
	*seen = nil

	err := uow.Execute(context.Background(), func(ctx context.Context) error {
		outer, err := repo.FindByID(ctx, u.ID())
		if err != nil {
			return err
		}
		uow.Register(ctx, outer)
		outer.VerifyEmail()
		if err := repo.Save(ctx, outer); err != nil {
			return err
		}

		inner := uow.Execute(context.Background(), func(ctx context.Context) error {
			other, err := repo.FindByID(ctx, u.ID())
			if err != nil {
				return err
			}
			uow.Register(ctx, other)
			other.Delete()
			return boom
		})
		require.ErrorIs(t, inner, boom)
		assert.True(t, r.IsMarked(u.ID()), "the failed unit must not unmark the outer instance")
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []shared.EventKind{user.KindEmailVerified}, *seen)
	assert.Empty(t, r.MarkedAggregates())
}

func TestOverlappingUnitsDispatchTheirOwnInstances(t *testing.T) {
	r := events.NewRegistry()
	repo := NewUserRepository(r.Marker(), r)
	uow := NewUnitOfWork(r)
	seen := recordKinds(r, user.KindEmailVerified, user.KindUserDeleted)

	u := newUser(t, r, "a@b.co", "alice")
	require.NoError(t, repo.Save(context.Background(), u))
	*seen = nil

	err := uow.Execute(context.Background(), func(ctx context.Context) error {
		outer, err := repo.FindByID(ctx, u.ID())
		if err != nil {
			return err
		}
		uow.Register(ctx, outer)
		outer.VerifyEmail()

		require.NoError(t, uow.Execute(context.Background(), func(ctx context.Context) error {
			other, err := repo.FindByID(ctx, u.ID())
			if err != nil {
				return err
			}
			uow.Register(ctx, other)
			other.Delete()
			return repo.Save(ctx, other)
		}))
		assert.Equal(t, []shared.EventKind{user.KindUserDeleted}, *seen,
			"the inner commit dispatches only its own instance")
		assert.True(t, r.IsMarked(u.ID()))
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []shared.EventKind{user.KindUserDeleted, user.KindEmailVerified}, *seen)
	assert.Empty(t, r.MarkedAggregates())
}

func TestSaveOutsideUnitOfWorkDispatches(t *testing.T) {
	r := events.NewRegistry()
	repo := NewUserRepository(r.Marker(), r)
	seen := recordKinds(r, user.KindUserCreated)

	u := newUser(t, r, "a@b.co", "alice")
	require.NoError(t, repo.Save(context.Background(), u))
	assert.Len(t, *seen, 1)
}

func TestUserRepositoryLookupsAndUniqueness(t *testing.T) {
	r := events.NewRegistry()
	repo := NewUserRepository(r.Marker(), nil)
	ctx := context.Background()

	u := newUser(t, r, "a@b.co", "alice")
	require.NoError(t, repo.Save(ctx, u))
	assert.Equal(t, 1, u.Version())

	found, err := repo.FindByID(ctx, u.ID())
	require.NoError(t, err)
	assert.True(t, found.ID().Equals(u.ID()))
	assert.Empty(t, found.DomainEvents(), "rebuilt users carry no events")

	exists, err := repo.Exists(ctx, u.Email())
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = repo.FindByUsername(ctx, u.Username())
	require.NoError(t, err)

	other, _ := user.NewUsername("nobody")
	_, err = repo.FindByUsername(ctx, other)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.ErrorIs(t, repo.Save(ctx, newUser(t, r, "a@b.co", "bob")), user.ErrEmailAlreadyExists)
	assert.ErrorIs(t, repo.Save(ctx, newUser(t, r, "c@d.co", "alice")), user.ErrUsernameTaken)
	assert.Equal(t, 1, repo.Count())
}

func TestUserRepositoryOptimisticLock(t *testing.T) {
	r := events.NewRegistry()
	repo := NewUserRepository(r.Marker(), nil)
	ctx := context.Background()

	u := newUser(t, r, "a@b.co", "alice")
	require.NoError(t, repo.Save(ctx, u))

	first, err := repo.FindByID(ctx, u.ID())
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, u.ID())
	require.NoError(t, err)

	first.VerifyEmail()
	require.NoError(t, repo.Save(ctx, first))

	second.Delete()
	assert.ErrorIs(t, repo.Save(ctx, second), user.ErrConcurrentModified)
}

func TestMemberRepository(t *testing.T) {
	r := events.NewRegistry()
	repo := NewMemberRepository(r.Marker(), nil)
	ctx := context.Background()
	userID := shared.NewUniqueEntityID()

	m, err := forum.NewMember(userID, "alice", r.Marker())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, m))

	exists, err := repo.ExistsByUserID(ctx, userID)
	require.NoError(t, err)
	assert.True(t, exists)

	found, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, found.UserID().Equals(userID))

	_, err = repo.FindByUsername(ctx, "bob")
	assert.ErrorIs(t, err, forum.ErrMemberNotFound)

	dup, err := forum.NewMember(userID, "alice", nil)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Save(ctx, dup), forum.ErrMemberExists)
}
