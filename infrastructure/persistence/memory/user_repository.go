package memory

import (
	"context"
	"sync"

	"ddd-users/domain/shared"
	"ddd-users/domain/user"
	"ddd-users/infrastructure/persistence"
)

type userRecord struct {
	id      shared.UniqueEntityID
	props   user.Props
	version int
}

// UserRepository keeps snapshots, not live aggregates: every lookup rebuilds
// a fresh user carrying the registry marker.
type UserRepository struct {
	mu         sync.RWMutex
	records    map[string]userRecord
	marker     shared.Marker
	dispatcher persistence.Dispatcher
}

func NewUserRepository(marker shared.Marker, dispatcher persistence.Dispatcher) *UserRepository {
	return &UserRepository{
		records:    make(map[string]userRecord),
		marker:     marker,
		dispatcher: dispatcher,
	}
}

func (r *UserRepository) Exists(ctx context.Context, email user.Email) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if rec.props.Email.Equals(email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id shared.UniqueEntityID) (*user.User, error) {
	return r.findOne(ctx, id.String(), func(rec userRecord) bool { return rec.id.Equals(id) })
}

func (r *UserRepository) FindByEmail(ctx context.Context, email user.Email) (*user.User, error) {
	return r.findOne(ctx, email.Value(), func(rec userRecord) bool { return rec.props.Email.Equals(email) })
}

func (r *UserRepository) FindByUsername(ctx context.Context, username user.Username) (*user.User, error) {
	return r.findOne(ctx, username.Value(), func(rec userRecord) bool { return rec.props.Username.Equals(username) })
}

func (r *UserRepository) findOne(ctx context.Context, key string, match func(userRecord) bool) (*user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if match(rec) {
			return user.Rebuild(rec.props, rec.id, rec.version, r.marker)
		}
	}
	return nil, user.NewUserNotFoundError(key)
}

// Save enforces unique email and username and the optimistic version.
// Outside a unit of work the user's events are dispatched right after the write.
func (r *UserRepository) Save(ctx context.Context, u *user.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.write(u); err != nil {
		return err
	}
	if persistence.SessionFromContext(ctx) == nil && r.dispatcher != nil {
		dispatchAfterWrite(ctx, r.dispatcher, u)
	}
	return nil
}

func (r *UserRepository) write(u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := u.ID().String()
	for k, rec := range r.records {
		if k == key {
			continue
		}
		if rec.props.Email.Equals(u.Email()) {
			return user.NewEmailAlreadyExistsError(u.Email().Value())
		}
		if rec.props.Username.Equals(u.Username()) {
			return user.NewUsernameTakenError(u.Username().Value())
		}
	}

	existing, found := r.records[key]
	switch {
	case u.IsNew() && found:
		return shared.NewConflictError("user", "user "+key+" already exists")
	case !u.IsNew() && !found:
		return user.NewUserNotFoundError(key)
	case !u.IsNew() && existing.version != u.Version():
		return user.NewConcurrentModificationError(key)
	}

	r.records[key] = userRecord{id: u.ID(), props: u.Props, version: u.Version() + 1}
	u.IncrementVersion()
	return nil
}

// Count returns the number of stored users.
func (r *UserRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

var _ user.Repository = (*UserRepository)(nil)
