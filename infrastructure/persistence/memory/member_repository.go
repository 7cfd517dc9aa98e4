package memory

import (
	"context"
	"sync"

	"ddd-users/domain/forum"
	"ddd-users/domain/shared"
	"ddd-users/infrastructure/persistence"
)

type MemberRepository struct {
	mu         sync.RWMutex
	records    map[string]memberRecord
	marker     shared.Marker
	dispatcher persistence.Dispatcher
}

type memberRecord struct {
	id    shared.UniqueEntityID
	props forum.MemberProps
}

func NewMemberRepository(marker shared.Marker, dispatcher persistence.Dispatcher) *MemberRepository {
	return &MemberRepository{
		records:    make(map[string]memberRecord),
		marker:     marker,
		dispatcher: dispatcher,
	}
}

func (r *MemberRepository) ExistsByUserID(ctx context.Context, userID shared.UniqueEntityID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if rec.props.UserID.Equals(userID) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemberRepository) FindByUsername(ctx context.Context, username string) (*forum.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if rec.props.Username == username {
			return forum.RebuildMember(rec.props, rec.id, r.marker), nil
		}
	}
	return nil, forum.ErrMemberNotFound
}

func (r *MemberRepository) Save(ctx context.Context, m *forum.Member) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	key := m.ID().String()
	for k, rec := range r.records {
		if k != key && rec.props.UserID.Equals(m.UserID()) {
			r.mu.Unlock()
			return forum.ErrMemberExists
		}
	}
	r.records[key] = memberRecord{id: m.ID(), props: m.Props}
	r.mu.Unlock()

	if persistence.SessionFromContext(ctx) == nil && r.dispatcher != nil {
		dispatchAfterWrite(ctx, r.dispatcher, m)
	}
	return nil
}

var _ forum.MemberRepository = (*MemberRepository)(nil)
