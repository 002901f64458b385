package player

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"songbox/model"
)

// DefaultSession names the queue used when a client does not pick one.
const DefaultSession = "default"

// ErrInvalidSession rejects malformed session identifiers.
var ErrInvalidSession = errors.New("invalid queue session")

var sessionPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidSession reports whether s can name a queue.
func ValidSession(s string) bool {
	return sessionPattern.MatchString(s)
}

// QueueStore persists queues by session.
type QueueStore interface {
	// Load returns the session's queue, or an empty one when none is stored.
	Load(ctx context.Context, session string) (*Queue, error)
	Save(ctx context.Context, session string, q *Queue) error
	Delete(ctx context.Context, session string) error
}

type snapshot struct {
	items  []model.QueueItem
	cursor int
}

// MemoryStore keeps queues in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	queues map[string]snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{queues: make(map[string]snapshot)}
}

func (s *MemoryStore) Load(_ context.Context, session string) (*Queue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.queues[session]
	if !ok {
		return NewQueue(), nil
	}
	return Restore(snap.items, snap.cursor), nil
}

func (s *MemoryStore) Save(_ context.Context, session string, q *Queue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queues[session] = snapshot{items: q.Items(), cursor: q.Cursor()}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.queues, session)
	return nil
}

// Player serializes queue changes per session on top of a QueueStore.
type Player struct {
	store QueueStore
	locks sync.Map // session -> *sync.Mutex
}

// New returns a player backed by store.
func New(store QueueStore) *Player {
	return &Player{store: store}
}

func (p *Player) lock(session string) func() {
	m, _ := p.locks.LoadOrStore(session, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// State returns the current state of a session's queue.
func (p *Player) State(ctx context.Context, session string) (model.QueueState, error) {
	if !ValidSession(session) {
		return model.QueueState{}, ErrInvalidSession
	}
	q, err := p.store.Load(ctx, session)
	if err != nil {
		return model.QueueState{}, fmt.Errorf("failed to load queue %s: %w", session, err)
	}
	return q.State(), nil
}

// Update applies fn to a session's queue and saves the result when fn reports
// a change. It returns the state after fn ran and whether fn changed the queue.
func (p *Player) Update(ctx context.Context, session string, fn func(q *Queue) bool) (model.QueueState, bool, error) {
	if !ValidSession(session) {
		return model.QueueState{}, false, ErrInvalidSession
	}
	defer p.lock(session)()

	q, err := p.store.Load(ctx, session)
	if err != nil {
		return model.QueueState{}, false, fmt.Errorf("failed to load queue %s: %w", session, err)
	}
	changed := fn(q)
	if changed {
		if err := p.store.Save(ctx, session, q); err != nil {
			return model.QueueState{}, false, fmt.Errorf("failed to save queue %s: %w", session, err)
		}
	}
	return q.State(), changed, nil
}

// Clear drops a session's queue.
func (p *Player) Clear(ctx context.Context, session string) error {
	if !ValidSession(session) {
		return ErrInvalidSession
	}
	defer p.lock(session)()

	if err := p.store.Delete(ctx, session); err != nil {
		return fmt.Errorf("failed to clear queue %s: %w", session, err)
	}
	return nil
}
