package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"travel-assistant/internal/domain"
	"travel-assistant/internal/session"
)

type entry struct {
	turns        []domain.ChatTurn
	lastActivity time.Time
}

// Store is a thread-safe, process-local session store. Expired sessions are
// dropped lazily on access, by Sweep and by the optional background sweeper.
type Store struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	data   map[string]*entry
	closed bool

	sweepEvery time.Duration
	stop       chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
}

type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithSweepInterval starts a goroutine that calls Sweep every d until Close.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Store) { s.sweepEvery = d }
}

func New(ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = session.DefaultIdleTTL
	}
	s := &Store{
		ttl:  ttl,
		now:  time.Now,
		data: make(map[string]*entry),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sweepEvery > 0 {
		go s.sweepLoop()
	} else {
		close(s.done)
	}
	return s
}

func (s *Store) sweepLoop() {
	defer close(s.done)
	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Close stops the sweeper and drops every session. It is safe to call more
// than once; ctx bounds the wait for the sweeper to exit.
func (s *Store) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.mu.Lock()
		s.closed = true
		s.data = make(map[string]*entry)
		s.mu.Unlock()
	})
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) Create(ctx context.Context, turns ...domain.ChatTurn) (string, error) {
	if err := session.ValidateTurns(turns); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", session.ErrClosed
	}
	id, err := session.UniqueID(ctx, func(_ context.Context, id string) (bool, error) {
		return s.liveLocked(id) != nil, nil
	})
	if err != nil {
		return "", err
	}
	s.data[id] = &entry{turns: append([]domain.ChatTurn(nil), turns...), lastActivity: s.now()}
	return id, nil
}

func (s *Store) Append(_ context.Context, id string, turns ...domain.ChatTurn) error {
	if err := session.ValidateTurns(turns); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return session.ErrClosed
	}
	e := s.liveLocked(id)
	if e == nil {
		return session.ErrNotFound
	}
	e.turns = append(e.turns, turns...)
	e.lastActivity = s.now()
	return nil
}

func (s *Store) Read(_ context.Context, id string, limit int) ([]domain.ChatTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, session.ErrClosed
	}
	e := s.liveLocked(id)
	if e == nil {
		return nil, session.ErrNotFound
	}
	e.lastActivity = s.now()
	tail := session.Tail(e.turns, limit)
	return append([]domain.ChatTurn(nil), tail...), nil
}

func (s *Store) Exists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, session.ErrClosed
	}
	e := s.liveLocked(id)
	if e == nil {
		return false, nil
	}
	e.lastActivity = s.now()
	return true, nil
}

// List returns live session ids, most recently active first. It does not
// refresh any session.
func (s *Store) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, session.ErrClosed
	}
	s.sweepLocked()
	type item struct {
		id   string
		last time.Time
	}
	items := make([]item, 0, len(s.data))
	for id, e := range s.data {
		items = append(items, item{id: id, last: e.lastActivity})
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].last.Equal(items[j].last) {
			return items[i].last.After(items[j].last)
		}
		return items[i].id < items[j].id
	})
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.id)
	}
	return out, nil
}

// Sweep physically removes expired sessions and returns how many were dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

func (s *Store) sweepLocked() int {
	now := s.now()
	n := 0
	for id, e := range s.data {
		if session.Expired(e.lastActivity, now, s.ttl) {
			delete(s.data, id)
			n++
		}
	}
	return n
}

func (s *Store) liveLocked(id string) *entry {
	id = strings.TrimSpace(id)
	e, ok := s.data[id]
	if !ok {
		return nil
	}
	if session.Expired(e.lastActivity, s.now(), s.ttl) {
		delete(s.data, id)
		return nil
	}
	return e
}
