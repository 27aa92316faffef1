package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"travel-assistant/internal/domain"
	"travel-assistant/internal/session"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore() (*Store, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
	return New(time.Hour, WithClock(clock.Now)), clock
}

func TestCreateReadAppend(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	id, err := s.Create(ctx, domain.UserTurn("hello"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, s.Append(ctx, id, domain.AssistantTurn("hi there"), domain.UserTurn("more")))

	turns, err := s.Read(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	require.Equal(t, domain.RoleUser, turns[0].Role)
	require.Equal(t, "hi there", turns[1].Message)

	tail, err := s.Read(ctx, id, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"hi there", "more"}, []string{tail[0].Message, tail[1].Message})
}

func TestCreate_RequiresTurn(t *testing.T) {
	s, _ := newTestStore()
	_, err := s.Create(context.Background())
	require.Error(t, err)
}

func TestExpiredSessionIsNotFoundAfterSuccessfulAppend(t *testing.T) {
	s, clock := newTestStore()
	ctx := context.Background()

	id, err := s.Create(ctx, domain.UserTurn("hello"))
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, id, domain.AssistantTurn("hi")))

	clock.Advance(time.Hour + time.Minute)

	ok, err := s.Exists(ctx, id)
	require.NoError(t, err)
	require.False(t, ok)
	_, err = s.Read(ctx, id, 0)
	require.ErrorIs(t, err, session.ErrNotFound)
	require.ErrorIs(t, s.Append(ctx, id, domain.UserTurn("late")), session.ErrNotFound)
}

func TestActivityRefreshesTTL(t *testing.T) {
	s, clock := newTestStore()
	ctx := context.Background()

	id, err := s.Create(ctx, domain.UserTurn("hello"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		clock.Advance(50 * time.Minute)
		ok, err := s.Exists(ctx, id)
		require.NoError(t, err)
		require.True(t, ok, "iteration %d", i)
	}
}

func TestList_OrdersByRecentActivityAndHidesExpired(t *testing.T) {
	s, clock := newTestStore()
	ctx := context.Background()

	stale, err := s.Create(ctx, domain.UserTurn("stale"))
	require.NoError(t, err)
	clock.Advance(30 * time.Minute)
	older, err := s.Create(ctx, domain.UserTurn("older"))
	require.NoError(t, err)
	clock.Advance(time.Minute)
	newer, err := s.Create(ctx, domain.UserTurn("newer"))
	require.NoError(t, err)
	clock.Advance(31 * time.Minute)

	ids, err := s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{newer, older}, ids)
	require.NotContains(t, ids, stale)
}

func TestSweep(t *testing.T) {
	s, clock := newTestStore()
	ctx := context.Background()
	_, err := s.Create(ctx, domain.UserTurn("a"))
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)
	require.Equal(t, 1, s.Sweep())
	require.Equal(t, 0, s.Sweep())
}

func (s *Store) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func TestSweeperDropsExpiredSessions(t *testing.T) {
	s := New(5*time.Millisecond, WithSweepInterval(time.Millisecond))
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	_, err := s.Create(context.Background(), domain.UserTurn("a"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.size() == 0 }, time.Second, 2*time.Millisecond)
}

func TestClose(t *testing.T) {
	s := New(time.Hour, WithSweepInterval(time.Millisecond))
	ctx := context.Background()
	id, err := s.Create(ctx, domain.UserTurn("a"))
	require.NoError(t, err)

	require.NoError(t, s.Close(ctx))
	require.NoError(t, s.Close(ctx))

	_, err = s.Create(ctx, domain.UserTurn("b"))
	require.ErrorIs(t, err, session.ErrClosed)
	require.ErrorIs(t, s.Append(ctx, id, domain.AssistantTurn("c")), session.ErrClosed)
	_, err = s.Read(ctx, id, 0)
	require.ErrorIs(t, err, session.ErrClosed)
	_, err = s.Exists(ctx, id)
	require.ErrorIs(t, err, session.ErrClosed)
	_, err = s.List(ctx)
	require.ErrorIs(t, err, session.ErrClosed)
}

func TestClose_WithoutSweeper(t *testing.T) {
	s, _ := newTestStore()
	require.NoError(t, s.Close(context.Background()))
}
