package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"travel-assistant/internal/domain"
)

func TestNewID_Shape(t *testing.T) {
	a, b := NewID(), NewID()
	require.Len(t, a, 32)
	require.NotEqual(t, a, b)
	require.NotContains(t, a, "-")
}

func TestUniqueID_RetriesOnCollision(t *testing.T) {
	ids := []string{"taken", "taken", "free"}
	orig := NewID
	t.Cleanup(func() { NewID = orig })
	NewID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	id, err := UniqueID(context.Background(), func(_ context.Context, id string) (bool, error) {
		return id == "taken", nil
	})
	require.NoError(t, err)
	require.Equal(t, "free", id)
}

func TestUniqueID_Exhausted(t *testing.T) {
	_, err := UniqueID(context.Background(), func(context.Context, string) (bool, error) { return true, nil })
	require.ErrorIs(t, err, ErrIDExhausted)
}

func TestUniqueID_CheckError(t *testing.T) {
	_, err := UniqueID(context.Background(), func(context.Context, string) (bool, error) {
		return false, errors.New("boom")
	})
	require.ErrorContains(t, err, "boom")
}

func TestExpired(t *testing.T) {
	last := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	require.False(t, Expired(last, last.Add(time.Hour), time.Hour))
	require.True(t, Expired(last, last.Add(time.Hour+time.Second), time.Hour))
}

func TestValidateTurns(t *testing.T) {
	require.Error(t, ValidateTurns(nil))
	require.Error(t, ValidateTurns([]domain.ChatTurn{{Role: "system", Message: "x"}}))
	require.NoError(t, ValidateTurns([]domain.ChatTurn{domain.UserTurn("hi")}))
}

func TestTail(t *testing.T) {
	turns := []domain.ChatTurn{{Message: "1"}, {Message: "2"}, {Message: "3"}}
	require.Len(t, Tail(turns, 0), 3)
	require.Len(t, Tail(turns, 5), 3)
	require.Equal(t, "2", Tail(turns, 2)[0].Message)
}
