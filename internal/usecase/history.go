package usecase

import (
	"context"
	"errors"
	"strings"

	"travel-assistant/internal/domain"
	"travel-assistant/internal/session"
)

// HistoryService serves the read-only session endpoints.
type HistoryService struct {
	sessions session.Store
}

func NewHistoryService(s session.Store) (*HistoryService, error) {
	if s == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	return &HistoryService{sessions: s}, nil
}

// ListSessions returns live session ids, most recently active first.
func (h *HistoryService) ListSessions(ctx context.Context) ([]string, error) {
	ids, err := h.sessions.List(ctx)
	if err != nil {
		return nil, newError(ErrorInternal, "session_list_error", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// GetChat returns every turn of a live session in order.
func (h *HistoryService) GetChat(ctx context.Context, sessionID string) (domain.Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" || sessionID == session.NewSessionSentinel {
		return domain.Session{}, newError(ErrorInvalidInput, "missing_session_id", nil)
	}
	turns, err := h.sessions.Read(ctx, sessionID, 0)
	if errors.Is(err, session.ErrNotFound) {
		return domain.Session{}, newError(ErrorNotFound, "session_not_found", err)
	}
	if err != nil {
		return domain.Session{}, newError(ErrorInternal, "session_read_error", err)
	}
	if turns == nil {
		turns = []domain.ChatTurn{}
	}
	return domain.Session{ID: sessionID, Turns: turns}, nil
}
