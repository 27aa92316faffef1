// Package api holds the JSON shapes and error mapping shared by the Lambda
// handler and the HTTP server.
package api

import (
	"context"
	"errors"
	"net/http"

	"travel-assistant/internal/domain"
	"travel-assistant/internal/usecase"
)

const CorrelationHeader = "X-Correlation-Id"

type QueryUseCase interface {
	Process(ctx context.Context, in usecase.QueryInput) (usecase.QueryOutput, error)
}

type HistoryUseCase interface {
	ListSessions(ctx context.Context) ([]string, error)
	GetChat(ctx context.Context, sessionID string) (domain.Session, error)
}

type AdminUseCase interface {
	PinEvent(ctx context.Context, ev domain.Event) (domain.Event, error)
	PinnedEvents(ctx context.Context) ([]domain.Event, error)
	UnpinEvent(ctx context.Context, id string) error
	PinLocation(ctx context.Context, loc domain.Location) (domain.Location, error)
	PinnedLocations(ctx context.Context) ([]domain.Location, error)
	UnpinLocation(ctx context.Context, id string) error
}

// Services bundles the use cases a transport serves.
type Services struct {
	Query   QueryUseCase
	History HistoryUseCase
	Admin   AdminUseCase
}

// Validate reports the first missing use case.
func (s Services) Validate() error {
	switch {
	case s.Query == nil:
		return errors.New("api: query use case must not be nil")
	case s.History == nil:
		return errors.New("api: history use case must not be nil")
	case s.Admin == nil:
		return errors.New("api: admin use case must not be nil")
	}
	return nil
}

type QueryRequest struct {
	UserInput string `json:"user_input"`
	SessionID string `json:"session_id"`
}

type QueryResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type DeletedResponse struct {
	Deleted string `json:"deleted"`
}

func NewQueryResponse(out usecase.QueryOutput) QueryResponse {
	return QueryResponse{ID: out.ID, Message: out.Message}
}

// StatusFor maps an error to its HTTP status and public error code. Errors
// that are not *usecase.Error are reported as internal.
func StatusFor(err error) (int, ErrorResponse) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, ErrorResponse{Error: string(usecase.ErrorInternal)}
	}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, ErrorResponse{Error: string(ucErr.Code)}
	case usecase.ErrorNotFound:
		return http.StatusNotFound, ErrorResponse{Error: string(ucErr.Code)}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: string(usecase.ErrorInternal)}
	}
}

// Reason returns the usecase reason of err for logging, if any.
func Reason(err error) string {
	var ucErr *usecase.Error
	if errors.As(err, &ucErr) {
		return ucErr.Reason
	}
	return ""
}
