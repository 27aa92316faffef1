package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"travel-assistant/internal/api"
	"travel-assistant/internal/domain"
	"travel-assistant/internal/usecase"
)

const (
	unpinEventPrefix    = "/admin/unpin_event/"
	unpinLocationPrefix = "/admin/unpin_location/"
)

var errInvalidBody = &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_body"}

// Handler routes API Gateway proxy requests to the use cases.
type Handler struct {
	svc    api.Services
	logger *slog.Logger
}

type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewHandler(svc api.Services, opts ...Option) (*Handler, error) {
	if err := svc.Validate(); err != nil {
		return nil, err
	}
	h := &Handler{svc: svc, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(req.Headers)
	logger := h.logger.With("correlation_id", corrID, "method", req.HTTPMethod, "path", req.Path)

	body, err := h.route(ctx, req)
	if err != nil {
		status, payload := api.StatusFor(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", "reason", api.Reason(err), "err", err)
		} else {
			logger.Warn("request rejected", "status", status, "reason", api.Reason(err))
		}
		return respond(status, payload, corrID), nil
	}
	return respond(http.StatusOK, body, corrID), nil
}

func (h *Handler) route(ctx context.Context, req events.APIGatewayProxyRequest) (any, error) {
	method := strings.ToUpper(req.HTTPMethod)
	path := strings.TrimRight(req.Path, "/")

	switch {
	case method == http.MethodPost && path == "/query":
		var in api.QueryRequest
		if err := decodeBody(req, &in); err != nil {
			return nil, err
		}
		out, err := h.svc.Query.Process(ctx, usecase.QueryInput{UserInput: in.UserInput, SessionID: in.SessionID})
		if err != nil {
			return nil, err
		}
		return api.NewQueryResponse(out), nil

	case method == http.MethodGet && path == "/get-chat":
		return h.svc.History.GetChat(ctx, req.QueryStringParameters["session_id"])

	case method == http.MethodGet && path == "/get-chats":
		return h.svc.History.ListSessions(ctx)

	case method == http.MethodPost && path == "/admin/pin_event":
		var ev domain.Event
		if err := decodeBody(req, &ev); err != nil {
			return nil, err
		}
		return h.svc.Admin.PinEvent(ctx, ev)

	case method == http.MethodGet && path == "/admin/pinned_events":
		return h.svc.Admin.PinnedEvents(ctx)

	case method == http.MethodDelete && strings.HasPrefix(path, unpinEventPrefix):
		id := pathID(req, path, unpinEventPrefix)
		if err := h.svc.Admin.UnpinEvent(ctx, id); err != nil {
			return nil, err
		}
		return api.DeletedResponse{Deleted: id}, nil

	case method == http.MethodPost && path == "/admin/pin_location":
		var loc domain.Location
		if err := decodeBody(req, &loc); err != nil {
			return nil, err
		}
		return h.svc.Admin.PinLocation(ctx, loc)

	case method == http.MethodGet && path == "/admin/pinned_locations":
		return h.svc.Admin.PinnedLocations(ctx)

	case method == http.MethodDelete && strings.HasPrefix(path, unpinLocationPrefix):
		id := pathID(req, path, unpinLocationPrefix)
		if err := h.svc.Admin.UnpinLocation(ctx, id); err != nil {
			return nil, err
		}
		return api.DeletedResponse{Deleted: id}, nil
	}
	return nil, &usecase.Error{Code: usecase.ErrorNotFound, Reason: "unknown_route"}
}

func decodeBody(req events.APIGatewayProxyRequest, out any) error {
	raw := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return errInvalidBody
		}
		raw = decoded
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errInvalidBody
	}
	return nil
}

// pathID prefers the {id} path parameter set by API Gateway and falls back
// to the trailing path segment.
func pathID(req events.APIGatewayProxyRequest, path, prefix string) string {
	if id := req.PathParameters["id"]; id != "" {
		return id
	}
	return strings.TrimPrefix(path, prefix)
}

func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, api.CorrelationHeader) && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return uuid.NewString()
}

func respond(status int, body any, corrID string) events.APIGatewayProxyResponse {
	headers := map[string]string{
		"Content-Type":        "application/json",
		api.CorrelationHeader: corrID,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		slog.Error("encode response", "correlation_id", corrID, "err", err)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    headers,
			Body:       `{"error":"` + string(usecase.ErrorInternal) + `"}`,
		}
	}
	return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers, Body: string(raw)}
}

