package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"travel-assistant/internal/api"
	"travel-assistant/internal/domain"
	"travel-assistant/internal/usecase"
)

var errInvalidBody = &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_body"}

type routes struct {
	svc    api.Services
	logger *slog.Logger
}

func (h *routes) register(r gin.IRouter) {
	// The web client sends the trailing slash.
	for _, p := range []string{"", "/"} {
		r.POST("/query"+p, h.query)
		r.GET("/get-chat"+p, h.getChat)
		r.GET("/get-chats"+p, h.getChats)
	}

	admin := r.Group("/admin")
	admin.POST("/pin_event", h.pinEvent)
	admin.GET("/pinned_events", h.pinnedEvents)
	admin.DELETE("/unpin_event/:id", h.unpinEvent)
	admin.POST("/pin_location", h.pinLocation)
	admin.GET("/pinned_locations", h.pinnedLocations)
	admin.DELETE("/unpin_location/:id", h.unpinLocation)
}

func (h *routes) query(c *gin.Context) {
	var req api.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, errInvalidBody)
		return
	}
	out, err := h.svc.Query.Process(c.Request.Context(), usecase.QueryInput{
		UserInput: req.UserInput,
		SessionID: req.SessionID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, api.NewQueryResponse(out))
}

func (h *routes) getChat(c *gin.Context) {
	chat, err := h.svc.History.GetChat(c.Request.Context(), c.Query("session_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, chat)
}

func (h *routes) getChats(c *gin.Context) {
	ids, err := h.svc.History.ListSessions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ids)
}

func (h *routes) pinEvent(c *gin.Context) {
	var ev domain.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		h.fail(c, errInvalidBody)
		return
	}
	saved, err := h.svc.Admin.PinEvent(c.Request.Context(), ev)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *routes) pinnedEvents(c *gin.Context) {
	events, err := h.svc.Admin.PinnedEvents(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *routes) unpinEvent(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Admin.UnpinEvent(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, api.DeletedResponse{Deleted: id})
}

func (h *routes) pinLocation(c *gin.Context) {
	var loc domain.Location
	if err := c.ShouldBindJSON(&loc); err != nil {
		h.fail(c, errInvalidBody)
		return
	}
	saved, err := h.svc.Admin.PinLocation(c.Request.Context(), loc)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *routes) pinnedLocations(c *gin.Context) {
	locs, err := h.svc.Admin.PinnedLocations(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, locs)
}

func (h *routes) unpinLocation(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Admin.UnpinLocation(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, api.DeletedResponse{Deleted: id})
}

func (h *routes) fail(c *gin.Context, err error) {
	status, body := api.StatusFor(err)
	logger := h.logger.With(
		correlationKey, c.GetString(correlationKey),
		"method", c.Request.Method,
		"path", c.FullPath(),
	)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "reason", api.Reason(err), "err", err)
	} else {
		logger.Warn("request rejected", "status", status, "reason", api.Reason(err))
	}
	c.AbortWithStatusJSON(status, body)
}
