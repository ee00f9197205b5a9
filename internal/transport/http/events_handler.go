package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	apierrors "plotpilot/internal/errors"
	"plotpilot/internal/services"
	ws "plotpilot/internal/websocket"
)

// EventHub attaches websocket connections to a dataset's event stream
type EventHub interface {
	Serve(conn *websocket.Conn, sessionID, traceID string) *ws.Client
}

// DatasetLookup reports whether a dataset exists
type DatasetLookup interface {
	Get(ctx context.Context, id string) (*services.DatasetView, error)
}

// EventsHandler upgrades GET /api/datasets/{datasetID}/events to a websocket
type EventsHandler struct {
	hub          EventHub
	datasets     DatasetLookup
	upgrader     websocket.Upgrader
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewEventsHandler creates an events handler. An empty allowedOrigins list
// accepts only same-host origins; "*" accepts any.
func NewEventsHandler(hub EventHub, datasets DatasetLookup, readBuffer, writeBuffer int, allowedOrigins []string, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *EventsHandler {
	h := &EventsHandler{
		hub:          hub,
		datasets:     datasets,
		logger:       logger.With(slog.String("component", "events_handler")),
		errorHandler: errorHandler,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  readBuffer,
		WriteBufferSize: writeBuffer,
	}
	if len(allowedOrigins) > 0 {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		}
	}
	return h
}

// ServeEvents handles GET /api/datasets/{datasetID}/events
func (h *EventsHandler) ServeEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "datasetID")
	if _, err := uuid.Parse(id); err != nil {
		h.errorHandler.HandleError(w, r, datasetNotFound(id))
		return
	}
	if _, err := h.datasets.Get(ctx, id); err != nil {
		h.errorHandler.HandleError(w, r, datasetNotFound(id))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.logger.WarnContext(ctx, "websocket upgrade failed",
			slog.String("dataset_id", id),
			slog.String("error", err.Error()))
		return
	}

	client := h.hub.Serve(conn, id, middleware.GetReqID(ctx))
	h.logger.InfoContext(ctx, "event stream opened",
		slog.String("dataset_id", id),
		slog.String("client_id", client.ID()))
}
