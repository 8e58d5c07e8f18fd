package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/alchemorsel/recipeforge/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/recipeforge/internal/ports/inbound"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// StateStreamHandler pushes every request state transition over a websocket
type StateStreamHandler struct {
	service  inbound.GenerationService
	upgrader websocket.Upgrader
	logger   *zap.Logger
	// open connections, exported through the global meter provider
	connections metric.Int64UpDownCounter

	shutdown  chan struct{}
	closeOnce sync.Once
}

// NewStateStreamHandler creates the stream handler. A nil checkOrigin
// applies gorilla's same-origin check.
func NewStateStreamHandler(service inbound.GenerationService, logger *zap.Logger, checkOrigin func(*http.Request) bool) *StateStreamHandler {
	connections, err := otel.Meter("github.com/alchemorsel/recipeforge/http").Int64UpDownCounter(
		"state_stream.connections",
		metric.WithDescription("Open state stream connections"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		logger.Warn("Failed to create state stream gauge", zap.Error(err))
		connections = noop.Int64UpDownCounter{}
	}

	return &StateStreamHandler{
		service:     service,
		connections: connections,
		upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger:   logger,
		shutdown: make(chan struct{}),
	}
}

// Close ends every open stream. Hijacked connections are not tracked by
// http.Server.Shutdown, so the server calls this on shutdown.
func (h *StateStreamHandler) Close() {
	h.closeOnce.Do(func() { close(h.shutdown) })
}

// ServeHTTP handles GET /api/v1/recipes/state/stream. The current state is
// sent first, followed by each transition as a JSON text frame.
func (h *StateStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestIDFromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written an HTTP error
		h.logger.Warn("WebSocket upgrade failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		return
	}
	defer conn.Close()

	h.connections.Add(r.Context(), 1)
	defer h.connections.Add(context.WithoutCancel(r.Context()), -1)

	updates, cancel := h.service.Subscribe()
	defer cancel()

	log := h.logger.With(zap.String("request_id", requestID))
	log.Debug("State stream opened")

	// reader goroutine: handles pongs and detects client close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn("WebSocket error", zap.Error(err))
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			log.Debug("State stream closed by client")
			return
		case <-h.shutdown:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		case state, ok := <-updates:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(state); err != nil {
				log.Warn("Failed to push state", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
