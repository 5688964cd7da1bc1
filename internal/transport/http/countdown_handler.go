package http

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"studygroup-quiz-service/internal/app"
)

// CountdownHandler streams remaining-time ticks for a running attempt over a
// websocket. The stream is advisory: it drives the client countdown display,
// but the deadline itself is always recomputed server-side from the
// attempt's start time. A manipulated client gains nothing by ignoring or
// rewriting these frames.
type CountdownHandler struct {
	service  *app.AttemptService
	upgrader websocket.Upgrader
	interval time.Duration
}

func NewCountdownHandler(service *app.AttemptService) *CountdownHandler {
	return &CountdownHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		interval: time.Second,
	}
}

// NewCountdownHandlerWithInterval is test-only for fast ticks.
func NewCountdownHandlerWithInterval(service *app.AttemptService, interval time.Duration) *CountdownHandler {
	h := NewCountdownHandler(service)
	h.interval = interval
	return h
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type tickPayload struct {
	RemainingSeconds int `json:"remainingSeconds"`
}

type statePayload struct {
	State string `json:"state"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and pushes ticks until the attempt reaches a
// terminal state or the client goes away. Because each iteration reads the
// attempt through the service, deadline expiry is observed (and lazily
// finalized) here too.
func (h *CountdownHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	attemptID := r.URL.Query().Get("attemptId")
	if attemptID == "" {
		http.Error(w, "missing attemptId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		status, err := h.service.Get(r.Context(), attemptID)
		if err != nil {
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
			return
		}
		if status.State.Terminal() {
			_ = conn.WriteJSON(outboundMessage[statePayload]{Type: "state", Payload: statePayload{State: string(status.State)}})
			return
		}
		if status.RemainingSeconds == nil {
			// Untimed attempt: nothing to count down.
			_ = conn.WriteJSON(outboundMessage[statePayload]{Type: "state", Payload: statePayload{State: string(status.State)}})
			return
		}
		if err := conn.WriteJSON(outboundMessage[tickPayload]{Type: "tick", Payload: tickPayload{RemainingSeconds: *status.RemainingSeconds}}); err != nil {
			return
		}

		select {
		case <-ticker.C:
		case <-done:
			return
		}
	}
}
