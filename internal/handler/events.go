package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rentfolio/portal-server-go/internal/middleware"
	"github.com/rentfolio/portal-server-go/internal/notify"
)

// EventsHandler streams the visitor's notifications over SSE.
type EventsHandler struct {
	broker *notify.Broker
}

func NewEventsHandler(broker *notify.Broker) *EventsHandler {
	return &EventsHandler{broker: broker}
}

// GET /portal/events
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	visitorID := middleware.GetVisitorID(r.Context())
	if visitorID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := h.broker.Subscribe(visitorID)
	defer h.broker.Unsubscribe(client)

	log.Info().
		Str("visitorId", visitorID).
		Msg("notification stream opened")

	h.sendEvent(w, flusher, "connected", map[string]string{"visitorId": visitorID})

	ctx := r.Context()
	heartbeat := time.NewTicker(notify.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().
				Str("visitorId", visitorID).
				Msg("notification stream closed by client")
			return

		case <-client.Done:
			log.Debug().
				Str("visitorId", visitorID).
				Msg("notification stream closed by broker")
			return

		case n := <-client.Events:
			if err := h.sendEvent(w, flusher, "notification", n); err != nil {
				log.Error().Err(err).Msg("failed to send notification event")
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				log.Debug().
					Str("visitorId", visitorID).
					Msg("heartbeat write failed, closing stream")
				return
			}
			flusher.Flush()
		}
	}
}

func (h *EventsHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
