package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/JonMunkholm/canvass/internal/logging"
)

// handleEvents streams engine events to one operator via Server-Sent
// Events. The session lives until the client disconnects or the registry
// closes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	// The logging middleware wraps w; the controller reaches the Flusher through Unwrap.
	rc := http.NewResponseController(w)

	session, err := s.registry.Register(r.Context())
	if err != nil {
		s.respondError(w, r, err, http.StatusServiceUnavailable)
		return
	}
	defer s.registry.Deregister(session.ID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "event: ready\ndata: {\"session\":%q}\n\n", session.ID)
	if err := rc.Flush(); err != nil {
		logging.FromContext(r.Context()).Error("event stream not flushable", "error", err)
		return
	}

	logger := logging.WithFields(r.Context(), "session_id", session.ID)
	heartbeat := time.NewTicker(s.cfg.Notify.HeartbeatInterval)
	defer heartbeat.Stop()

	var eventID int
	for {
		select {
		case ev, ok := <-session.Events:
			if !ok {
				// Registry closed during shutdown.
				fmt.Fprint(w, "event: close\ndata: {}\n\n")
				rc.Flush()
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				logger.Error("encode event", "type", ev.Type, "error", err)
				continue
			}
			eventID++
			fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", eventID, ev.Type, data)
			rc.Flush()

		case <-heartbeat.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			rc.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
