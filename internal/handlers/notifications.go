package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/susek555/carmarket-gateway/internal/handlers/render"
	"github.com/susek555/carmarket-gateway/internal/handlers/sessionctx"
	"github.com/susek555/carmarket-gateway/internal/logger"
	"github.com/susek555/carmarket-gateway/internal/notify"
)

const streamKeepalive = 15 * time.Second

// handleNotificationStream holds the connection open and pushes the user's
// events as server-sent events until the client goes away or the hub stops
func handleNotificationStream(hub *notify.Hub, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			render.ServiceError(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		sub, err := hub.Subscribe(s.User.ID)
		if err != nil {
			render.ServiceError(w, "Notifications unavailable", http.StatusServiceUnavailable)
			return
		}
		defer sub.Close()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		fmt.Fprint(w, ": connected\n\n")
		flusher.Flush()

		keepalive := time.NewTicker(streamKeepalive)
		defer keepalive.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case ev, open := <-sub.C:
				if !open {
					return
				}
				data, err := json.Marshal(ev)
				if err != nil {
					l.Error("Failed to encode notification event", "error", err)
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
				flusher.Flush()
			case <-keepalive.C:
				fmt.Fprint(w, ": keepalive\n\n")
				flusher.Flush()
			}
		}
	})
}

// newNotificationProxy forwards /notification calls like any resource proxy
// and additionally nudges the user's open streams after a successful
// mutation, so other tabs re-fetch without polling
func newNotificationProxy(p *proxy, hub *notify.Hub) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, _ := sessionctx.FromContext(r.Context())

		resp, _, ok := p.forward(w, r)
		if !ok {
			return
		}

		mutation := r.Method != http.MethodGet && r.Method != http.MethodHead
		if mutation && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			hub.Publish(s.User.ID, notify.NewEvent("notification-sync", nil))
		}

		copyResponse(w, resp)
	})
}
