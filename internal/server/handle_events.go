package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/playperu/mayorkiosk/internal/kiosk"
)

// handleEvents streams kiosk updates as SSE, starting with the current state.
// The SSE event name is the update type.
func handleEvents(k *kiosk.Kiosk, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		ch := broker.Subscribe()
		defer broker.Unsubscribe(ch)

		first, _ := json.Marshal(kiosk.Update{Type: kiosk.UpdateState, State: k.Snapshot()})
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", kiosk.UpdateState, first)
		flusher.Flush()

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case data := <-ch:
				var head struct {
					Type kiosk.UpdateType `json:"type"`
				}
				_ = json.Unmarshal(data, &head)
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", head.Type, data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}
