// Package live streams kiosk updates to WebSocket clients, such as an
// operator screen or a second display next to the totem.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"

	"github.com/playperu/mayorkiosk/internal/kiosk"
	"github.com/playperu/mayorkiosk/internal/mayor"
)

// Feed is the source of updates. Subscribe returns a channel of JSON-encoded
// kiosk.Update messages.
type Feed interface {
	Subscribe() chan []byte
	Unsubscribe(ch chan []byte)
}

type Handler struct {
	feed     Feed
	snapshot func() mayor.State
	logger   *slog.Logger
}

func NewHandler(logger *slog.Logger, feed Feed, snapshot func() mayor.State) *Handler {
	return &Handler{feed: feed, snapshot: snapshot, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/live", h.live)
	return r
}

// live sends the current state, then every update until the client leaves.
// Client messages are ignored.
func (h *Handler) live(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ch := h.feed.Subscribe()
	defer h.feed.Unsubscribe(ch)

	ctx := conn.CloseRead(r.Context())

	first, _ := json.Marshal(kiosk.Update{Type: kiosk.UpdateState, State: h.snapshot()})
	if err := write(ctx, conn, first); err != nil {
		h.logger.Debug("websocket write failed", "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case data := <-ch:
			if err := write(ctx, conn, data); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
