package livesession

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/gammon-vision/internal/board"
)

// Handler streams hub snapshots to WebSocket viewers. A viewer first gets the latest
// stored snapshot, then every published one.
type Handler struct {
	hub          *Hub
	logger       *zap.Logger
	writeTimeout time.Duration
	origins      []string
}

func NewHandler(hub *Hub, logger *zap.Logger, originPatterns ...string) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{hub: hub, logger: logger, writeTimeout: 5 * time.Second, origins: originPatterns}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		OriginPatterns:  h.origins,
	})
	if err != nil {
		h.logger.Warn("session_accept_failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	// viewers never send; CloseRead cancels ctx once the peer goes away
	ctx := conn.CloseRead(r.Context())

	sub, err := h.hub.Subscribe(ctx)
	if err != nil {
		h.logger.Error("session_subscribe_failed", zap.Error(err))
		conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer sub.Close()

	h.logger.Info("session_viewer_connected", zap.String("remote", r.RemoteAddr))
	if gd, ok, err := h.hub.Latest(ctx); err != nil {
		h.logger.Warn("session_latest_failed", zap.Error(err))
	} else if ok {
		if err := h.write(ctx, conn, gd); err != nil {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case gd, ok := <-sub.C():
			if !ok {
				conn.Close(websocket.StatusGoingAway, "session closed")
				return
			}
			if err := h.write(ctx, conn, gd); err != nil {
				h.logger.Debug("session_viewer_write_failed", zap.Error(err))
				return
			}
		}
	}
}

func (h *Handler) write(ctx context.Context, conn *websocket.Conn, gd board.GameData) error {
	wctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, Envelope{Event: EventGameData, Data: gd, At: time.Now().UTC()})
}
