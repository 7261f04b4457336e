package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/aman-zulfiqar/solana-amm-desk/internal/metrics"
)

const (
	feedPingInterval = 30 * time.Second
	feedReadTimeout  = 60 * time.Second
	feedWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// widgets are embedded on other origins
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// SnapshotFeed streams pool snapshots over a websocket as they are published.
// An optional pool query parameter restricts the feed to one pool.
func (h *Handlers) SnapshotFeed(c echo.Context) error {
	filter := strings.TrimSpace(c.QueryParam("pool"))

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	snaps, err := h.Cache.SubscribeSnapshots(ctx)
	if err != nil {
		h.logger().WithError(err).Error("failed to subscribe to snapshots")
		return h.err(c, http.StatusServiceUnavailable, "snapshot feed unavailable", nil)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader already wrote the HTTP error
		h.logger().WithError(err).Warn("ws upgrade failed")
		return nil
	}
	defer conn.Close()

	metrics.WebSocketClients.Inc()
	defer metrics.WebSocketClients.Dec()
	h.logger().WithField("pool", filter).Debug("ws client connected")

	// read pump: detect disconnects and keep the read deadline fresh
	go func() {
		defer cancel()
		_ = conn.SetReadDeadline(time.Now().Add(feedReadTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(feedReadTimeout))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(feedPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			if filter != "" && snap.Pool != filter {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if err := conn.WriteJSON(poolResponse(snap)); err != nil {
				return nil
			}
		}
	}
}
