package admin

import (
	"net/http"
	"time"

	"pcbooking/internal/modules/auth"
	"pcbooking/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	feedPingPeriod = 30 * time.Second
	feedPongWait   = 60 * time.Second
)

// FeedHandler upgrades admin connections and hands them to the hub, which
// pushes every confirmed booking to them.
type FeedHandler struct {
	hub      FeedHub
	upgrader websocket.Upgrader
}

// NewFeedHandler accepts upgrades from allowedOrigins; an empty list accepts any origin.
func NewFeedHandler(hub FeedHub, allowedOrigins []string) *FeedHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &FeedHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
	}
}

// Serve handles GET /admin/feed?token=JWT.
func (f *FeedHandler) Serve(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok || !p.IsAdmin() {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Admin access required")
		return
	}

	conn, err := f.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Warn("admin feed upgrade failed", zap.Error(err))
		return
	}

	f.hub.Register(p.UserID, conn)
	zap.L().Info("admin feed connected", zap.Int64("user_id", p.UserID))

	done := make(chan struct{})
	defer func() {
		close(done)
		f.hub.Unregister(p.UserID, conn)
		zap.L().Info("admin feed disconnected", zap.Int64("user_id", p.UserID))
	}()

	_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})
	go pingLoop(conn, done)

	// The feed is one-way; reading only drives control frames and notices close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("admin feed read error", zap.Error(err))
			}
			return
		}
	}
}

func pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(feedPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(10 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
