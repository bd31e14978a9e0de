package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	"virtualphone-platform/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

// Hub fans events out to connected websocket clients, one set of
// connections per account. Delivery is best-effort; slow or dead
// connections are dropped, never waited on.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[*websocket.Conn]bool

	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin checks are the proxy's concern; tokens gate the upgrade.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler upgrades an authenticated request to a websocket connection.
// The caller must have injected the account identity (auth middleware).
func (h *Hub) Handler(accountIDFromCtx func(c *gin.Context) (string, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.FromGin(c)

		accountID, ok := accountIDFromCtx(c)
		if !ok || accountID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account required"})
			return
		}

		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", "err", err)
			return
		}

		h.add(accountID, conn)
		log.Debug("websocket connected", "account_id", accountID)

		// Reader loop only consumes control frames; clients do not send data.
		go func() {
			defer func() {
				h.remove(accountID, conn)
				_ = conn.Close()
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}

func (h *Hub) Publish(ctx context.Context, accountID string, event Event) {
	h.mu.RLock()
	targets := make([]*websocket.Conn, 0, len(h.conns[accountID]))
	for conn := range h.conns[accountID] {
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(event); err != nil {
			logger.From(ctx).Debug("websocket write failed, dropping connection", "account_id", accountID, "err", err)
			h.remove(accountID, conn)
			_ = conn.Close()
		}
	}
}

func (h *Hub) add(accountID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[accountID] == nil {
		h.conns[accountID] = make(map[*websocket.Conn]bool)
	}
	h.conns[accountID][conn] = true
}

func (h *Hub) remove(accountID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[accountID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.conns, accountID)
		}
	}
}
