package ws

import (
	"net/http"

	"rainet_server/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// HandleWS upgrades the connection and starts its pumps. All protocol
// state, including authentication, is negotiated in-band afterwards.
func HandleWS(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowedOrigin := hub.cfg.AllowedOrigin
		upgrader := websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		}

		wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade failed", "error", err)
			return
		}

		client := NewClient(wsConn, hub.cfg.KeepAlive)
		go client.Run(NewConn(hub, client))
	}
}
