package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Monynha-Softwares/botecopro-sync/realtime"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// RealtimeHandler -> websocket endpoint for change notifications. The auth
// middleware already resolved the company from the token.
func RealtimeHandler(c *gin.Context) {
	companyInterface, exists := c.Get("company_id")
	if !exists {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	companyID := companyInterface.(string)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	realtime.RegisterClient(ws, companyID)

	// Hold the connection open; clients only listen.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	realtime.UnregisterClient(ws)
}
