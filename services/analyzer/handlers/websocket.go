package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 64 * 1024,
}

// HandleLive upgrades the connection and streams every published analysis
// state for one session until the client disconnects. The latest snapshot
// is pushed immediately on connect so a late-joining dashboard renders
// without waiting for the next cycle.
func HandleLive(store *session.Store, hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := store.Get(c.Param("sessionId"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()
		slog.Info("live subscriber connected", "session_id", st.ID)

		sub := hub.subscribe(st.ID, ws)
		defer hub.unsubscribe(st.ID, sub)

		if latest, ok := st.Latest(); ok {
			if err := sub.send(latest); err != nil {
				return
			}
		}

		// Inbound messages are ignored; the read loop only detects
		// disconnects and keeps control frames flowing.
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				slog.Info("live subscriber disconnected", "session_id", st.ID)
				return
			}
		}
	}
}
