package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// channelDiagnosticsHandler handles GET /api/channels/ws. The dashboard
// opens this socket to verify that its realtime channel path works end to
// end: after a hello frame, every message is echoed back with a timestamp.
// Auth is checked before the upgrade so failures surface as plain 401s.
func channelDiagnosticsHandler(c echo.Context) error {
	token := c.QueryParam("token")
	ctx := c.Request().Context()
	if token == "" || !sessions.IsLoggedIn(ctx, token) {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "invalid or expired session",
		})
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	rec := sessions.Record(ctx, token)
	hello := map[string]interface{}{
		"type":      "hello",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if rec != nil {
		hello["user_id"] = rec.UserID
	}
	if err := ws.WriteJSON(hello); err != nil {
		return nil
	}

	for {
		msgType, msg, err := ws.ReadMessage()
		if err != nil {
			return nil
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if err := ws.WriteJSON(map[string]interface{}{
			"type":      "echo",
			"payload":   string(msg),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			return nil
		}
	}
}
