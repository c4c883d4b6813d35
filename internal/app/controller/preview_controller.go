package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/threadline/configurator-backend/internal/middleware"
	ws "github.com/threadline/configurator-backend/internal/websocket"
)

type PreviewController struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewPreviewController accepts connections from the given browser origins.
// Requests without an Origin header are always accepted.
func NewPreviewController(hub *ws.Hub, allowedOrigins []string) *PreviewController {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	return &PreviewController{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// Subscribe opens a live preview channel. The client is told whenever the
// product's bindings change, or the user's customized copy's when
// customizedByUser is given, and refetches tools-config-fe.
// GET /api/v1/products/:id/preview/ws?customizedByUser=
func (ctrl *PreviewController) Subscribe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	rooms := []string{ws.ProductRoom(productID)}
	if user := strings.TrimSpace(c.Query("customizedByUser")); user != "" {
		rooms = append(rooms, ws.ForkRoom(productID, user))
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("Failed to upgrade preview connection", map[string]interface{}{
			"product_id": productID,
			"error":      err.Error(),
		})
		return
	}

	client := ws.NewClient(ctrl.hub, &ws.Conn{Conn: conn}, rooms...)
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	log.Debug("Preview connection established", map[string]interface{}{
		"rooms": rooms,
	})
}
