package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threadline/configurator-backend/internal/app/service"
	ws "github.com/threadline/configurator-backend/internal/websocket"
)

func setupPreviewTest(t *testing.T, allowedOrigins []string) (*ws.Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := ws.NewHub()
	go hub.Run(ctx)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/products/:id/preview/ws", NewPreviewController(hub, allowedOrigins).Subscribe)

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, server
}

func dialPreview(t *testing.T, server *httptest.Server, path string, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readServerMessage(t *testing.T, conn *websocket.Conn) ws.ServerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg ws.ServerMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestPreviewController_PingPong(t *testing.T) {
	_, server := setupPreviewTest(t, nil)
	conn := dialPreview(t, server, "/products/5/preview/ws", nil)

	require.NoError(t, conn.WriteJSON(ws.ClientMessage{Type: "ping"}))
	assert.Equal(t, ws.MessagePong, readServerMessage(t, conn).Type)
}

func TestPreviewController_ReceivesBindingChanges(t *testing.T) {
	hub, server := setupPreviewTest(t, nil)
	conn := dialPreview(t, server, "/products/5/preview/ws?customizedByUser=visitor-1", nil)

	require.Eventually(t, func() bool {
		return hub.Subscribers(ws.ForkRoom(5, "visitor-1")) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, hub.Subscribers(ws.ProductRoom(5)))

	hub.OnBindingsChanged(context.Background(), service.BindingEvent{
		ProductID: 5,
		Action:    service.ActionBindingsReconciled,
	})
	msg := readServerMessage(t, conn)
	assert.Equal(t, ws.MessageBindingsChanged, msg.Type)
	require.NotNil(t, msg.Event)
	assert.Equal(t, uint(5), msg.Event.ProductID)

	ref := uint(5)
	hub.OnBindingsChanged(context.Background(), service.BindingEvent{
		ProductID:           42,
		ReferencedProductID: &ref,
		CustomizedByUser:    "visitor-1",
		Action:              service.ActionBindingsReconciled,
	})
	msg = readServerMessage(t, conn)
	require.NotNil(t, msg.Event)
	assert.Equal(t, uint(42), msg.Event.ProductID)
}

func TestPreviewController_RejectsBadRequests(t *testing.T) {
	_, server := setupPreviewTest(t, []string{"https://shop.test"})

	resp, err := http.Get(server.URL + "/products/abc/preview/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/products/5/preview/ws"
	_, resp, err = websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://evil.test"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn := dialPreview(t, server, "/products/5/preview/ws", http.Header{"Origin": []string{"https://shop.test"}})
	require.NoError(t, conn.WriteJSON(ws.ClientMessage{Type: "ping"}))
	assert.Equal(t, ws.MessagePong, readServerMessage(t, conn).Type)
}
