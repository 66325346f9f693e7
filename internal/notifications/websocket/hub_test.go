package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dialHub(t *testing.T, hub *Hub, userID string) *gorilla.Conn {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.HandleConnection(w, r, userID)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSendToUserDeliversFrame(t *testing.T) {
	hub := NewHub(zap.NewNop())
	defer hub.Close()

	conn := dialHub(t, hub, "user-1")
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 },
		time.Second, 10*time.Millisecond)

	sent := Message{
		Type:      "notification",
		Event:     "order.status_changed",
		Data:      map[string]interface{}{"order_code": "WH-TEST2345"},
		Timestamp: time.Now(),
	}
	assert.NoError(t, hub.SendToUser("user-1", sent))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var got Message
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, sent.Event, got.Event)
	assert.Equal(t, "WH-TEST2345", got.Data["order_code"])
}

func TestSendToUserWithoutConnection(t *testing.T) {
	hub := NewHub(zap.NewNop())
	defer hub.Close()

	err := hub.SendToUser("nobody", Message{Type: "notification"})
	assert.Error(t, err)
}

func TestBroadcastSkipsNobody(t *testing.T) {
	hub := NewHub(zap.NewNop())
	defer hub.Close()

	conn := dialHub(t, hub, "user-1")
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 },
		time.Second, 10*time.Millisecond)

	hub.Broadcast(Message{Type: "notification", Event: "maintenance"})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var got Message
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "maintenance", got.Event)
}

func TestCloseRejectsNewConnections(t *testing.T) {
	hub := NewHub(zap.NewNop())

	dialHub(t, hub, "user-1")
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 },
		time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Equal(t, 0, hub.ConnectionCount())
	assert.Error(t, hub.SendToUser("user-1", Message{Type: "notification"}))
}
