package network

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cbodonnell/manhunt/pkg/messages"
	"github.com/cbodonnell/manhunt/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

func TestWSServer_queuesMessagesAndDisconnects(t *testing.T) {
	cm := NewClientManager()
	q := queue.NewInMemoryQueue(16)
	srv := httptest.NewServer(NewWSServer(NewWSServerOptions{
		ClientManager: cm,
		MessageQueue:  q,
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)

	frames := []string{
		`{"type":"room:join","roomId":"ABC123"}`,
		`{"type":"room:join","roomId":"ABC123","playerId":"p1","payload":{"nickname":"kim"}}`,
		`{"type":"player:ready","roomId":"ABC123","playerId":"intruder"}`,
	}
	for _, f := range frames {
		require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(f)))
	}

	var items []interface{}
	require.Eventually(t, func() bool {
		batch, _ := q.ReadAllMessages()
		items = append(items, batch...)
		return len(items) >= 1 && cm.Exists("p1")
	}, 2*time.Second, 10*time.Millisecond)

	require.Len(t, items, 1)
	msg, ok := items[0].(*messages.Inbound)
	require.True(t, ok)
	assert.Equal(t, "p1", msg.PlayerID)

	// outbound frames reach the client
	c, ok := cm.GetConn("p1")
	require.True(t, ok)
	require.NoError(t, c.Send([]byte(`{"type":"game:state","ts":1}`)))
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"game:state","ts":1}`, string(data))

	cm.SetRoom("p1", "ABC123")
	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))

	require.Eventually(t, func() bool {
		batch, _ := q.ReadAllMessages()
		for _, item := range batch {
			if ev, ok := item.(*DisconnectEvent); ok {
				return ev.PlayerID == "p1" && ev.RoomID == "ABC123"
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, cm.Exists("p1"))
}
