package viewchannel

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sheetview-go-server/domain/entity"
	domainErrors "sheetview-go-server/domain/errors"
	"sheetview-go-server/internal/surface"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// ========== Client 单元测试 ==========
// 通过 httptest 起一个真实的 websocket 连接

func newBridge(t *testing.T, ch *Channel, limiter *rate.Limiter) *websocket.Conn {
	t.Helper()

	surf, err := surface.New([]string{"A", "B"})
	require.NoError(t, err)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient("sess-ws", conn, ch, surf, limiter)
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestClient_ForwardsPagesWithEscapedBody(t *testing.T) {
	ch := NewChannel(8)
	conn := newBridge(t, ch, nil)

	ch.SendToSurface(NewPage(1, 1, []entity.Row{{entity.StringCell("<script>x</script>"), entity.NumberCell(1)}}))

	msg := readMessage(t, conn)
	payload, err := DecodePage(msg)
	require.NoError(t, err)
	assert.Equal(t, int64(1), payload.RequestSeq)
	assert.Contains(t, payload.Body, "&lt;script&gt;")
	assert.NotContains(t, payload.Body, "<script>")
}

func TestClient_DropsStaleMessages(t *testing.T) {
	ch := NewChannel(8)
	conn := newBridge(t, ch, nil)

	ch.SendToSurface(NewPage(2, 2, []entity.Row{{entity.StringCell("new"), entity.StringCell("")}}))
	ch.SendToSurface(NewPage(1, 1, []entity.Row{{entity.StringCell("old"), entity.StringCell("")}}))
	ch.SendToSurface(NewError(domainErrors.KindTimeout, "late", 1))
	ch.SendToSurface(NewEndOfData(2, 3))

	first := readMessage(t, conn)
	assert.Equal(t, TypePage, first.Type)
	assert.Equal(t, int64(2), RequestSeqOf(first))

	// seq=1 的 page 和 error 都被丢弃，下一条就是 endOfData
	second := readMessage(t, conn)
	assert.Equal(t, TypeEndOfData, second.Type)
	assert.Equal(t, int64(3), RequestSeqOf(second))
}

func TestClient_ForwardsCommandsOnly(t *testing.T) {
	ch := NewChannel(8)
	conn := newBridge(t, ch, nil)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, conn.WriteJSON(NewPage(1, 1, nil)))
	require.NoError(t, conn.WriteJSON(NewCommand(TypeNext)))

	select {
	case msg := <-ch.Inbound():
		assert.Equal(t, TypeNext, msg.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("command was not forwarded")
	}
	assert.Len(t, ch.Inbound(), 0)
}

func TestClient_RateLimitsCommands(t *testing.T) {
	ch := NewChannel(8)
	conn := newBridge(t, ch, rate.NewLimiter(rate.Every(time.Hour), 1))

	require.NoError(t, conn.WriteJSON(NewCommand(TypeNext)))
	require.NoError(t, conn.WriteJSON(NewCommand(TypeNext)))
	require.NoError(t, conn.WriteJSON(NewCommand(TypeReload)))

	select {
	case msg := <-ch.Inbound():
		assert.Equal(t, TypeNext, msg.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("first command was not forwarded")
	}

	// 令牌桶只有一个令牌，后续命令被丢弃
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, ch.Inbound(), 0)
}

func TestClient_ClosesWhenSessionCloses(t *testing.T) {
	ch := NewChannel(8)
	conn := newBridge(t, ch, nil)

	ch.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}
