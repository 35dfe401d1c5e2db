package transport

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// newHeadFeedServer 构造假WebSocket节点：
// 应答vq_subscribe(订阅ID由服务端指定)，随后全速推送区块头直到连接断开。
func newHeadFeedServer(t *testing.T, subID string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()

		var req wsMessage
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if req.Method != "vq_subscribe" {
			t.Errorf("first message method = %q, want vq_subscribe", req.Method)
			return
		}

		reply := wsMessage{JSONRPC: "2.0", ID: req.ID, Result: mustMarshal(subID)}
		if err := conn.WriteJSON(reply); err != nil {
			return
		}

		// 后续入站消息(vq_unsubscribe)只消费不回应
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for height := uint64(1); ; height++ {
			push := wsMessage{
				JSONRPC: "2.0",
				Method:  "vq_subscription",
				Params: mustMarshal(map[string]interface{}{
					"subscription": subID,
					"result": map[string]interface{}{
						"height": height,
						"hash":   fmt.Sprintf("0x%064x", height),
					},
				}),
			}
			if err := conn.WriteJSON(push); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// 订阅ID必须以节点回执为准：节点自行分配的ID与请求ID无关，
// 本地推断会让推送找不到归属
func TestWebSocketSubscribeServerAssignedID(t *testing.T) {
	srv := newHeadFeedServer(t, "0xfeedface")
	defer srv.Close()

	ws, err := NewWebSocketClient(wsURL(srv))
	if err != nil {
		t.Fatalf("NewWebSocketClient: %v", err)
	}
	defer func() { _ = ws.Close() }()

	sub, err := ws.SubscribeNewHeads()
	if err != nil {
		t.Fatalf("SubscribeNewHeads: %v", err)
	}
	defer sub.Unsubscribe()

	select {
	case head := <-sub.Heads():
		if head == nil || head.Height == 0 {
			t.Errorf("head = %+v, want height > 0", head)
		}
	case err := <-sub.Err():
		t.Fatalf("subscription error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("no head delivered; server-assigned subscription id not honored")
	}
}

// 推送高峰中先Unsubscribe再Close(watch命令defer的LIFO顺序)：
// 读循环可能正阻塞在通道发送上，取消侧绝不能关闭事件通道
func TestWebSocketUnsubscribeUnderLoad(t *testing.T) {
	srv := newHeadFeedServer(t, "0xab")
	defer srv.Close()

	for i := 0; i < 30; i++ {
		ws, err := NewWebSocketClient(wsURL(srv))
		if err != nil {
			t.Fatalf("cycle %d: NewWebSocketClient: %v", i, err)
		}

		sub, err := ws.SubscribeNewHeads()
		if err != nil {
			_ = ws.Close()
			t.Fatalf("cycle %d: SubscribeNewHeads: %v", i, err)
		}

		// 排掉几个事件，保证服务端仍在满负荷推送时拆除订阅
		for j := 0; j < 2; j++ {
			select {
			case <-sub.Heads():
			case err := <-sub.Err():
				t.Fatalf("cycle %d: subscription error: %v", i, err)
			case <-time.After(5 * time.Second):
				t.Fatalf("cycle %d: head feed stalled", i)
			}
		}

		sub.Unsubscribe()
		_ = ws.Close()
	}
}
