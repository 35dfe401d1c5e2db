package transport

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// subscribeReplyTimeout 等待订阅回执的窗口
const subscribeReplyTimeout = 10 * time.Second

// WebSocketClient WebSocket客户端（仅用于newHeads订阅）
//
// 确认轮询器用它在新区块到达时立即触发一次查询，
// 代替盲目的固定延迟；其余调用一律走JSON-RPC客户端。
type WebSocketClient struct {
	endpoint  string
	conn      *websocket.Conn
	mu        sync.RWMutex
	subs      map[string]*headSubscription
	pending   map[uint64]chan *wsMessage
	nextReqID uint64
	muReqID   sync.Mutex
	muWrite   sync.Mutex // gorilla连接不允许并发写
	closeCh   chan struct{}
	closeOnce sync.Once
}

// NewWebSocketClient 创建WebSocket客户端
func NewWebSocketClient(endpoint string) (*WebSocketClient, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, resp, err := dialer.Dial(endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial websocket: %v", ErrRPC, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	client := &WebSocketClient{
		endpoint: endpoint,
		conn:     conn,
		subs:     make(map[string]*headSubscription),
		pending:  make(map[uint64]chan *wsMessage),
		closeCh:  make(chan struct{}),
	}

	go client.readLoop()

	return client, nil
}

// wsMessage WebSocket消息
type wsMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      uint64          `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

// headSubscription 区块头订阅
//
// 通道所有权约定：headCh/errCh 只由读循环（唯一发送方）关闭，
// 取消订阅只关闭 done 让发送方避让。取消方自己就是消费者，
// 它不再读通道，不需要也绝不能由它来关闭。
type headSubscription struct {
	id      string
	headCh  chan *HeadEvent
	errCh   chan error
	done    chan struct{}
	cancel  func()
	cancelO sync.Once
}

func (s *headSubscription) Heads() <-chan *HeadEvent {
	return s.headCh
}

func (s *headSubscription) Err() <-chan error {
	return s.errCh
}

func (s *headSubscription) Unsubscribe() {
	s.cancelO.Do(s.cancel)
}

// readLoop 消息读取循环
func (c *WebSocketClient) readLoop() {
	for {
		select {
		case <-c.closeCh:
			c.failAll(fmt.Errorf("%w: client closed", ErrRPC))
			return
		default:
		}

		var msg wsMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.failAll(fmt.Errorf("%w: websocket read: %v", ErrRPC, err))
			return
		}

		if msg.Method == "vq_subscription" {
			c.handleSubscriptionMessage(&msg)
			continue
		}
		if msg.ID != 0 {
			c.mu.Lock()
			respCh, ok := c.pending[msg.ID]
			delete(c.pending, msg.ID)
			c.mu.Unlock()
			if ok {
				respCh <- &msg
			}
		}
	}
}

// failAll 读循环退出前的收尾：唤醒所有等待回执的调用方，
// 并作为唯一发送方关闭全部订阅通道
func (c *WebSocketClient) failAll(err error) {
	c.mu.Lock()
	var waiters []chan *wsMessage
	for id, ch := range c.pending {
		delete(c.pending, id)
		waiters = append(waiters, ch)
	}
	var subs []*headSubscription
	for id, sub := range c.subs {
		delete(c.subs, id)
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, ch := range waiters {
		close(ch)
	}
	for _, sub := range subs {
		select {
		case sub.errCh <- err:
		default:
		}
		close(sub.headCh)
		close(sub.errCh)
	}
}

// handleSubscriptionMessage 处理订阅推送
func (c *WebSocketClient) handleSubscriptionMessage(msg *wsMessage) {
	var params struct {
		Subscription string          `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return
	}

	c.mu.RLock()
	sub, exists := c.subs[params.Subscription]
	c.mu.RUnlock()
	if !exists {
		return
	}

	var raw struct {
		Height interface{} `json:"height"`
		Hash   string      `json:"hash"`
	}
	if err := json.Unmarshal(params.Result, &raw); err != nil {
		select {
		case sub.errCh <- fmt.Errorf("%w: parse head event: %v", ErrRPC, err):
		default:
		}
		return
	}

	event := &HeadEvent{Hash: raw.Hash}
	switch h := raw.Height.(type) {
	case float64:
		event.Height = uint64(h)
	case string:
		if v, ok := parseQuantity(h); ok {
			event.Height = v
		}
	}

	select {
	case sub.headCh <- event:
	case <-sub.done:
	case <-c.closeCh:
	}
}

// SubscribeNewHeads 订阅新区块头
//
// 订阅ID以节点回执的result为准，不做任何本地推断：
// 节点自行分配ID时本地猜测会让订阅成为孤儿。
func (c *WebSocketClient) SubscribeNewHeads() (HeadSubscription, error) {
	c.muReqID.Lock()
	c.nextReqID++
	reqID := c.nextReqID
	c.muReqID.Unlock()

	respCh := make(chan *wsMessage, 1)
	c.mu.Lock()
	c.pending[reqID] = respCh
	c.mu.Unlock()

	req := wsMessage{
		JSONRPC: "2.0",
		Method:  "vq_subscribe",
		Params:  mustMarshal([]interface{}{"newHeads"}),
		ID:      reqID,
	}
	c.muWrite.Lock()
	err := c.conn.WriteJSON(req)
	c.muWrite.Unlock()
	if err != nil {
		c.dropPending(reqID)
		return nil, fmt.Errorf("%w: send subscribe: %v", ErrRPC, err)
	}

	var resp *wsMessage
	select {
	case resp = <-respCh:
	case <-c.closeCh:
		c.dropPending(reqID)
		return nil, fmt.Errorf("%w: client closed before subscribe reply", ErrRPC)
	case <-time.After(subscribeReplyTimeout):
		c.dropPending(reqID)
		return nil, fmt.Errorf("%w: subscribe reply timeout", ErrRPC)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: connection lost before subscribe reply", ErrRPC)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: subscribe rejected: %s (code %d)", ErrRPC, resp.Error.Message, resp.Error.Code)
	}

	var subID string
	if err := json.Unmarshal(resp.Result, &subID); err != nil || subID == "" {
		return nil, fmt.Errorf("%w: malformed subscription id in reply", ErrRPC)
	}

	sub := &headSubscription{
		id:     subID,
		headCh: make(chan *HeadEvent, 64),
		errCh:  make(chan error, 8),
		done:   make(chan struct{}),
	}
	sub.cancel = func() {
		c.unsubscribe(sub)
	}

	c.mu.Lock()
	c.subs[subID] = sub
	c.mu.Unlock()

	return sub, nil
}

// dropPending 丢弃未回执的请求登记
func (c *WebSocketClient) dropPending(reqID uint64) {
	c.mu.Lock()
	delete(c.pending, reqID)
	c.mu.Unlock()
}

// unsubscribe 取消订阅
//
// 只从路由表摘除并关闭done；headCh/errCh 留给读循环处置，
// 读循环可能正在向通道发送，从这一侧关闭会让它崩溃。
func (c *WebSocketClient) unsubscribe(sub *headSubscription) {
	c.mu.Lock()
	_, exists := c.subs[sub.id]
	delete(c.subs, sub.id)
	c.mu.Unlock()

	if !exists {
		return
	}

	close(sub.done)

	c.muReqID.Lock()
	c.nextReqID++
	reqID := c.nextReqID
	c.muReqID.Unlock()

	req := wsMessage{
		JSONRPC: "2.0",
		Method:  "vq_unsubscribe",
		Params:  mustMarshal([]interface{}{sub.id}),
		ID:      reqID,
	}
	c.muWrite.Lock()
	_ = c.conn.WriteJSON(req)
	c.muWrite.Unlock()
}

// Close 关闭WebSocket连接
func (c *WebSocketClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)

		c.mu.RLock()
		subs := make([]*headSubscription, 0, len(c.subs))
		for _, sub := range c.subs {
			subs = append(subs, sub)
		}
		c.mu.RUnlock()

		for _, sub := range subs {
			sub.Unsubscribe()
		}

		err = c.conn.Close()
	})
	return err
}

// mustMarshal 序列化，panic on error
func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal: %v", err))
	}
	return data
}
