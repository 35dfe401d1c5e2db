// Package notify 维护面向用户的通知队列
//
// 交易类通知的关键字段是 EffectKnown：广播成功只说明交易已出手，
// 上链效果要等确认；确认窗口耗尽时通知保持 EffectKnown=false，
// 提示用户结果未知而不是谎报成败。
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind 通知类型
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Notification 单条通知
type Notification struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Message     string    `json:"message"`
	TxHash      string    `json:"tx_hash,omitempty"`
	EffectKnown bool      `json:"effect_known"` // 上链效果是否已确定
	CreatedAt   time.Time `json:"created_at"`
}

// Listener 通知回调
type Listener func(*Notification)

// Center 通知中心（并发安全）
type Center struct {
	mu        sync.Mutex
	items     []*Notification
	listeners []Listener
	limit     int
}

// NewCenter 创建通知中心
// limit 为保留的最大条数，0表示默认100
func NewCenter(limit int) *Center {
	if limit <= 0 {
		limit = 100
	}
	return &Center{limit: limit}
}

// OnNotify 注册通知回调（推送时同步调用）
func (c *Center) OnNotify(l Listener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

// Push 推送通知，返回分配的ID
func (c *Center) Push(kind Kind, message string) string {
	return c.push(&Notification{
		Kind:        kind,
		Message:     message,
		EffectKnown: true,
	})
}

// PushTx 推送交易通知
// effectKnown=false 表示交易已广播但结果未确定
func (c *Center) PushTx(kind Kind, message, txHash string, effectKnown bool) string {
	return c.push(&Notification{
		Kind:        kind,
		Message:     message,
		TxHash:      txHash,
		EffectKnown: effectKnown,
	})
}

// Resolve 将交易通知标记为结果已知并更新内容
func (c *Center) Resolve(txHash string, kind Kind, message string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, n := range c.items {
		if n.TxHash == txHash && !n.EffectKnown {
			n.EffectKnown = true
			n.Kind = kind
			n.Message = message
			return true
		}
	}
	return false
}

// List 按时间倒序返回通知快照
func (c *Center) List() []*Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*Notification, len(c.items))
	for i, n := range c.items {
		cp := *n
		out[len(c.items)-1-i] = &cp
	}
	return out
}

// Dismiss 按ID移除通知
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, n := range c.items {
		if n.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear 清空全部通知
func (c *Center) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

func (c *Center) push(n *Notification) string {
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now().UTC()

	c.mu.Lock()
	c.items = append(c.items, n)
	if len(c.items) > c.limit {
		c.items = c.items[len(c.items)-c.limit:]
	}
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		l(n)
	}
	return n.ID
}
