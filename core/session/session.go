package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/asaskevich/EventBus"

	"github.com/vequora/client-sdk-go/core/domain"
	"github.com/vequora/client-sdk-go/pkg/ux/ui"
)

// State 会话状态
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// TopicSessionChanged 会话状态变更事件主题
const TopicSessionChanged = "session.changed"

// ChangeEvent 会话变更事件载荷
type ChangeEvent struct {
	State    State  `json:"state"`
	Account  string `json:"account,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// Session 钱包会话状态机
//
// 并发安全。账户地址只在 Connect 成功时设置、Disconnect 时清除，
// 其余路径一律只读。
type Session struct {
	mu        sync.Mutex
	state     State
	account   string
	provider  Provider
	providers []Provider

	store  Store
	bus    EventBus.Bus
	logger ui.Logger
}

// NewSession 创建会话
// store/bus/logger 均可为 nil（分别退化为内存存储、不发事件、不打日志）
func NewSession(providers []Provider, store Store, bus EventBus.Bus, logger ui.Logger) *Session {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = ui.NoopLogger()
	}
	return &Session{
		state:     StateDisconnected,
		providers: providers,
		store:     store,
		bus:       bus,
		logger:    logger,
	}
}

// State 当前状态
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Account 当前账户地址；未连接返回空串
func (s *Session) Account() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account
}

// Connect 发起连接
//
// 流程：探测可用提供方 → 请求账户授权 → 持久化 → Connected。
// 已在连接中返回 ErrBusy；没有可用提供方返回 ErrProviderUnavailable；
// 授权被拒返回 ErrConnectionRejected 并回到 Disconnected。
func (s *Session) Connect(ctx context.Context) (string, error) {
	s.mu.Lock()
	switch s.state {
	case StateConnecting:
		s.mu.Unlock()
		return "", ErrBusy
	case StateConnected:
		account := s.account
		s.mu.Unlock()
		return account, nil
	}
	s.state = StateConnecting
	s.mu.Unlock()
	s.publish(StateConnecting, "", "")

	provider := s.pickProvider(ctx)
	if provider == nil {
		s.reset()
		return "", ErrProviderUnavailable
	}

	account, err := provider.RequestAccount(ctx)
	if err != nil {
		s.reset()
		if ctx.Err() != nil {
			return "", fmt.Errorf("connect: %w", ctx.Err())
		}
		return "", fmt.Errorf("connect via %s: %w", provider.Name(), err)
	}

	account = canonicalAddress(account)

	s.mu.Lock()
	s.state = StateConnected
	s.account = account
	s.provider = provider
	s.mu.Unlock()

	if err := s.store.Save(&PersistedSession{
		Connected: true,
		Account:   account,
		Provider:  provider.Name(),
	}); err != nil {
		s.logger.Warnf("persist session: %v", err)
	}

	s.logger.Infof("wallet connected: %s via %s", account, provider.Name())
	s.publish(StateConnected, account, provider.Name())
	return account, nil
}

// Disconnect 断开连接
// 任意状态下都安全，幂等；同时清除持久化数据。
func (s *Session) Disconnect() {
	s.mu.Lock()
	wasConnected := s.state != StateDisconnected
	s.state = StateDisconnected
	s.account = ""
	s.provider = nil
	s.mu.Unlock()

	if err := s.store.Clear(); err != nil {
		s.logger.Warnf("clear persisted session: %v", err)
	}
	if wasConnected {
		s.logger.Info("wallet disconnected")
	}
	s.publish(StateDisconnected, "", "")
}

// Restore 从持久化存储恢复会话
//
// 恢复不是简单读回：持久化的账户必须在提供方当前授权列表里重验证，
// 验证不过（提供方不可用、账户已被撤销授权）回到 Disconnected 并清除存储。
func (s *Session) Restore(ctx context.Context) (string, error) {
	persisted, err := s.store.Load()
	if err != nil {
		return "", fmt.Errorf("load persisted session: %w", err)
	}
	if persisted == nil || !persisted.Connected || persisted.Account == "" {
		return "", nil
	}

	provider := s.findProvider(persisted.Provider)
	if provider == nil || !provider.Available(ctx) {
		s.logger.Infof("persisted provider %q unavailable, dropping session", persisted.Provider)
		s.Disconnect()
		return "", nil
	}

	accounts, err := provider.Accounts(ctx)
	if err != nil {
		s.logger.Warnf("revalidate session via %s: %v", provider.Name(), err)
		s.Disconnect()
		return "", nil
	}

	want := canonicalAddress(persisted.Account)
	for _, acc := range accounts {
		if canonicalAddress(acc) == want {
			s.mu.Lock()
			s.state = StateConnected
			s.account = want
			s.provider = provider
			s.mu.Unlock()

			s.logger.Infof("session restored: %s via %s", want, provider.Name())
			s.publish(StateConnected, want, provider.Name())
			return want, nil
		}
	}

	// 账户不在授权列表里：陈旧会话，丢弃
	s.logger.Infof("persisted account %s no longer authorized, dropping session", want)
	s.Disconnect()
	return "", nil
}

// SignAndSend 用当前会话签名并广播交易
// 未连接返回 ErrNotConnected，不会向提供方发出任何请求。
func (s *Session) SignAndSend(ctx context.Context, payload *TxPayload) (string, error) {
	s.mu.Lock()
	if s.state != StateConnected || s.provider == nil {
		s.mu.Unlock()
		return "", ErrNotConnected
	}
	provider := s.provider
	s.mu.Unlock()

	txHash, err := provider.SignAndSend(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("sign and send via %s: %w", provider.Name(), err)
	}
	return txHash, nil
}

// pickProvider 探测并选出第一个可用提供方（按注册顺序）
func (s *Session) pickProvider(ctx context.Context) Provider {
	for _, p := range s.providers {
		if p.Available(ctx) {
			return p
		}
	}
	return nil
}

// findProvider 按名称查找提供方
func (s *Session) findProvider(name string) Provider {
	for _, p := range s.providers {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// reset 连接失败回到 Disconnected
func (s *Session) reset() {
	s.mu.Lock()
	s.state = StateDisconnected
	s.account = ""
	s.provider = nil
	s.mu.Unlock()
	s.publish(StateDisconnected, "", "")
}

// canonicalAddress 地址规范化（EIP-55校验和形式）
// 非十六进制地址原样返回，交给上层校验
func canonicalAddress(addr string) string {
	if norm, ok := domain.NormalizeAddress(addr); ok {
		return norm
	}
	return addr
}

func (s *Session) publish(state State, account, provider string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(TopicSessionChanged, &ChangeEvent{
		State:    state,
		Account:  account,
		Provider: provider,
	})
}
