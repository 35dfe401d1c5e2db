package transport

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ClientConfig 客户端配置
type ClientConfig struct {
	// 节点端点(按优先级排序)
	Endpoints []EndpointConfig `json:"endpoints"`

	// 超时配置
	Timeout       time.Duration `json:"timeout"`
	RetryAttempts int           `json:"retry_attempts"`
	RetryBackoff  time.Duration `json:"retry_backoff"`

	// 健康检查
	HealthCheckInterval time.Duration `json:"health_check_interval"`
}

// EndpointConfig 端点配置
type EndpointConfig struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"` // 数字越小越优先

	JSONRPC string `json:"jsonrpc"`
	WS      string `json:"ws,omitempty"`
}

// FallbackClient 支持故障转移的客户端
//
// 只读调用失败时按优先级降级到下一个健康端点并有界重试；
// 写调用（SendRawTransaction）只发一次——重复广播可能导致悬赏被重复消费，
// 由调用方决定是否重签重发。
type FallbackClient struct {
	config    ClientConfig
	clients   []clientWithPriority
	current   int
	mu        sync.RWMutex
	closeCh   chan struct{}
	closeOnce sync.Once
}

type clientWithPriority struct {
	name      string
	priority  int
	client    Client
	healthy   bool
	lastCheck time.Time
}

// NewFallbackClient 创建支持故障转移的客户端
func NewFallbackClient(config ClientConfig) (*FallbackClient, error) {
	if len(config.Endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints configured")
	}

	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RetryAttempts == 0 {
		config.RetryAttempts = 3
	}
	if config.RetryBackoff == 0 {
		config.RetryBackoff = time.Second
	}
	if config.HealthCheckInterval == 0 {
		config.HealthCheckInterval = 30 * time.Second
	}

	fc := &FallbackClient{
		config:  config,
		clients: make([]clientWithPriority, 0, len(config.Endpoints)),
		closeCh: make(chan struct{}),
	}

	for _, ep := range config.Endpoints {
		if ep.JSONRPC == "" {
			continue
		}
		fc.clients = append(fc.clients, clientWithPriority{
			name:     ep.Name,
			priority: ep.Priority,
			client:   NewJSONRPCClient(ep.JSONRPC, config.Timeout),
			healthy:  true, // 初始假设健康
		})
	}

	if len(fc.clients) == 0 {
		return nil, fmt.Errorf("no valid clients created")
	}

	sort.SliceStable(fc.clients, func(i, j int) bool {
		return fc.clients[i].priority < fc.clients[j].priority
	})

	go fc.healthCheckLoop()

	return fc, nil
}

// healthCheckLoop 健康检查循环
func (fc *FallbackClient) healthCheckLoop() {
	ticker := time.NewTicker(fc.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fc.checkAllClients()
		case <-fc.closeCh:
			return
		}
	}
}

// checkAllClients 检查所有客户端健康状态
func (fc *FallbackClient) checkAllClients() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fc.mu.Lock()
	defer fc.mu.Unlock()

	for i := range fc.clients {
		err := fc.clients[i].client.Ping(ctx)
		fc.clients[i].healthy = err == nil
		fc.clients[i].lastCheck = time.Now()
	}
}

// getClient 获取当前可用客户端
func (fc *FallbackClient) getClient() Client {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if fc.current < len(fc.clients) && fc.clients[fc.current].healthy {
		return fc.clients[fc.current].client
	}

	for i, c := range fc.clients {
		if c.healthy {
			fc.current = i
			return c.client
		}
	}

	// 所有客户端都不健康，回落到最高优先级
	fc.current = 0
	return fc.clients[0].client
}

// markCurrentUnhealthy 标记当前客户端不健康
func (fc *FallbackClient) markCurrentUnhealthy() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.current < len(fc.clients) {
		fc.clients[fc.current].healthy = false
	}
}

// tryWithFallback 有界重试+退避执行只读操作，失败时降级端点
func (fc *FallbackClient) tryWithFallback(ctx context.Context, op func(Client) error) error {
	var lastErr error

	for attempt := 0; attempt < fc.config.RetryAttempts; attempt++ {
		client := fc.getClient()

		err := op(client)
		if err == nil {
			return nil
		}
		// 业务层面的「未找到」不是端点故障，立即返回
		if isTerminal(err) {
			return err
		}

		lastErr = err
		fc.markCurrentUnhealthy()

		if attempt < fc.config.RetryAttempts-1 {
			select {
			case <-time.After(fc.config.RetryBackoff * time.Duration(attempt+1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("all endpoints failed: %w", lastErr)
}

// isTerminal 判断错误是否不应触发重试
func isTerminal(err error) bool {
	return err == nil || errors.Is(err, ErrTxNotFound)
}

// ===== Client接口实现 =====

func (fc *FallbackClient) ChainID(ctx context.Context) (string, error) {
	var result string
	err := fc.tryWithFallback(ctx, func(c Client) error {
		var e error
		result, e = c.ChainID(ctx)
		return e
	})
	return result, err
}

func (fc *FallbackClient) BlockNumber(ctx context.Context) (uint64, error) {
	var result uint64
	err := fc.tryWithFallback(ctx, func(c Client) error {
		var e error
		result, e = c.BlockNumber(ctx)
		return e
	})
	return result, err
}

func (fc *FallbackClient) GetBalance(ctx context.Context, address string) (*Balance, error) {
	var result *Balance
	err := fc.tryWithFallback(ctx, func(c Client) error {
		var e error
		result, e = c.GetBalance(ctx, address)
		return e
	})
	return result, err
}

func (fc *FallbackClient) CallContract(ctx context.Context, call *CallRequest) (*CallResult, error) {
	var result *CallResult
	err := fc.tryWithFallback(ctx, func(c Client) error {
		var e error
		result, e = c.CallContract(ctx, call)
		return e
	})
	return result, err
}

// SendRawTransaction 广播已签名交易（单次，不跨端点重试）
func (fc *FallbackClient) SendRawTransaction(ctx context.Context, signedTxHex string) (*SendTxResult, error) {
	return fc.getClient().SendRawTransaction(ctx, signedTxHex)
}

func (fc *FallbackClient) GetTransaction(ctx context.Context, txHash string) (*Transaction, error) {
	var result *Transaction
	err := fc.tryWithFallback(ctx, func(c Client) error {
		var e error
		result, e = c.GetTransaction(ctx, txHash)
		return e
	})
	return result, err
}

func (fc *FallbackClient) GetTransferLogs(ctx context.Context, query *TransferLogQuery) ([]*TransferLogEntry, error) {
	var result []*TransferLogEntry
	err := fc.tryWithFallback(ctx, func(c Client) error {
		var e error
		result, e = c.GetTransferLogs(ctx, query)
		return e
	})
	return result, err
}

func (fc *FallbackClient) Ping(ctx context.Context) error {
	return fc.tryWithFallback(ctx, func(c Client) error {
		return c.Ping(ctx)
	})
}

func (fc *FallbackClient) Close() error {
	fc.closeOnce.Do(func() {
		close(fc.closeCh)
	})

	fc.mu.Lock()
	defer fc.mu.Unlock()
	for _, c := range fc.clients {
		_ = c.client.Close()
	}
	return nil
}
