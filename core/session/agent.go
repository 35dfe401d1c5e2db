package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// AgentProvider 外部钱包代理提供方
//
// 代理暴露细粒度的 request({method, params}) 风格JSON-RPC接口，
// 私钥始终留在代理侧，本SDK只提交待签载荷：
//   - account_request  请求账户授权（可能弹窗等待用户确认）
//   - account_list     列出已授权账户
//   - tx_signAndSend   签名并广播交易
type AgentProvider struct {
	name     string
	endpoint string
	client   *http.Client
	nextID   atomic.Uint64
}

// AgentOption 代理提供方选项
type AgentOption func(*AgentProvider)

// WithAgentTimeout 设置HTTP超时
// 授权请求会等用户确认，默认给得比普通RPC宽（2分钟）
func WithAgentTimeout(d time.Duration) AgentOption {
	return func(a *AgentProvider) {
		a.client.Timeout = d
	}
}

// NewAgentProvider 创建钱包代理提供方
func NewAgentProvider(name, endpoint string, opts ...AgentOption) *AgentProvider {
	a := &AgentProvider{
		name:     name,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name 实现 Provider
func (a *AgentProvider) Name() string {
	return a.name
}

// Available 探测代理是否在线（account_list 不触发授权弹窗）
func (a *AgentProvider) Available(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var accounts []string
	return a.request(probeCtx, "account_list", nil, &accounts) == nil
}

// RequestAccount 请求账户授权
func (a *AgentProvider) RequestAccount(ctx context.Context) (string, error) {
	var accounts []string
	if err := a.request(ctx, "account_request", nil, &accounts); err != nil {
		return "", err
	}
	if len(accounts) == 0 {
		return "", ErrConnectionRejected
	}
	return accounts[0], nil
}

// Accounts 列出已授权账户
func (a *AgentProvider) Accounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := a.request(ctx, "account_list", nil, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// SignAndSend 提交待签载荷，代理签名并广播
func (a *AgentProvider) SignAndSend(ctx context.Context, payload *TxPayload) (string, error) {
	var txHash string
	if err := a.request(ctx, "tx_signAndSend", []interface{}{payload}, &txHash); err != nil {
		return "", err
	}
	return txHash, nil
}

// ===== JSON-RPC 基础调用 =====

type agentRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      uint64      `json:"id"`
}

type agentResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *agentError     `json:"error"`
	ID      uint64          `json:"id"`
}

type agentError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// 代理侧「用户拒绝」的约定错误码
const agentCodeRejected = 4001

func (a *AgentProvider) request(ctx context.Context, method string, params interface{}, result interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	body, err := json.Marshal(&agentRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      a.nextID.Add(1),
	})
	if err != nil {
		return fmt.Errorf("marshal agent request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build agent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("wallet agent %s: %w", a.endpoint, err)
	}
	defer resp.Body.Close()

	var rpcResp agentResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("decode agent response: %w", err)
	}
	if rpcResp.Error != nil {
		if rpcResp.Error.Code == agentCodeRejected {
			return fmt.Errorf("%w: %s", ErrConnectionRejected, rpcResp.Error.Message)
		}
		return fmt.Errorf("wallet agent error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if result != nil && len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal agent result: %w", err)
		}
	}
	return nil
}
