// Package session 管理钱包会话
//
// 会话状态机：Disconnected → Connecting → Connected → Disconnected。
// 每个会话至多持有一个账户地址；账户只能通过显式 Connect/Disconnect 切换，
// 绝不静默更换。
package session

import (
	"context"
	"errors"
)

var (
	// ErrNotConnected 未连接时发起需要会话的操作
	ErrNotConnected = errors.New("wallet not connected")

	// ErrConnectionRejected 用户或提供方拒绝了连接请求
	ErrConnectionRejected = errors.New("connection rejected")

	// ErrProviderUnavailable 没有可用的签名提供方
	ErrProviderUnavailable = errors.New("no signing provider available")

	// ErrBusy 已有连接流程在进行中
	ErrBusy = errors.New("connect already in progress")
)

// TxPayload 待签名并广播的交易载荷
type TxPayload struct {
	To    string `json:"to"`              // 合约地址
	Data  string `json:"data"`            // 0x前缀ABI编码调用数据
	Value string `json:"value,omitempty"` // 附带金额(基础单位，十进制字符串)
}

// Provider 签名提供方的统一抽象
//
// 两种调用约定都折叠到这一个接口后面：
//   - 聚合式：一次 connect() 完成授权（keystore 本地签名器）
//   - 细粒度：request({method, params}) 风格的外部钱包代理（AgentProvider）
type Provider interface {
	// Name 提供方名称
	Name() string

	// Available 提供方当前是否可用（探测用，不触发授权）
	Available(ctx context.Context) bool

	// RequestAccount 请求账户授权；拒绝返回 ErrConnectionRejected
	RequestAccount(ctx context.Context) (string, error)

	// Accounts 列出当前已授权账户（会话恢复时重验证用）
	Accounts(ctx context.Context) ([]string, error)

	// SignAndSend 签名并广播交易，返回交易哈希
	SignAndSend(ctx context.Context, payload *TxPayload) (string, error)
}
