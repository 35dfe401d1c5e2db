// Package transport 提供与VeQuora节点通信的传输层
//
// 适配层的所有网络调用必须经由 Client 接口，
// 上层(core/query、core/scanner)严禁直接发起HTTP请求。
package transport

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrRPC 节点通信失败（网络不可达、响应损坏、节点返回错误）
	ErrRPC = errors.New("rpc error")

	// ErrTxNotFound 交易不存在或尚未进入节点视图
	// 与 ErrRPC 区分：确认轮询需要知道「还没查到」不等于「节点坏了」
	ErrTxNotFound = errors.New("transaction not found")
)

// Client 统一传输客户端接口
type Client interface {
	// ===== 链信息 =====

	// ChainID 获取链ID
	ChainID(ctx context.Context) (string, error)

	// BlockNumber 获取最新区块高度
	BlockNumber(ctx context.Context) (uint64, error)

	// ===== 状态查询 =====

	// GetBalance 获取账户VQR余额（基础单位）
	GetBalance(ctx context.Context, address string) (*Balance, error)

	// CallContract 只读合约调用（不上链）
	CallContract(ctx context.Context, call *CallRequest) (*CallResult, error)

	// ===== 交易 =====

	// SendRawTransaction 广播已签名交易
	SendRawTransaction(ctx context.Context, signedTxHex string) (*SendTxResult, error)

	// GetTransaction 按哈希查询交易；未找到返回 ErrTxNotFound
	GetTransaction(ctx context.Context, txHash string) (*Transaction, error)

	// ===== 转账日志 =====

	// GetTransferLogs 按收款方过滤转账日志（区块高度升序）
	GetTransferLogs(ctx context.Context, query *TransferLogQuery) ([]*TransferLogEntry, error)

	// ===== 健康检查 =====

	// Ping 检查节点是否可达
	Ping(ctx context.Context) error

	// Close 关闭客户端连接
	Close() error
}

// Balance 账户余额
type Balance struct {
	Address string `json:"address"`
	Value   string `json:"value"` // 基础单位，十进制字符串
}

// CallRequest 只读合约调用请求
type CallRequest struct {
	To   string `json:"to"`             // 合约地址
	Data string `json:"data"`           // 0x前缀的ABI编码调用数据
	From string `json:"from,omitempty"` // 调用者地址(可选)
}

// CallResult 只读合约调用结果
type CallResult struct {
	Reverted bool   `json:"reverted"`         // 合约是否回滚
	Output   string `json:"output"`           // 0x前缀的返回数据
	VMError  string `json:"vm_error,omitempty"` // 回滚原因(如有)
}

// SendTxResult 交易广播结果
type SendTxResult struct {
	TxHash string `json:"tx_hash"`
}

// Transaction 交易数据
type Transaction struct {
	Hash        string    `json:"tx_hash"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Value       string    `json:"value"`                  // 基础单位，十进制字符串
	Input       string    `json:"input"`                  // 0x前缀调用数据
	Status      string    `json:"status"`                 // pending/confirmed/reverted
	BlockHash   string    `json:"block_hash,omitempty"`
	BlockHeight uint64    `json:"block_height,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Confirmed 交易是否已打包确认
func (t *Transaction) Confirmed() bool {
	return t != nil && t.Status == "confirmed"
}

// TransferLogQuery 转账日志过滤条件
type TransferLogQuery struct {
	Recipient string `json:"recipient"`            // 收款方地址(合约)
	FromBlock uint64 `json:"from_block,omitempty"` // 起始高度(含)
	ToBlock   uint64 `json:"to_block,omitempty"`   // 结束高度(含)，0表示最新
	Limit     int    `json:"limit,omitempty"`      // 最大条数
}

// TransferLogEntry 转账日志条目（线上格式）
type TransferLogEntry struct {
	BlockHeight uint64 `json:"block_height"`
	TxHash      string `json:"tx_hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"` // 基础单位，十进制字符串
}

// HeadEvent 新区块头事件（WebSocket订阅）
type HeadEvent struct {
	Height uint64 `json:"height"`
	Hash   string `json:"hash"`
}

// HeadSubscription 区块头订阅
type HeadSubscription interface {
	// Heads 新区块头通道；订阅关闭后通道关闭
	Heads() <-chan *HeadEvent

	// Err 订阅错误通道
	Err() <-chan error

	// Unsubscribe 取消订阅（幂等）
	Unsubscribe()
}
