package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync/atomic"
	"time"
)

// JSONRPCClient JSON-RPC 2.0 客户端实现
type JSONRPCClient struct {
	endpoint   string
	httpClient *http.Client
	nextID     atomic.Uint64
}

// NewJSONRPCClient 创建JSON-RPC客户端
// timeout 是单次请求的硬上限，0取默认30秒；任何RPC调用都不允许无限阻塞
func NewJSONRPCClient(endpoint string, timeout time.Duration) *JSONRPCClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &JSONRPCClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// jsonrpcRequest JSON-RPC 2.0 请求
type jsonrpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      uint64        `json:"id"`
}

// jsonrpcResponse JSON-RPC 2.0 响应
type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
	ID      uint64          `json:"id"`
}

// jsonrpcError JSON-RPC 2.0 错误
type jsonrpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// call 统一的JSON-RPC调用方法
func (c *JSONRPCClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	req := &jsonrpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%w: marshal request: %v", ErrRPC, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("%w: create http request: %v", ErrRPC, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: http request: %v", ErrRPC, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrRPC, err)
	}

	var jsonResp jsonrpcResponse
	if err := json.Unmarshal(respBody, &jsonResp); err != nil {
		return fmt.Errorf("%w: unmarshal response: %v", ErrRPC, err)
	}

	if jsonResp.Error != nil {
		return fmt.Errorf("%w: jsonrpc error %d: %s", ErrRPC, jsonResp.Error.Code, jsonResp.Error.Message)
	}

	// result为null时由调用方决定语义（例如交易未找到）
	if result != nil {
		if len(jsonResp.Result) == 0 || string(jsonResp.Result) == "null" {
			return errNullResult
		}
		if err := json.Unmarshal(jsonResp.Result, result); err != nil {
			return fmt.Errorf("%w: unmarshal result: %v", ErrRPC, err)
		}
	}

	return nil
}

// ===== 接口实现 =====

func (c *JSONRPCClient) ChainID(ctx context.Context) (string, error) {
	var chainID string
	if err := c.call(ctx, "vq_chainId", nil, &chainID); err != nil {
		if err == errNullResult {
			return "", fmt.Errorf("%w: empty chain id", ErrRPC)
		}
		return "", err
	}
	return chainID, nil
}

func (c *JSONRPCClient) BlockNumber(ctx context.Context) (uint64, error) {
	var height string // 十六进制字符串
	if err := c.call(ctx, "vq_blockNumber", nil, &height); err != nil {
		if err == errNullResult {
			return 0, fmt.Errorf("%w: empty block number", ErrRPC)
		}
		return 0, err
	}

	blockNum, ok := parseQuantity(height)
	if !ok {
		return 0, fmt.Errorf("%w: parse block number %q", ErrRPC, height)
	}
	return blockNum, nil
}

func (c *JSONRPCClient) GetBalance(ctx context.Context, address string) (*Balance, error) {
	var raw struct {
		Address string `json:"address"`
		Value   string `json:"value"`
	}
	if err := c.call(ctx, "vq_getBalance", []interface{}{address}, &raw); err != nil {
		if err == errNullResult {
			return &Balance{Address: address, Value: "0"}, nil
		}
		return nil, err
	}

	value, ok := normalizeQuantityString(raw.Value)
	if !ok {
		return nil, fmt.Errorf("%w: parse balance %q", ErrRPC, raw.Value)
	}
	return &Balance{Address: raw.Address, Value: value}, nil
}

func (c *JSONRPCClient) CallContract(ctx context.Context, call *CallRequest) (*CallResult, error) {
	params := map[string]interface{}{
		"to":   call.To,
		"data": call.Data,
	}
	if call.From != "" {
		params["from"] = call.From
	}

	var result CallResult
	if err := c.call(ctx, "vq_call", []interface{}{params}, &result); err != nil {
		if err == errNullResult {
			return nil, fmt.Errorf("%w: empty call result", ErrRPC)
		}
		return nil, err
	}
	return &result, nil
}

func (c *JSONRPCClient) SendRawTransaction(ctx context.Context, signedTxHex string) (*SendTxResult, error) {
	var result SendTxResult
	if err := c.call(ctx, "vq_sendRawTransaction", []interface{}{signedTxHex}, &result); err != nil {
		if err == errNullResult {
			return nil, fmt.Errorf("%w: node returned no tx hash", ErrRPC)
		}
		return nil, err
	}
	return &result, nil
}

func (c *JSONRPCClient) GetTransaction(ctx context.Context, txHash string) (*Transaction, error) {
	var txMap map[string]interface{}
	if err := c.call(ctx, "vq_getTransaction", []interface{}{txHash}, &txMap); err != nil {
		if err == errNullResult {
			return nil, fmt.Errorf("%w: %s", ErrTxNotFound, txHash)
		}
		return nil, err
	}

	tx, err := transactionFromMap(txMap)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRPC, err)
	}
	return tx, nil
}

func (c *JSONRPCClient) GetTransferLogs(ctx context.Context, query *TransferLogQuery) ([]*TransferLogEntry, error) {
	params := map[string]interface{}{
		"recipient": query.Recipient,
	}
	if query.FromBlock > 0 {
		params["from_block"] = query.FromBlock
	}
	if query.ToBlock > 0 {
		params["to_block"] = query.ToBlock
	}
	if query.Limit > 0 {
		params["limit"] = query.Limit
	}

	var rawLogs []map[string]interface{}
	if err := c.call(ctx, "vq_getTransferLogs", []interface{}{params}, &rawLogs); err != nil {
		if err == errNullResult {
			return nil, nil
		}
		return nil, err
	}

	logs := make([]*TransferLogEntry, 0, len(rawLogs))
	for _, raw := range rawLogs {
		entry, err := transferLogFromMap(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRPC, err)
		}
		logs = append(logs, entry)
	}

	// 节点应当按高度升序返回；不信任节点，本地兜底排序
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].BlockHeight < logs[j].BlockHeight
	})

	if query.Limit > 0 && len(logs) > query.Limit {
		logs = logs[:query.Limit]
	}
	return logs, nil
}

func (c *JSONRPCClient) Ping(ctx context.Context) error {
	_, err := c.ChainID(ctx)
	return err
}

func (c *JSONRPCClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
