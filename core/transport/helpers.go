package transport

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// errNullResult 内部哨兵：JSON-RPC result 为 null
// 由各方法决定null的语义（未找到/零余额/空列表），不对外暴露
var errNullResult = errors.New("null result")

// parseQuantity 解析数量字段（支持0x十六进制和十进制字符串）
func parseQuantity(s string) (uint64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 64)
		return v, err == nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	return v, err == nil
}

// normalizeQuantityString 将数量字段规范化为十进制字符串
// 金额可能超过uint64，必须走big.Int
func normalizeQuantityString(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok || v.Sign() < 0 {
		return "", false
	}
	return v.String(), true
}

// parseUint64FromMap 从map中解析uint64字段（支持字符串和数字）
func parseUint64FromMap(m map[string]interface{}, key string) (uint64, bool) {
	val, ok := m[key]
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case string:
		return parseQuantity(v)
	case float64:
		return uint64(v), true
	case uint64:
		return v, true
	case int64:
		return uint64(v), true
	default:
		return 0, false
	}
}

// parseStringFromMap 从map中解析字符串字段
func parseStringFromMap(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// parseTimeFromMap 从map中解析时间字段（RFC3339字符串或Unix时间戳）
func parseTimeFromMap(m map[string]interface{}, key string) (time.Time, bool) {
	val, ok := m[key]
	if !ok {
		return time.Time{}, false
	}
	switch v := val.(type) {
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, true
		}
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(ts, 0), true
		}
		return time.Time{}, false
	case float64:
		return time.Unix(int64(v), 0), true
	default:
		return time.Time{}, false
	}
}

// transactionFromMap 将节点返回的交易map转换为Transaction
func transactionFromMap(m map[string]interface{}) (*Transaction, error) {
	tx := &Transaction{
		Hash:   parseStringFromMap(m, "tx_hash"),
		From:   parseStringFromMap(m, "from"),
		To:     parseStringFromMap(m, "to"),
		Input:  parseStringFromMap(m, "input"),
		Status: parseStringFromMap(m, "status"),
	}
	if tx.Hash == "" {
		return nil, fmt.Errorf("transaction missing tx_hash")
	}

	if value := parseStringFromMap(m, "value"); value != "" {
		normalized, ok := normalizeQuantityString(value)
		if !ok {
			return nil, fmt.Errorf("parse tx value %q", value)
		}
		tx.Value = normalized
	} else {
		tx.Value = "0"
	}

	tx.BlockHash = parseStringFromMap(m, "block_hash")
	if height, ok := parseUint64FromMap(m, "block_height"); ok {
		tx.BlockHeight = height
	}
	if ts, ok := parseTimeFromMap(m, "timestamp"); ok {
		tx.Timestamp = ts
	}
	if tx.Status == "" {
		tx.Status = "pending"
	}
	return tx, nil
}

// transferLogFromMap 将节点返回的日志map转换为TransferLogEntry
func transferLogFromMap(m map[string]interface{}) (*TransferLogEntry, error) {
	entry := &TransferLogEntry{
		TxHash: parseStringFromMap(m, "tx_hash"),
		From:   parseStringFromMap(m, "from"),
		To:     parseStringFromMap(m, "to"),
	}
	if entry.TxHash == "" {
		return nil, fmt.Errorf("transfer log missing tx_hash")
	}

	height, ok := parseUint64FromMap(m, "block_height")
	if !ok {
		return nil, fmt.Errorf("transfer log missing block_height")
	}
	entry.BlockHeight = height

	value, ok := normalizeQuantityString(parseStringFromMap(m, "value"))
	if !ok {
		return nil, fmt.Errorf("parse transfer value %q", parseStringFromMap(m, "value"))
	}
	entry.Value = value
	return entry, nil
}
