// Package scanner 提供合约转账日志扫描与领域动作分类
//
// 合约没有结构化事件可查时，发往合约地址的转账日志是唯一的活动信号。
// 分类优先解码原始交易的调用数据提取真实的函数选择器；
// 纯金额启发式不可靠，只作为调用数据不可得时的兜底。
package scanner

import (
	"context"
	"encoding/hex"

	"github.com/vequora/client-sdk-go/core/abi"
	"github.com/vequora/client-sdk-go/core/domain"
	"github.com/vequora/client-sdk-go/core/transport"
	"github.com/vequora/client-sdk-go/pkg/ux/ui"
)

// Options 扫描选项
type Options struct {
	Limit     int    // 最大条数(0表示不限)
	FromBlock uint64 // 起始高度(含)
	ToBlock   uint64 // 结束高度(含)，0表示最新
}

// Scanner 转账日志扫描器（只读，无副作用）
type Scanner struct {
	client   transport.Client
	contract string // 问答合约地址

	// valueHints 金额启发式：固定金额 → 动作类型
	// 例如平台标准悬赏档位的金额意味着「提问」。仅兜底使用。
	valueHints map[string]domain.ActionKind

	logger ui.Logger
}

// New 创建扫描器
// logger 为 nil 时不输出日志
func New(client transport.Client, contractAddr string, logger ui.Logger) *Scanner {
	if logger == nil {
		logger = ui.NoopLogger()
	}
	return &Scanner{
		client:     client,
		contract:   contractAddr,
		valueHints: make(map[string]domain.ActionKind),
		logger:     logger,
	}
}

// AddValueHint 注册金额启发式（基础单位十进制字符串 → 动作）
func (s *Scanner) AddValueHint(baseUnits string, kind domain.ActionKind) {
	s.valueHints[baseUnits] = kind
}

// FetchTransferLogsTo 查询发往合约地址的转账日志（区块高度升序）
//
// 容错约定：完全失败时记录原因并返回空序列，不向上抛错——
// 扫描是尽力而为的重建，上层用空结果照常渲染。
// 单条日志的调用数据抓取失败只降级该条（CallData为空），不中断整批。
func (s *Scanner) FetchTransferLogsTo(ctx context.Context, opts Options) []*domain.TransferLog {
	entries, err := s.client.GetTransferLogs(ctx, &transport.TransferLogQuery{
		Recipient: s.contract,
		FromBlock: opts.FromBlock,
		ToBlock:   opts.ToBlock,
		Limit:     opts.Limit,
	})
	if err != nil {
		s.logger.Warnf("fetch transfer logs for %s: %v", s.contract, err)
		return nil
	}

	logs := make([]*domain.TransferLog, 0, len(entries))
	for _, e := range entries {
		log := &domain.TransferLog{
			BlockHeight: e.BlockHeight,
			TxHash:      e.TxHash,
			From:        e.From,
			To:          e.To,
			Value:       e.Value,
		}

		// 抓取原始交易以获得调用数据（分类的主路径）
		tx, err := s.client.GetTransaction(ctx, e.TxHash)
		if err != nil {
			s.logger.Debugf("fetch origin tx %s: %v", e.TxHash, err)
		} else {
			log.CallData = tx.Input
		}

		logs = append(logs, log)
	}
	return logs
}

// Classify 对单条日志分类
//
// 主路径：解码调用数据中的选择器。调用数据可解码时其结论是权威的，
// 即使金额恰好命中某个启发式档位也以选择器为准。
// 兜底：金额启发式。两者都失败返回 ActionUnknown。
func (s *Scanner) Classify(log *domain.TransferLog) domain.ActionKind {
	if log == nil {
		return domain.ActionUnknown
	}

	if data, ok := decodeHex(log.CallData); ok && len(data) >= 4 {
		if name, _, err := abi.DecodeCall(data); err == nil {
			if kind, ok := methodToAction(name); ok {
				return kind
			}
			// 已识别的方法但非状态变更动作（查询类），不再套用金额启发式
			return domain.ActionUnknown
		}
		s.logger.Debugf("classify %s: call data undecodable, falling back to value hint", log.TxHash)
	}

	if kind, ok := s.valueHints[log.Value]; ok {
		return kind
	}
	return domain.ActionUnknown
}

// ScanActions 扫描并分类（FetchTransferLogsTo + Classify 的组合便捷入口）
func (s *Scanner) ScanActions(ctx context.Context, opts Options) []ClassifiedLog {
	logs := s.FetchTransferLogsTo(ctx, opts)
	result := make([]ClassifiedLog, 0, len(logs))
	for _, log := range logs {
		result = append(result, ClassifiedLog{
			Log:  log,
			Kind: s.Classify(log),
		})
	}
	return result
}

// ClassifiedLog 带分类结果的日志
type ClassifiedLog struct {
	Log  *domain.TransferLog `json:"log"`
	Kind domain.ActionKind   `json:"kind"`
}

// methodToAction 合约方法名 → 领域动作
func methodToAction(name string) (domain.ActionKind, bool) {
	switch name {
	case "askQuestion":
		return domain.ActionAskQuestion, true
	case "submitAnswer":
		return domain.ActionSubmitAnswer, true
	case "upvoteAnswer":
		return domain.ActionUpvote, true
	case "approveAnswer":
		return domain.ActionApprove, true
	default:
		return domain.ActionUnknown, false
	}
}

// decodeHex 解码0x前缀十六进制
func decodeHex(s string) ([]byte, bool) {
	if len(s) < 2 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return nil, false
	}
	out, err := hex.DecodeString(s[2:])
	if err != nil {
		return nil, false
	}
	return out, true
}
