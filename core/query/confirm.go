package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vequora/client-sdk-go/core/transport"
)

var (
	// ErrOutcomeUnknown 确认窗口内没有得到终态
	// 交易可能仍会上链：这不是失败，调用方应提示用户稍后自查
	ErrOutcomeUnknown = errors.New("transaction outcome unknown")

	// ErrTxReverted 交易已上链但执行回滚
	ErrTxReverted = errors.New("transaction reverted")
)

// ConfirmOptions 确认等待选项
type ConfirmOptions struct {
	Timeout  time.Duration // 总等待窗口，默认60秒
	Interval time.Duration // 轮询间隔，默认3秒

	// Heads 新区块头订阅（可选）
	// 提供时以出块节奏驱动查询，出块间隔长于Interval时省掉空转轮询
	Heads transport.HeadSubscription
}

// WaitForTx 等待交易进入终态
//
// 终态只有两种：confirmed 返回交易，reverted 返回 ErrTxReverted。
// 窗口耗尽仍是 pending 或查不到，返回 ErrOutcomeUnknown。
// 轮询途中的节点错误不中断等待（下一拍重查），交易级 ErrTxNotFound 同理：
// 刚广播的交易要过一拍才进节点视图。
func (f *Facade) WaitForTx(ctx context.Context, txHash string, opts ConfirmOptions) (*transport.Transaction, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Interval <= 0 {
		opts.Interval = 3 * time.Second
	}

	waitCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	var heads <-chan *transport.HeadEvent
	if opts.Heads != nil {
		heads = opts.Heads.Heads()
	}

	for {
		tx, err := f.client.GetTransaction(waitCtx, txHash)
		switch {
		case err == nil && tx.Confirmed():
			return tx, nil
		case err == nil && tx.Status == "reverted":
			return nil, fmt.Errorf("%w: %s", ErrTxReverted, txHash)
		case err != nil && !errors.Is(err, transport.ErrTxNotFound):
			f.logger.Debugf("poll tx %s: %v", txHash, err)
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %s after %s", ErrOutcomeUnknown, txHash, opts.Timeout)
		case head, ok := <-heads:
			if !ok {
				// 订阅断了退回纯轮询
				heads = nil
				continue
			}
			f.logger.Debugf("new head %d, rechecking tx %s", head.Height, txHash)
		case <-ticker.C:
		}
	}
}
