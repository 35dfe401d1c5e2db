package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vequora/client-sdk-go/core/domain"
	"github.com/vequora/client-sdk-go/core/scanner"
	"github.com/vequora/client-sdk-go/core/transport"
	"github.com/vequora/client-sdk-go/pkg/notify"
)

var watchFlags struct {
	FromBlock uint64
	Limit     int
	Follow    bool
}

// watchCmd 扫描合约活动
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "扫描合约转账日志还原平台活动",
	Long: `扫描发往问答合约的转账日志，从原始交易的调用数据
还原平台动作(提问/回答/点赞/批准)。

--follow 模式下通过WebSocket订阅新区块头，每个新块增量扫描。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, profile, err := getClient()
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Debugf("close client: %v", err)
			}
		}()

		s := scanner.New(client, profile.ContractAddress, logger)

		actions := s.ScanActions(cmd.Context(), scanner.Options{
			FromBlock: watchFlags.FromBlock,
			Limit:     watchFlags.Limit,
		})
		if err := printActions(actions); err != nil {
			return err
		}

		if !watchFlags.Follow {
			return nil
		}
		return followChain(cmd, client, profile.WSEndpoint(), s)
	},
}

// followChain 按新区块头节奏增量扫描
func followChain(cmd *cobra.Command, client transport.Client, wsEndpoint string, s *scanner.Scanner) error {
	if wsEndpoint == "" {
		return fmt.Errorf("当前profile没有配置WebSocket端点，无法follow")
	}

	ws, err := transport.NewWebSocketClient(wsEndpoint)
	if err != nil {
		return fmt.Errorf("连接WebSocket: %w", err)
	}
	defer func() {
		if err := ws.Close(); err != nil {
			logger.Debugf("close ws: %v", err)
		}
	}()

	sub, err := ws.SubscribeNewHeads()
	if err != nil {
		return fmt.Errorf("订阅区块头: %w", err)
	}
	defer sub.Unsubscribe()

	center := notify.NewCenter(0)
	center.OnNotify(func(n *notify.Notification) {
		formatter.PrintInfo(n.Message)
	})

	formatter.PrintInfo("正在跟踪新区块 (Ctrl+C 退出)…")

	lastHeight, err := client.BlockNumber(cmd.Context())
	if err != nil {
		return err
	}

	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case err := <-sub.Err():
			return fmt.Errorf("订阅中断: %w", err)
		case head, ok := <-sub.Heads():
			if !ok {
				return nil
			}
			if head.Height <= lastHeight {
				continue
			}

			actions := s.ScanActions(cmd.Context(), scanner.Options{
				FromBlock: lastHeight + 1,
				ToBlock:   head.Height,
			})
			lastHeight = head.Height

			for _, a := range actions {
				center.Push(notify.KindInfo, describeAction(a))
			}
			if len(actions) > 0 {
				if err := printActions(actions); err != nil {
					return err
				}
			}
		}
	}
}

func printActions(actions []scanner.ClassifiedLog) error {
	if len(actions) == 0 {
		formatter.PrintInfo("没有匹配的合约活动")
		return nil
	}
	return formatter.Print(actions)
}

// describeAction 动作的一句话描述
func describeAction(a scanner.ClassifiedLog) string {
	switch a.Kind {
	case domain.ActionAskQuestion:
		return fmt.Sprintf("新问题 (tx %s)", a.Log.TxHash)
	case domain.ActionSubmitAnswer:
		return fmt.Sprintf("新答案 (tx %s)", a.Log.TxHash)
	case domain.ActionUpvote:
		return fmt.Sprintf("新点赞 (tx %s)", a.Log.TxHash)
	case domain.ActionApprove:
		return fmt.Sprintf("答案被批准 (tx %s)", a.Log.TxHash)
	default:
		return fmt.Sprintf("未识别的合约转账 (tx %s)", a.Log.TxHash)
	}
}

func init() {
	watchCmd.Flags().Uint64Var(&watchFlags.FromBlock, "from-block", 0, "起始区块高度")
	watchCmd.Flags().IntVar(&watchFlags.Limit, "limit", 0, "最大条数(0表示不限)")
	watchCmd.Flags().BoolVar(&watchFlags.Follow, "follow", false, "持续跟踪新区块")
}
