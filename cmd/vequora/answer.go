package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vequora/client-sdk-go/core/amount"
	"github.com/vequora/client-sdk-go/core/output"
	"github.com/vequora/client-sdk-go/pkg/ux/ui"
)

// answerCmd 答案相关命令
var answerCmd = &cobra.Command{
	Use:   "answer",
	Short: "提交、点赞与批准答案",
}

var submitFlags struct {
	Content string
	Wait    bool
}

// answerSubmitCmd 提交答案
var answerSubmitCmd = &cobra.Command{
	Use:   "submit <question-id>",
	Short: "提交答案",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		questionID, err := parseID(args[0])
		if err != nil {
			return err
		}
		if submitFlags.Content == "" {
			return fmt.Errorf("--content 不能为空")
		}

		facade, _, cleanup, err := getFacade(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		txHash, err := facade.SubmitAnswer(cmd.Context(), questionID, submitFlags.Content)
		if err != nil {
			formatter.PrintError(err)
			return err
		}
		formatter.PrintSuccess(fmt.Sprintf("答案已提交: %s", txHash))

		if submitFlags.Wait {
			return waitAndReport(cmd, facade, txHash)
		}
		return formatter.Print(output.NewTxOutput(txHash, "answer submitted"))
	},
}

var upvoteFlags struct {
	Tip string
}

var approveFlags struct {
	Yes bool
}

// answerUpvoteCmd 点赞答案
var answerUpvoteCmd = &cobra.Command{
	Use:   "upvote <question-id> <answer-id>",
	Short: "点赞答案(可附带VQR小费)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		questionID, err := parseID(args[0])
		if err != nil {
			return err
		}
		answerID, err := parseID(args[1])
		if err != nil {
			return err
		}

		tip := amount.Zero()
		if upvoteFlags.Tip != "" {
			if tip, err = amount.Parse(upvoteFlags.Tip); err != nil {
				return fmt.Errorf("解析小费金额 %q: %w", upvoteFlags.Tip, err)
			}
		}

		facade, _, cleanup, err := getFacade(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		txHash, err := facade.UpvoteAnswer(cmd.Context(), questionID, answerID, tip)
		if err != nil {
			formatter.PrintError(err)
			return err
		}
		formatter.PrintSuccess(fmt.Sprintf("点赞已提交: %s", txHash))
		return formatter.Print(output.NewTxOutput(txHash, "upvote submitted"))
	},
}

// answerApproveCmd 批准答案
var answerApproveCmd = &cobra.Command{
	Use:   "approve <question-id> <answer-id>",
	Short: "批准答案(触发悬赏结算，仅提问者可操作)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		questionID, err := parseID(args[0])
		if err != nil {
			return err
		}
		answerID, err := parseID(args[1])
		if err != nil {
			return err
		}

		// 批准会结清悬赏且不可撤销
		if !approveFlags.Yes {
			ok, err := ui.Confirm(fmt.Sprintf("批准问题 %d 的答案 %d？悬赏将立即结算且不可撤销", questionID, answerID), false)
			if err != nil {
				return err
			}
			if !ok {
				formatter.PrintInfo("已取消")
				return nil
			}
		}

		facade, _, cleanup, err := getFacade(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		txHash, err := facade.ApproveAnswer(cmd.Context(), questionID, answerID)
		if err != nil {
			formatter.PrintError(err)
			return err
		}
		formatter.PrintSuccess(fmt.Sprintf("批准已提交: %s", txHash))
		return waitAndReport(cmd, facade, txHash)
	},
}

// parseID 解析正整数ID参数
func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("非法ID %q: 需要正整数", s)
	}
	return id, nil
}

func init() {
	answerSubmitCmd.Flags().StringVar(&submitFlags.Content, "content", "", "答案内容 (必填)")
	answerSubmitCmd.Flags().BoolVar(&submitFlags.Wait, "wait", false, "等待交易确认")
	answerUpvoteCmd.Flags().StringVar(&upvoteFlags.Tip, "tip", "", "小费金额(VQR，可选)")
	answerApproveCmd.Flags().BoolVarP(&approveFlags.Yes, "yes", "y", false, "跳过确认提示")

	answerCmd.AddCommand(answerSubmitCmd)
	answerCmd.AddCommand(answerUpvoteCmd)
	answerCmd.AddCommand(answerApproveCmd)
}
