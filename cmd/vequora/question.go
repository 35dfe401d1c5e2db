package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vequora/client-sdk-go/core/amount"
	"github.com/vequora/client-sdk-go/core/output"
	"github.com/vequora/client-sdk-go/core/query"
	"github.com/vequora/client-sdk-go/pkg/ux/ui"
)

// questionCmd 问题相关命令
var questionCmd = &cobra.Command{
	Use:   "question",
	Short: "浏览与发布问题",
}

// questionListCmd 列出全部问题
var questionListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出全部问题",
	RunE: func(cmd *cobra.Command, args []string) error {
		facade, _, cleanup, err := getFacade(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		questions, err := facade.AllQuestions(cmd.Context())
		if err != nil {
			formatter.PrintError(err)
			return err
		}
		return formatter.Print(questions)
	},
}

// questionShowCmd 显示问题详情及其答案
var questionShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "显示问题详情及其答案",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		facade, _, cleanup, err := getFacade(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()
		q, err := facade.Question(ctx, id)
		if err != nil {
			if errors.Is(err, query.ErrNotFound) {
				formatter.PrintWarning(fmt.Sprintf("问题 %d 不存在", id))
			}
			return err
		}
		if err := formatter.Print(q); err != nil {
			return err
		}

		answers, err := facade.QuestionAnswers(ctx, id)
		if err != nil {
			formatter.PrintError(err)
			return err
		}
		if len(answers) == 0 {
			formatter.PrintInfo("还没有答案")
			return nil
		}
		return formatter.Print(answers)
	},
}

var askFlags struct {
	Title       string
	Description string
	Tags        []string
	Bounty      string
	Wait        bool
}

// questionAskCmd 发布问题
var questionAskCmd = &cobra.Command{
	Use:   "ask",
	Short: "发布问题(附带VQR悬赏)",
	Long: `发布新问题。悬赏金额随交易转入合约，
被批准的答案作者将获得悬赏。需要已连接的钱包会话。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if askFlags.Title == "" {
			return fmt.Errorf("--title 不能为空")
		}

		bounty, err := amount.Parse(askFlags.Bounty)
		if err != nil {
			return fmt.Errorf("解析悬赏金额 %q: %w", askFlags.Bounty, err)
		}

		facade, _, cleanup, err := getFacade(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		txHash, err := facade.AskQuestion(cmd.Context(), askFlags.Title, askFlags.Description, askFlags.Tags, bounty)
		if err != nil {
			formatter.PrintError(err)
			return err
		}
		formatter.PrintSuccess(fmt.Sprintf("问题已提交: %s", txHash))

		if askFlags.Wait {
			return waitAndReport(cmd, facade, txHash)
		}
		return formatter.Print(output.NewTxOutput(txHash, "question submitted"))
	},
}

// waitAndReport 等待交易确认并输出结果
// 窗口耗尽时明确告知结果未知，而不是报失败
func waitAndReport(cmd *cobra.Command, facade *query.Facade, txHash string) error {
	spinner := ui.StartSpinner(fmt.Sprintf("等待确认 %s …", txHash))

	tx, err := facade.WaitForTx(cmd.Context(), txHash, query.ConfirmOptions{Timeout: 90 * time.Second})
	switch {
	case errors.Is(err, query.ErrOutcomeUnknown):
		spinner.Fail(fmt.Sprintf("确认超时，结果未知。稍后可自查: vequora chain tx %s", txHash))
		return formatter.Print(output.NewTxOutput(txHash, "outcome unknown"))
	case errors.Is(err, query.ErrTxReverted):
		spinner.Fail(err.Error())
		return err
	case err != nil:
		spinner.Stop()
		return err
	}

	spinner.Success(fmt.Sprintf("已确认于区块 %d", tx.BlockHeight))
	return formatter.Print(output.NewTxOutput(txHash, "confirmed"))
}

func init() {
	questionAskCmd.Flags().StringVar(&askFlags.Title, "title", "", "问题标题 (必填)")
	questionAskCmd.Flags().StringVar(&askFlags.Description, "desc", "", "问题描述")
	questionAskCmd.Flags().StringSliceVar(&askFlags.Tags, "tags", nil, "标签(最多5个，逗号分隔)")
	questionAskCmd.Flags().StringVar(&askFlags.Bounty, "bounty", "0.1", "悬赏金额(VQR)")
	questionAskCmd.Flags().BoolVar(&askFlags.Wait, "wait", false, "等待交易确认")

	questionCmd.AddCommand(questionListCmd)
	questionCmd.AddCommand(questionShowCmd)
	questionCmd.AddCommand(questionAskCmd)
}
