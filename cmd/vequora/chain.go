package main

import (
	"github.com/spf13/cobra"
)

// chainCmd 链相关命令
var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "查询链状态",
	Long:  "查询链ID、最新区块高度、账户余额等链状态信息",
}

// chainInfoCmd 查询链信息
var chainInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "查询链信息",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := getClient()
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Debugf("close client: %v", err)
			}
		}()

		ctx := cmd.Context()

		chainID, err := client.ChainID(ctx)
		if err != nil {
			formatter.PrintError(err)
			return err
		}

		height, err := client.BlockNumber(ctx)
		if err != nil {
			formatter.PrintError(err)
			return err
		}

		return formatter.Print(map[string]interface{}{
			"chain_id":     chainID,
			"latest_block": height,
		})
	},
}

// chainBalanceCmd 查询账户余额
var chainBalanceCmd = &cobra.Command{
	Use:   "balance <address>",
	Short: "查询账户VQR余额",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		facade, _, cleanup, err := getFacade(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		balance, err := facade.Balance(cmd.Context(), args[0])
		if err != nil {
			formatter.PrintError(err)
			return err
		}

		return formatter.Print(map[string]interface{}{
			"address":    args[0],
			"vqr":        balance.Decimal(),
			"base_units": balance.BaseUnits(),
		})
	},
}

// chainTxCmd 查询交易
var chainTxCmd = &cobra.Command{
	Use:   "tx <hash>",
	Short: "按哈希查询交易",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := getClient()
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Debugf("close client: %v", err)
			}
		}()

		tx, err := client.GetTransaction(cmd.Context(), args[0])
		if err != nil {
			formatter.PrintError(err)
			return err
		}
		return formatter.Print(tx)
	},
}

func init() {
	chainCmd.AddCommand(chainInfoCmd)
	chainCmd.AddCommand(chainBalanceCmd)
	chainCmd.AddCommand(chainTxCmd)
}
