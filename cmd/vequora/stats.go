package main

import (
	"github.com/spf13/cobra"
)

// statsCmd 平台统计命令
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "查询平台统计",
	RunE: func(cmd *cobra.Command, args []string) error {
		facade, _, cleanup, err := getFacade(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		stats, err := facade.PlatformStats(cmd.Context())
		if err != nil {
			formatter.PrintError(err)
			return err
		}
		return formatter.Print(stats)
	},
}

// userCmd 用户档案命令
var userCmd = &cobra.Command{
	Use:   "user <address>",
	Short: "查询用户档案",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		facade, _, cleanup, err := getFacade(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		user, err := facade.User(cmd.Context(), args[0])
		if err != nil {
			formatter.PrintError(err)
			return err
		}
		return formatter.Print(user)
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
}
