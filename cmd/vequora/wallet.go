package main

import (
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/vequora/client-sdk-go/core/session"
)

// walletCmd 钱包会话命令
var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "管理钱包连接",
	Long: `管理钱包会话。

会话状态机: disconnected → connecting → connected。
连接成功后的账户地址会持久化，下次启动自动恢复；
恢复时会向提供方重验证账户授权，验证不过即回到断开状态。`,
}

// walletConnectCmd 连接钱包
var walletConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "连接钱包",
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

		sess := getSession(profile, client)
		account, err := sess.Connect(cmd.Context())
		if err != nil {
			formatter.PrintError(err)
			return err
		}

		formatter.PrintSuccess(fmt.Sprintf("已连接: %s", account))
		return formatter.Print(map[string]interface{}{
			"state":   string(sess.State()),
			"account": account,
		})
	},
}

// walletDisconnectCmd 断开钱包
var walletDisconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "断开钱包并清除持久化会话",
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

		sess := getSession(profile, client)
		sess.Disconnect()

		formatter.PrintSuccess("已断开连接")
		return nil
	},
}

// walletStatusCmd 显示会话状态
var walletStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "显示会话状态",
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

		sess := getSession(profile, client)
		account, err := sess.Restore(cmd.Context())
		if err != nil {
			formatter.PrintError(err)
			return err
		}

		result := map[string]interface{}{
			"state": string(sess.State()),
		}
		if account != "" {
			result["account"] = account
		}
		return formatter.Print(result)
	},
}

var createFlags struct {
	Label string
	Words int
}

// walletCreateCmd 创建本地keystore账户
var walletCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "创建本地keystore账户(开发用)",
	Long: `生成BIP39助记词并派生账户，以keystore形式加密保存。
助记词只显示这一次，请抄写妥善保管。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := getProfile()
		if err != nil {
			return err
		}

		strength := session.Mnemonic12Words
		if createFlags.Words == 24 {
			strength = session.Mnemonic24Words
		} else if createFlags.Words != 12 {
			return fmt.Errorf("--words 只支持 12 或 24")
		}

		mnemonic, err := session.NewMnemonic(strength)
		if err != nil {
			return fmt.Errorf("生成助记词: %w", err)
		}
		key, err := session.KeyFromMnemonic(mnemonic, "")
		if err != nil {
			return fmt.Errorf("派生密钥: %w", err)
		}

		password, err := promptPassphrase()
		if err != nil {
			return err
		}
		if password == "" {
			return fmt.Errorf("口令不能为空")
		}

		path, err := session.SaveKeystore(profile.KeystorePath, key, password, createFlags.Label)
		if err != nil {
			return fmt.Errorf("保存keystore: %w", err)
		}

		address := ethcrypto.PubkeyToAddress(key.PublicKey).Hex()
		formatter.PrintSuccess(fmt.Sprintf("账户已创建: %s", address))
		formatter.PrintWarning(fmt.Sprintf("助记词(仅显示一次): %s", mnemonic))
		return formatter.Print(map[string]interface{}{
			"address":  address,
			"keystore": path,
		})
	},
}

var restoreFlags struct {
	Label string
}

// walletRestoreCmd 从助记词恢复keystore账户
var walletRestoreCmd = &cobra.Command{
	Use:   "restore <mnemonic>",
	Short: "从BIP39助记词恢复账户",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := getProfile()
		if err != nil {
			return err
		}

		mnemonic := strings.Join(args, " ")
		key, err := session.KeyFromMnemonic(mnemonic, "")
		if err != nil {
			return err
		}

		password, err := promptPassphrase()
		if err != nil {
			return err
		}
		if password == "" {
			return fmt.Errorf("口令不能为空")
		}

		path, err := session.SaveKeystore(profile.KeystorePath, key, password, restoreFlags.Label)
		if err != nil {
			return fmt.Errorf("保存keystore: %w", err)
		}

		address := ethcrypto.PubkeyToAddress(key.PublicKey).Hex()
		formatter.PrintSuccess(fmt.Sprintf("账户已恢复: %s", address))
		return formatter.Print(map[string]interface{}{
			"address":  address,
			"keystore": path,
		})
	},
}

func init() {
	walletCreateCmd.Flags().StringVar(&createFlags.Label, "label", "", "账户标签")
	walletCreateCmd.Flags().IntVar(&createFlags.Words, "words", 12, "助记词长度(12或24)")
	walletRestoreCmd.Flags().StringVar(&restoreFlags.Label, "label", "", "账户标签")

	walletCmd.AddCommand(walletConnectCmd)
	walletCmd.AddCommand(walletDisconnectCmd)
	walletCmd.AddCommand(walletStatusCmd)
	walletCmd.AddCommand(walletCreateCmd)
	walletCmd.AddCommand(walletRestoreCmd)
}
