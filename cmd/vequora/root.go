package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vequora/client-sdk-go/core/config"
	"github.com/vequora/client-sdk-go/core/output"
	"github.com/vequora/client-sdk-go/core/query"
	"github.com/vequora/client-sdk-go/core/session"
	"github.com/vequora/client-sdk-go/core/transport"
	"github.com/vequora/client-sdk-go/pkg/ux/ui"
)

// GlobalFlags 全局标志
type GlobalFlags struct {
	Profile      string // Profile名称
	ConfigDir    string // 配置目录
	OutputFormat string // 输出格式
	Silent       bool   // 静默模式
	Verbose      bool   // 详细模式
}

var (
	globalFlags GlobalFlags
	profileMgr  *config.ProfileManager
	formatter   *output.Formatter
	logger      ui.Logger
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "vequora",
	Short: "VeQuora 问答平台命令行客户端",
	Long: `VeQuora CLI - 链上问答平台的薄客户端

VeQuora 是运行在 VeQuora 链上的去中心化问答平台。
本工具覆盖平台的完整交互流程:
- 浏览问题、答案与平台统计
- 连接钱包(本地keystore或外部钱包代理)
- 提问(附带VQR悬赏)、回答、点赞、批准答案
- 扫描合约转账日志还原平台活动

支持多环境配置(solo/testnet/mainnet)与故障转移节点列表。`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		profileMgr, err = config.NewProfileManager(globalFlags.ConfigDir)
		if err != nil {
			return fmt.Errorf("初始化配置: %w", err)
		}

		format := output.Format(globalFlags.OutputFormat)
		formatter = output.NewFormatter(format, os.Stdout)
		formatter.SetSilent(globalFlags.Silent)

		level := zerolog.WarnLevel
		if globalFlags.Verbose {
			level = zerolog.DebugLevel
		}
		zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
		logger = ui.NewZerologLogger(zl)

		return nil
	},
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalFlags.Profile, "profile", "", "使用指定的Profile (默认使用当前Profile)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.ConfigDir, "config-dir", "", "配置目录 (默认: ~/.vequora)")
	rootCmd.PersistentFlags().StringVarP(&globalFlags.OutputFormat, "output", "o", "json", "输出格式: json|pretty|table")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.Silent, "silent", false, "静默模式 (仅输出结果)")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "详细输出")

	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(questionCmd)
	rootCmd.AddCommand(answerCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(walletCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(watchCmd)
}

// getProfile 取生效的profile
func getProfile() (*config.Profile, error) {
	if globalFlags.Profile != "" {
		return profileMgr.GetProfile(globalFlags.Profile)
	}
	return profileMgr.GetCurrentProfile()
}

// getClient 获取传输客户端
func getClient() (transport.Client, *config.Profile, error) {
	profile, err := getProfile()
	if err != nil {
		return nil, nil, fmt.Errorf("获取Profile: %w", err)
	}

	client, err := transport.NewFallbackClient(profile.TransportConfig())
	if err != nil {
		return nil, nil, err
	}
	return client, profile, nil
}

// getSession 构建钱包会话并尝试恢复
//
// 提供方顺序：外部钱包代理优先，本地keystore兜底。
func getSession(profile *config.Profile, client transport.Client) *session.Session {
	var providers []session.Provider

	if profile.WalletAgent != "" {
		providers = append(providers, session.NewAgentProvider("agent", profile.WalletAgent))
	}
	if path := findKeystoreFile(profile.KeystorePath); path != "" {
		providers = append(providers, session.NewKeystoreProvider(path, promptPassphrase, client))
	}

	store := session.NewFileStore(profile.SessionPath)
	return session.NewSession(providers, store, nil, logger)
}

// getFacade 构建查询门面（含会话恢复与缓存）
func getFacade(cmd *cobra.Command) (*query.Facade, *session.Session, func(), error) {
	client, profile, err := getClient()
	if err != nil {
		return nil, nil, nil, err
	}

	sess := getSession(profile, client)
	if _, err := sess.Restore(cmd.Context()); err != nil {
		logger.Warnf("restore session: %v", err)
	}

	cache, err := query.NewCache(query.CacheConfig{TTL: time.Duration(profile.CacheTTL)}, logger)
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, err
	}

	facade := query.New(client, sess, profile.ContractAddress, cache, nil, logger)
	cleanup := func() {
		_ = cache.Close()
		if err := client.Close(); err != nil {
			logger.Debugf("close client: %v", err)
		}
	}
	return facade, sess, cleanup, nil
}

// findKeystoreFile 在keystore目录里找最新的keystore文件
func findKeystoreFile(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) != ".tmp" {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return ""
	}
	// 文件名带UTC时间戳，字典序最大即最新
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1])
}

// promptPassphrase 交互式读取keystore口令
func promptPassphrase() (string, error) {
	fmt.Fprint(os.Stderr, "Keystore口令: ")
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return string(pw), nil
}
