// Package config 管理客户端配置Profile
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vequora/client-sdk-go/core/transport"
)

// Profile 客户端配置Profile
type Profile struct {
	Name    string `json:"name"`     // Profile名称: mainnet/testnet/solo
	ChainID string `json:"chain_id"` // 链ID

	// 节点端点(按优先级排序)
	Endpoints []EndpointConfig `json:"endpoints"`

	// 合约地址
	ContractAddress string `json:"contract_address"` // 问答平台合约

	// 具名代币地址（扫描器按收款方过滤时用）
	Tokens map[string]string `json:"tokens,omitempty"`

	// 钱包
	KeystorePath string `json:"keystore_path"`          // Keystore目录
	WalletAgent  string `json:"wallet_agent,omitempty"` // 外部钱包代理端点
	SessionPath  string `json:"session_path"`           // 会话持久化文件

	// 网络配置
	Timeout       Duration `json:"timeout"`        // 请求超时
	RetryAttempts int      `json:"retry_attempts"` // 只读调用重试次数
	RetryBackoff  Duration `json:"retry_backoff"`  // 退避时间

	// 故障转移
	HealthCheckInterval Duration `json:"health_check_interval"` // 健康检查间隔

	// 缓存
	CacheTTL Duration `json:"cache_ttl"` // 查询响应缓存TTL
}

// EndpointConfig 端点配置
type EndpointConfig struct {
	Name     string `json:"name"`     // 端点名称
	Priority int    `json:"priority"` // 优先级(数字越小越优先)

	JSONRPC string `json:"jsonrpc,omitempty"` // JSON-RPC地址
	WS      string `json:"ws,omitempty"`      // WebSocket地址
}

// TransportConfig 转换为传输层配置
func (p *Profile) TransportConfig() transport.ClientConfig {
	endpoints := make([]transport.EndpointConfig, 0, len(p.Endpoints))
	for _, ep := range p.Endpoints {
		endpoints = append(endpoints, transport.EndpointConfig{
			Name:     ep.Name,
			Priority: ep.Priority,
			JSONRPC:  ep.JSONRPC,
			WS:       ep.WS,
		})
	}
	return transport.ClientConfig{
		Endpoints:           endpoints,
		Timeout:             time.Duration(p.Timeout),
		RetryAttempts:       p.RetryAttempts,
		RetryBackoff:        time.Duration(p.RetryBackoff),
		HealthCheckInterval: time.Duration(p.HealthCheckInterval),
	}
}

// WSEndpoint 返回首个配置了WebSocket地址的端点，没有则返回空串
func (p *Profile) WSEndpoint() string {
	for _, ep := range p.Endpoints {
		if ep.WS != "" {
			return ep.WS
		}
	}
	return ""
}

// Duration 时间duration(支持JSON序列化)
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}

	*d = Duration(dur)
	return nil
}

// ProfileManager Profile管理器
//
// 配置目录布局：
//
//	~/.vequora/
//	  current            当前profile名称
//	  profiles/*.json    各profile
//	  keystores/<name>/  各profile的keystore
//	  session.json       会话持久化
type ProfileManager struct {
	configDir      string
	currentProfile string
	profiles       map[string]*Profile
}

// NewProfileManager 创建Profile管理器
func NewProfileManager(configDir string) (*ProfileManager, error) {
	if configDir == "" {
		// 默认配置目录: ~/.vequora
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		configDir = filepath.Join(homeDir, ".vequora")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	pm := &ProfileManager{
		configDir: configDir,
		profiles:  make(map[string]*Profile),
	}

	if err := pm.loadProfiles(); err != nil {
		return nil, err
	}

	if err := pm.loadCurrentProfile(); err != nil {
		// 没有current文件时用默认
		pm.currentProfile = "solo"
	}

	// 环境变量覆盖profile选择
	if name := os.Getenv("VEQUORA_PROFILE"); name != "" {
		pm.currentProfile = name
	}

	return pm, nil
}

// ConfigDir 配置目录
func (pm *ProfileManager) ConfigDir() string {
	return pm.configDir
}

// SessionPath 当前会话持久化文件路径
func (pm *ProfileManager) SessionPath() string {
	return filepath.Join(pm.configDir, "session.json")
}

// loadProfiles 加载所有profiles
func (pm *ProfileManager) loadProfiles() error {
	profilesDir := filepath.Join(pm.configDir, "profiles")

	// profiles目录不存在时播种默认profiles
	if _, err := os.Stat(profilesDir); os.IsNotExist(err) {
		if err := os.MkdirAll(profilesDir, 0700); err != nil {
			return fmt.Errorf("create profiles dir: %w", err)
		}
		if err := pm.createDefaultProfiles(); err != nil {
			return err
		}
	}

	entries, err := os.ReadDir(profilesDir)
	if err != nil {
		return fmt.Errorf("read profiles dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		profilePath := filepath.Join(profilesDir, entry.Name())
		profile, err := pm.loadProfile(profilePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to load profile %s: %v\n", entry.Name(), err)
			continue
		}

		pm.profiles[profile.Name] = profile
	}

	return nil
}

// loadProfile 加载单个profile并填充默认值
func (pm *ProfileManager) loadProfile(filePath string) (*Profile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}

	pm.fillDefaults(&profile)
	return &profile, nil
}

// fillDefaults 填充路径与网络默认值
func (pm *ProfileManager) fillDefaults(profile *Profile) {
	if profile.KeystorePath == "" {
		profile.KeystorePath = filepath.Join(pm.configDir, "keystores", profile.Name)
	}
	if profile.SessionPath == "" {
		profile.SessionPath = pm.SessionPath()
	}

	if profile.Timeout == 0 {
		profile.Timeout = Duration(30 * time.Second)
	}
	if profile.RetryAttempts == 0 {
		profile.RetryAttempts = 3
	}
	if profile.RetryBackoff == 0 {
		profile.RetryBackoff = Duration(time.Second)
	}
	if profile.HealthCheckInterval == 0 {
		profile.HealthCheckInterval = Duration(30 * time.Second)
	}
	if profile.CacheTTL == 0 {
		profile.CacheTTL = Duration(15 * time.Second)
	}
}

// loadCurrentProfile 加载当前profile名称
func (pm *ProfileManager) loadCurrentProfile() error {
	currentFile := filepath.Join(pm.configDir, "current")
	data, err := os.ReadFile(currentFile)
	if err != nil {
		return err
	}

	pm.currentProfile = strings.TrimSpace(string(data))
	return nil
}

// saveCurrentProfile 保存当前profile名称
func (pm *ProfileManager) saveCurrentProfile() error {
	currentFile := filepath.Join(pm.configDir, "current")
	return os.WriteFile(currentFile, []byte(pm.currentProfile), 0600)
}

// createDefaultProfiles 播种默认profiles
func (pm *ProfileManager) createDefaultProfiles() error {
	profiles := []*Profile{
		{
			Name:    "solo",
			ChainID: "vequora-solo-1",
			Endpoints: []EndpointConfig{
				{
					Name:     "solo-node",
					Priority: 1,
					JSONRPC:  "http://localhost:8669/jsonrpc",
					WS:       "ws://localhost:8669/ws",
				},
			},
			ContractAddress:     "0x89e658faf20b7cc6b7d6993bdd99eeabba1ba1d3",
			Timeout:             Duration(30 * time.Second),
			RetryAttempts:       3,
			RetryBackoff:        Duration(time.Second),
			HealthCheckInterval: Duration(30 * time.Second),
			CacheTTL:            Duration(15 * time.Second),
		},
		{
			Name:    "testnet",
			ChainID: "vequora-testnet-1",
			Endpoints: []EndpointConfig{
				{
					Name:     "testnet-primary",
					Priority: 1,
					JSONRPC:  "https://testnet-rpc.vequora.io/jsonrpc",
					WS:       "wss://testnet-rpc.vequora.io/ws",
				},
				{
					Name:     "testnet-backup",
					Priority: 2,
					JSONRPC:  "https://testnet-rpc2.vequora.io/jsonrpc",
				},
			},
			ContractAddress:     "0x89e658faf20b7cc6b7d6993bdd99eeabba1ba1d3",
			Timeout:             Duration(60 * time.Second),
			RetryAttempts:       5,
			RetryBackoff:        Duration(2 * time.Second),
			HealthCheckInterval: Duration(60 * time.Second),
			CacheTTL:            Duration(15 * time.Second),
		},
		{
			Name:    "mainnet",
			ChainID: "vequora-mainnet-1",
			Endpoints: []EndpointConfig{
				{
					Name:     "mainnet-primary",
					Priority: 1,
					JSONRPC:  "https://rpc.vequora.io/jsonrpc",
					WS:       "wss://rpc.vequora.io/ws",
				},
				{
					Name:     "mainnet-backup",
					Priority: 2,
					JSONRPC:  "https://rpc2.vequora.io/jsonrpc",
				},
			},
			Timeout:             Duration(60 * time.Second),
			RetryAttempts:       5,
			RetryBackoff:        Duration(2 * time.Second),
			HealthCheckInterval: Duration(60 * time.Second),
			CacheTTL:            Duration(15 * time.Second),
		},
	}

	for _, profile := range profiles {
		if err := pm.SaveProfile(profile); err != nil {
			return err
		}
	}

	pm.currentProfile = "solo"
	return pm.saveCurrentProfile()
}

// GetProfile 获取指定profile
func (pm *ProfileManager) GetProfile(name string) (*Profile, error) {
	profile, exists := pm.profiles[name]
	if !exists {
		return nil, fmt.Errorf("profile not found: %s", name)
	}
	return profile, nil
}

// GetCurrentProfile 获取当前profile（应用环境变量覆盖后）
func (pm *ProfileManager) GetCurrentProfile() (*Profile, error) {
	profile, err := pm.GetProfile(pm.currentProfile)
	if err != nil {
		return nil, err
	}
	return applyEnvOverrides(profile), nil
}

// CurrentProfileName 当前profile名称
func (pm *ProfileManager) CurrentProfileName() string {
	return pm.currentProfile
}

// ListProfiles 列出所有profile名称
func (pm *ProfileManager) ListProfiles() []string {
	names := make([]string, 0, len(pm.profiles))
	for name := range pm.profiles {
		names = append(names, name)
	}
	return names
}

// SaveProfile 保存profile
func (pm *ProfileManager) SaveProfile(profile *Profile) error {
	pm.fillDefaults(profile)

	profilePath := filepath.Join(pm.configDir, "profiles", profile.Name+".json")

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	if err := os.WriteFile(profilePath, data, 0600); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}

	pm.profiles[profile.Name] = profile
	return nil
}

// SwitchProfile 切换当前profile
func (pm *ProfileManager) SwitchProfile(name string) error {
	if _, exists := pm.profiles[name]; !exists {
		return fmt.Errorf("profile not found: %s", name)
	}

	pm.currentProfile = name
	return pm.saveCurrentProfile()
}

// DeleteProfile 删除profile
func (pm *ProfileManager) DeleteProfile(name string) error {
	// 不能删除当前profile
	if name == pm.currentProfile {
		return fmt.Errorf("cannot delete current profile")
	}

	profilePath := filepath.Join(pm.configDir, "profiles", name+".json")
	if err := os.Remove(profilePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete profile file: %w", err)
	}

	delete(pm.profiles, name)
	return nil
}

// applyEnvOverrides 应用 VEQUORA_* 环境变量覆盖
//
//	VEQUORA_RPC       覆盖首选端点的JSON-RPC地址
//	VEQUORA_WS        覆盖首选端点的WebSocket地址
//	VEQUORA_CONTRACT  覆盖合约地址
//	VEQUORA_KEYSTORE  覆盖keystore目录
//	VEQUORA_AGENT     覆盖钱包代理端点
//
// 返回副本，不改写磁盘上的profile。
func applyEnvOverrides(profile *Profile) *Profile {
	p := *profile
	p.Endpoints = append([]EndpointConfig(nil), profile.Endpoints...)

	if rpc := os.Getenv("VEQUORA_RPC"); rpc != "" {
		if len(p.Endpoints) == 0 {
			p.Endpoints = []EndpointConfig{{Name: "env", Priority: 1}}
		}
		p.Endpoints[0].JSONRPC = rpc
	}
	if ws := os.Getenv("VEQUORA_WS"); ws != "" {
		if len(p.Endpoints) == 0 {
			p.Endpoints = []EndpointConfig{{Name: "env", Priority: 1}}
		}
		p.Endpoints[0].WS = ws
	}
	if contract := os.Getenv("VEQUORA_CONTRACT"); contract != "" {
		p.ContractAddress = contract
	}
	if keystore := os.Getenv("VEQUORA_KEYSTORE"); keystore != "" {
		p.KeystorePath = keystore
	}
	if agent := os.Getenv("VEQUORA_AGENT"); agent != "" {
		p.WalletAgent = agent
	}
	return &p
}
