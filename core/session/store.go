package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store 会话持久化接口
//
// 持久化内容只有两项：连接标志与最近账户地址。
// 浏览器里这是 localStorage 的两个键，这里是配置目录下的一个JSON文件。
type Store interface {
	// Load 读取持久化会话；不存在返回 (nil, nil)
	Load() (*PersistedSession, error)

	// Save 写入持久化会话
	Save(s *PersistedSession) error

	// Clear 清除持久化会话（断开连接时调用，幂等）
	Clear() error
}

// PersistedSession 持久化的会话数据
type PersistedSession struct {
	Connected bool   `json:"connected"`
	Account   string `json:"account"`
	Provider  string `json:"provider"` // 上次使用的提供方名称
}

// fileStore 基于文件的会话存储
type fileStore struct {
	path string
}

// NewFileStore 创建文件会话存储
// path 通常是 ~/.vequora/session.json
func NewFileStore(path string) Store {
	return &fileStore{path: path}
}

func (fs *fileStore) Load() (*PersistedSession, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var s PersistedSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session file: %w", err)
	}
	return &s, nil
}

func (fs *fileStore) Save(s *PersistedSession) error {
	if err := os.MkdirAll(filepath.Dir(fs.path), 0700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(fs.path, data, 0600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (fs *fileStore) Clear() error {
	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// memoryStore 内存会话存储（测试用）
type memoryStore struct {
	s *PersistedSession
}

// NewMemoryStore 创建内存会话存储
func NewMemoryStore() Store {
	return &memoryStore{}
}

func (ms *memoryStore) Load() (*PersistedSession, error) {
	if ms.s == nil {
		return nil, nil
	}
	cp := *ms.s
	return &cp, nil
}

func (ms *memoryStore) Save(s *PersistedSession) error {
	cp := *s
	ms.s = &cp
	return nil
}

func (ms *memoryStore) Clear() error {
	ms.s = nil
	return nil
}
