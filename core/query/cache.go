package query

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"

	"github.com/vequora/client-sdk-go/pkg/ux/ui"
)

// Cache 查询响应缓存
//
// 基于BigCache的短TTL缓存，缓存对象为序列化后的RPC响应。
// 缓存只是性能优化：任何路径上缓存失败都退化为直接查链，绝不让读失败。
type Cache struct {
	cache  *bigcache.BigCache
	logger ui.Logger
	mutex  sync.RWMutex
	keySet map[string]bool // 维护键集合以支持前缀失效
}

// CacheConfig 缓存配置
type CacheConfig struct {
	TTL               time.Duration // 条目生命周期，默认15秒
	CleanWindow       time.Duration // 过期清理周期，默认1分钟
	MaxEntrySizeBytes int           // 单条目上限，默认64KB
}

// NewCache 创建查询缓存
func NewCache(cfg CacheConfig, logger ui.Logger) (*Cache, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Second
	}
	if cfg.CleanWindow <= 0 {
		cfg.CleanWindow = time.Minute
	}
	if cfg.MaxEntrySizeBytes <= 0 {
		cfg.MaxEntrySizeBytes = 64 * 1024
	}
	if logger == nil {
		logger = ui.NoopLogger()
	}

	bcConfig := bigcache.DefaultConfig(cfg.TTL)
	bcConfig.CleanWindow = cfg.CleanWindow
	bcConfig.MaxEntrySize = cfg.MaxEntrySizeBytes
	bcConfig.Verbose = false

	cache, err := bigcache.New(context.Background(), bcConfig)
	if err != nil {
		return nil, err
	}

	return &Cache{
		cache:  cache,
		logger: logger,
		keySet: make(map[string]bool),
	}, nil
}

// Get 读取缓存；未命中返回 (nil, false)
func (c *Cache) Get(key string) ([]byte, bool) {
	data, err := c.cache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set 写入缓存（失败只记日志）
func (c *Cache) Set(key string, value []byte) {
	if err := c.cache.Set(key, value); err != nil {
		c.logger.Debugf("cache set %s: %v", key, err)
		return
	}
	c.mutex.Lock()
	c.keySet[key] = true
	c.mutex.Unlock()
}

// Delete 删除单个键
func (c *Cache) Delete(key string) {
	if err := c.cache.Delete(key); err != nil && err != bigcache.ErrEntryNotFound {
		c.logger.Debugf("cache delete %s: %v", key, err)
	}
	c.mutex.Lock()
	delete(c.keySet, key)
	c.mutex.Unlock()
}

// InvalidatePrefix 失效一个实体键及其派生视图键
//
// 命中规则以冒号为界：键与prefix完全相等，或以 prefix+":" 开头。
// "question:1" 命中 "question:1" 与 "question:1:answers"，
// 不误伤 "question:12"，写动作只失效真正受影响的条目。
func (c *Cache) InvalidatePrefix(prefix string) int {
	scoped := prefix + ":"

	c.mutex.Lock()
	var victims []string
	for key := range c.keySet {
		if key == prefix || strings.HasPrefix(key, scoped) {
			victims = append(victims, key)
			delete(c.keySet, key)
		}
	}
	c.mutex.Unlock()

	for _, key := range victims {
		if err := c.cache.Delete(key); err != nil && err != bigcache.ErrEntryNotFound {
			c.logger.Debugf("cache invalidate %s: %v", key, err)
		}
	}
	return len(victims)
}

// Close 关闭缓存并释放资源
func (c *Cache) Close() error {
	c.mutex.Lock()
	c.keySet = make(map[string]bool)
	c.mutex.Unlock()
	return c.cache.Close()
}
