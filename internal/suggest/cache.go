package suggest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cv-editor/internal/logger"
	"cv-editor/internal/types"
)

// CacheVersion is written into every cache file.
const CacheVersion = "1.0"

// CacheEntry 单条建议缓存
type CacheEntry struct {
	Hash       string    `json:"hash"`
	Section    Section   `json:"section"`
	Original   string    `json:"original"`
	Suggestion string    `json:"suggestion"`
	CreatedAt  time.Time `json:"created_at"`
}

// CacheFile 缓存文件格式
type CacheFile struct {
	Version string       `json:"version"`
	Entries []CacheEntry `json:"entries"`
}

// Cache 负责缓存 AI 建议，键为分区与原文的 SHA256
type Cache struct {
	cachePath string
	entries   map[string]CacheEntry
	mu        sync.RWMutex
}

// NewCache creates an empty cache. An empty path keeps it in memory only.
func NewCache(cachePath string) *Cache {
	return &Cache{
		cachePath: cachePath,
		entries:   make(map[string]CacheEntry),
	}
}

// ComputeHash 计算缓存键
func ComputeHash(section Section, text string) string {
	hash := sha256.Sum256([]byte(string(section) + "\x00" + text))
	return hex.EncodeToString(hash[:])
}

// Get 获取缓存的建议
func (c *Cache) Get(section Section, text string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[ComputeHash(section, text)]
	if !ok {
		return "", false
	}
	return entry.Suggestion, true
}

// Set 设置建议缓存
func (c *Cache) Set(section Section, text, suggestion string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := ComputeHash(section, text)
	c.entries[hash] = CacheEntry{
		Hash:       hash,
		Section:    section,
		Original:   text,
		Suggestion: suggestion,
		CreatedAt:  time.Now(),
	}
}

// Load 从文件加载缓存；文件不存在时保持为空
func (c *Cache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cachePath == "" {
		return nil
	}

	data, err := os.ReadFile(c.cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return types.NewAppError(types.ErrCache, "failed to read suggestion cache", err)
	}

	var file CacheFile
	if err := json.Unmarshal(data, &file); err != nil {
		return types.NewAppError(types.ErrCache, "failed to parse suggestion cache", err)
	}
	if file.Version != CacheVersion {
		logger.Warn("ignoring suggestion cache with unknown version",
			logger.String("path", c.cachePath), logger.String("version", file.Version))
		return nil
	}

	c.entries = make(map[string]CacheEntry, len(file.Entries))
	for _, entry := range file.Entries {
		c.entries[entry.Hash] = entry
	}
	logger.Debug("suggestion cache loaded", logger.Int("entries", len(c.entries)))
	return nil
}

// Save 保存缓存到文件
func (c *Cache) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.cachePath == "" {
		return nil
	}

	entries := make([]CacheEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}
	data, err := json.MarshalIndent(CacheFile{Version: CacheVersion, Entries: entries}, "", "  ")
	if err != nil {
		return types.NewAppError(types.ErrCache, "failed to marshal suggestion cache", err)
	}

	if dir := filepath.Dir(c.cachePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return types.NewAppError(types.ErrCache, "failed to create cache directory", err)
		}
	}
	if err := os.WriteFile(c.cachePath, data, 0644); err != nil {
		return types.NewAppError(types.ErrCache, "failed to write suggestion cache", err)
	}
	return nil
}

// Size 返回缓存中的条目数量
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear 清空缓存
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]CacheEntry)
}

// CachedSuggester answers repeated requests from a Cache.
type CachedSuggester struct {
	inner   Suggester
	section Section
	cache   *Cache
	// Persist saves the cache after every new suggestion.
	Persist bool
}

// NewCachedSuggester decorates inner. The section keys the cache so the same
// text gets a separate entry per section.
func NewCachedSuggester(inner Suggester, section Section, cache *Cache) *CachedSuggester {
	if cache == nil {
		cache = NewCache("")
	}
	return &CachedSuggester{inner: inner, section: section, cache: cache}
}

// Suggest returns the cached suggestion or asks the wrapped suggester.
func (s *CachedSuggester) Suggest(ctx context.Context, currentText string) (string, error) {
	if cached, ok := s.cache.Get(s.section, currentText); ok {
		logger.Debug("suggestion cache hit", logger.String("section", string(s.section)))
		return cached, nil
	}

	suggestion, err := s.inner.Suggest(ctx, currentText)
	if err != nil {
		return "", err
	}
	s.cache.Set(s.section, currentText, suggestion)

	if s.Persist {
		if err := s.cache.Save(); err != nil {
			logger.Warn("failed to persist suggestion cache", logger.Err(err))
		}
	}
	return suggestion, nil
}
