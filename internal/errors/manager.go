// Package errors provides a persistent ledger of failed edits.
package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// ErrorStage 错误阶段枚举
type ErrorStage string

const (
	StageLocate  ErrorStage = "locate"  // 文本定位阶段
	StageRender  ErrorStage = "render"  // 背景采样渲染阶段
	StageReplace ErrorStage = "replace" // 替换绘制阶段
	StageSave    ErrorStage = "save"    // 保存阶段
	StageSuggest ErrorStage = "suggest" // AI 建议阶段
)

// ErrorRecord 错误记录
type ErrorRecord struct {
	ID          string     `json:"id"`          // 文档 ID
	Input       string     `json:"input"`       // 触发失败的输入（搜索文本等）
	Stage       ErrorStage `json:"stage"`       // 出错阶段
	ErrorMsg    string     `json:"error_msg"`   // 错误信息
	Timestamp   time.Time  `json:"timestamp"`   // 最近一次发生时间
	FirstSeen   time.Time  `json:"first_seen"`  // 第一次发生时间
	Occurrences int        `json:"occurrences"` // 发生次数
}

// ErrorManager 错误管理器
type ErrorManager struct {
	baseDir string
	mu      sync.RWMutex
	errors  map[string]*ErrorRecord // key: ID
}

// NewErrorManager 创建新的错误管理器
func NewErrorManager(baseDir string) (*ErrorManager, error) {
	if baseDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".cv-editor", "errors")
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create errors directory: %w", err)
	}

	em := &ErrorManager{
		baseDir: baseDir,
		errors:  make(map[string]*ErrorRecord),
	}
	if err := em.load(); err != nil {
		return nil, err
	}
	return em, nil
}

// RecordError 记录错误，同一文档重复失败时累加次数
func (em *ErrorManager) RecordError(id, input string, stage ErrorStage, errorMsg string) error {
	em.mu.Lock()
	defer em.mu.Unlock()

	now := time.Now()
	record := &ErrorRecord{
		ID:          id,
		Input:       input,
		Stage:       stage,
		ErrorMsg:    errorMsg,
		Timestamp:   now,
		FirstSeen:   now,
		Occurrences: 1,
	}
	if existing, ok := em.errors[id]; ok {
		record.FirstSeen = existing.FirstSeen
		record.Occurrences = existing.Occurrences + 1
	}
	em.errors[id] = record

	return em.save()
}

// RemoveError 移除错误记录（编辑成功后）
func (em *ErrorManager) RemoveError(id string) error {
	em.mu.Lock()
	defer em.mu.Unlock()

	if _, ok := em.errors[id]; !ok {
		return nil
	}
	delete(em.errors, id)
	return em.save()
}

// ListErrors lists all records, most recent first.
func (em *ErrorManager) ListErrors() []*ErrorRecord {
	em.mu.RLock()
	defer em.mu.RUnlock()

	records := make([]*ErrorRecord, 0, len(em.errors))
	for _, record := range em.errors {
		recordCopy := *record
		records = append(records, &recordCopy)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].ID < records[j].ID
		}
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return records
}

// ListByStage 列出某一阶段的错误记录
func (em *ErrorManager) ListByStage(stage ErrorStage) []*ErrorRecord {
	var out []*ErrorRecord
	for _, record := range em.ListErrors() {
		if record.Stage == stage {
			out = append(out, record)
		}
	}
	return out
}

// GetError 获取特定错误记录
func (em *ErrorManager) GetError(id string) (*ErrorRecord, bool) {
	em.mu.RLock()
	defer em.mu.RUnlock()

	record, ok := em.errors[id]
	if !ok {
		return nil, false
	}
	recordCopy := *record
	return &recordCopy, true
}

// ClearAll 清除所有错误记录
func (em *ErrorManager) ClearAll() error {
	em.mu.Lock()
	defer em.mu.Unlock()

	em.errors = make(map[string]*ErrorRecord)
	return em.save()
}

func (em *ErrorManager) load() error {
	filePath := filepath.Join(em.baseDir, "errors.json")

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read errors file: %w", err)
	}

	var records []*ErrorRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to unmarshal errors: %w", err)
	}
	for _, record := range records {
		em.errors[record.ID] = record
	}
	return nil
}

// save 保存错误记录到文件，调用方需持有锁
func (em *ErrorManager) save() error {
	records := make([]*ErrorRecord, 0, len(em.errors))
	for _, record := range em.errors {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal errors: %w", err)
	}

	filePath := filepath.Join(em.baseDir, "errors.json")
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write errors file: %w", err)
	}
	return nil
}

// GetStageDisplayName 获取阶段的显示名称
func GetStageDisplayName(stage ErrorStage) string {
	switch stage {
	case StageLocate:
		return "文本定位"
	case StageRender:
		return "背景采样"
	case StageReplace:
		return "文本替换"
	case StageSave:
		return "保存"
	case StageSuggest:
		return "AI 建议"
	default:
		return string(stage)
	}
}
