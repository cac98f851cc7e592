// Package suggest asks a chat model for improved wording of CV text.
package suggest

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"

	"cv-editor/internal/logger"
	"cv-editor/internal/types"
)

// Suggester proposes replacement text for a piece of CV text.
type Suggester interface {
	Suggest(ctx context.Context, currentText string) (string, error)
}

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gpt-4o-mini"

// Config 创建 OpenAI 兼容模型所需的配置
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// Timeout bounds one request; zero leaves it to the caller's context.
	Timeout time.Duration
}

// ChatSuggester rewrites text for one CV section with a chat model.
type ChatSuggester struct {
	model     model.BaseChatModel
	section   Section
	template  prompt.ChatTemplate
	modelName string
}

// NewChatSuggester wraps an existing chat model.
func NewChatSuggester(cm model.BaseChatModel, section Section) *ChatSuggester {
	if section == "" {
		section = SectionFreetext
	}
	return &ChatSuggester{
		model:    cm,
		section:  section,
		template: newTemplate(),
	}
}

// NewOpenAISuggester creates a ChatSuggester backed by an OpenAI compatible API.
func NewOpenAISuggester(ctx context.Context, cfg Config, section Section) (*ChatSuggester, error) {
	if cfg.APIKey == "" {
		return nil, types.NewAppError(types.ErrConfig, "OpenAI API key is not configured", nil)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	chatModelConfig := &openai.ChatModelConfig{
		Model:  cfg.Model,
		APIKey: cfg.APIKey,
	}
	if cfg.BaseURL != "" {
		chatModelConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		chatModelConfig.Timeout = cfg.Timeout
	}

	chatModel, err := openai.NewChatModel(ctx, chatModelConfig)
	if err != nil {
		return nil, types.NewAppError(types.ErrAPICall, "failed to create chat model", err)
	}

	s := NewChatSuggester(chatModel, section)
	s.modelName = cfg.Model
	return s, nil
}

// Section returns the section this suggester writes for.
func (s *ChatSuggester) Section() Section {
	return s.section
}

// Suggest 生成改写后的文本
func (s *ChatSuggester) Suggest(ctx context.Context, currentText string) (string, error) {
	if strings.TrimSpace(currentText) == "" {
		return "", types.NewAppError(types.ErrInvalidInput, "text to improve is empty", nil)
	}

	messages, err := s.template.Format(ctx, templateVars(s.section, currentText))
	if err != nil {
		return "", types.NewAppError(types.ErrSuggest, "failed to format prompt", err)
	}

	logger.Debug("requesting suggestion",
		logger.String("section", string(s.section)),
		logger.String("model", s.modelName),
		logger.Int("chars", len([]rune(currentText))))

	start := time.Now()
	resp, err := s.model.Generate(ctx, messages)
	if err != nil {
		logger.Error("suggestion request failed", err, logger.String("section", string(s.section)))
		return "", types.NewAppError(types.ErrSuggest, "chat model request failed", err)
	}
	if resp == nil {
		return "", types.NewAppError(types.ErrSuggest, "chat model returned no message", nil)
	}

	suggestion := cleanSuggestion(resp.Content)
	if suggestion == "" {
		return "", types.NewAppError(types.ErrSuggest, "chat model returned an empty suggestion", nil)
	}

	logger.Info("suggestion received",
		logger.String("section", string(s.section)),
		logger.Duration("elapsed", time.Since(start)))
	return suggestion, nil
}

var quotePairs = [][2]string{
	{`"`, `"`},
	{`'`, `'`},
	{"`", "`"},
	{"“", "”"},
	{"‘", "’"},
	{"«", "»"},
}

// cleanSuggestion trims whitespace and one layer of surrounding quotes.
func cleanSuggestion(s string) string {
	s = strings.TrimSpace(s)
	for _, q := range quotePairs {
		if len(s) >= len(q[0])+len(q[1]) && strings.HasPrefix(s, q[0]) && strings.HasSuffix(s, q[1]) {
			return strings.TrimSpace(s[len(q[0]) : len(s)-len(q[1])])
		}
	}
	return s
}
