// Package config loads and saves the cv-editor JSON configuration.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"cv-editor/internal/logger"
	"cv-editor/internal/types"
)

const (
	// DefaultConfigFileName is the default configuration file name
	DefaultConfigFileName = "cv-editor-config.json"
	// EnvOpenAIAPIKey is the environment variable name for OpenAI API key
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	// EnvOpenAIBaseURL is the environment variable name for OpenAI base URL
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	// EnvOpenAIModel overrides the configured chat model when the file leaves it empty
	EnvOpenAIModel = "OPENAI_MODEL"
	// EnvRasterizer selects the background rasterizer
	EnvRasterizer = "CVEDIT_RASTERIZER"
	// EnvPdftoppm points at a pdftoppm binary
	EnvPdftoppm = "CVEDIT_PDFTOPPM"

	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultModel is the default OpenAI model to use
	DefaultModel = "gpt-4o-mini"
	// DefaultRasterizer prefers pdftoppm and falls back to the built-in renderer
	DefaultRasterizer = "auto"
	// DefaultHistoryMaxVersions 每个文档默认保留的历史版本数
	DefaultHistoryMaxVersions = 10
	// DefaultLogFile is the log file used when none is configured
	DefaultLogFile = "cv-editor.log"
)

// ConfigManager manages application configuration
type ConfigManager struct {
	configPath string
	config     *types.Config
}

// NewConfigManager creates a new ConfigManager with the specified config path.
// If configPath is empty, it uses the default path in user's home directory.
func NewConfigManager(configPath string) (*ConfigManager, error) {
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			logger.Error("failed to get user home directory", err)
			return nil, types.NewAppError(types.ErrConfig, "failed to get user home directory", err)
		}
		configPath = filepath.Join(homeDir, ".config", "cv-editor", DefaultConfigFileName)
	}

	logger.Debug("ConfigManager initialized", logger.String("configPath", configPath))
	return &ConfigManager{
		configPath: configPath,
		config:     defaultConfig(),
	}, nil
}

// defaultConfig returns a Config with default values
func defaultConfig() *types.Config {
	return &types.Config{
		OpenAIBaseURL:      DefaultBaseURL,
		OpenAIModel:        DefaultModel,
		Rasterizer:         DefaultRasterizer,
		AllowScaling:       true,
		AllowWrapping:      false,
		AllowTruncation:    true,
		HistoryMaxVersions: DefaultHistoryMaxVersions,
		LogFile:            DefaultLogFile,
		LogLevel:           "info",
	}
}

// Load loads configuration from the config file.
// Missing keys keep their defaults; a missing or malformed file yields the defaults.
func (m *ConfigManager) Load() error {
	logger.Debug("loading configuration", logger.String("path", m.configPath))

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error("failed to read config file", err, logger.String("path", m.configPath))
			return types.NewAppError(types.ErrConfig, "failed to read config file", err)
		}
		logger.Info("config file not found, using defaults", logger.String("path", m.configPath))
		m.config = defaultConfig()
	} else {
		config := defaultConfig()
		if err := json.Unmarshal(data, config); err != nil {
			logger.Warn("invalid config file format, using defaults", logger.String("path", m.configPath), logger.Err(err))
			m.config = defaultConfig()
		} else {
			logger.Info("configuration loaded successfully",
				logger.String("path", m.configPath),
				logger.Int("apiKeyLength", len(config.OpenAIAPIKey)),
				logger.String("model", config.OpenAIModel),
				logger.String("rasterizer", config.Rasterizer))
			m.config = config
		}
	}

	// Apply defaults for empty fields
	if m.config.OpenAIModel == "" {
		m.config.OpenAIModel = DefaultModel
	}
	if m.config.Rasterizer == "" {
		m.config.Rasterizer = DefaultRasterizer
	}
	if m.config.HistoryMaxVersions <= 0 {
		m.config.HistoryMaxVersions = DefaultHistoryMaxVersions
	}
	if m.config.LogFile == "" {
		m.config.LogFile = DefaultLogFile
	}
	return nil
}

// Save saves the current configuration to the config file.
func (m *ConfigManager) Save() error {
	logger.Debug("saving configuration", logger.String("path", m.configPath))

	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("failed to create config directory", err, logger.String("dir", dir))
		return types.NewAppError(types.ErrConfig, "failed to create config directory", err)
	}

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		logger.Error("failed to marshal config", err)
		return types.NewAppError(types.ErrConfig, "failed to marshal config", err)
	}

	// 0600: the file may hold an API key
	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		logger.Error("failed to write config file", err, logger.String("path", m.configPath))
		return types.NewAppError(types.ErrConfig, "failed to write config file", err)
	}

	logger.Info("configuration saved successfully", logger.String("path", m.configPath))
	return nil
}

// GetConfig returns the current configuration.
func (m *ConfigManager) GetConfig() *types.Config {
	if m.config == nil {
		return defaultConfig()
	}
	return m.config
}

// SetConfig sets the entire configuration.
func (m *ConfigManager) SetConfig(config *types.Config) {
	m.config = config
}

// GetConfigPath returns the path to the config file.
func (m *ConfigManager) GetConfigPath() string {
	return m.configPath
}

// GetAPIKey returns the OpenAI API key.
// It first checks the config file value, then falls back to the environment variable.
func (m *ConfigManager) GetAPIKey() string {
	if m.config != nil && m.config.OpenAIAPIKey != "" {
		return m.config.OpenAIAPIKey
	}
	return os.Getenv(EnvOpenAIAPIKey)
}

// SetAPIKey sets the OpenAI API key and saves the configuration.
func (m *ConfigManager) SetAPIKey(key string) error {
	logger.Info("setting API key")
	if m.config == nil {
		m.config = defaultConfig()
	}
	m.config.OpenAIAPIKey = key
	return m.Save()
}

// GetBaseURL returns the OpenAI API base URL.
// A non-default config value wins, then the environment, then the default.
func (m *ConfigManager) GetBaseURL() string {
	if m.config != nil && m.config.OpenAIBaseURL != "" && m.config.OpenAIBaseURL != DefaultBaseURL {
		return m.config.OpenAIBaseURL
	}
	if envURL := os.Getenv(EnvOpenAIBaseURL); envURL != "" {
		return envURL
	}
	return DefaultBaseURL
}

// GetModel returns the OpenAI model to use.
func (m *ConfigManager) GetModel() string {
	if m.config != nil && m.config.OpenAIModel != "" && m.config.OpenAIModel != DefaultModel {
		return m.config.OpenAIModel
	}
	if envModel := os.Getenv(EnvOpenAIModel); envModel != "" {
		return envModel
	}
	return DefaultModel
}

// GetRasterizer returns the rasterizer name, lower-cased.
// CVEDIT_RASTERIZER overrides the "auto" default.
func (m *ConfigManager) GetRasterizer() string {
	name := DefaultRasterizer
	if m.config != nil && m.config.Rasterizer != "" {
		name = m.config.Rasterizer
	}
	if name == DefaultRasterizer {
		if env := os.Getenv(EnvRasterizer); env != "" {
			name = env
		}
	}
	return strings.ToLower(strings.TrimSpace(name))
}

// GetPdftoppmPath returns the configured pdftoppm binary, if any.
func (m *ConfigManager) GetPdftoppmPath() string {
	if m.config != nil && m.config.PdftoppmPath != "" {
		return m.config.PdftoppmPath
	}
	return os.Getenv(EnvPdftoppm)
}

// GetHistoryDir returns the version history directory.
// Defaults to ~/.cv-editor/history.
func (m *ConfigManager) GetHistoryDir() string {
	if m.config != nil && m.config.HistoryDir != "" {
		return m.config.HistoryDir
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "cv-editor", "history")
	}
	return filepath.Join(homeDir, ".cv-editor", "history")
}

// GetHistoryMaxVersions returns how many versions are kept per document.
func (m *ConfigManager) GetHistoryMaxVersions() int {
	if m.config != nil && m.config.HistoryMaxVersions > 0 {
		return m.config.HistoryMaxVersions
	}
	return DefaultHistoryMaxVersions
}

// GetLogLevel parses the configured log level.
func (m *ConfigManager) GetLogLevel() logger.Level {
	if m.config == nil {
		return logger.LevelInfo
	}
	level, ok := logger.ParseLevel(m.config.LogLevel)
	if !ok && m.config.LogLevel != "" {
		logger.Warn("unknown log level, using info", logger.String("logLevel", m.config.LogLevel))
	}
	return level
}

// UpdateConfig updates the OpenAI settings and saves the configuration.
// Empty values leave the current setting unchanged.
func (m *ConfigManager) UpdateConfig(apiKey, baseURL, model, rasterizer string) error {
	logger.Info("updating configuration")
	if m.config == nil {
		m.config = defaultConfig()
	}
	if apiKey != "" {
		m.config.OpenAIAPIKey = apiKey
	}
	if baseURL != "" {
		m.config.OpenAIBaseURL = baseURL
	}
	if model != "" {
		m.config.OpenAIModel = model
	}
	if rasterizer != "" {
		m.config.Rasterizer = rasterizer
	}
	return m.Save()
}
