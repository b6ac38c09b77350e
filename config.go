package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config holds application configuration from ~/.chromadmin/config.json
type Config struct {
	ListenAddr        string         `json:"listen_addr,omitempty"`
	SessionTTLMinutes int            `json:"session_ttl_minutes,omitempty"`
	DataDir           string         `json:"data_dir,omitempty"` // empty keeps the local store in memory
	LogFile           string         `json:"log_file,omitempty"`
	Production        bool           `json:"production,omitempty"`
	EmbeddingProvider string         `json:"embedding_provider,omitempty"` // "hash", "gemini" or "lmstudio"
	Remote            RemoteConfig   `json:"remote,omitempty"`
	Gemini            GeminiConfig   `json:"gemini,omitempty"`
	LMStudio          LMStudioConfig `json:"lmstudio,omitempty"`
}

// RemoteConfig holds defaults for Remote connections.
type RemoteConfig struct {
	Host           string `json:"host,omitempty"`
	Port           int    `json:"port,omitempty"`
	Tenant         string `json:"tenant,omitempty"`
	Database       string `json:"database,omitempty"`
	UseTLS         bool   `json:"use_tls"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// GeminiConfig holds Gemini model settings.
type GeminiConfig struct {
	APIKey         string `json:"api_key,omitempty"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
}

// LMStudioConfig holds LM Studio connection settings.
type LMStudioConfig struct {
	BaseURL        string `json:"base_url,omitempty"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
}

// DefaultConfigPath returns ~/.chromadmin/config.json.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".chromadmin", "config.json"), nil
}

// LoadConfig reads configuration from configPath, then applies .env and
// environment overrides and fills defaults. A missing file is not an error.
func LoadConfig(configPath string, logger *zap.Logger) (*Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := godotenv.Load(); err != nil {
		logger.Debug(".env file not found, using process environment")
	}

	cfg := &Config{}
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
		}
		logger.Info("loaded config", zap.String("path", configPath))
	case os.IsNotExist(err):
		logger.Info("config file not found, using defaults and environment variables", zap.String("path", configPath))
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (cfg *Config) applyEnv() {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(dst *bool, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v == "1" || v == "true"
		}
	}

	setString(&cfg.ListenAddr, "CHROMADMIN_ADDR")
	setInt(&cfg.SessionTTLMinutes, "CHROMADMIN_SESSION_TTL_MINUTES")
	setString(&cfg.DataDir, "CHROMADMIN_DATA_DIR")
	setString(&cfg.LogFile, "CHROMADMIN_LOG_FILE")
	setBool(&cfg.Production, "CHROMADMIN_PRODUCTION")
	setString(&cfg.EmbeddingProvider, "EMBEDDING_PROVIDER")

	setString(&cfg.Remote.Host, "CHROMA_HOST")
	setInt(&cfg.Remote.Port, "CHROMA_PORT")
	setString(&cfg.Remote.Tenant, "CHROMA_TENANT")
	setString(&cfg.Remote.Database, "CHROMA_DATABASE")
	setBool(&cfg.Remote.UseTLS, "CHROMA_SSL")
	setInt(&cfg.Remote.TimeoutSeconds, "CHROMA_TIMEOUT_SECONDS")

	setString(&cfg.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&cfg.Gemini.EmbeddingModel, "GEMINI_EMBEDDING_MODEL")
	setString(&cfg.LMStudio.BaseURL, "LMSTUDIO_BASE_URL")
	setString(&cfg.LMStudio.EmbeddingModel, "LMSTUDIO_EMBEDDING_MODEL")
}

func (cfg *Config) applyDefaults() {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.SessionTTLMinutes <= 0 {
		cfg.SessionTTLMinutes = DefaultSessionTTLMinutes
	}
	if cfg.LogFile == "" {
		cfg.LogFile = DefaultLogFile
	}
	if cfg.EmbeddingProvider == "" {
		cfg.EmbeddingProvider = EmbeddingProviderHash
	}

	if cfg.Remote.Host == "" {
		cfg.Remote.Host = DefaultRemoteHost
	}
	if cfg.Remote.Port == 0 {
		cfg.Remote.Port = DefaultRemotePort
	}
	if cfg.Remote.Tenant == "" {
		cfg.Remote.Tenant = DefaultTenant
	}
	if cfg.Remote.Database == "" {
		cfg.Remote.Database = DefaultDatabase
	}
	if cfg.Remote.TimeoutSeconds <= 0 {
		cfg.Remote.TimeoutSeconds = DefaultRemoteTimeoutSeconds
	}

	if cfg.Gemini.EmbeddingModel == "" {
		cfg.Gemini.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.EmbeddingProvider == EmbeddingProviderLMStudio {
		if cfg.LMStudio.BaseURL == "" {
			cfg.LMStudio.BaseURL = DefaultLMStudioURL
		}
		if cfg.LMStudio.EmbeddingModel == "" {
			cfg.LMStudio.EmbeddingModel = DefaultLMStudioModel
		}
	}
}

// SessionTTL is the sliding inactivity window of a browser session.
func (cfg *Config) SessionTTL() time.Duration {
	return time.Duration(cfg.SessionTTLMinutes) * time.Minute
}

// RemoteTimeout bounds every call to a remote store.
func (cfg *Config) RemoteTimeout() time.Duration {
	return time.Duration(cfg.Remote.TimeoutSeconds) * time.Second
}
