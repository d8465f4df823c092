package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath = "./configs/config.yaml"

	UploadModeReplace = "replace"
	UploadModeAppend  = "append"

	BackendFlat     = "flat"
	BackendChromem  = "chromem"
	BackendPGVector = "pgvector"

	StyleChat       = "chat"
	StyleCompletion = "completion"

	ProviderHuggingFace = "huggingface"
	ProviderOpenAI      = "openai"
	ProviderOllama      = "ollama"

	DefaultTemperature = 0.2

	tokenEnv = "HF_TOKEN"
	addrEnv  = "RAG_SERVER_ADDR"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	RAG       RAGConfig       `yaml:"rag"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Index     IndexConfig     `yaml:"index"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
	CORSOrigins    []string `yaml:"cors_origins"`
}

type RAGConfig struct {
	ChunkSize  int    `yaml:"chunk_size"`
	TopK       int    `yaml:"top_k"`
	UploadMode string `yaml:"upload_mode"`
}

// EmbeddingConfig selects the embedding provider. Dimension is enforced on
// every vector the provider returns.
type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"`
	BaseURL   string        `yaml:"base_url"`
	Model     string        `yaml:"model"`
	Token     string        `yaml:"token"`
	Dimension int           `yaml:"dimension"`
	Timeout   time.Duration `yaml:"timeout"`
}

// LLMConfig configures the answer generator. Temperature is a pointer so
// that an explicit 0 is kept; nil means DefaultTemperature.
type LLMConfig struct {
	Style       string        `yaml:"style"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Token       string        `yaml:"token"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature *float64      `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

func (c *LLMConfig) SamplingTemperature() float64 {
	if c.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Temperature
}

type IndexConfig struct {
	Backend    string `yaml:"backend"`
	Collection string `yaml:"collection"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// LoadConfig reads the YAML file at path. A missing file is not an error:
// defaults are used instead. Values from .env and the process environment
// are applied on top.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if token := os.Getenv(tokenEnv); token != "" {
		if cfg.Embedding.Token == "" {
			cfg.Embedding.Token = token
		}
		if cfg.LLM.Token == "" {
			cfg.LLM.Token = token
		}
	}
	if addr := os.Getenv(addrEnv); addr != "" {
		cfg.Server.Addr = addr
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		cfg.Server.MaxUploadBytes = 20 << 20
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}

	if cfg.RAG.ChunkSize <= 0 {
		cfg.RAG.ChunkSize = 500
	}
	if cfg.RAG.TopK <= 0 {
		cfg.RAG.TopK = 3
	}
	if cfg.RAG.UploadMode == "" {
		cfg.RAG.UploadMode = UploadModeReplace
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderHuggingFace
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if cfg.Embedding.BaseURL == "" && cfg.Embedding.Provider == ProviderHuggingFace {
		cfg.Embedding.BaseURL = "https://router.huggingface.co/hf-inference"
	}
	if cfg.Embedding.Dimension <= 0 {
		cfg.Embedding.Dimension = 384
	}
	if cfg.Embedding.Timeout <= 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}

	if cfg.LLM.Style == "" {
		cfg.LLM.Style = StyleChat
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "google/gemma-2-2b-it"
	}
	if cfg.LLM.BaseURL == "" {
		if cfg.LLM.Style == StyleCompletion {
			cfg.LLM.BaseURL = "https://router.huggingface.co/hf-inference"
		} else {
			cfg.LLM.BaseURL = "https://router.huggingface.co/v1"
		}
	}
	if cfg.LLM.MaxTokens <= 0 {
		cfg.LLM.MaxTokens = 200
	}
	if cfg.LLM.Temperature == nil {
		t := DefaultTemperature
		cfg.LLM.Temperature = &t
	}
	if cfg.LLM.Timeout <= 0 {
		cfg.LLM.Timeout = 60 * time.Second
	}

	if cfg.Index.Backend == "" {
		cfg.Index.Backend = BackendFlat
	}
	if cfg.Index.Collection == "" {
		cfg.Index.Collection = "document_chunks"
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "pgdriver"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate rejects configurations that would only fail on the first
// request, such as a remote provider without an API token.
func (c *Config) Validate() error {
	switch c.RAG.UploadMode {
	case UploadModeReplace, UploadModeAppend:
	default:
		return fmt.Errorf("unknown upload mode: %q", c.RAG.UploadMode)
	}

	switch c.Embedding.Provider {
	case ProviderHuggingFace, ProviderOpenAI:
		if c.Embedding.Token == "" {
			return fmt.Errorf("embedding provider %s requires a token (set %s)", c.Embedding.Provider, tokenEnv)
		}
	case ProviderOllama:
		if c.Embedding.BaseURL == "" {
			return errors.New("ollama embedding provider requires base_url")
		}
	default:
		return fmt.Errorf("unknown embedding provider: %q", c.Embedding.Provider)
	}

	switch c.LLM.Style {
	case StyleChat, StyleCompletion:
	default:
		return fmt.Errorf("unknown llm style: %q", c.LLM.Style)
	}
	if c.LLM.Token == "" {
		return fmt.Errorf("llm requires a token (set %s)", tokenEnv)
	}

	switch c.Index.Backend {
	case BackendFlat, BackendChromem:
	case BackendPGVector:
		if c.Database.DSN == "" {
			return errors.New("pgvector backend requires database.dsn")
		}
	default:
		return fmt.Errorf("unknown index backend: %q", c.Index.Backend)
	}
	return nil
}
