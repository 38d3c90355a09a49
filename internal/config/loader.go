package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	env "github.com/caarlos0/env/v9"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "CHATD_"

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr        string `json:"addr" yaml:"addr" toml:"addr" env:"ADDR"`
	CacheDir    string `json:"cache_dir" yaml:"cache_dir" toml:"cache_dir" env:"CACHE_DIR"`
	CatalogPath string `json:"catalog_path" yaml:"catalog_path" toml:"catalog_path" env:"CATALOG_PATH"`

	// Model hubs
	HFEndpoint          string `json:"hf_endpoint" yaml:"hf_endpoint" toml:"hf_endpoint" env:"HF_ENDPOINT"`
	ModelScopeEndpoint  string `json:"modelscope_endpoint" yaml:"modelscope_endpoint" toml:"modelscope_endpoint" env:"MODELSCOPE_ENDPOINT"`
	HubToken            string `json:"hub_token" yaml:"hub_token" toml:"hub_token" env:"HUB_TOKEN"`
	HubRevision         string `json:"hub_revision" yaml:"hub_revision" toml:"hub_revision" env:"HUB_REVISION"`
	DownloadConcurrency int    `json:"download_concurrency" yaml:"download_concurrency" toml:"download_concurrency" env:"DOWNLOAD_CONCURRENCY"`
	DownloadRetries     int    `json:"download_retries" yaml:"download_retries" toml:"download_retries" env:"DOWNLOAD_RETRIES"`

	// Runtime: "llama-server" (default) or "llama" (in-process, needs -tags=llama)
	Backend        string   `json:"backend" yaml:"backend" toml:"backend" env:"BACKEND"`
	LlamaBin       string   `json:"llama_bin" yaml:"llama_bin" toml:"llama_bin" env:"LLAMA_BIN"`
	LlamaHost      string   `json:"llama_host" yaml:"llama_host" toml:"llama_host" env:"LLAMA_HOST"`
	LlamaPortStart int      `json:"llama_port_start" yaml:"llama_port_start" toml:"llama_port_start" env:"LLAMA_PORT_START"`
	LlamaPortEnd   int      `json:"llama_port_end" yaml:"llama_port_end" toml:"llama_port_end" env:"LLAMA_PORT_END"`
	LlamaCtxSize   int      `json:"llama_ctx_size" yaml:"llama_ctx_size" toml:"llama_ctx_size" env:"LLAMA_CTX_SIZE"`
	LlamaNGL       int      `json:"llama_ngl" yaml:"llama_ngl" toml:"llama_ngl" env:"LLAMA_NGL"`
	LlamaThreads   int      `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads" env:"LLAMA_THREADS"`
	LlamaExtraArgs []string `json:"llama_extra_args" yaml:"llama_extra_args" toml:"llama_extra_args" env:"LLAMA_EXTRA_ARGS" envSeparator:" "`

	// Admission
	MaxQueueDepth  int   `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth" env:"MAX_QUEUE_DEPTH"`
	MaxWaitSeconds int   `json:"max_wait_seconds" yaml:"max_wait_seconds" toml:"max_wait_seconds" env:"MAX_WAIT_SECONDS"`
	MaxBodyBytes   int64 `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes" env:"MAX_BODY_BYTES"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format" env:"LOG_FORMAT"`

	CORSEnabled *bool    `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled" env:"CORS_ENABLED"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`

	RejectImageForTextModels bool `json:"reject_image_for_text_models" yaml:"reject_image_for_text_models" toml:"reject_image_for_text_models" env:"REJECT_IMAGE_FOR_TEXT_MODELS"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyEnv overlays CHATD_* environment variables onto cfg. Unset variables leave fields alone.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}
