package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server  HTTPServerConfig `json:"server"`
	Mongo   MongoConfig      `json:"mongo"`
	Metrics MetricsConfig    `json:"metrics"`
	LLM     LLMConfig        `json:"llm"`
	Store   StoreConfig      `json:"store"`
}

type HTTPServerConfig struct {
	Host         string        `json:"host" default:"0.0.0.0"`
	Port         int           `json:"port" default:"8080"`
	ReadTimeout  time.Duration `json:"read_timeout" default:"300s"`
	WriteTimeout time.Duration `json:"write_timeout" default:"300s"`
}

type MongoConfig struct {
	// URI empty disables the generation history entirely; the server then
	// runs stateless.
	URI      string `json:"uri"`
	Database string `json:"database" default:"iacgenius"`
}

type MetricsConfig struct {
	Addr string `json:"addr" default:":2112"`
}

type LLMConfig struct {
	OllamaBaseURL string `json:"ollama_base_url"`
	BedrockRegion string `json:"bedrock_region"`
}

type StoreConfig struct {
	// SettingsPath empty selects ~/.iacgeniusrc.
	SettingsPath string `json:"settings_path"`
}

// Load builds the configuration from the environment.
func Load() *Config {
	return &Config{
		Server: HTTPServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  5 * time.Minute,
			WriteTimeout: 5 * time.Minute,
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", ""),
			Database: getEnv("MONGO_DB", "iacgenius"),
		},
		Metrics: MetricsConfig{
			Addr: getEnv("METRICS_ADDR", ":2112"),
		},
		LLM: LLMConfig{
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", ""),
			BedrockRegion: getEnv("BEDROCK_REGION", ""),
		},
		Store: StoreConfig{
			SettingsPath: getEnv("IACGENIUS_CONFIG", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
