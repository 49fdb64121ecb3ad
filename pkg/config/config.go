package config

import (
	"os"
	"strconv"
	"time"
)

// MQConfig 消息队列配置
type MQConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // gin mode: debug, release, test
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `yaml:"level"`
}

// AIConfig describes the generative provider used for enrichment.
type AIConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// RetryConfig is the policy of the resilient call wrapper.
type RetryConfig struct {
	// MaxRetries nil keeps the default, 0 disables retries.
	MaxRetries *int          `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	Multiplier float64       `yaml:"multiplier"`
}

// BreakerConfig 熔断器配置
type BreakerConfig struct {
	FailureThreshold    int           `yaml:"failure_threshold"`
	SuccessThreshold    int           `yaml:"success_threshold"`
	Timeout             time.Duration `yaml:"timeout"`
	HalfOpenMaxRequests int           `yaml:"half_open_max_requests"`
}

// OverrideMQFromEnv 从环境变量覆盖MQ配置
func OverrideMQFromEnv(cfg *MQConfig) {
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
}

// OverrideRedisFromEnv 从环境变量覆盖Redis配置
func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			cfg.DB = n
		}
	}
}

// OverrideServerFromEnv 从环境变量覆盖服务器配置
func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		cfg.Mode = mode
	}
}

func OverrideLogFromEnv(cfg *LogConfig) {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Level = level
	}
}

// OverrideAIFromEnv 从环境变量覆盖 AI 配置。API_KEY is honoured as well
// as AI_API_KEY.
func OverrideAIFromEnv(cfg *AIConfig) {
	if key := os.Getenv("API_KEY"); key != "" {
		cfg.APIKey = key
	}
	if key := os.Getenv("AI_API_KEY"); key != "" {
		cfg.APIKey = key
	}
	if url := os.Getenv("AI_BASE_URL"); url != "" {
		cfg.BaseURL = url
	}
	if model := os.Getenv("AI_MODEL"); model != "" {
		cfg.Model = model
	}
}
