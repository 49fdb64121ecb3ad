package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"mailfilter/pkg/config"
)

type EnrichConfig struct {
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	Concurrency int           `yaml:"concurrency"`
}

type ForwardConfig struct {
	// 去重窗口
	DedupTTL time.Duration `yaml:"dedup_ttl"`
}

type WorkerConfig struct {
	Queue           string        `yaml:"queue"`
	MaxRedeliveries int64         `yaml:"max_redeliveries"`
	RetryTTL        time.Duration `yaml:"retry_ttl"`
}

type MockConfig struct {
	Seed int64 `yaml:"seed"`
}

type Config struct {
	Server  config.ServerConfig  `yaml:"server"`
	Log     config.LogConfig     `yaml:"log"`
	MQ      config.MQConfig      `yaml:"mq"`
	Redis   config.RedisConfig   `yaml:"redis"`
	AI      config.AIConfig      `yaml:"ai"`
	Retry   config.RetryConfig   `yaml:"retry"`
	Breaker config.BreakerConfig `yaml:"breaker"`
	Enrich  EnrichConfig         `yaml:"enrich"`
	Forward ForwardConfig        `yaml:"forward"`
	Worker  WorkerConfig         `yaml:"worker"`
	Mock    MockConfig           `yaml:"mock"`
}

// Default is the configuration used for anything the files leave out.
func Default() Config {
	return Config{
		Server: config.ServerConfig{Port: ":8080", Mode: "release"},
		Log:    config.LogConfig{Level: "info"},
		Redis:  config.RedisConfig{Addr: "localhost:6379"},
		AI: config.AIConfig{
			Model:   "gemini-2.5-flash",
			Timeout: 30 * time.Second,
		},
		Retry: config.RetryConfig{
			MaxRetries: intPtr(2),
			BaseDelay:  1000 * time.Millisecond,
			Multiplier: 2.0,
		},
		Breaker: config.BreakerConfig{
			FailureThreshold:    5,
			SuccessThreshold:    2,
			Timeout:             30 * time.Second,
			HalfOpenMaxRequests: 3,
		},
		Enrich:  EnrichConfig{CacheTTL: 24 * time.Hour, Concurrency: 4},
		Forward: ForwardConfig{DedupTTL: 24 * time.Hour},
		Worker: WorkerConfig{
			Queue:           "mailfilter.enrich",
			MaxRedeliveries: 5,
			RetryTTL:        time.Hour,
		},
		Mock: MockConfig{Seed: 1},
	}
}

func intPtr(n int) *int { return &n }

// Load reads <dir>/base.yaml merged with the CONFIG_ENV overlay, then applies
// environment overrides.
func Load(dir string) (*Config, error) {
	cfg := Default()
	env := config.GetConfigEnv()
	if err := config.Decode(env, dir, &cfg); err != nil {
		return nil, fmt.Errorf("load %s config: %w", env, err)
	}

	// 环境变量覆盖
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideLogFromEnv(&cfg.Log)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideAIFromEnv(&cfg.AI)
	if v := os.Getenv("MOCK_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Mock.Seed = n
		}
	}
	return &cfg, nil
}
