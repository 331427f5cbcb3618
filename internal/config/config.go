package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all the settings for the transcoder.
type Config struct {
	DatabaseURL string           `mapstructure:"database_url"`
	LogLevel    string           `mapstructure:"log_level"`
	JobService  JobServiceConfig `mapstructure:"job_service"`
	Output      OutputConfig     `mapstructure:"output"`
	Transcode   TranscodeConfig  `mapstructure:"transcode"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Kafka       KafkaConfig      `mapstructure:"kafka"`
	Server      ServerConfig     `mapstructure:"server"`
	Schedule    ScheduleConfig   `mapstructure:"schedule"`
}

// JobServiceConfig points at the external transcoding job API.
type JobServiceConfig struct {
	URL            string        `mapstructure:"url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RetryMax       int           `mapstructure:"retry_max"`
}

// OutputConfig decides where transcoded artifacts land and how they are addressed.
type OutputConfig struct {
	Destination string `mapstructure:"destination"` // e.g. s3://bucket/pool-videos/transcoded/
	PublicURL   string `mapstructure:"public_url"`  // e.g. https://cdn.example.com/pool-videos/transcoded/
}

// TranscodeConfig carries the orchestration tuning knobs.
type TranscodeConfig struct {
	BatchSize        int           `mapstructure:"batch_size"`
	WindowSize       int           `mapstructure:"window_size"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	MaxPollAttempts  int           `mapstructure:"max_poll_attempts"`
	CallDelay        time.Duration `mapstructure:"call_delay"`
	RateLimitBackoff time.Duration `mapstructure:"rate_limit_backoff"`
	MaxHeight        int           `mapstructure:"max_height"`
	OrphanTimeout    time.Duration `mapstructure:"orphan_timeout"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	StatsTTL time.Duration `mapstructure:"stats_ttl"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

type ScheduleConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// LoadConfig initializes Viper and merges all config sources.
// A missing file is fine; env vars (POOLTX_*) may carry everything.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// 1. Set Defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("job_service.url", "")
	v.SetDefault("job_service.api_key", "")
	v.SetDefault("job_service.request_timeout", 10*time.Second)
	v.SetDefault("job_service.retry_max", 3)
	v.SetDefault("output.destination", "")
	v.SetDefault("output.public_url", "")
	v.SetDefault("transcode.batch_size", 20)
	v.SetDefault("transcode.window_size", 5)
	v.SetDefault("transcode.poll_interval", 15*time.Second)
	v.SetDefault("transcode.max_poll_attempts", 60)
	v.SetDefault("transcode.call_delay", 500*time.Millisecond)
	v.SetDefault("transcode.rate_limit_backoff", 5*time.Second)
	v.SetDefault("transcode.max_height", 720)
	v.SetDefault("transcode.orphan_timeout", time.Hour)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stats_ttl", 30*time.Second)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "pool-video-transcoding")
	v.SetDefault("server.listen_addr", "127.0.0.1:8085")
	v.SetDefault("schedule.interval", 5*time.Minute)
	v.SetDefault("database_url", "")

	// 2. Read from File
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	// 3. Environment overrides, e.g. POOLTX_TRANSCODE_BATCH_SIZE
	v.SetEnvPrefix("POOLTX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings every entry point depends on.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database_url is required")
	}
	if c.JobService.URL == "" {
		return errors.New("job_service.url is required")
	}
	if c.Output.Destination == "" || c.Output.PublicURL == "" {
		return errors.New("output.destination and output.public_url are required")
	}
	if c.Schedule.Interval <= 0 {
		return fmt.Errorf("schedule.interval must be positive, got %s", c.Schedule.Interval)
	}
	return c.Transcode.Validate()
}

// Validate rejects tuning values that would stall or skip the pipeline.
func (t TranscodeConfig) Validate() error {
	switch {
	case t.BatchSize <= 0:
		return fmt.Errorf("transcode.batch_size must be positive, got %d", t.BatchSize)
	case t.WindowSize <= 0:
		return fmt.Errorf("transcode.window_size must be positive, got %d", t.WindowSize)
	case t.MaxPollAttempts <= 0:
		return fmt.Errorf("transcode.max_poll_attempts must be positive, got %d", t.MaxPollAttempts)
	case t.PollInterval < 0 || t.CallDelay < 0 || t.RateLimitBackoff < 0 || t.OrphanTimeout < 0:
		return errors.New("transcode durations must not be negative")
	case t.MaxHeight <= 0:
		return fmt.Errorf("transcode.max_height must be positive, got %d", t.MaxHeight)
	}
	return nil
}
