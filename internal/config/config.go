// Package config loads the engine's YAML configuration with environment
// overrides for secrets.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the outreach engine.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	SES        SESConfig        `yaml:"ses"`
	Content    ContentConfig    `yaml:"content"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Gate       GateConfig       `yaml:"gate"`
	Brand      BrandConfig      `yaml:"brand"`
	Segments   SegmentsConfig   `yaml:"segments"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	LogLevel   string           `yaml:"log_level"`
}

// ServerConfig holds the HTTP API listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds the lead-store connection.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Audience string `yaml:"audience"`
}

// RedisConfig holds the distributed admission-counter connection. Leave URL
// empty to run with the in-process coordinator only.
type RedisConfig struct {
	URL       string `yaml:"url"`
	KeyPrefix string `yaml:"key_prefix"`
}

// SESConfig holds the transport credentials and sending identity.
type SESConfig struct {
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// ContentConfig holds the Bedrock model selection and fallback templates.
type ContentConfig struct {
	ModelID          string `yaml:"model_id"`
	FallbackSubject  string `yaml:"fallback_subject"`
	FallbackBody     string `yaml:"fallback_body"`
	DisableGenerator bool   `yaml:"disable_generator"` // fallback-only mode
}

// ArchiveConfig holds the S3 reporting sink.
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
	Region  string `yaml:"region"`
}

// ScheduleConfig holds the generator's hour windows.
type ScheduleConfig struct {
	QuietStartHour  int `yaml:"quiet_start_hour"`
	QuietEndHour    int `yaml:"quiet_end_hour"`
	SnapHour        int `yaml:"snap_hour"`
	ActiveStartHour int `yaml:"active_start_hour"`
	ActiveEndHour   int `yaml:"active_end_hour"`
	CutoffHour      int `yaml:"cutoff_hour"`
}

// GateConfig holds the real-time deliverability limits.
type GateConfig struct {
	HourlyLimit       int `yaml:"hourly_limit"`
	DailyLimit        int `yaml:"daily_limit"`
	MinSpacingSeconds int `yaml:"min_spacing_seconds"`
	QuietFromHour     int `yaml:"quiet_from_hour"`
	QuietUntilHour    int `yaml:"quiet_until_hour"`
}

// BrandConfig is the campaign voice handed to the content generator.
type BrandConfig struct {
	CompanyName  string `yaml:"company_name"`
	ProductName  string `yaml:"product_name"`
	SenderName   string `yaml:"sender_name"`
	ValueProp    string `yaml:"value_prop"`
	CallToAction string `yaml:"call_to_action"`
}

// SegmentsConfig overrides the per-segment economics used for revenue
// projections. Keys are segment names.
type SegmentsConfig struct {
	Profiles map[string]SegmentProfile `yaml:"profiles"`
}

// SegmentProfile is one segment's economics.
type SegmentProfile struct {
	ConversionRate float64 `yaml:"conversion_rate"`
	UnitPrice      float64 `yaml:"unit_price"`
}

// DispatcherConfig tunes the dispatch loop.
type DispatcherConfig struct {
	RetryDelaySeconds int     `yaml:"retry_delay_seconds"`
	SendRatePerSecond float64 `yaml:"send_rate_per_second"`
}

// Load reads and parses the configuration file. The file is unmarshaled
// over the built-in defaults, so keys absent from the file keep their
// default while explicitly-set zeros (quiet_start_hour: 0 for midnight)
// are honored.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides. A
// .env file (if present) is read first, so secrets can live in .env locally
// and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.Redis.URL = url
	}
	if accessKey := os.Getenv("AWS_SES_ACCESS_KEY"); accessKey != "" {
		cfg.SES.AccessKey = accessKey
	}
	if secretKey := os.Getenv("AWS_SES_SECRET_KEY"); secretKey != "" {
		cfg.SES.SecretKey = secretKey
	}
	if region := os.Getenv("AWS_SES_REGION"); region != "" {
		cfg.SES.Region = region
	}
	if bucket := os.Getenv("ARCHIVE_BUCKET"); bucket != "" {
		cfg.Archive.Bucket = bucket
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	return cfg, nil
}

// defaultConfig is the baseline every load starts from.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Audience: "default",
		},
		Redis: RedisConfig{
			KeyPrefix: "outreach",
		},
		SES: SESConfig{
			Region: "us-east-1",
		},
		Schedule: ScheduleConfig{
			QuietStartHour:  22,
			QuietEndHour:    7,
			SnapHour:        8,
			ActiveStartHour: 9,
			ActiveEndHour:   18,
			CutoffHour:      19,
		},
		Gate: GateConfig{
			HourlyLimit:       100,
			DailyLimit:        500,
			MinSpacingSeconds: 30,
			QuietFromHour:     22,
			QuietUntilHour:    7,
		},
		Dispatcher: DispatcherConfig{
			RetryDelaySeconds: 300,
			SendRatePerSecond: 2,
		},
		LogLevel: "INFO",
	}
}

// Validate rejects configurations that would silently corrupt pacing. A
// wrong interval floods or starves a campaign, so these fail at load time.
func (c *Config) Validate() error {
	if c.Schedule.ActiveEndHour <= c.Schedule.ActiveStartHour {
		return fmt.Errorf("schedule: active window %d-%d is empty",
			c.Schedule.ActiveStartHour, c.Schedule.ActiveEndHour)
	}
	if c.Schedule.CutoffHour < c.Schedule.ActiveEndHour {
		return fmt.Errorf("schedule: cutoff hour %d precedes active window end %d",
			c.Schedule.CutoffHour, c.Schedule.ActiveEndHour)
	}
	for _, h := range []int{c.Schedule.QuietStartHour, c.Schedule.QuietEndHour, c.Schedule.SnapHour} {
		if h < 0 || h > 23 {
			return fmt.Errorf("schedule: hour %d out of range", h)
		}
	}
	if c.Gate.HourlyLimit < 0 || c.Gate.DailyLimit < 0 {
		return fmt.Errorf("gate: limits must be non-negative")
	}
	if c.Gate.HourlyLimit > c.Gate.DailyLimit {
		return fmt.Errorf("gate: hourly limit %d exceeds daily limit %d",
			c.Gate.HourlyLimit, c.Gate.DailyLimit)
	}
	for name, p := range c.Segments.Profiles {
		if p.ConversionRate < 0 || p.ConversionRate > 1 {
			return fmt.Errorf("segments: %s conversion rate %v out of [0,1]", name, p.ConversionRate)
		}
		if p.UnitPrice < 0 {
			return fmt.Errorf("segments: %s unit price is negative", name)
		}
	}
	return nil
}
