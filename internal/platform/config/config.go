package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"mipwatch/internal/status"
	pstrings "mipwatch/pkg/platform/strings"
)

// Duplicate policies accepted in Tracker.DuplicatePolicy.
const (
	DuplicateLastWins = "last_write_wins"
	DuplicateReject   = "reject"
)

// ErrInvalidConfig is returned when a loaded value fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Database configures the PostgreSQL snapshot store.
type Database struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig configures the report cache. An empty URL disables Redis.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	ReportTTL    time.Duration `yaml:"report_ttl"`
}

// Kafka configures the change feed. No brokers disables publishing to Kafka.
type Kafka struct {
	Brokers           []string `yaml:"brokers"`
	Topic             string   `yaml:"topic"`
	Partitions        int32    `yaml:"partitions"`
	ReplicationFactor int16    `yaml:"replication_factor"`
}

// Influx configures the tally export. An empty URL disables it.
type Influx struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// Tracker holds the analysis knobs.
type Tracker struct {
	TerminalStatuses []string `yaml:"terminal_statuses"`
	RosterStatuses   []string `yaml:"roster_statuses"`
	DuplicatePolicy  string   `yaml:"duplicate_policy"`
	WindowMonths     int      `yaml:"window_months"`
	TopVendors       int      `yaml:"top_vendors"`
}

// Log selects the slog handler.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the full process configuration.
type Config struct {
	Server   Server      `yaml:"server"`
	Database Database    `yaml:"database"`
	Redis    RedisConfig `yaml:"redis"`
	Kafka    Kafka       `yaml:"kafka"`
	Influx   Influx      `yaml:"influx"`
	Tracker  Tracker     `yaml:"tracker"`
	Log      Log         `yaml:"log"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: Database{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			ReportTTL:    15 * time.Minute,
		},
		Kafka: Kafka{
			Topic:             "mip.changes",
			Partitions:        1,
			ReplicationFactor: 1,
		},
		Influx: Influx{
			Bucket: "mipwatch",
		},
		Tracker: Tracker{
			TerminalStatuses: []string{status.DefaultTerminal},
			RosterStatuses:   []string{status.Finalization},
			DuplicatePolicy:  DuplicateLastWins,
			WindowMonths:     12,
			TopVendors:       25,
		},
		Log: Log{
			Level:  "info",
			Format: "json",
		},
	}
}

// FromEnv builds a Config from defaults and environment variables so main stays lean.
func FromEnv() (Config, error) {
	cfg := Default()
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Load reads an optional YAML file over the defaults, then applies environment
// overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks values that would otherwise fail far from where they were set.
func (c Config) Validate() error {
	switch c.Tracker.DuplicatePolicy {
	case DuplicateLastWins, DuplicateReject:
	default:
		return fmt.Errorf("%w: duplicate_policy %q", ErrInvalidConfig, c.Tracker.DuplicatePolicy)
	}
	if c.Tracker.WindowMonths < 0 {
		return fmt.Errorf("%w: window_months must not be negative", ErrInvalidConfig)
	}
	if c.Tracker.TopVendors < 0 {
		return fmt.Errorf("%w: top_vendors must not be negative", ErrInvalidConfig)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("%w: kafka topic is required when brokers are set", ErrInvalidConfig)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Addr, "MIPWATCH_ADDR")
	setString(&cfg.Database.URL, "MIPWATCH_DATABASE_URL")
	setString(&cfg.Redis.URL, "MIPWATCH_REDIS_URL")
	setList(&cfg.Kafka.Brokers, "MIPWATCH_KAFKA_BROKERS")
	setString(&cfg.Kafka.Topic, "MIPWATCH_KAFKA_TOPIC")
	setString(&cfg.Influx.URL, "MIPWATCH_INFLUX_URL")
	setString(&cfg.Influx.Token, "MIPWATCH_INFLUX_TOKEN")
	setString(&cfg.Influx.Org, "MIPWATCH_INFLUX_ORG")
	setString(&cfg.Influx.Bucket, "MIPWATCH_INFLUX_BUCKET")
	setList(&cfg.Tracker.TerminalStatuses, "MIPWATCH_TERMINAL_STATUSES")
	setList(&cfg.Tracker.RosterStatuses, "MIPWATCH_ROSTER_STATUSES")
	setString(&cfg.Tracker.DuplicatePolicy, "MIPWATCH_DUPLICATE_POLICY")
	setString(&cfg.Log.Level, "MIPWATCH_LOG_LEVEL")
	setString(&cfg.Log.Format, "MIPWATCH_LOG_FORMAT")
	if err := setInt(&cfg.Tracker.WindowMonths, "MIPWATCH_WINDOW_MONTHS"); err != nil {
		return err
	}
	if err := setInt(&cfg.Tracker.TopVendors, "MIPWATCH_TOP_VENDORS"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Redis.ReportTTL, "MIPWATCH_REPORT_CACHE_TTL"); err != nil {
		return err
	}
	cfg.Tracker.TerminalStatuses = pstrings.DedupeAndTrim(cfg.Tracker.TerminalStatuses)
	cfg.Tracker.RosterStatuses = pstrings.DedupeAndTrim(cfg.Tracker.RosterStatuses)
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	if v := pstrings.SplitList(os.Getenv(key)); v != nil {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	*dst = d
	return nil
}
