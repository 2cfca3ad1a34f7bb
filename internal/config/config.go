package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"token-price-watcher/internal/logging"
	"token-price-watcher/internal/version"
)

// Config materialises application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logging    logging.Config   `mapstructure:"logging"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	MarketData MarketDataConfig `mapstructure:"marketdata"`
	SMTP       SMTPConfig       `mapstructure:"smtp"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Movement   MovementConfig   `mapstructure:"movement"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	Swap       SwapConfig       `mapstructure:"swap"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Export     ExportConfig     `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig governs the optional latest-observation cache.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// MarketDataConfig captures CoinMarketCap connectivity.
type MarketDataConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// SMTPConfig describes the outbound mail account.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SchedulerConfig applies to every scheduled job.
type SchedulerConfig struct {
	StartupDelay time.Duration `mapstructure:"startup_delay"`
	TickTimeout  time.Duration `mapstructure:"tick_timeout"`
}

// IngestConfig governs the price ingestion job.
type IngestConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Tokens   []string      `mapstructure:"tokens"`
}

// MovementConfig governs the hourly movement detector.
type MovementConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	Window       time.Duration `mapstructure:"window"`
	ThresholdPct float64       `mapstructure:"threshold_pct"`
	Recipient    string        `mapstructure:"recipient"`
}

// AlertsConfig governs subscription evaluation.
type AlertsConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	EnforceTarget bool          `mapstructure:"enforce_target"`
}

// SwapConfig parameterises the ETH to BTC calculator.
type SwapConfig struct {
	FeePct float64 `mapstructure:"fee_pct"`
	Record bool    `mapstructure:"record"`
}

// HTTPConfig sets the JSON API listener.
type HTTPConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	ListenAddr      string        `mapstructure:"listen_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TOKENWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "tokenwatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.service", "tokenwatcher")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.ttl", "5m")

	v.SetDefault("marketdata.base_url", "https://pro-api.coinmarketcap.com/v1")
	v.SetDefault("marketdata.request_timeout", "10s")
	v.SetDefault("marketdata.user_agent", version.UserAgent())

	v.SetDefault("smtp.enabled", false)
	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 465)
	v.SetDefault("smtp.timeout", "10s")

	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.tick_timeout", "2m")

	v.SetDefault("ingest.interval", "5m")
	v.SetDefault("ingest.tokens", []string{"ETH", "BTC"})

	v.SetDefault("movement.interval", "1h")
	v.SetDefault("movement.window", "1h")
	v.SetDefault("movement.threshold_pct", 3.0)

	v.SetDefault("alerts.interval", "10m")
	v.SetDefault("alerts.enforce_target", false)

	v.SetDefault("swap.fee_pct", 0.03)
	v.SetDefault("swap.record", false)

	v.SetDefault("http.enabled", true)
	v.SetDefault("http.listen_addr", ":8080")
	v.SetDefault("http.shutdown_timeout", "10s")

	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Ingest.Interval <= 0 {
		return fmt.Errorf("ingest.interval must be greater than zero")
	}
	if c.Movement.Interval <= 0 {
		return fmt.Errorf("movement.interval must be greater than zero")
	}
	if c.Movement.Window <= 0 {
		return fmt.Errorf("movement.window must be greater than zero")
	}
	if c.Movement.ThresholdPct < 0 {
		return fmt.Errorf("movement.threshold_pct cannot be negative")
	}
	if c.Alerts.Interval <= 0 {
		return fmt.Errorf("alerts.interval must be greater than zero")
	}
	if c.Swap.FeePct < 0 {
		return fmt.Errorf("swap.fee_pct cannot be negative")
	}
	if c.Scheduler.TickTimeout <= 0 {
		return fmt.Errorf("scheduler.tick_timeout must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.SMTP.Enabled {
		if c.SMTP.Host == "" {
			return fmt.Errorf("smtp.host is required when smtp is enabled")
		}
		if c.SMTP.From == "" {
			return fmt.Errorf("smtp.from is required when smtp is enabled")
		}
		if c.SMTP.Timeout <= 0 {
			return fmt.Errorf("smtp.timeout must be greater than zero")
		}
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
