package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
}

type ServerConfig struct {
	HTTPAddress     string        `mapstructure:"http_address"`
	RPCAddress      string        `mapstructure:"rpc_address"`
	HealthAddress   string        `mapstructure:"health_address"`
	MetricsAddress  string        `mapstructure:"metrics_address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// GameConfig holds the gameplay and session tuning knobs.
type GameConfig struct {
	// IdleTimeout is how long a room may go without activity before it is reaped.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// ReapInterval is the period of the idle-room sweep.
	ReapInterval   time.Duration `mapstructure:"reap_interval"`
	RoomCodeLength int           `mapstructure:"room_code_length"`
	// LinesToWin is the number of completed lines a card needs to win.
	LinesToWin int `mapstructure:"lines_to_win"`
	// MessageRate and MessageBurst bound inbound frames per connection.
	MessageRate  float64       `mapstructure:"message_rate"`
	MessageBurst int           `mapstructure:"message_burst"`
	PingInterval time.Duration `mapstructure:"ping_interval"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	// Driver selects the game history store: none, sqlite, postgres or gorm.
	Driver   string         `mapstructure:"driver"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the key/value connection string understood by lib/pq and pgx.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// LoadConfig reads config.yaml from path, applies BINGO_* environment
// overrides and defaults, and validates the result. A missing file is not an
// error; defaults and environment still apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BINGO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":9090")
	v.SetDefault("server.health_address", ":9091")
	v.SetDefault("server.metrics_address", ":2112")
	v.SetDefault("server.shutdown_timeout", "5s")

	v.SetDefault("game.idle_timeout", "10m")
	v.SetDefault("game.reap_interval", "30s")
	v.SetDefault("game.room_code_length", 6)
	v.SetDefault("game.lines_to_win", 1)
	v.SetDefault("game.message_rate", 10)
	v.SetDefault("game.message_burst", 20)
	v.SetDefault("game.ping_interval", "30s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.driver", "none")
	v.SetDefault("database.sqlite.path", "bingo.db")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "bingo")
	v.SetDefault("database.postgres.password", "bingo")
	v.SetDefault("database.postgres.dbname", "bingo")
	v.SetDefault("database.postgres.sslmode", "disable")
}

// Validate checks every section and reports all violations at once.
func (c Config) Validate() error {
	var errs []string
	for _, err := range []error{
		validateServer(c.Server),
		validateGame(c.Game),
		validateLogging(c.Logging),
		validateDatabase(c.Database),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.HTTPAddress == "" {
		errs = append(errs, "server.http_address must not be empty")
	}
	if s.ShutdownTimeout < 0 {
		errs = append(errs, "server.shutdown_timeout must not be negative")
	}
	return joinErrs(errs)
}

func validateGame(g GameConfig) error {
	var errs []string
	if g.IdleTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("game.idle_timeout must be positive, got %s", g.IdleTimeout))
	}
	if g.ReapInterval <= 0 {
		errs = append(errs, fmt.Sprintf("game.reap_interval must be positive, got %s", g.ReapInterval))
	}
	if g.RoomCodeLength < 4 || g.RoomCodeLength > 32 {
		errs = append(errs, fmt.Sprintf("game.room_code_length must be 4-32, got %d", g.RoomCodeLength))
	}
	if g.LinesToWin < 1 || g.LinesToWin > 12 {
		errs = append(errs, fmt.Sprintf("game.lines_to_win must be 1-12, got %d", g.LinesToWin))
	}
	if g.MessageRate <= 0 {
		errs = append(errs, "game.message_rate must be positive")
	}
	if g.MessageBurst < 1 {
		errs = append(errs, fmt.Sprintf("game.message_burst must be >= 1, got %d", g.MessageBurst))
	}
	if g.PingInterval <= 0 {
		errs = append(errs, "game.ping_interval must be positive")
	}
	return joinErrs(errs)
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	switch d.Driver {
	case "none":
		return nil
	case "sqlite":
		if d.SQLite.Path == "" {
			return errors.New("database.sqlite.path must not be empty")
		}
		return nil
	case "postgres", "gorm":
		var errs []string
		if d.Postgres.Host == "" {
			errs = append(errs, "database.postgres.host must not be empty")
		}
		if d.Postgres.Port < 1 || d.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.postgres.port must be 1-65535, got %d", d.Postgres.Port))
		}
		if d.Postgres.User == "" {
			errs = append(errs, "database.postgres.user must not be empty")
		}
		if d.Postgres.DBName == "" {
			errs = append(errs, "database.postgres.dbname must not be empty")
		}
		return joinErrs(errs)
	default:
		return fmt.Errorf("database.driver must be one of [none, sqlite, postgres, gorm], got %q", d.Driver)
	}
}

func joinErrs(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.New(strings.Join(errs, "; "))
}
