package config

import (
	"fmt"
	"strings"
	"time"

	ierr "github.com/channelgate/channelgate/internal/errors"
	"github.com/channelgate/channelgate/internal/types"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration is the root configuration for the service. Values come from
// config/config.yaml with CHANNELGATE_* environment overrides; a local .env
// file is loaded first when present.
type Configuration struct {
	Deployment   DeploymentConfig   `mapstructure:"deployment"`
	Server       ServerConfig       `mapstructure:"server"`
	Postgres     PostgresConfig     `mapstructure:"postgres"`
	Telegram     TelegramConfig     `mapstructure:"telegram"`
	Admin        AdminConfig        `mapstructure:"admin"`
	Subscription SubscriptionConfig `mapstructure:"subscription"`
	Relay        RelayConfig        `mapstructure:"relay"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

type DeploymentConfig struct {
	Mode string `mapstructure:"mode"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type PostgresConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// DSN builds the lib/pq connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	APIBaseURL     string        `mapstructure:"api_base_url"`
	ChannelID      int64         `mapstructure:"channel_id"`
	InviteLink     string        `mapstructure:"invite_link"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	PollTimeout    time.Duration `mapstructure:"poll_timeout"`
}

type AdminConfig struct {
	// AdminID is the Telegram user id allowed to issue grants.
	AdminID int64 `mapstructure:"admin_id"`
	// AuditChannelID receives audit copies of lifecycle events; 0 disables it.
	AuditChannelID int64 `mapstructure:"audit_channel_id"`
}

type SubscriptionConfig struct {
	ReconcileInterval time.Duration        `mapstructure:"reconcile_interval"`
	ReconcileOnStart  bool                 `mapstructure:"reconcile_on_start"`
	RetirementMode    types.RetirementMode `mapstructure:"retirement_mode"`
	// PlanPrices maps tier names to a monthly price string, display only.
	PlanPrices map[string]string `mapstructure:"plan_prices"`
}

type RelayConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	TempDir       string        `mapstructure:"temp_dir"`
	MaxFileSizeMB int64         `mapstructure:"max_file_size_mb"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level"`
}

// NewConfig loads the configuration from disk and the environment.
func NewConfig() (*Configuration, error) {
	// A missing .env is not an error; containerized deployments pass
	// everything through the environment.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CHANNELGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, ierr.WithError(err).
				WithHint("Failed to read configuration file").
				Mark(ierr.ErrValidation)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to unmarshal configuration").
			Mark(ierr.ErrValidation)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", "server")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "channelgate")
	v.SetDefault("postgres.dbname", "channelgate")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("telegram.api_base_url", "https://api.telegram.org")
	v.SetDefault("telegram.request_timeout", 30*time.Second)
	v.SetDefault("telegram.poll_timeout", 50*time.Second)
	v.SetDefault("subscription.reconcile_interval", time.Minute)
	v.SetDefault("subscription.reconcile_on_start", true)
	v.SetDefault("subscription.retirement_mode", string(types.RetirementModeHard))
	v.SetDefault("relay.enabled", true)
	v.SetDefault("relay.temp_dir", "temp_downloads")
	v.SetDefault("relay.max_file_size_mb", 2000)
	v.SetDefault("relay.session_ttl", 30*time.Minute)
	v.SetDefault("logging.level", string(types.LogLevelInfo))
}

// Validate validates the configuration
func (c *Configuration) Validate() error {
	if c.Telegram.BotToken == "" {
		return ierr.NewError("telegram bot token is required").
			WithHint("Set CHANNELGATE_TELEGRAM_BOT_TOKEN or telegram.bot_token").
			Mark(ierr.ErrValidation)
	}
	if c.Telegram.ChannelID == 0 {
		return ierr.NewError("telegram channel id is required").
			WithHint("Set CHANNELGATE_TELEGRAM_CHANNEL_ID or telegram.channel_id").
			Mark(ierr.ErrValidation)
	}
	if c.Admin.AdminID == 0 {
		return ierr.NewError("admin id is required").
			WithHint("Set CHANNELGATE_ADMIN_ADMIN_ID or admin.admin_id").
			Mark(ierr.ErrValidation)
	}
	if c.Subscription.ReconcileInterval <= 0 {
		return ierr.NewError("reconcile interval must be positive").
			WithHint("Set subscription.reconcile_interval to a duration like 1m").
			Mark(ierr.ErrValidation)
	}
	if err := c.Subscription.RetirementMode.Validate(); err != nil {
		return err
	}
	if c.Relay.Enabled && c.Relay.MaxFileSizeMB <= 0 {
		return ierr.NewError("relay max file size must be positive").
			WithHint("Set relay.max_file_size_mb to a positive value").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// GetDefaultConfig returns a configuration suitable for tests and scripts.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: "test"},
		Server: ServerConfig{
			Address:         ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:         "localhost",
			Port:         5432,
			User:         "channelgate",
			DBName:       "channelgate_test",
			SSLMode:      "disable",
			MaxOpenConns: 5,
			MaxIdleConns: 2,
		},
		Telegram: TelegramConfig{
			BotToken:       "test-token",
			APIBaseURL:     "https://api.telegram.org",
			ChannelID:      -1001,
			InviteLink:     "https://t.me/+test",
			RequestTimeout: 5 * time.Second,
			PollTimeout:    5 * time.Second,
		},
		Admin: AdminConfig{
			AdminID: 1,
		},
		Subscription: SubscriptionConfig{
			ReconcileInterval: time.Minute,
			RetirementMode:    types.RetirementModeSoft,
			PlanPrices: map[string]string{
				"basic":   "5",
				"premium": "10",
				"vip":     "25",
			},
		},
		Relay: RelayConfig{
			Enabled:       true,
			TempDir:       "temp_downloads",
			MaxFileSizeMB: 50,
			SessionTTL:    5 * time.Minute,
		},
		Logging: LoggingConfig{Level: types.LogLevelDebug},
	}
}
