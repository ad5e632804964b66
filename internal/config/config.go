package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Auth          AuthConfig          `yaml:"auth"`
	Log           LogConfig           `yaml:"log"`
	Monitor       MonitorConfig       `yaml:"monitor"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug/release
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Type     string `yaml:"type"` // sqlite/postgres
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// AuthConfig represents token settings
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
	AdminPassword string `yaml:"admin_password"` // bootstrap owner, empty disables
}

// LogConfig represents logger settings
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"` // empty logs to stdout only
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// MonitorConfig represents the reminder scan configuration
type MonitorConfig struct {
	CheckInterval string `yaml:"check_interval"` // Cron expression
	Enabled       bool   `yaml:"enabled"`
}

// NotificationsConfig represents notification configuration
type NotificationsConfig struct {
	Email    EmailConfig    `yaml:"email"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Telegram TelegramConfig `yaml:"telegram"`
	DingDing DingDingConfig `yaml:"dingding"`
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`
}

// EmailConfig represents email notification configuration
type EmailConfig struct {
	Enabled  bool     `yaml:"enabled"`
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	From     string   `yaml:"from"`
	Password string   `yaml:"password"`
	To       []string `yaml:"to"`
}

// WebhookConfig represents webhook notification configuration
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// TelegramConfig represents Telegram notification configuration
type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	Proxy    string `yaml:"proxy"` // SOCKS5 address, e.g. 127.0.0.1:7890
}

// DingDingConfig represents DingTalk notification configuration
type DingDingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Webhook string `yaml:"webhook"`
	Secret  string `yaml:"secret"`
}

// WhatsAppConfig represents Twilio WhatsApp configuration
type WhatsAppConfig struct {
	Enabled     bool   `yaml:"enabled"`
	AccountSID  string `yaml:"account_sid"`
	AuthToken   string `yaml:"auth_token"`
	From        string `yaml:"from"`         // sender number, E.164
	To          string `yaml:"to"`           // operator number for reminders
	CountryCode string `yaml:"country_code"` // prefix for local numbers starting with 0
}

// DefaultJWTSecret is the placeholder secret shipped in config/config.yaml
const DefaultJWTSecret = "change-me"

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: "8080", Mode: "debug"},
		Database: DatabaseConfig{Type: "sqlite", Path: "data/warranty.db", Port: 5432, SSLMode: "disable"},
		Auth:     AuthConfig{TokenTTLHours: 7 * 24},
		Log:      LogConfig{Level: "info", MaxSizeMB: 50, MaxBackups: 5, MaxAgeDays: 30},
		Monitor:  MonitorConfig{CheckInterval: "0 9 * * *", Enabled: true},
		Notifications: NotificationsConfig{
			WhatsApp: WhatsAppConfig{CountryCode: "60"},
		},
	}
}

// LoadConfig loads configuration from a YAML file, then applies .env and
// environment overrides. A missing file falls back to defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	// .env is optional
	_ = godotenv.Load()
	applyEnv(cfg)

	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret (or JWT_SECRET) is required")
	}
	if cfg.Server.Mode == "release" && cfg.UsesDefaultSecret() {
		return nil, errors.New("auth.jwt_secret must be changed from the shipped default in release mode")
	}
	return cfg, nil
}

// UsesDefaultSecret reports whether tokens are signed with the shipped placeholder
func (c *Config) UsesDefaultSecret() bool {
	return c.Auth.JWTSecret == DefaultJWTSecret
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Server.Mode, "GIN_MODE")
	setString(&cfg.Database.Type, "DB_TYPE")
	setString(&cfg.Database.Path, "DB_PATH")
	setString(&cfg.Database.Host, "DB_HOST")
	setInt(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.DBName, "DB_NAME")
	setString(&cfg.Database.SSLMode, "DB_SSLMODE")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setInt(&cfg.Auth.TokenTTLHours, "JWT_TTL_HOURS")
	setString(&cfg.Auth.AdminPassword, "ADMIN_PASSWORD")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.File, "LOG_FILE")
	setString(&cfg.Monitor.CheckInterval, "MONITOR_CHECK_INTERVAL")
	setString(&cfg.Notifications.Email.Password, "SMTP_PASSWORD")
	setString(&cfg.Notifications.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&cfg.Notifications.WhatsApp.AccountSID, "TWILIO_ACCOUNT_SID")
	setString(&cfg.Notifications.WhatsApp.AuthToken, "TWILIO_AUTH_TOKEN")
	setString(&cfg.Notifications.WhatsApp.From, "TWILIO_WHATSAPP_NUMBER")
	if v := os.Getenv("NOTIFY_EMAIL_TO"); v != "" {
		cfg.Notifications.Email.To = strings.Split(v, ",")
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
