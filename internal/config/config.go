package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type HTTP struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Database struct {
	Driver string
	DSN    string
}

type Auth struct {
	APIToken     string
	AdminToken   string
	SessionKey   string
	SecureCookie bool
}

type Filter struct {
	File     string
	Patterns []string
}

type Chat struct {
	HistoryLimit      int
	AdminHistoryLimit int
}

type WS struct {
	SendBuffer   int
	WriteTimeout time.Duration
	PongTimeout  time.Duration
}

type Log struct {
	Level  string
	Format string
}

type Rollbar struct {
	Token       string
	Environment string
}

type Mail struct {
	Backend        string // "log", "smtp" or "sendgrid"
	From           string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SendgridAPIKey string
}

type Config struct {
	HTTP              HTTP
	Database          Database
	Auth              Auth
	Filter            Filter
	Chat              Chat
	WS                WS
	DispatchQueueSize int
	Log               Log
	Rollbar           Rollbar
	Mail              Mail
	NotifyAdminEmail  string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8000")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "./data.db")

	v.SetDefault("auth.secure_cookie", false)

	v.SetDefault("filter.file", "filter.yaml")

	v.SetDefault("chat.history_limit", 100)
	v.SetDefault("chat.admin_history_limit", 500)

	v.SetDefault("ws.send_buffer", 64)
	v.SetDefault("ws.write_timeout", 10*time.Second)
	v.SetDefault("ws.pong_timeout", 60*time.Second)

	v.SetDefault("dispatch.queue_size", 256)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("rollbar.environment", "development")

	v.SetDefault("mail.backend", "log")
	v.SetDefault("mail.from", "noreply@localhost")
	v.SetDefault("mail.smtp_port", 587)
}

// Load reads configuration from defaults, an optional config file, a .env
// file in the working directory and the environment, in increasing order of
// precedence. Environment keys use the UNTIS_ prefix with dots replaced by
// underscores (UNTIS_DATABASE_DSN); API_TOKEN and ADMIN_TOKEN are also read.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "load .env")
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("UNTIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// names used by earlier deployments; the prefixed form still wins
	_ = v.BindEnv("auth.api_token", "API_TOKEN")
	_ = v.BindEnv("auth.admin_token", "ADMIN_TOKEN")
	_ = v.BindEnv("auth.session_key", "SESSION_KEY")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		HTTP: HTTP{
			Addr:         v.GetString("http.addr"),
			ReadTimeout:  v.GetDuration("http.read_timeout"),
			WriteTimeout: v.GetDuration("http.write_timeout"),
		},
		Database: Database{
			Driver: v.GetString("database.driver"),
			DSN:    v.GetString("database.dsn"),
		},
		Auth: Auth{
			APIToken:     v.GetString("auth.api_token"),
			AdminToken:   v.GetString("auth.admin_token"),
			SessionKey:   v.GetString("auth.session_key"),
			SecureCookie: v.GetBool("auth.secure_cookie"),
		},
		Filter: Filter{
			File:     v.GetString("filter.file"),
			Patterns: v.GetStringSlice("filter.patterns"),
		},
		Chat: Chat{
			HistoryLimit:      v.GetInt("chat.history_limit"),
			AdminHistoryLimit: v.GetInt("chat.admin_history_limit"),
		},
		WS: WS{
			SendBuffer:   v.GetInt("ws.send_buffer"),
			WriteTimeout: v.GetDuration("ws.write_timeout"),
			PongTimeout:  v.GetDuration("ws.pong_timeout"),
		},
		DispatchQueueSize: v.GetInt("dispatch.queue_size"),
		Log: Log{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Rollbar: Rollbar{
			Token:       v.GetString("rollbar.token"),
			Environment: v.GetString("rollbar.environment"),
		},
		Mail: Mail{
			Backend:        v.GetString("mail.backend"),
			From:           v.GetString("mail.from"),
			SMTPHost:       v.GetString("mail.smtp_host"),
			SMTPPort:       v.GetInt("mail.smtp_port"),
			SMTPUsername:   v.GetString("mail.smtp_username"),
			SMTPPassword:   v.GetString("mail.smtp_password"),
			SendgridAPIKey: v.GetString("mail.sendgrid_api_key"),
		},
		NotifyAdminEmail: v.GetString("notify.admin_email"),
	}
}

// Validate reports the first problem that would keep the service from
// starting.
func (c *Config) Validate() error {
	if c.Auth.APIToken == "" {
		return errors.New("api token is required (API_TOKEN)")
	}
	if c.Auth.AdminToken == "" {
		return errors.New("admin token is required (ADMIN_TOKEN)")
	}
	switch c.Database.Driver {
	case "sqlite3", "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is required")
	}
	if c.Chat.HistoryLimit <= 0 || c.Chat.AdminHistoryLimit <= 0 {
		return errors.New("chat history limits must be positive")
	}
	if c.WS.SendBuffer <= 0 {
		return errors.New("ws.send_buffer must be positive")
	}
	if c.WS.WriteTimeout <= 0 || c.WS.PongTimeout <= 0 {
		return errors.New("ws timeouts must be positive")
	}
	if c.DispatchQueueSize <= 0 {
		return errors.New("dispatch.queue_size must be positive")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q", c.Log.Format)
	}
	switch c.Mail.Backend {
	case "log":
	case "smtp":
		if c.Mail.SMTPHost == "" {
			return errors.New("mail.smtp_host is required for the smtp backend")
		}
	case "sendgrid":
		if c.Mail.SendgridAPIKey == "" {
			return errors.New("mail.sendgrid_api_key is required for the sendgrid backend")
		}
	default:
		return fmt.Errorf("unsupported mail backend %q", c.Mail.Backend)
	}
	return nil
}
