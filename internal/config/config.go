package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/bandsite/fan-chat/pkg/config"
)

// Admin policies for the client-asserted isAdmin flag on join.
const (
	AdminPolicyTrust  = "trust"
	AdminPolicyVerify = "verify"
)

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Chat      ChatConfig
	Redis     RedisConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type WebSocketConfig struct {
	Path           string
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type ChatConfig struct {
	AdminPolicy string        `mapstructure:"admin_policy"`
	AdminSecret string        `mapstructure:"admin_secret"`
	AdminIssuer string        `mapstructure:"admin_issuer"`
	AdminTTL    time.Duration `mapstructure:"admin_ttl"`
}

type RedisConfig struct {
	Enabled           bool
	Address           string
	Password          string
	DB                int
	Prefix            string
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	KeyTTL            time.Duration `mapstructure:"key_ttl"`
}

type LogConfig struct {
	Level  string
	Pretty bool
}

// Load reads ./config/config.yaml (optional) and the environment.
func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper applies defaults and env bindings to v and decodes the result.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Parse durations
	cfg.Server.ShutdownTimeout = parseDuration(v, "server.shutdown_timeout", 30*time.Second)
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Chat.AdminTTL = parseDuration(v, "chat.admin_ttl", 24*time.Hour)
	cfg.Redis.HeartbeatInterval = parseDuration(v, "redis.heartbeat_interval", 10*time.Second)
	cfg.Redis.KeyTTL = parseDuration(v, "redis.key_ttl", 30*time.Second)

	cfg.WebSocket.AllowedOrigins = pkgconfig.StringSlice(v, "websocket.allowed_origins")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("websocket.path", "/ws")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("websocket.allowed_origins", []string{"*"})
	v.SetDefault("chat.admin_policy", AdminPolicyTrust)
	v.SetDefault("chat.admin_secret", "")
	v.SetDefault("chat.admin_issuer", "fan-chat")
	v.SetDefault("chat.admin_ttl", "24h")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "chat:presence")
	v.SetDefault("redis.heartbeat_interval", "10s")
	v.SetDefault("redis.key_ttl", "30s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

func bindEnv(v *viper.Viper) {
	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("websocket.allowed_origins", "ALLOWED_ORIGINS")
	v.BindEnv("chat.admin_policy", "CHAT_ADMIN_POLICY")
	v.BindEnv("chat.admin_secret", "CHAT_ADMIN_SECRET")
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("log.level", "LOG_LEVEL")
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.WebSocket.Path == "" || c.WebSocket.Path[0] != '/' {
		errs = append(errs, fmt.Errorf("websocket.path must start with '/': %q", c.WebSocket.Path))
	}
	if c.WebSocket.PingInterval <= 0 || c.WebSocket.PongWait <= 0 || c.WebSocket.WriteWait <= 0 {
		errs = append(errs, errors.New("websocket timings must be positive"))
	} else if c.WebSocket.PongWait <= c.WebSocket.PingInterval {
		errs = append(errs, errors.New("websocket.pong_wait must be longer than websocket.ping_interval"))
	}
	if c.WebSocket.MaxMessageSize <= 0 {
		errs = append(errs, errors.New("websocket.max_message_size must be positive"))
	}
	if c.WebSocket.SendBuffer <= 0 {
		errs = append(errs, errors.New("websocket.send_buffer must be positive"))
	}

	switch c.Chat.AdminPolicy {
	case AdminPolicyTrust:
	case AdminPolicyVerify:
		if c.Chat.AdminSecret == "" {
			errs = append(errs, errors.New("chat.admin_secret is required when chat.admin_policy is verify"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown chat.admin_policy %q", c.Chat.AdminPolicy))
	}

	if c.Redis.Enabled && (c.Redis.HeartbeatInterval <= 0 || c.Redis.KeyTTL <= c.Redis.HeartbeatInterval) {
		errs = append(errs, errors.New("redis.key_ttl must be longer than a positive redis.heartbeat_interval"))
	}

	return errors.Join(errs...)
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
