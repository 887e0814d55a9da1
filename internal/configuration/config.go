package configuration

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultConfigPath = "config.dev.json"

type MongoConfig struct {
	Uri                string `json:"uri"`
	Database           string `json:"database"`
	MessagesCollection string `json:"messagesCollection"`
	RoomsCollection    string `json:"roomsCollection"`
}

type RedisConfig struct {
	Url     string `json:"url"`
	TTLDays int    `json:"ttl_days"`
}

type PostgresConfig struct {
	Url string `json:"url"`
}

// StoreConfig picks the message store: "mongo", "redis" or "memory".
type StoreConfig struct {
	Driver string `json:"driver"`
}

type ServerConfig struct {
	AppPort        int      `json:"app_port"`
	SocketPort     int      `json:"socket_port"`
	ChatRoute      string   `json:"chat_route"`
	PresenceRoute  string   `json:"presence_route"`
	AllowedOrigins []string `json:"allowed_origins"`
}

type AuthConfig struct {
	JWTSecret string `json:"jwt_secret"`
	Issuer    string `json:"issuer"`
}

type ChatConfig struct {
	HistoryLimit    int `json:"history_limit"`
	RetentionDays   int `json:"retention_days"`
	RoomIdleMinutes int `json:"room_idle_minutes"`
	SendBuffer      int `json:"send_buffer"`
	InboxSize       int `json:"inbox_size"`
	PongWaitSeconds int `json:"pong_wait_seconds"`
	StoreTimeoutMs  int `json:"store_timeout_ms"`
}

type LoggingConfig struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

type Config struct {
	Server   ServerConfig   `json:"server"`
	Mongo    MongoConfig    `json:"mongo"`
	Redis    RedisConfig    `json:"redis"`
	Postgres PostgresConfig `json:"postgres"`
	Store    StoreConfig    `json:"store"`
	Auth     AuthConfig     `json:"auth"`
	Chat     ChatConfig     `json:"chat"`
	Logging  LoggingConfig  `json:"logging"`
}

// Load reads the JSON config named by CONFIG_PATH, then lets environment
// variables (and a .env file, if present) override it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	return LoadConfig(getEnv("CONFIG_PATH", defaultConfigPath))
}

func LoadConfig(config_path string) (*Config, error) {
	config := defaults()

	file, err := os.ReadFile(config_path)
	switch {
	case err == nil:
		if err := json.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", config_path, err)
		}
	case os.IsNotExist(err):
		// environment only
	default:
		return nil, err
	}

	config.applyEnv()
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			AppPort:       8080,
			SocketPort:    8081,
			ChatRoute:     "ws/chat",
			PresenceRoute: "ws/presence",
		},
		Mongo: MongoConfig{
			Database:           "marketplace_chat",
			MessagesCollection: "messages",
			RoomsCollection:    "rooms",
		},
		Redis: RedisConfig{TTLDays: 15},
		Store: StoreConfig{Driver: "mongo"},
		Chat: ChatConfig{
			HistoryLimit:    50,
			RetentionDays:   14,
			RoomIdleMinutes: 10,
			SendBuffer:      256,
			InboxSize:       1024,
			PongWaitSeconds: 60,
			StoreTimeoutMs:  5000,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

func (c *Config) applyEnv() {
	c.Server.AppPort = getEnvInt("APP_PORT", c.Server.AppPort)
	c.Server.SocketPort = getEnvInt("SOCKET_PORT", c.Server.SocketPort)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.Server.AllowedOrigins = append(c.Server.AllowedOrigins, o)
			}
		}
	}

	c.Mongo.Uri = getEnv("MONGO_URI", c.Mongo.Uri)
	c.Mongo.Database = getEnv("MONGO_DATABASE", c.Mongo.Database)
	c.Redis.Url = getEnv("REDIS_URL", c.Redis.Url)
	c.Postgres.Url = getEnv("DATABASE_URL", c.Postgres.Url)
	c.Store.Driver = getEnv("STORE_DRIVER", c.Store.Driver)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.Issuer = getEnv("JWT_ISSUER", c.Auth.Issuer)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Development = getEnv("ENV", "") == "development" || c.Logging.Development
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "mongo":
		if c.Mongo.Uri == "" {
			return fmt.Errorf("mongo store requires mongo.uri or MONGO_URI")
		}
	case "redis":
		if c.Redis.Url == "" {
			return fmt.Errorf("redis store requires redis.url or REDIS_URL")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}

func (c ChatConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func (c ChatConfig) RoomIdle() time.Duration {
	return time.Duration(c.RoomIdleMinutes) * time.Minute
}

func (c ChatConfig) PongWait() time.Duration {
	return time.Duration(c.PongWaitSeconds) * time.Second
}

func (c ChatConfig) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutMs) * time.Millisecond
}

func (c RedisConfig) TTL() time.Duration {
	return time.Duration(c.TTLDays) * 24 * time.Hour
}

// ClientConfig configures a chat participant process such as chatcli.
type ClientConfig struct {
	UserID           string
	Username         string
	ShopSlug         string
	Token            string
	SocketURL        string
	AppURL           string
	ReconnectSeconds int
	KeepAliveSeconds int
}

// LoadClient reads CHAT_* variables, after a .env file if present.
func LoadClient() ClientConfig {
	_ = godotenv.Load()

	return ClientConfig{
		UserID:           os.Getenv("CHAT_USER_ID"),
		Username:         os.Getenv("CHAT_USERNAME"),
		ShopSlug:         os.Getenv("CHAT_SHOP"),
		Token:            os.Getenv("CHAT_TOKEN"),
		SocketURL:        getEnv("CHAT_SOCKET_URL", "ws://localhost:8081"),
		AppURL:           getEnv("CHAT_APP_URL", "http://localhost:8080"),
		ReconnectSeconds: getEnvInt("CHAT_RECONNECT_SECONDS", 3),
		KeepAliveSeconds: getEnvInt("CHAT_KEEP_ALIVE_SECONDS", 30),
	}
}

func (c ClientConfig) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectSeconds) * time.Second
}

func (c ClientConfig) KeepAlive() time.Duration {
	return time.Duration(c.KeepAliveSeconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
