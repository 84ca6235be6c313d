package config

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	WebSocket WebSocketConfig
	Kafka     KafkaConfig
	Internal  InternalConfig
	Log       LogConfig
}

var (
	ConfigInstance *Config
	once           sync.Once
)

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN builds the postgres connection string gorm expects.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	URI          string
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

type JWTConfig struct {
	Secret string
}

type WebSocketConfig struct {
	WriteWait       time.Duration
	PongWait        time.Duration
	MaxMessageSize  int64
	HandshakeLimit  int
	HandshakeWindow time.Duration
}

type KafkaConfig struct {
	Brokers         []string
	Topic           string
	GroupID         string
	DeadLetterTopic string
}

// Enabled reports whether the domain event consumer should start.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.Topic != ""
}

type InternalConfig struct {
	IngestKey string
}

type LogConfig struct {
	Level  string
	Format string
}

func LoadConfig() (*Config, error) {
	var loadErr error
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			slog.Debug("No .env file found, using environment variables")
		}

		v := viper.New()
		setDefaults(v)
		v.AutomaticEnv()

		cfg := &Config{
			Server: ServerConfig{
				Host:           v.GetString("NOTIFY_HOST"),
				Port:           v.GetString("NOTIFY_PORT"),
				ReadTimeout:    v.GetDuration("NOTIFY_READ_TIMEOUT"),
				WriteTimeout:   v.GetDuration("NOTIFY_WRITE_TIMEOUT"),
				IdleTimeout:    v.GetDuration("NOTIFY_IDLE_TIMEOUT"),
				AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
			},
			Database: DatabaseConfig{
				Host:     v.GetString("POSTGRES_HOST"),
				Port:     v.GetString("POSTGRES_PORT"),
				User:     v.GetString("POSTGRES_USER"),
				Password: v.GetString("POSTGRES_PASSWORD"),
				DBName:   v.GetString("POSTGRES_DB"),
				SSLMode:  v.GetString("POSTGRES_SSLMODE"),
			},
			Redis: RedisConfig{
				URI:          v.GetString("REDIS_URL"),
				MaxRetries:   v.GetInt("REDIS_MAX_RETRIES"),
				DialTimeout:  v.GetDuration("REDIS_DIAL_TIMEOUT"),
				ReadTimeout:  v.GetDuration("REDIS_READ_TIMEOUT"),
				WriteTimeout: v.GetDuration("REDIS_WRITE_TIMEOUT"),
				PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
				MinIdleConns: v.GetInt("REDIS_MIN_IDLE_CONNS"),
			},
			JWT: JWTConfig{
				Secret: v.GetString("NOTIFY_JWT_SECRET"),
			},
			WebSocket: WebSocketConfig{
				WriteWait:       v.GetDuration("WS_WRITE_WAIT"),
				PongWait:        v.GetDuration("WS_PONG_WAIT"),
				MaxMessageSize:  v.GetInt64("WS_MAX_MESSAGE_SIZE"),
				HandshakeLimit:  v.GetInt("WS_HANDSHAKE_LIMIT"),
				HandshakeWindow: v.GetDuration("WS_HANDSHAKE_WINDOW"),
			},
			Kafka: KafkaConfig{
				Brokers:         splitList(v.GetString("KAFKA_BROKERS")),
				Topic:           v.GetString("KAFKA_TOPIC"),
				GroupID:         v.GetString("KAFKA_GROUP_ID"),
				DeadLetterTopic: v.GetString("KAFKA_DLQ_TOPIC"),
			},
			Internal: InternalConfig{
				IngestKey: v.GetString("INTERNAL_INGEST_KEY"),
			},
			Log: LogConfig{
				Level:  v.GetString("LOG_LEVEL"),
				Format: v.GetString("LOG_FORMAT"),
			},
		}

		if cfg.WebSocket.PongWait <= 0 {
			loadErr = fmt.Errorf("WS_PONG_WAIT must be positive, got %s", cfg.WebSocket.PongWait)
			return
		}
		ConfigInstance = cfg
	})

	if loadErr != nil {
		return nil, loadErr
	}
	return ConfigInstance, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("NOTIFY_HOST", "0.0.0.0")
	v.SetDefault("NOTIFY_PORT", "8080")
	v.SetDefault("NOTIFY_READ_TIMEOUT", 30*time.Second)
	v.SetDefault("NOTIFY_WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("NOTIFY_IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("NOTIFY_JWT_SECRET", "secret")
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("REDIS_URL", "redis://127.0.0.1:6379/0")
	v.SetDefault("REDIS_MAX_RETRIES", 3)
	v.SetDefault("REDIS_POOL_SIZE", 100)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 10)
	v.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
	v.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
	v.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_PASSWORD", "password")
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_DB", "postgres")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("WS_WRITE_WAIT", 10*time.Second)
	v.SetDefault("WS_PONG_WAIT", 60*time.Second)
	v.SetDefault("WS_MAX_MESSAGE_SIZE", 512)
	v.SetDefault("WS_HANDSHAKE_LIMIT", 30)
	v.SetDefault("WS_HANDSHAKE_WINDOW", time.Minute)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "social.events")
	v.SetDefault("KAFKA_GROUP_ID", "notify-service")
	v.SetDefault("KAFKA_DLQ_TOPIC", "")
	v.SetDefault("INTERNAL_INGEST_KEY", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
