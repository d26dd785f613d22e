package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL      string // あればPOSTGRES_*より優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5433）
	PostgresSSLMode  string

	JWTSecret string // JWT署名シークレット（検証のみ）

	GoEnv string // dev/prod

	TxMaxRetries int // 40001/40P01の再試行回数

	RedisAddr        string        // 空ならキャッシュなし
	TrackingCacheTTL time.Duration // 追跡タイムラインのキャッシュ時間

	Notifier      string // none/kafka/rabbitmq
	KafkaBrokers  []string
	KafkaTopic    string
	RabbitMQURL   string
	RabbitMQQueue string

	OTLPEndpoint string // 空ならトレースは出さない
}

const (
	NotifierNone     = "none"
	NotifierKafka    = "kafka"
	NotifierRabbitMQ = "rabbitmq"
)

func (c Config) IsProd() bool {
	return c.GoEnv == "prod" || c.GoEnv == "production"
}

// .envがあれば読む（なくてもよい）
func LoadDotenv() {
	_ = godotenv.Load()
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		Port: os.Getenv("PORT"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		GoEnv: os.Getenv("GO_ENV"),

		RedisAddr: os.Getenv("REDIS_ADDR"),

		Notifier:      strings.ToLower(getenv("NOTIFIER", NotifierNone)),
		KafkaTopic:    getenv("KAFKA_TOPIC", "order-tracking"),
		RabbitMQURL:   os.Getenv("RABBITMQ_URL"),
		RabbitMQQueue: getenv("RABBITMQ_QUEUE", "order-tracking"),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.DatabaseURL == "" {
		pgPort, err := mustAtoi("POSTGRES_PORT")
		if err != nil {
			return Config{}, err
		}
		cfg.PostgresPort = pgPort

		if cfg.PostgresUser == "" {
			return Config{}, fmt.Errorf("POSTGRES_USER is required")
		}
		if cfg.PostgresPassword == "" {
			return Config{}, fmt.Errorf("POSTGRES_PASSWORD is required")
		}
		if cfg.PostgresDB == "" {
			return Config{}, fmt.Errorf("POSTGRES_DB is required")
		}
		if cfg.PostgresHost == "" {
			return Config{}, fmt.Errorf("POSTGRES_HOST is required")
		}
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}

	retries, err := atoiDefault("TX_MAX_RETRIES", 3)
	if err != nil {
		return Config{}, err
	}
	if retries < 0 {
		return Config{}, fmt.Errorf("TX_MAX_RETRIES must be >= 0")
	}
	cfg.TxMaxRetries = retries

	ttl, err := time.ParseDuration(getenv("TRACKING_CACHE_TTL", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("TRACKING_CACHE_TTL must be duration: %w", err)
	}
	if ttl <= 0 {
		return Config{}, fmt.Errorf("TRACKING_CACHE_TTL must be > 0")
	}
	cfg.TrackingCacheTTL = ttl

	//通知先ごとの必須チェック
	switch cfg.Notifier {
	case NotifierNone:
	case NotifierKafka:
		cfg.KafkaBrokers = splitCSV(os.Getenv("KAFKA_BROKERS"))
		if len(cfg.KafkaBrokers) == 0 {
			return Config{}, fmt.Errorf("KAFKA_BROKERS is required when NOTIFIER=kafka")
		}
	case NotifierRabbitMQ:
		if cfg.RabbitMQURL == "" {
			return Config{}, fmt.Errorf("RABBITMQ_URL is required when NOTIFIER=rabbitmq")
		}
	default:
		return Config{}, fmt.Errorf("NOTIFIER must be one of none, kafka, rabbitmq")
	}

	return cfg, nil
}

func mustAtoi(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func atoiDefault(key string, def int) (int, error) {
	if os.Getenv(key) == "" {
		return def, nil
	}
	return mustAtoi(key)
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func splitCSV(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
