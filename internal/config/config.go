package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all kestrel configuration.
type Config struct {
	Log      LogConfig
	HTTP     HTTPConfig
	Kafka    KafkaConfig
	Elastic  ElasticConfig
	Storage  StorageConfig
	SMTP     SMTPConfig
	Admins   AdminConfig
	Engine   EngineConfig
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "json" or "console"
}

// HTTPConfig holds the HTTP/WebSocket server settings.
type HTTPConfig struct {
	Addr string
}

// KafkaConfig holds the log consumer settings.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// ElasticConfig holds Elasticsearch connection settings.
type ElasticConfig struct {
	Addresses []string
}

// StorageConfig holds flat-file storage settings.
type StorageConfig struct {
	BaseDir string
}

// SMTPConfig holds outbound mail transport settings.
type SMTPConfig struct {
	Server    string
	Port      int
	Username  string
	Password  string
	FromEmail string
}

// AdminConfig maps each high-level anomaly category to a recipient address.
// Empty values mean the category has no recipient and is never notified.
type AdminConfig struct {
	Network      string
	Security     string
	Availability string
	Data         string
	Resource     string
	Performance  string
}

// EngineConfig holds anomaly engine settings.
type EngineConfig struct {
	ModelPath         string
	VocabPath         string
	CapabilityTimeout time.Duration
	Workers           int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		Log: LogConfig{
			Level:  getenv("KESTREL_LOG_LEVEL", "info"),
			Format: getenv("KESTREL_LOG_FORMAT", "console"),
		},
		HTTP: HTTPConfig{
			Addr: getenv("KESTREL_HTTP_ADDR", ":8000"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getenv("KESTREL_KAFKA_BROKERS", "localhost:29092")),
			Topic:   getenv("KESTREL_KAFKA_TOPIC", "hadoop-logs"),
			GroupID: getenv("KESTREL_KAFKA_GROUP_ID", "kestrel-log-consumer"),
		},
		Elastic: ElasticConfig{
			Addresses: splitList(getenv("KESTREL_ES_ADDRESSES", "http://localhost:9200")),
		},
		Storage: StorageConfig{
			BaseDir: getenv("KESTREL_STORAGE_DIR", "logs"),
		},
		SMTP: SMTPConfig{
			Server:    os.Getenv("SMTP_SERVER"),
			Port:      getenvInt("SMTP_PORT", 587),
			Username:  os.Getenv("SMTP_USERNAME"),
			Password:  os.Getenv("SMTP_PASSWORD"),
			FromEmail: os.Getenv("SMTP_FROM_EMAIL"),
		},
		Admins: AdminConfig{
			Network:      os.Getenv("NETWORK_ADMIN_EMAIL"),
			Security:     os.Getenv("SECURITY_ADMIN_EMAIL"),
			Availability: os.Getenv("AVAILABILITY_ADMIN_EMAIL"),
			Data:         os.Getenv("DATA_ADMIN_EMAIL"),
			Resource:     os.Getenv("RESOURCE_ADMIN_EMAIL"),
			Performance:  os.Getenv("PERFORMANCE_ADMIN_EMAIL"),
		},
		Engine: EngineConfig{
			ModelPath:         getenv("KESTREL_MODEL_PATH", "models/model_quantized.onnx"),
			VocabPath:         getenv("KESTREL_VOCAB_PATH", "models/vocab.txt"),
			CapabilityTimeout: getenvDuration("KESTREL_CAPABILITY_TIMEOUT", 10*time.Second),
			Workers:           getenvInt("KESTREL_WORKERS", 8),
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
