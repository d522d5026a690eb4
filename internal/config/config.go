package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Fuentes   FuentesConfig
	Evidence  EvidenceConfig
	Kafka     KafkaConfig
	OIDC      OIDCConfig
	Gateway   GatewayConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	ApiDomain string
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DB       string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	ConsultasPerHour int
	RelanzarPerHour  int
	ExportPerHour    int
}

// FuentesConfig points at the external source-registry gateway.
type FuentesConfig struct {
	APIKey  string
	BaseURL string
}

// EvidenceConfig configures S3-compatible evidence storage (Cloudflare R2).
type EvidenceConfig struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

// KafkaConfig configures the optional status-transition audit stream.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type OIDCConfig struct {
	Issuer   string
	ClientID string
}

type GatewayConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("POSTGRES_PASSWORD")
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")
	readSecret("FUENTES_API_KEY")
	readSecret("EVIDENCE_ACCESS_KEY_ID")
	readSecret("EVIDENCE_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("server.api_domain", "API_DOMAIN")
	_ = viper.BindEnv("postgres.host", "POSTGRES_HOST")
	_ = viper.BindEnv("postgres.port", "POSTGRES_PORT")
	_ = viper.BindEnv("postgres.user", "POSTGRES_USER")
	_ = viper.BindEnv("postgres.password", "POSTGRES_PASSWORD")
	_ = viper.BindEnv("postgres.db", "POSTGRES_DB")
	_ = viper.BindEnv("postgres.sslmode", "POSTGRES_SSLMODE")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("fuentes.api_key", "FUENTES_API_KEY")
	_ = viper.BindEnv("fuentes.base_url", "FUENTES_BASE_URL")
	_ = viper.BindEnv("evidence.account_id", "EVIDENCE_ACCOUNT_ID")
	_ = viper.BindEnv("evidence.access_key_id", "EVIDENCE_ACCESS_KEY_ID")
	_ = viper.BindEnv("evidence.secret_access_key", "EVIDENCE_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("evidence.bucket_name", "EVIDENCE_BUCKET_NAME")
	_ = viper.BindEnv("evidence.public_url", "EVIDENCE_PUBLIC_URL")
	_ = viper.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	_ = viper.BindEnv("kafka.topic", "KAFKA_TOPIC")
	_ = viper.BindEnv("oidc.issuer", "OIDC_ISSUER")
	_ = viper.BindEnv("oidc.client_id", "OIDC_CLIENT_ID")
	_ = viper.BindEnv("gateway.enabled", "GATEWAY_ENABLED")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("postgres.host", "localhost")
	viper.SetDefault("postgres.port", "5432")
	viper.SetDefault("postgres.user", "econfia")
	viper.SetDefault("postgres.password", "econfia")
	viper.SetDefault("postgres.db", "econfia")
	viper.SetDefault("postgres.sslmode", "disable")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.consultas_per_hour", 20)
	viper.SetDefault("ratelimit.relanzar_per_hour", 30)
	viper.SetDefault("ratelimit.export_per_hour", 10)
	viper.SetDefault("fuentes.base_url", "https://fuentes.econfia.co")
	viper.SetDefault("kafka.topic", "econfia.consulta.events")

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      viper.GetString("server.port"),
			Env:       viper.GetString("server.env"),
			LogLevel:  viper.GetString("server.log_level"),
			ApiDomain: viper.GetString("server.api_domain"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("postgres.host"),
			Port:     viper.GetString("postgres.port"),
			User:     viper.GetString("postgres.user"),
			Password: viper.GetString("postgres.password"),
			DB:       viper.GetString("postgres.db"),
			SSLMode:  viper.GetString("postgres.sslmode"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			ConsultasPerHour: viper.GetInt("ratelimit.consultas_per_hour"),
			RelanzarPerHour:  viper.GetInt("ratelimit.relanzar_per_hour"),
			ExportPerHour:    viper.GetInt("ratelimit.export_per_hour"),
		},
		Fuentes: FuentesConfig{
			APIKey:  viper.GetString("fuentes.api_key"),
			BaseURL: viper.GetString("fuentes.base_url"),
		},
		Evidence: EvidenceConfig{
			AccountID:       viper.GetString("evidence.account_id"),
			AccessKeyID:     viper.GetString("evidence.access_key_id"),
			SecretAccessKey: viper.GetString("evidence.secret_access_key"),
			BucketName:      viper.GetString("evidence.bucket_name"),
			PublicURL:       viper.GetString("evidence.public_url"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(viper.GetString("kafka.brokers")),
			Topic:   viper.GetString("kafka.topic"),
		},
		OIDC: OIDCConfig{
			Issuer:   viper.GetString("oidc.issuer"),
			ClientID: viper.GetString("oidc.client_id"),
		},
		Gateway: GatewayConfig{
			Enabled: viper.GetBool("gateway.enabled"),
		},
	}

	return cfg, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
