package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Endpoints EndpointsConfig
	Dataset   DatasetConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Logger    LoggerConfig
	Auth      AuthConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	// ConversationIdleMinutes bounds how long an unused conversation is
	// kept. Zero keeps conversations until they are deleted.
	ConversationIdleMinutes int
}

// EndpointsConfig holds the addresses of the external text endpoints.
// An empty address means the endpoint is not configured.
type EndpointsConfig struct {
	Chat                  string
	HomeChat              string
	Priority              string
	Translate             string
	UpgradePath           string
	TimeoutSeconds        int
	RenderMarkdownAnswers bool
}

// DatasetConfig points at ticket fixtures; empty paths use the embedded assets.
type DatasetConfig struct {
	TicketsPath    string
	DemoTicketPath string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig configures ticket change export. No brokers disables it.
type KafkaConfig struct {
	Brokers           []string
	TicketEventsTopic string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines device authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	DeviceTokenTTLMinutes int
	EnrollmentSecretHash  string
	Required              bool
}

// Env var names for the endpoints, reused in configuration errors.
const (
	EnvChatEndpoint        = "SPARK_CHAT_ENDPOINT"
	EnvHomeChatEndpoint    = "SPARK_HOME_CHAT_ENDPOINT"
	EnvPriorityEndpoint    = "PRIORITY_ENDPOINT"
	EnvTranslateEndpoint   = "TRANSLATE_ENDPOINT"
	EnvUpgradePathEndpoint = "UPGRADE_PATH_ENDPOINT"
)

// Load reads configuration from environment variables, applying defaults where possible.
// envFiles are passed to godotenv; with none it reads .env when present.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	chat := strings.TrimSpace(os.Getenv(EnvChatEndpoint))

	cfg := &Config{
		App: AppConfig{
			Name:                    getEnv("APP_NAME", "spark-support"),
			Env:                     getEnv("APP_ENV", "development"),
			Host:                    getEnv("APP_HOST", "0.0.0.0"),
			Port:                    getEnv("APP_PORT", "8080"),
			Version:                 getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds:   getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 90),
			ConversationIdleMinutes: getEnvAsInt("CONVERSATION_IDLE_MINUTES", 120),
		},
		Endpoints: EndpointsConfig{
			Chat:                  chat,
			HomeChat:              strings.TrimSpace(getEnv(EnvHomeChatEndpoint, chat)),
			Priority:              strings.TrimSpace(os.Getenv(EnvPriorityEndpoint)),
			Translate:             strings.TrimSpace(os.Getenv(EnvTranslateEndpoint)),
			UpgradePath:           strings.TrimSpace(os.Getenv(EnvUpgradePathEndpoint)),
			TimeoutSeconds:        getEnvAsInt("ENDPOINT_TIMEOUT_SECONDS", 60),
			RenderMarkdownAnswers: getEnvAsBool("RENDER_MARKDOWN_ANSWERS", true),
		},
		Dataset: DatasetConfig{
			TicketsPath:    os.Getenv("TICKETS_PATH"),
			DemoTicketPath: os.Getenv("DEMO_TICKET_PATH"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Kafka: KafkaConfig{
			Brokers:           getEnvAsList("KAFKA_BROKERS"),
			TicketEventsTopic: getEnv("KAFKA_TICKET_EVENTS_TOPIC", "spark.ticket-changes"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			DeviceTokenTTLMinutes: getEnvAsInt("AUTH_DEVICE_TOKEN_TTL_MINUTES", 60*24*30),
			EnrollmentSecretHash:  os.Getenv("AUTH_ENROLLMENT_SECRET_HASH"),
			Required:              getEnvAsBool("AUTH_REQUIRED", false),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// ConversationIdleTTL returns the idle limit, or zero when disabled.
func (a AppConfig) ConversationIdleTTL() time.Duration {
	if a.ConversationIdleMinutes <= 0 {
		return 0
	}
	return time.Duration(a.ConversationIdleMinutes) * time.Minute
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the per-call endpoint timeout.
func (e EndpointsConfig) Timeout() time.Duration {
	if e.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// DeviceTokenTTL returns how long issued device tokens stay valid.
func (a AuthConfig) DeviceTokenTTL() time.Duration {
	return time.Duration(a.DeviceTokenTTLMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
