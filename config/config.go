package config

import "time"

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"marigold-api"`
	Port                          int      `env:"PORT" env-default:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	TLSMinVersion                 string   `env:"HTTP_SERVER_TLS_MIN_VERSION" env-default:"TLS_1_2"`
	TLSMaxVersion                 string   `env:"HTTP_SERVER_TLS_MAX_VERSION" env-default:"TLS_1_2"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// PostgreSQL
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:""`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"marigold"`
	DatabaseSSLMode               string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseReconnectRetryCount   int           `env:"DB_RECONNECT_RETRY_COUNT" env-default:"3"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Auth. When disabled, the X-Tenant-ID and X-User-ID headers are trusted
	// for local development and tests.
	AuthEnabled   bool   `env:"AUTH_ENABLED" env-default:"false"`
	AuthIssuerURL string `env:"AUTH_ISSUER_URL" env-default:""`
	AuthClientID  string `env:"AUTH_CLIENT_ID" env-default:""`

	// Redis (report cache + scheduler lock)
	RedisHost     string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`
	// Report cache TTL
	ReportCacheTTL time.Duration `env:"REPORT_CACHE_TTL" env-default:"60s"`

	// Kafka producer for sync lifecycle events
	KafkaEnabled      bool   `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaBrokers      string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaSyncTopic    string `env:"KAFKA_SYNC_TOPIC" env-default:"sync-events"`
	KafkaBatchTimeout int    `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int    `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`

	// Graph API settings
	GraphAPIBaseURL        string        `env:"GRAPH_API_BASE_URL" env-default:"https://graph.facebook.com"`
	GraphAPIVersion        string        `env:"GRAPH_API_VERSION" env-default:"v20.0"`
	GraphAPIPageSize       int           `env:"GRAPH_API_PAGE_SIZE" env-default:"500"`
	GraphAPIMaxPages       int           `env:"GRAPH_API_MAX_PAGES" env-default:"50"`
	GraphAPIRequestTimeout time.Duration `env:"GRAPH_API_REQUEST_TIMEOUT" env-default:"30s"`

	// Worker settings
	// Poll interval when the queue is empty
	WorkerPollInterval time.Duration `env:"WORKER_POLL_INTERVAL" env-default:"5s"`
	WorkerEnabled      bool          `env:"WORKER_ENABLED" env-default:"true"`

	// Sync settings
	SyncDefaultLookbackDays int `env:"SYNC_DEFAULT_LOOKBACK_DAYS" env-default:"7"`
	SyncMaxLookbackDays     int `env:"SYNC_MAX_LOOKBACK_DAYS" env-default:"90"`

	// Scheduler settings
	// Enable/disable the periodic sync scheduler
	SchedulerEnabled bool `env:"SCHEDULER_ENABLED" env-default:"false"`
	// How often the scheduler wakes up to look for stale accounts
	SchedulerPollInterval time.Duration `env:"SCHEDULER_POLL_INTERVAL" env-default:"1m"`
	// Minimum age before an account is re-queued for sync
	SchedulerSyncInterval time.Duration `env:"SCHEDULER_SYNC_INTERVAL" env-default:"6h"`
	// Scheduler lock TTL in redis
	SchedulerLockTTL time.Duration `env:"SCHEDULER_LOCK_TTL" env-default:"2m"`

	// Tracing settings
	// Enable OTLP tracing export (set to true to send traces to collector)
	OTLPEnabled bool `env:"OTLP_ENABLED" env-default:"false"`
	// OTLP collector endpoint
	OTLPEndpoint string `env:"OTLP_ENDPOINT" env-default:"localhost:4317"`
	// OTLP protocol (grpc or http)
	OTLPProtocol string `env:"OTLP_PROTOCOL" env-default:"grpc"`
	// Disable TLS for OTLP (for local development)
	OTLPInsecure bool `env:"OTLP_INSECURE" env-default:"true"`
}
