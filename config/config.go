package config

import "time"

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"baobab-api"`
	Port                          int      `env:"PORT" env-default:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// PostgreSQL
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:""`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"baobab"`
	DatabaseSSLMode               string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseReconnectRetryCount   int           `env:"DB_RECONNECT_RETRY_COUNT" env-default:"3"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Redis (rate limiting and run locks)
	RedisHost     string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	// Kafka Producer settings
	KafkaBrokers         []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaOutputTopic     string   `env:"KAFKA_OUTPUT_TOPIC" env-default:"payer-events"`
	KafkaProducerEnabled bool     `env:"KAFKA_PRODUCER_ENABLED" env-default:"true"`
	KafkaBatchSize       int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout    int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks    int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression     string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Ingestion
	RequestTimeoutSeconds int           `env:"REQUEST_TIMEOUT_SECONDS" env-default:"30"`
	MaxRetries            int           `env:"MAX_RETRIES" env-default:"3"`
	RateLimitDelay        time.Duration `env:"RATE_LIMIT_DELAY" env-default:"1s"`
	RateLimitRequests     int64         `env:"RATE_LIMIT_REQUESTS" env-default:"10"`
	RateLimitWindow       time.Duration `env:"RATE_LIMIT_WINDOW" env-default:"10s"`
	RetryBackoffBase      time.Duration `env:"RETRY_BACKOFF_BASE" env-default:"500ms"`
	MaxConcurrentSources  int           `env:"MAX_CONCURRENT_SOURCES" env-default:"5"`
	MaxPagesPerSource     int           `env:"MAX_PAGES_PER_SOURCE" env-default:"10"`
	UserAgent             string        `env:"INGEST_USER_AGENT" env-default:"baobab-ingest/1.0"`
	GovernmentBaseURL     string        `env:"GOVERNMENT_BASE_URL" env-default:"https://www.cac.gov.ng"`
	DirectoryBaseURL      string        `env:"DIRECTORY_BASE_URL" env-default:"https://yellowpages.com.ng"`

	// Matching and merging
	DuplicateThreshold       float64 `env:"DUPLICATE_THRESHOLD" env-default:"0.8"`
	ConfidenceThreshold      float64 `env:"CONFIDENCE_THRESHOLD" env-default:"0.6"`
	RejectLowConfidence      bool    `env:"REJECT_LOW_CONFIDENCE" env-default:"false"`
	MatchCandidateLimit      int     `env:"MATCH_CANDIDATE_LIMIT" env-default:"5"`
	SourceReliabilityDefault float64 `env:"SOURCE_RELIABILITY_DEFAULT" env-default:"0.75"`
}
