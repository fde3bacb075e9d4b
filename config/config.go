package config

import "time"

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"fern-api"`
	Port                          int      `env:"PORT" env-default:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,PATCH,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// PostgreSQL
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:""`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"fern"`
	DatabaseSSLMode               string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	// Redis Streams job queue
	RedisStreamsJobQueue      string `env:"REDIS_STREAMS_JOB_QUEUE" env-default:"fern:jobs"`
	RedisStreamsConsumerGroup string `env:"REDIS_STREAMS_CONSUMER_GROUP" env-default:"fern-workers"`
	RedisStreamsConsumerName  string `env:"REDIS_STREAMS_CONSUMER_NAME" env-default:""`
	PipelineWorkerCount       int    `env:"PIPELINE_WORKER_COUNT" env-default:"4"`
	PipelineMaxRetries        int    `env:"PIPELINE_MAX_RETRIES" env-default:"3"`

	// Kafka Producer settings
	KafkaBrokers      []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaOutputTopic  string   `env:"KAFKA_OUTPUT_TOPIC" env-default:"call-events"`
	KafkaBatchSize    int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`
	KafkaEnabled      bool     `env:"KAFKA_ENABLED" env-default:"true"`

	// Webhook intake
	WebhookSecret     string `env:"GOTO_WEBHOOK_SECRET" env-default:""`
	SimulationEnabled bool   `env:"SIMULATION_ENABLED" env-default:"false"`

	// Recording downloads
	MaxRecordingSizeBytes int64         `env:"MAX_RECORDING_SIZE_BYTES" env-default:"104857600"` // 100MB
	DownloadTimeout       time.Duration `env:"DOWNLOAD_TIMEOUT" env-default:"300s"`
	AudioTempDir          string        `env:"AUDIO_TEMP_DIR" env-default:""`

	// OpenAI
	OpenAIAPIKey        string        `env:"OPENAI_API_KEY" env-default:""`
	WhisperModel        string        `env:"WHISPER_MODEL" env-default:"whisper-1"`
	AnalysisModel       string        `env:"ANALYSIS_MODEL" env-default:"gpt-4o"`
	TranscriptionLang   string        `env:"TRANSCRIPTION_LANGUAGE" env-default:""`
	TranscriptionPrompt string        `env:"TRANSCRIPTION_PROMPT" env-default:""`
	OpenAITimeout       time.Duration `env:"OPENAI_TIMEOUT" env-default:"120s"`

	// Notifications
	SlackWebhookURL    string   `env:"SLACK_WEBHOOK_URL" env-default:""`
	SMTPHost           string   `env:"SMTP_HOST" env-default:""`
	SMTPPort           int      `env:"SMTP_PORT" env-default:"587"`
	SMTPUserName       string   `env:"SMTP_USER_NAME" env-default:""`
	SMTPPassword       string   `env:"SMTP_PASSWORD" env-default:""`
	SMTPFromAddress    string   `env:"SMTP_FROM_ADDRESS" env-default:""`
	NotifyEmailAddrs   []string `env:"NOTIFY_EMAIL_ADDRS" env-default:""`
	DashboardBaseURL   string   `env:"DASHBOARD_BASE_URL" env-default:""`
	NotifyMinUrgency   int      `env:"NOTIFY_MIN_URGENCY" env-default:"1"`

	// Auth
	AuthEnabled   bool   `env:"AUTH_ENABLED" env-default:"false"`
	AuthIssuerURL string `env:"AUTH_ISSUER_URL" env-default:""`
	AuthClientID  string `env:"AUTH_CLIENT_ID" env-default:""`

	// Tracing
	OTLPEnabled  bool   `env:"OTLP_ENABLED" env-default:"false"`
	OTLPEndpoint string `env:"OTLP_ENDPOINT" env-default:"localhost:4317"`
	OTLPProtocol string `env:"OTLP_PROTOCOL" env-default:"grpc"`
	OTLPInsecure bool   `env:"OTLP_INSECURE" env-default:"true"`
}
