package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Service  *svcConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"counselpro"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address         string   `envconfig:"COUNSELPRO_ADDRESS" default:":8080"`
	MetricsAddress  string   `envconfig:"COUNSELPRO_METRICS_ADDRESS" default:":8081"`
	BaseUrl         string   `envconfig:"COUNSELPRO_BASE_URL" default:"http://localhost:8080"`
	LogLevel        string   `envconfig:"COUNSELPRO_LOG_LEVEL" default:"info"`
	LogFormat       string   `envconfig:"COUNSELPRO_LOG_FORMAT" default:"console"`
	MigrationFolder string   `envconfig:"COUNSELPRO_MIGRATIONS_FOLDER" default:""`
	AllowedOrigins  []string `envconfig:"COUNSELPRO_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	Pipeline        Pipeline
	S3              S3
	Transcription   Transcription
	Vision          Vision
	Catalog         Catalog
	Notification    Notification
}

type Pipeline struct {
	Workers                int           `envconfig:"COUNSELPRO_PIPELINE_WORKERS" default:"4"`
	QueueCapacity          int           `envconfig:"COUNSELPRO_PIPELINE_QUEUE_CAPACITY" default:"64"`
	JobTimeout             time.Duration `envconfig:"COUNSELPRO_PIPELINE_JOB_TIMEOUT" default:"45m"`
	ExtractionTimeout      time.Duration `envconfig:"COUNSELPRO_PIPELINE_EXTRACTION_TIMEOUT" default:"15m"`
	TranscriptionTimeout   time.Duration `envconfig:"COUNSELPRO_PIPELINE_TRANSCRIPTION_TIMEOUT" default:"15m"`
	VisualTimeout          time.Duration `envconfig:"COUNSELPRO_PIPELINE_VISUAL_TIMEOUT" default:"15m"`
	VerificationTimeout    time.Duration `envconfig:"COUNSELPRO_PIPELINE_VERIFICATION_TIMEOUT" default:"5m"`
	PersistenceMaxAttempts uint64        `envconfig:"COUNSELPRO_PIPELINE_PERSISTENCE_ATTEMPTS" default:"5"`
	ReaperInterval         time.Duration `envconfig:"COUNSELPRO_PIPELINE_REAPER_INTERVAL" default:"1m"`
	ShutdownTimeout        time.Duration `envconfig:"COUNSELPRO_PIPELINE_SHUTDOWN_TIMEOUT" default:"30s"`
	WorkDir                string        `envconfig:"COUNSELPRO_PIPELINE_WORK_DIR" default:""`
	FfmpegPath             string        `envconfig:"COUNSELPRO_FFMPEG_PATH" default:"ffmpeg"`
	FrameInterval          time.Duration `envconfig:"COUNSELPRO_FRAME_INTERVAL" default:"10s"`
}

type S3 struct {
	Endpoint  string `envconfig:"COUNSELPRO_S3_ENDPOINT" default:""`
	Bucket    string `envconfig:"COUNSELPRO_S3_BUCKET" default:""`
	AccessKey string `envconfig:"COUNSELPRO_S3_ACCESS_KEY" default:""`
	SecretKey string `envconfig:"COUNSELPRO_S3_SECRET_KEY" default:""`
	UseSSL    bool   `envconfig:"COUNSELPRO_S3_USE_SSL" default:"false"`
}

type Transcription struct {
	URL     string        `envconfig:"COUNSELPRO_DEEPGRAM_URL" default:"https://api.deepgram.com/v1/listen"`
	APIKey  string        `envconfig:"DEEPGRAM_API_KEY" default:""`
	Model   string        `envconfig:"COUNSELPRO_DEEPGRAM_MODEL" default:"nova-3"`
	Timeout time.Duration `envconfig:"COUNSELPRO_DEEPGRAM_HTTP_TIMEOUT" default:"10m"`
}

type Vision struct {
	URL     string        `envconfig:"COUNSELPRO_VISION_URL" default:""`
	Timeout time.Duration `envconfig:"COUNSELPRO_VISION_HTTP_TIMEOUT" default:"30s"`
}

type Catalog struct {
	File  string `envconfig:"COUNSELPRO_CATALOG_FILE" default:""`
	Sheet string `envconfig:"COUNSELPRO_CATALOG_SHEET" default:"Courses"`
}

type Notification struct {
	WebhookURL string        `envconfig:"COUNSELPRO_NOTIFY_WEBHOOK_URL" default:""`
	Timeout    time.Duration `envconfig:"COUNSELPRO_NOTIFY_TIMEOUT" default:"10s"`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// Load reads the env file at path, when given, before processing the environment.
// Variables already set in the environment win over the file.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, errors.Wrapf(err, "loading config file %s", path)
		}
	}
	return New()
}

// NewDefault returns the default configuration backed by an in-memory sqlite database.
func NewDefault() *Config {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		cfg = &Config{Database: &dbConfig{}, Service: &svcConfig{}}
	}
	cfg.Database.Type = "sqlite"
	cfg.Database.Name = "file::memory:?cache=shared"
	return cfg
}
