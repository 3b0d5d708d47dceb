package config

import (
	"database/sql"
	"dreamreel/constant"
	"errors"
	"fmt"
	"github.com/caarlos0/env/v11"
	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"
	"time"
)

type Config struct {
	MinIOBucket string        `yaml:"minio_bucket"`
	App         App           `yaml:"app"`
	DB          *sql.DB       `yaml:"db"`
	Queue       *RabbitMQ     `yaml:"rabbitmq"`
	Storage     *minio.Client `yaml:"storage"`
	Server      Server        `yaml:"server"`
	Store       Store         `yaml:"store"`
	Pipeline    Pipeline      `yaml:"pipeline"`
	Capture     Capture       `yaml:"capture"`
	Groq        Groq          `yaml:"groq"`
	Veo         Veo           `yaml:"veo"`
	Client      Client        `yaml:"client"`
	Credentials Credentials   `yaml:"-"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Protocol    string `yaml:"protocol"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
	Workers  int    `yaml:"workers"`
}

type Store struct {
	Kind constant.StoreKind `yaml:"kind"`
	// Path is the directory holding the local blob files and the sqlite database.
	Path string `yaml:"path"`
}

type Pipeline struct {
	Mode        constant.PipelineMode `yaml:"mode"`
	MirrorVideo bool                  `yaml:"mirror_video"`
	Thumbnails  bool                  `yaml:"thumbnails"`
}

type Capture struct {
	Device        string        `yaml:"device"`
	InputFormat   string        `yaml:"input_format"`
	ChunkInterval time.Duration `yaml:"chunk_interval"`
	MaxDuration   time.Duration `yaml:"max_duration"`
	UploadWorkers int           `yaml:"upload_workers"`
	UploadQueue   int           `yaml:"upload_queue"`
	DrainGrace    time.Duration `yaml:"drain_grace"`
}

type Groq struct {
	BaseURL            string        `yaml:"base_url"`
	TranscriptionModel string        `yaml:"transcription_model"`
	ChatModel          string        `yaml:"chat_model"`
	Timeout            time.Duration `yaml:"timeout"`
	RequestsPerSecond  float64       `yaml:"requests_per_second"`
	Burst              int           `yaml:"burst"`
}

type Veo struct {
	BaseURL      string        `yaml:"base_url"`
	Model        string        `yaml:"model"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxAttempts  uint          `yaml:"max_attempts"`
	Deadline     time.Duration `yaml:"deadline"`
}

type Client struct {
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	ChunkTimeout time.Duration `yaml:"chunk_timeout"`
}

// Credentials are only ever read from the environment.
type Credentials struct {
	GroqAPIKey           string `env:"GROQ_API_KEY"`
	GoogleAPIKey         string `env:"GOOGLE_API_KEY"`
	DatabaseURL          string `env:"DATABASE_URL"`
	MinIOAccessID        string `env:"MINIO_ACCESS_ID"`
	MinIOSecretAccessKey string `env:"MINIO_SECRET_ACCESS_KEY"`
}

type RabbitMQ struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Pass         string `json:"pass"`
	ExchangeName string `json:"exchange_name"`
	Kind         string `json:"kind"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", constant.EnvironmentDevelop.String())
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.workers", 2)
	v.SetDefault("store.kind", string(constant.StoreKindLocal))
	v.SetDefault("store.path", "data")
	v.SetDefault("pipeline.mode", string(constant.PipelineModeInline))
	v.SetDefault("pipeline.mirror_video", true)
	v.SetDefault("pipeline.thumbnails", true)
	v.SetDefault("capture.device", ":default")
	v.SetDefault("capture.input_format", "avfoundation")
	v.SetDefault("capture.chunk_interval", 5*time.Second)
	v.SetDefault("capture.max_duration", 60*time.Second)
	v.SetDefault("capture.upload_workers", 2)
	v.SetDefault("capture.upload_queue", 8)
	v.SetDefault("capture.drain_grace", 3*time.Second)
	v.SetDefault("groq.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("groq.transcription_model", "whisper-large-v3-turbo")
	v.SetDefault("groq.chat_model", "llama-3.1-8b-instant")
	v.SetDefault("groq.timeout", 60*time.Second)
	v.SetDefault("groq.requests_per_second", 5.0)
	v.SetDefault("groq.burst", 2)
	v.SetDefault("veo.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("veo.model", "veo-2.0-generate-001")
	v.SetDefault("veo.poll_interval", 10*time.Second)
	v.SetDefault("veo.max_attempts", 60)
	v.SetDefault("veo.deadline", 15*time.Minute)
	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.timeout", 20*time.Minute)
	v.SetDefault("client.chunk_timeout", 30*time.Second)
	v.SetDefault("rabbitmq_kind", "direct")
	v.SetDefault("rabbitmq_port", 5672)
	v.SetDefault("minio.bucket", "dreams")
}

func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var creds Credentials
	if err := env.Parse(&creds); err != nil {
		return nil, fmt.Errorf("environment variables are invalid: %w", err)
	}
	if creds.DatabaseURL == "" {
		creds.DatabaseURL = v.GetString("postgresql_host")
	}
	if creds.MinIOAccessID == "" {
		creds.MinIOAccessID = v.GetString("minio.access_id")
	}
	if creds.MinIOSecretAccessKey == "" {
		creds.MinIOSecretAccessKey = v.GetString("minio.secret_access_key")
	}

	cfg := &Config{
		MinIOBucket: v.GetString("minio.bucket"),
		App: App{
			Environment: v.GetString("app.environment"),
			Host:        v.GetString("app.host"),
			Protocol:    v.GetString("app.protocol"),
		},
		Server: Server{
			HttpPort: v.GetString("server.port"),
			Workers:  v.GetInt("server.workers"),
		},
		Store: Store{
			Kind: constant.StoreKind(v.GetString("store.kind")),
			Path: v.GetString("store.path"),
		},
		Pipeline: Pipeline{
			Mode:        constant.PipelineMode(v.GetString("pipeline.mode")),
			MirrorVideo: v.GetBool("pipeline.mirror_video"),
			Thumbnails:  v.GetBool("pipeline.thumbnails"),
		},
		Capture: Capture{
			Device:        v.GetString("capture.device"),
			InputFormat:   v.GetString("capture.input_format"),
			ChunkInterval: v.GetDuration("capture.chunk_interval"),
			MaxDuration:   v.GetDuration("capture.max_duration"),
			UploadWorkers: v.GetInt("capture.upload_workers"),
			UploadQueue:   v.GetInt("capture.upload_queue"),
			DrainGrace:    v.GetDuration("capture.drain_grace"),
		},
		Groq: Groq{
			BaseURL:            v.GetString("groq.base_url"),
			TranscriptionModel: v.GetString("groq.transcription_model"),
			ChatModel:          v.GetString("groq.chat_model"),
			Timeout:            v.GetDuration("groq.timeout"),
			RequestsPerSecond:  v.GetFloat64("groq.requests_per_second"),
			Burst:              v.GetInt("groq.burst"),
		},
		Veo: Veo{
			BaseURL:      v.GetString("veo.base_url"),
			Model:        v.GetString("veo.model"),
			PollInterval: v.GetDuration("veo.poll_interval"),
			MaxAttempts:  v.GetUint("veo.max_attempts"),
			Deadline:     v.GetDuration("veo.deadline"),
		},
		Client: Client{
			BaseURL:      v.GetString("client.base_url"),
			Timeout:      v.GetDuration("client.timeout"),
			ChunkTimeout: v.GetDuration("client.chunk_timeout"),
		},
		Credentials: creds,
	}

	if host := v.GetString("rabbitmq_host"); host != "" {
		cfg.Queue = &RabbitMQ{
			Host:         host,
			Port:         v.GetInt("rabbitmq_port"),
			User:         v.GetString("rabbitmq_user"),
			Pass:         v.GetString("rabbitmq_pass"),
			ExchangeName: v.GetString("rabbitmq_exchange"),
			Kind:         v.GetString("rabbitmq_kind"),
		}
	}

	if creds.DatabaseURL != "" {
		db, err := sql.Open("postgres", creds.DatabaseURL)
		if err != nil {
			return nil, err
		}
		cfg.DB = db
	}

	if url := v.GetString("minio.url"); url != "" {
		minioClient, err := minio.New(url, &minio.Options{
			Creds:  credentials.NewStaticV4(creds.MinIOAccessID, creds.MinIOSecretAccessKey, ""),
			Secure: v.GetBool("minio.secure"),
		})
		if err != nil {
			return nil, err
		}
		cfg.Storage = minioClient
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Kind {
	case constant.StoreKindLocal, constant.StoreKindSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the %s store", c.Store.Kind)
		}
	case constant.StoreKindMinIO:
		if c.Storage == nil {
			return fmt.Errorf("minio.url is required for the minio store")
		}
	case constant.StoreKindPostgres:
		if c.DB == nil {
			return fmt.Errorf("DATABASE_URL or postgresql_host is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store.kind %q", c.Store.Kind)
	}

	switch c.Pipeline.Mode {
	case constant.PipelineModeInline:
	case constant.PipelineModeQueue:
		if c.DB == nil || c.Storage == nil || c.Queue == nil {
			return fmt.Errorf("pipeline.mode=queue requires postgres, minio and rabbitmq settings")
		}
	default:
		return fmt.Errorf("unknown pipeline.mode %q", c.Pipeline.Mode)
	}

	if c.Capture.ChunkInterval <= 0 {
		return fmt.Errorf("capture.chunk_interval must be positive, got %s", c.Capture.ChunkInterval)
	}
	if c.Capture.MaxDuration < c.Capture.ChunkInterval {
		return fmt.Errorf("capture.max_duration (%s) must not be shorter than capture.chunk_interval (%s)", c.Capture.MaxDuration, c.Capture.ChunkInterval)
	}
	if c.Veo.MaxAttempts == 0 {
		return fmt.Errorf("veo.max_attempts must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == constant.EnvironmentDevelop.String()
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == constant.EnvironmentProduction.String()
}
