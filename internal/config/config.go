package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "PHOTOS"

const (
	ModeLambda = "lambda"
	ModeHTTP   = "http"
	ModeWorker = "worker"
)

type Config struct {
	Env         string `envconfig:"ENV" default:"dev"`
	Mode        string `envconfig:"MODE" default:"lambda"`
	Function    string `envconfig:"FUNCTION"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Tracing     bool   `envconfig:"TRACING" default:"false"`
	TracingAddr string `envconfig:"TRACING_ADDR" default:"localhost:4317"`

	AWSConfig         *AWSConfig         `envconfig:"AWS"`
	DynamoDBConfig    *DynamoDBConfig    `envconfig:"DYNAMODB"`
	S3Config          *S3Config          `envconfig:"S3"`
	CognitoConfig     *CognitoConfig     `envconfig:"COGNITO"`
	RekognitionConfig *RekognitionConfig `envconfig:"REKOGNITION"`
	RedisConfig       *RedisConfig       `envconfig:"REDIS"`
	QueueConfig       *QueueConfig       `envconfig:"QUEUE"`
	CORSConfig        *CORSConfig        `envconfig:"CORS"`
}

type AWSConfig struct {
	// Region falls back to the SDK default chain (AWS_REGION in Lambda) when empty.
	Region string `envconfig:"REGION"`
	// Endpoint overrides every client endpoint, e.g. localstack.
	Endpoint string `envconfig:"ENDPOINT"`
}

type DynamoDBConfig struct {
	TableName string `envconfig:"TABLE_NAME"`
}

type S3Config struct {
	UploadBucket    string        `envconfig:"UPLOAD_BUCKET"`
	ThumbnailBucket string        `envconfig:"THUMBNAIL_BUCKET"`
	UseAccelerate   bool          `envconfig:"USE_ACCELERATE" default:"false"`
	PartSize        int64         `envconfig:"PART_SIZE" default:"10485760"`
	UploadURLTTL    time.Duration `envconfig:"UPLOAD_URL_TTL" default:"1h"`
	DownloadURLTTL  time.Duration `envconfig:"DOWNLOAD_URL_TTL" default:"24h"`
}

type CognitoConfig struct {
	ClientID string `envconfig:"CLIENT_ID"`
}

type RekognitionConfig struct {
	MaxFaces       int32   `envconfig:"MAX_FACES" default:"10"`
	MatchMaxFaces  int32   `envconfig:"MATCH_MAX_FACES" default:"5"`
	RenameMaxFaces int32   `envconfig:"RENAME_MAX_FACES" default:"20"`
	MatchThreshold float32 `envconfig:"MATCH_THRESHOLD" default:"80"`
}

type RedisConfig struct {
	// Addr left empty disables caching.
	Addr     string        `envconfig:"ADDR"`
	TokenTTL time.Duration `envconfig:"TOKEN_TTL" default:"5m"`
}

type QueueConfig struct {
	URL               string `envconfig:"URL"`
	WaitSeconds       int32  `envconfig:"WAIT_SECONDS" default:"20"`
	VisibilityTimeout int32  `envconfig:"VISIBILITY_TIMEOUT" default:"60"`
}

type CORSConfig struct {
	AllowOrigin string `envconfig:"ALLOW_ORIGIN" default:"*"`
}

func LoadConfig() (Config, error) {
	cfg := Config{
		AWSConfig:         &AWSConfig{},
		DynamoDBConfig:    &DynamoDBConfig{},
		S3Config:          &S3Config{},
		CognitoConfig:     &CognitoConfig{},
		RekognitionConfig: &RekognitionConfig{},
		RedisConfig:       &RedisConfig{},
		QueueConfig:       &QueueConfig{},
		CORSConfig:        &CORSConfig{},
	}
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.Mode {
	case ModeLambda, ModeHTTP, ModeWorker:
	default:
		errs = append(errs, fmt.Errorf("unknown mode %q", c.Mode))
	}

	if c.Mode == ModeLambda && c.Function == "" {
		errs = append(errs, errors.New("PHOTOS_FUNCTION is required in lambda mode"))
	}
	if c.DynamoDBConfig == nil || c.DynamoDBConfig.TableName == "" {
		errs = append(errs, errors.New("PHOTOS_DYNAMODB_TABLE_NAME is required"))
	}
	if c.S3Config == nil || c.S3Config.UploadBucket == "" {
		errs = append(errs, errors.New("PHOTOS_S3_UPLOAD_BUCKET is required"))
	}
	if c.S3Config == nil || c.S3Config.ThumbnailBucket == "" {
		errs = append(errs, errors.New("PHOTOS_S3_THUMBNAIL_BUCKET is required"))
	}
	if c.S3Config != nil && c.S3Config.PartSize < MinPartSize {
		errs = append(errs, fmt.Errorf("PHOTOS_S3_PART_SIZE must be at least %d bytes", MinPartSize))
	}
	if c.needsCognitoClient() && (c.CognitoConfig == nil || c.CognitoConfig.ClientID == "") {
		errs = append(errs, errors.New("PHOTOS_COGNITO_CLIENT_ID is required for sign-in and sign-out"))
	}
	if c.Mode == ModeWorker && (c.QueueConfig == nil || c.QueueConfig.URL == "") {
		errs = append(errs, errors.New("PHOTOS_QUEUE_URL is required in worker mode"))
	}

	return errors.Join(errs...)
}

// needsCognitoClient reports whether the configured functions start or end
// Cognito sessions. The dev server serves every function.
func (c Config) needsCognitoClient() bool {
	if c.Mode == ModeHTTP {
		return true
	}
	return c.Mode == ModeLambda && (c.Function == "signin" || c.Function == "signout")
}

// MinPartSize is the smallest part S3 accepts for every part but the last.
const MinPartSize = 5 * 1024 * 1024

func (c Config) IsDev() bool {
	return c.Env == "dev"
}
