package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Yulian302/lfusys-services-media/internal/config"
	"github.com/Yulian302/lfusys-services-media/internal/health"
	logger "github.com/Yulian302/lfusys-services-media/internal/logging"
	"github.com/Yulian302/lfusys-services-media/internal/tracing"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/sdk/trace"
)

const serviceName = "photos"

type App struct {
	Server *http.Server

	DynamoDB    *dynamodb.Client
	S3          *s3.Client
	Presigner   *s3.PresignClient
	Cognito     *cip.Client
	Rekognition *rekognition.Client
	Sqs         *sqs.Client
	Redis       *redis.Client

	Config    config.Config
	AwsConfig aws.Config

	Services       *Services
	TracerProvider *trace.TracerProvider
	Logger         logger.Logger
}

func SetupApp(ctx context.Context, cfg config.Config, appLogger logger.Logger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: appLogger,
	}

	if cfg.Tracing {
		tp, err := tracing.InitTracer(ctx, serviceName, cfg.TracingAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to start tracing: %w", err)
		}
		appLogger.Info("tracing enabled", "addr", cfg.TracingAddr)
		app.TracerProvider = tp
	}

	awsCfg, err := initAWS(ctx, *cfg.AWSConfig)
	if err != nil {
		return nil, err
	}
	if app.TracerProvider != nil {
		tracing.InstrumentAWS(&awsCfg, app.TracerProvider)
	}
	app.AwsConfig = awsCfg

	app.DynamoDB = dynamodb.NewFromConfig(awsCfg)
	app.S3 = initS3(awsCfg, *cfg.S3Config, cfg.AWSConfig.Endpoint != "")
	app.Presigner = s3.NewPresignClient(app.S3)
	app.Cognito = cip.NewFromConfig(awsCfg)
	app.Rekognition = rekognition.NewFromConfig(awsCfg)
	app.Sqs = sqs.NewFromConfig(awsCfg)
	app.Redis = initRedis(*cfg.RedisConfig)

	if app.DynamoDB == nil || app.S3 == nil {
		return nil, errors.New("could not init aws clients")
	}

	app.Services = BuildServices(ctx, app)

	return app, nil
}

func initAWS(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}

	if cfg.Endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return awsCfg, nil
}

func initS3(cfg aws.Config, s3Cfg config.S3Config, customEndpoint bool) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		// localstack and minio only serve path-style requests
		o.UsePathStyle = customEndpoint
		o.UseAccelerate = s3Cfg.UseAccelerate && !customEndpoint
	})
}

// initRedis returns nil when no address is configured.
func initRedis(cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: "",
		DB:       0,
	})
}

func (a *App) Run(ctx context.Context) error {
	switch a.Config.Mode {
	case config.ModeHTTP:
		return a.serveHTTP()
	case config.ModeWorker:
		a.Services.Receiver.Start()
		<-ctx.Done()
		return nil
	default:
		handler, err := a.Services.Handler.LambdaHandler(a.Config.Function)
		if err != nil {
			return err
		}
		a.Logger.Info("starting lambda function", "function", a.Config.Function)
		lambda.StartWithOptions(tracing.WrapHandler(handler, a.TracerProvider), lambda.WithContext(ctx))
		return nil
	}
}

func (a *App) serveHTTP() error {
	checks := []health.ReadinessCheck{
		a.Services.Stores.media,
		a.Services.Stores.uploads,
		a.Services.Stores.thumbnails,
	}
	if rc, ok := a.Services.Cache.(health.ReadinessCheck); ok {
		checks = append(checks, rc)
	}

	a.Server = &http.Server{
		Addr:              a.Config.HTTPAddr,
		Handler:           a.Services.Handler.NewRouter(checks),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.Logger.Info("http server started", "addr", a.Config.HTTPAddr)
	if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("starting graceful shutdown")

	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			a.Logger.Error("http server shutdown error", "error", err)
			_ = a.Server.Close() // force
		}
	}

	if a.Services != nil {
		if err := a.Services.Shutdown(ctx); err != nil {
			a.Logger.Error("services shutdown error", "error", err)
		}
	}

	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("redis close error", "error", err)
		}
	}

	if a.TracerProvider != nil {
		if err := a.TracerProvider.Shutdown(ctx); err != nil {
			a.Logger.Error("tracer shutdown error", "error", err)
		}
	}

	a.Logger.Info("graceful shutdown complete")
	return nil
}
