package main

import (
	"context"

	"github.com/Yulian302/lfusys-services-media/handlers"
	"github.com/Yulian302/lfusys-services-media/identity"
	"github.com/Yulian302/lfusys-services-media/internal/caching"
	"github.com/Yulian302/lfusys-services-media/internal/config"
	"github.com/Yulian302/lfusys-services-media/queues"
	"github.com/Yulian302/lfusys-services-media/services"
	"github.com/Yulian302/lfusys-services-media/store"
	"github.com/Yulian302/lfusys-services-media/vision"
)

type Stores struct {
	media      store.MediaStore
	albums     store.AlbumStore
	faces      store.FaceStore
	uploads    store.ObjectStorage
	thumbnails store.ObjectStorage
}

type Services struct {
	Auth    services.AuthService
	Uploads services.UploadService
	Media   services.MediaService
	Faces   services.FaceService
	Albums  services.AlbumService
	Ingest  services.IngestService

	// Receiver is only built in worker mode.
	Receiver queues.ObjectCreatedReceiver

	Cache  caching.CachingService
	Stores *Stores

	Handler *handlers.Handler
}

type Shutdowner interface {
	Shutdown(context.Context) error
}

func BuildServices(ctx context.Context, app *App) *Services {
	cfg := app.Config
	l := app.Logger

	table := cfg.DynamoDBConfig.TableName
	stores := &Stores{
		media:      store.NewDynamoDbMediaStoreImpl(app.DynamoDB, table),
		albums:     store.NewDynamoDbAlbumStoreImpl(app.DynamoDB, table),
		faces:      store.NewDynamoDbFaceStoreImpl(app.DynamoDB, table),
		uploads:    store.NewS3ObjectStorageImpl(app.S3, app.Presigner, cfg.S3Config.UploadBucket, l),
		thumbnails: store.NewS3ObjectStorageImpl(app.S3, app.Presigner, cfg.S3Config.ThumbnailBucket, l),
	}

	var cachingSvc caching.CachingService = caching.NewNullCachingService()
	if app.Redis != nil {
		cachingSvc = caching.NewRedisCachingService(app.Redis)
	}

	provider := identity.NewCognitoProviderImpl(app.Cognito, cfg.CognitoConfig.ClientID, l)
	faceIndex := vision.NewRekognitionFaceIndexImpl(app.Rekognition, cfg.RekognitionConfig.MaxFaces, l)

	authSvc := services.NewAuthServiceImpl(provider, cachingSvc, cfg.RedisConfig.TokenTTL, l)
	uploadSvc := services.NewUploadServiceImpl(stores.uploads, stores.thumbnails, services.UploadOptions{
		PartSize:       cfg.S3Config.PartSize,
		UploadURLTTL:   cfg.S3Config.UploadURLTTL,
		DownloadURLTTL: cfg.S3Config.DownloadURLTTL,
	}, l)
	mediaSvc := services.NewMediaServiceImpl(stores.media, stores.faces, stores.uploads, stores.thumbnails, faceIndex, l)
	faceSvc := services.NewFaceServiceImpl(stores.faces, stores.media, stores.uploads, faceIndex, services.FaceOptions{
		MatchMaxFaces:  cfg.RekognitionConfig.MatchMaxFaces,
		RenameMaxFaces: cfg.RekognitionConfig.RenameMaxFaces,
		MatchThreshold: cfg.RekognitionConfig.MatchThreshold,
	}, l)
	albumSvc := services.NewAlbumServiceImpl(stores.albums, stores.media, l)
	ingestSvc := services.NewIngestServiceImpl(stores.media, stores.uploads, stores.thumbnails, l)

	handler := handlers.NewHandler(handlers.Services{
		Auth:    authSvc,
		Uploads: uploadSvc,
		Media:   mediaSvc,
		Faces:   faceSvc,
		Albums:  albumSvc,
		Ingest:  ingestSvc,
	}, cfg.CORSConfig.AllowOrigin, l)

	svcs := &Services{
		Auth:    authSvc,
		Uploads: uploadSvc,
		Media:   mediaSvc,
		Faces:   faceSvc,
		Albums:  albumSvc,
		Ingest:  ingestSvc,

		Cache:  cachingSvc,
		Stores: stores,

		Handler: handler,
	}

	if cfg.Mode == config.ModeWorker {
		svcs.Receiver = queues.NewObjectCreatedReceiverImpl(ctx, app.Sqs, ingestSvc, cfg.QueueConfig.URL, queues.ReceiverOptions{
			WaitSeconds:       cfg.QueueConfig.WaitSeconds,
			VisibilityTimeout: cfg.QueueConfig.VisibilityTimeout,
		}, l)
	}

	return svcs
}

func (s *Services) Shutdown(ctx context.Context) error {
	if s.Receiver != nil {
		if err := s.Receiver.Shutdown(ctx); err != nil {
			return err
		}
	}

	if s.Stores != nil {
		return s.Stores.Shutdown(ctx)
	}
	return nil
}

func (s *Stores) Shutdown(ctx context.Context) error {
	for _, v := range []any{s.media, s.albums, s.faces, s.uploads, s.thumbnails} {
		if sh, ok := v.(Shutdowner); ok {
			if err := sh.Shutdown(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}
