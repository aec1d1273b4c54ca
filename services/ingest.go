package services

import (
	"context"
	"errors"
	"time"

	"github.com/Yulian302/lfusys-services-media/internal/apperror"
	logger "github.com/Yulian302/lfusys-services-media/internal/logging"
	"github.com/Yulian302/lfusys-services-media/models"
	"github.com/Yulian302/lfusys-services-media/store"
	"github.com/Yulian302/lfusys-services-media/thumbnail"
)

// putAttempts bounds how often a colliding upload timestamp is shifted.
const putAttempts = 3

type IngestService interface {
	ProcessObjectCreated(ctx context.Context, detail models.ObjectCreatedDetail) (*models.MediaItem, error)
}

type IngestServiceImpl struct {
	mediaStore store.MediaStore
	uploads    store.ObjectStorage
	thumbnails store.ObjectStorage

	logger logger.Logger
	now    func() time.Time
}

func NewIngestServiceImpl(
	mediaStore store.MediaStore,
	uploads store.ObjectStorage,
	thumbnails store.ObjectStorage,
	l logger.Logger,
) *IngestServiceImpl {
	return &IngestServiceImpl{
		mediaStore: mediaStore,
		uploads:    uploads,
		thumbnails: thumbnails,
		logger:     l,
		now:        time.Now,
	}
}

// ProcessObjectCreated records a finished upload: images get a thumbnail,
// every file gets a media row. Events it cannot use return (nil, nil) so
// they are not redelivered.
func (svc *IngestServiceImpl) ProcessObjectCreated(ctx context.Context, detail models.ObjectCreatedDetail) (*models.MediaItem, error) {
	bucket := detail.Bucket.Name
	key := detail.Object.Key

	if bucket != "" && bucket == svc.thumbnails.Bucket() {
		svc.logger.Debug("ignoring thumbnail object", "key", key)
		return nil, nil
	}

	userID, fileName, ok := models.SplitObjectKey(key)
	if !ok {
		svc.logger.Warn("ignoring object outside a user prefix", "bucket", bucket, "key", key)
		return nil, nil
	}

	now := svc.now()
	item := models.MediaItem{
		PK:          userID,
		FileName:    fileName,
		FileSize:    detail.Object.Size,
		ContentType: models.ContentTypeFor(fileName),
		CreatedAt:   models.Timestamp(now),
	}

	if models.IsImageFile(fileName) {
		thumbKey, err := svc.thumbnail(ctx, key)
		if err != nil {
			return nil, err
		}
		item.ThumbnailKey = thumbKey
	}

	var err error
	for i := 0; i < putAttempts; i++ {
		item.SK = models.Timestamp(now.Add(time.Duration(i) * time.Millisecond))
		err = svc.mediaStore.Put(ctx, item)
		if !errors.Is(err, apperror.ErrAlreadyExists) {
			break
		}

		// A store-level retry of a put that already landed conflicts with
		// its own row. Only a different file is a timestamp collision.
		existing, getErr := svc.mediaStore.Get(ctx, item.Key())
		if getErr == nil && existing.FileName == item.FileName {
			svc.logger.Info("media already recorded", "user_id", userID, "key", key, "sk", item.SK)
			return existing, nil
		}
		if getErr != nil && !isNotFound(getErr) {
			err = getErr
			break
		}
	}
	if err != nil {
		svc.logger.Error("failed to record media", "user_id", userID, "key", key, "error", err)
		return nil, err
	}

	svc.logger.Info("media recorded", "user_id", userID, "key", key, "size", item.FileSize, "thumbnail", item.ThumbnailKey != "")
	return &item, nil
}

// thumbnail returns the thumbnail key, or "" when the object is not a
// decodable image. Storage failures are returned.
func (svc *IngestServiceImpl) thumbnail(ctx context.Context, key string) (string, error) {
	body, err := svc.uploads.Get(ctx, key)
	if err != nil {
		return "", err
	}
	defer body.Close()

	thumb, err := thumbnail.Generate(body)
	if err != nil {
		svc.logger.Warn("thumbnail generation failed, recording without thumbnail", "key", key, "error", err)
		return "", nil
	}

	if err := svc.thumbnails.Put(ctx, key, thumb, thumbnail.ContentType); err != nil {
		return "", err
	}
	return key, nil
}
