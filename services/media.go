package services

import (
	"context"
	"errors"

	"github.com/Yulian302/lfusys-services-media/internal/apperror"
	logger "github.com/Yulian302/lfusys-services-media/internal/logging"
	"github.com/Yulian302/lfusys-services-media/models"
	"github.com/Yulian302/lfusys-services-media/store"
	"github.com/Yulian302/lfusys-services-media/vision"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

type MediaService interface {
	List(ctx context.Context, userID string, date string) ([]models.MediaItem, error)
	Get(ctx context.Context, userID string, key models.ItemKey) (*models.MediaItem, error)
	Delete(ctx context.Context, userID string, files []models.DeleteFile) (*models.DeleteResult, error)
}

type MediaServiceImpl struct {
	mediaStore store.MediaStore
	faceStore  store.FaceStore
	uploads    store.ObjectStorage
	thumbnails store.ObjectStorage
	faceIndex  vision.FaceIndex

	logger logger.Logger
}

func NewMediaServiceImpl(
	mediaStore store.MediaStore,
	faceStore store.FaceStore,
	uploads store.ObjectStorage,
	thumbnails store.ObjectStorage,
	faceIndex vision.FaceIndex,
	l logger.Logger,
) *MediaServiceImpl {
	return &MediaServiceImpl{
		mediaStore: mediaStore,
		faceStore:  faceStore,
		uploads:    uploads,
		thumbnails: thumbnails,
		faceIndex:  faceIndex,
		logger:     l,
	}
}

// List returns the user's media newest first, optionally only those whose
// upload timestamp starts with date ("2024", "2024-05", "2024-05-01").
func (svc *MediaServiceImpl) List(ctx context.Context, userID string, date string) ([]models.MediaItem, error) {
	if date != "" && !models.ValidDatePrefix(date) {
		return nil, apperror.Validation("date must look like YYYY, YYYY-MM or YYYY-MM-DD")
	}

	items, err := svc.mediaStore.List(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.MediaItem{}
	}
	return items, nil
}

func (svc *MediaServiceImpl) Get(ctx context.Context, userID string, key models.ItemKey) (*models.MediaItem, error) {
	if key.SK == "" {
		return nil, apperror.Validation("SK must be provided")
	}
	if key.PK == "" {
		key.PK = userID
	}
	if key.PK != userID {
		return nil, apperror.ErrForbidden
	}
	if !models.IsMediaRow(key.PK, key.SK) {
		return nil, apperror.ErrNotFound
	}

	return svc.mediaStore.Get(ctx, key)
}

// Delete removes the files from both buckets, their media rows, their face
// rows and the faces from the user's collection. Image ids are taken from the
// stored rows, never from the request.
func (svc *MediaServiceImpl) Delete(ctx context.Context, userID string, files []models.DeleteFile) (*models.DeleteResult, error) {
	if len(files) == 0 {
		return nil, apperror.Validation("files array is required and cannot be empty")
	}

	for _, f := range files {
		if f.SK == "" || !models.ValidFileName(f.FileName) {
			return nil, apperror.Validation("every file needs SK and fileName")
		}
		if f.PK != "" && f.PK != userID {
			return nil, apperror.ErrForbidden
		}
		if models.IsAlbumSK(f.SK) {
			return nil, apperror.Validation("%s is not a photo or video", f.SK)
		}
	}

	keys := lo.Uniq(lo.Map(files, func(f models.DeleteFile, _ int) models.ItemKey {
		return models.ItemKey{PK: userID, SK: f.SK}
	}))
	objectKeys := lo.Uniq(lo.Map(files, func(f models.DeleteFile, _ int) string {
		return models.ObjectKey(userID, f.FileName)
	}))

	stored, err := svc.mediaStore.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}
	imageIDs := lo.Uniq(lo.Compact(lo.Map(stored, func(m models.MediaItem, _ int) string {
		return m.ImageID
	})))

	result := &models.DeleteResult{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		deleted, err := svc.uploads.DeleteKeys(gctx, objectKeys)
		result.UploadFilesDeleted = deleted
		return err
	})
	g.Go(func() error {
		deleted, err := svc.thumbnails.DeleteKeys(gctx, objectKeys)
		result.ThumbnailFilesDeleted = deleted
		return err
	})
	if err := g.Wait(); err != nil {
		svc.logger.Error("object deletion failed", "user_id", userID, "error", err)
		return nil, err
	}

	if err := svc.mediaStore.DeleteBatch(ctx, keys); err != nil {
		svc.logger.Error("media rows deletion failed", "user_id", userID, "error", err)
		return nil, err
	}

	faces, err := svc.faceStore.DeleteByImages(ctx, imageIDs)
	if err != nil {
		svc.logger.Error("face rows deletion failed", "user_id", userID, "error", err)
		return nil, err
	}
	result.FaceRecordsDeleted = len(faces)

	if len(faces) > 0 {
		faceIDs := lo.Map(faces, func(f models.Face, _ int) string { return f.FaceID() })
		if _, err := svc.faceIndex.DeleteFaces(ctx, userID, faceIDs); err != nil {
			svc.logger.Error("collection face deletion failed", "user_id", userID, "faces", len(faceIDs), "error", err)
		}
	}

	svc.logger.Info("media deleted",
		"user_id", userID,
		"rows", len(keys),
		"uploads", len(result.UploadFilesDeleted),
		"thumbnails", len(result.ThumbnailFilesDeleted),
		"faces", result.FaceRecordsDeleted,
	)
	return result, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}
