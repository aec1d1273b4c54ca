package services

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Yulian302/lfusys-services-media/internal/apperror"
	logger "github.com/Yulian302/lfusys-services-media/internal/logging"
	"github.com/Yulian302/lfusys-services-media/models"
	"github.com/Yulian302/lfusys-services-media/store"
	"github.com/Yulian302/lfusys-services-media/vision"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// renameConcurrency bounds the face row updates a rename fans out to.
const renameConcurrency = 5

type FaceOptions struct {
	MatchMaxFaces  int32
	RenameMaxFaces int32
	MatchThreshold float32
}

type FaceService interface {
	Get(ctx context.Context, userID string, imageID string) ([]models.Face, error)
	Rename(ctx context.Context, userID string, imageID string, faceID string, name string) (int, error)
	IndexImage(ctx context.Context, item models.MediaItem) (int, error)
	MatchImage(ctx context.Context, userID string, imageID string) (int, error)
}

type FaceServiceImpl struct {
	faceStore  store.FaceStore
	mediaStore store.MediaStore
	uploads    store.ObjectStorage
	faceIndex  vision.FaceIndex
	opts       FaceOptions

	logger logger.Logger
	now    func() time.Time
}

func NewFaceServiceImpl(
	faceStore store.FaceStore,
	mediaStore store.MediaStore,
	uploads store.ObjectStorage,
	faceIndex vision.FaceIndex,
	opts FaceOptions,
	l logger.Logger,
) *FaceServiceImpl {
	return &FaceServiceImpl{
		faceStore:  faceStore,
		mediaStore: mediaStore,
		uploads:    uploads,
		faceIndex:  faceIndex,
		opts:       opts,
		logger:     l,
		now:        time.Now,
	}
}

// Get lists the faces detected on one of the user's images.
func (svc *FaceServiceImpl) Get(ctx context.Context, userID string, imageID string) ([]models.Face, error) {
	imageID = models.TrimImagePrefix(strings.TrimSpace(imageID))
	if imageID == "" {
		return nil, apperror.Validation("imageId must be provided")
	}

	faces, err := svc.faceStore.ListByImage(ctx, imageID)
	if err != nil {
		return nil, err
	}

	owned := lo.Filter(faces, func(f models.Face, _ int) bool { return f.UserID == userID })
	if len(owned) == 0 {
		return nil, apperror.ErrNotFound
	}
	return owned, nil
}

// Rename names a face and every face of the user's collection that looks
// like it. It returns how many other faces received the name.
func (svc *FaceServiceImpl) Rename(ctx context.Context, userID string, imageID string, faceID string, name string) (int, error) {
	imageID = models.TrimImagePrefix(strings.TrimSpace(imageID))
	faceID = models.TrimFacePrefix(strings.TrimSpace(faceID))
	name = strings.TrimSpace(name)
	if imageID == "" || faceID == "" || name == "" {
		return 0, apperror.Validation("imageId, faceId, and faceName must be provided")
	}

	if _, err := svc.ownedFace(ctx, userID, imageID, faceID); err != nil {
		return 0, err
	}

	if err := svc.faceStore.SetName(ctx, imageID, faceID, name); err != nil {
		return 0, err
	}

	matches, err := svc.faceIndex.SearchFaces(ctx, userID, faceID, svc.opts.RenameMaxFaces, svc.opts.MatchThreshold)
	if err != nil {
		return 0, err
	}

	var renamed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(renameConcurrency)
	for _, m := range matches {
		g.Go(func() error {
			err := svc.faceStore.SetName(gctx, m.ImageID, m.FaceID, name)
			if isNotFound(err) {
				// face row deleted while still in the collection
				return nil
			}
			if err != nil {
				return err
			}
			renamed.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		svc.logger.Error("propagating face name failed", "user_id", userID, "face_id", faceID, "error", err)
		return int(renamed.Load()), err
	}

	svc.logger.Info("face renamed", "user_id", userID, "image_id", imageID, "face_id", faceID, "similar", renamed.Load())
	return int(renamed.Load()), nil
}

func (svc *FaceServiceImpl) ownedFace(ctx context.Context, userID string, imageID string, faceID string) (*models.Face, error) {
	faces, err := svc.faceStore.ListByImage(ctx, imageID)
	if err != nil {
		return nil, err
	}

	face, ok := lo.Find(faces, func(f models.Face) bool { return f.FaceID() == faceID })
	if !ok || face.UserID != userID {
		return nil, apperror.ErrNotFound
	}
	return &face, nil
}

// IndexImage detects the faces of a freshly recorded image, stores one row
// per face and links the media row to the detected image id. Setting the id
// is what triggers matching.
func (svc *FaceServiceImpl) IndexImage(ctx context.Context, item models.MediaItem) (int, error) {
	if !models.IsFaceIndexable(item.FileName) {
		return 0, nil
	}

	current, err := svc.mediaStore.Get(ctx, item.Key())
	if err != nil {
		if isNotFound(err) {
			svc.logger.Debug("media row gone before indexing", "user_id", item.PK, "sk", item.SK)
			return 0, nil
		}
		return 0, err
	}
	if current.ImageID != "" {
		// redelivered record
		svc.logger.Debug("faces already indexed", "user_id", item.PK, "sk", item.SK, "image_id", current.ImageID)
		return 0, nil
	}

	collectionID := item.PK
	if err := svc.faceIndex.EnsureCollection(ctx, collectionID); err != nil {
		return 0, err
	}

	key := models.ObjectKey(item.PK, item.FileName)
	indexed, err := svc.faceIndex.IndexFaces(ctx, collectionID, svc.uploads.Bucket(), key)
	if err != nil {
		return 0, err
	}
	if len(indexed) == 0 {
		svc.logger.Debug("no faces detected", "user_id", item.PK, "key", key)
		return 0, nil
	}

	now := models.Timestamp(svc.now())
	faces := lo.Map(indexed, func(f models.IndexedFace, _ int) models.Face {
		return models.Face{
			PK:          models.ImagePK(f.ImageID),
			SK:          models.FaceSK(f.FaceID),
			UserID:      item.PK,
			BoundingBox: f.BoundingBox,
			Confidence:  f.Confidence,
			UpdatedAt:   now,
		}
	})
	if err := svc.faceStore.PutBatch(ctx, faces); err != nil {
		return 0, err
	}

	imageID := indexed[0].ImageID
	if err := svc.mediaStore.SetImageID(ctx, item.Key(), imageID); err != nil {
		if isNotFound(err) {
			svc.logger.Warn("media row deleted before indexing finished", "user_id", item.PK, "sk", item.SK)
			return len(faces), nil
		}
		return 0, err
	}

	svc.logger.Info("faces indexed", "user_id", item.PK, "key", key, "image_id", imageID, "faces", len(faces))
	return len(faces), nil
}

// MatchImage copies names onto the unnamed faces of imageID from the most
// similar named face found on another image.
func (svc *FaceServiceImpl) MatchImage(ctx context.Context, userID string, imageID string) (int, error) {
	imageID = models.TrimImagePrefix(imageID)

	faces, err := svc.faceStore.ListByImage(ctx, imageID)
	if err != nil {
		return 0, err
	}

	named := 0
	for _, face := range faces {
		if face.FaceName != "" || (face.UserID != "" && face.UserID != userID) {
			continue
		}

		matches, err := svc.faceIndex.SearchFaces(ctx, userID, face.FaceID(), svc.opts.MatchMaxFaces, svc.opts.MatchThreshold)
		if err != nil {
			return named, err
		}

		name, err := svc.bestName(ctx, imageID, matches)
		if err != nil {
			return named, err
		}
		if name == "" {
			continue
		}

		if err := svc.faceStore.SetName(ctx, imageID, face.FaceID(), name); err != nil {
			if isNotFound(err) {
				continue
			}
			return named, err
		}
		named++
	}

	svc.logger.Info("faces matched", "user_id", userID, "image_id", imageID, "faces", len(faces), "named", named)
	return named, nil
}

// bestName returns the name of the first match, in similarity order, that
// lives on another image and already has a name.
func (svc *FaceServiceImpl) bestName(ctx context.Context, imageID string, matches []models.FaceMatch) (string, error) {
	for _, m := range matches {
		if m.ImageID == imageID {
			continue
		}

		name, err := svc.faceStore.GetName(ctx, m.ImageID, m.FaceID)
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return "", err
		}
		if name != "" {
			return name, nil
		}
	}
	return "", nil
}
