package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Yulian302/lfusys-services-media/internal/apperror"
	logger "github.com/Yulian302/lfusys-services-media/internal/logging"
	"github.com/Yulian302/lfusys-services-media/models"
	"github.com/Yulian302/lfusys-services-media/store"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// AlbumPageSize is how many media rows one album page reads.
const AlbumPageSize = 100

type AlbumService interface {
	Save(ctx context.Context, userID string, albumID string, name string) (*models.SaveAlbumResult, error)
	List(ctx context.Context, userID string) ([]models.AlbumView, error)
	Photos(ctx context.Context, userID string, albumID string, token string) (*models.AlbumPage, error)
	Assign(ctx context.Context, userID string, albumID string, items []models.ItemKey) (*models.AssignResult, error)
	Unassign(ctx context.Context, userID string, albumID string, items []models.ItemKey) (*models.AssignResult, error)
	Delete(ctx context.Context, userID string, albumID string) (int, error)
}

type AlbumServiceImpl struct {
	albumStore store.AlbumStore
	mediaStore store.MediaStore

	logger logger.Logger
	now    func() time.Time
}

func NewAlbumServiceImpl(albumStore store.AlbumStore, mediaStore store.MediaStore, l logger.Logger) *AlbumServiceImpl {
	return &AlbumServiceImpl{
		albumStore: albumStore,
		mediaStore: mediaStore,
		logger:     l,
		now:        time.Now,
	}
}

// Save creates an album when albumID is empty and renames it otherwise.
// Names are unique per user regardless of case.
func (svc *AlbumServiceImpl) Save(ctx context.Context, userID string, albumID string, name string) (*models.SaveAlbumResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.Validation("albumName is required and cannot be empty")
	}

	isNew := strings.TrimSpace(albumID) == ""
	albumSK := models.AlbumSK(uuid.NewString())
	if !isNew {
		albumSK = models.AlbumSK(strings.TrimSpace(albumID))
	}

	existing, err := svc.albumStore.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, a := range existing {
		if a.SK != albumSK && strings.EqualFold(a.AlbumName, name) {
			return nil, apperror.ErrAlbumNameTaken
		}
	}

	now := models.Timestamp(svc.now())
	album := models.Album{
		PK:        userID,
		SK:        albumSK,
		AlbumName: name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if !isNew {
		current, err := svc.albumStore.Get(ctx, userID, albumSK)
		if err != nil {
			return nil, err
		}
		album.CreatedAt = lo.CoalesceOrEmpty(current.CreatedAt, current.UpdatedAt, now)
	}

	if err := svc.albumStore.Put(ctx, album); err != nil {
		return nil, err
	}

	svc.logger.Info("album saved", "user_id", userID, "album_id", albumSK, "created", isNew)
	return &models.SaveAlbumResult{Album: album, Created: isNew}, nil
}

func (svc *AlbumServiceImpl) List(ctx context.Context, userID string) ([]models.AlbumView, error) {
	albums, err := svc.albumStore.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	return lo.Map(albums, func(a models.Album, _ int) models.AlbumView {
		return a.View()
	}), nil
}

func (svc *AlbumServiceImpl) Photos(ctx context.Context, userID string, albumID string, token string) (*models.AlbumPage, error) {
	albumSK, err := svc.requireAlbum(ctx, userID, albumID)
	if err != nil {
		return nil, err
	}

	items, next, err := svc.mediaStore.ListAlbumPage(ctx, userID, albumSK, token, AlbumPageSize)
	if err != nil {
		return nil, err
	}

	page := &models.AlbumPage{Items: items, Count: len(items)}
	if next != "" {
		page.NextToken = &next
	}
	return page, nil
}

func (svc *AlbumServiceImpl) requireAlbum(ctx context.Context, userID string, albumID string) (string, error) {
	albumID = strings.TrimSpace(albumID)
	if albumID == "" {
		return "", apperror.Validation("albumId is required")
	}

	albumSK := models.AlbumSK(albumID)
	if _, err := svc.albumStore.Get(ctx, userID, albumSK); err != nil {
		return "", err
	}
	return albumSK, nil
}

func (svc *AlbumServiceImpl) Assign(ctx context.Context, userID string, albumID string, items []models.ItemKey) (*models.AssignResult, error) {
	items, err := svc.checkItems(userID, items)
	if err != nil {
		return nil, err
	}

	albumSK, err := svc.requireAlbum(ctx, userID, albumID)
	if err != nil {
		return nil, err
	}

	if err := svc.checkItemsExist(ctx, userID, items); err != nil {
		return nil, err
	}

	res := &models.AssignResult{}
	for _, item := range items {
		if err := svc.mediaStore.AssignAlbum(ctx, userID, item, albumSK); err != nil {
			svc.logger.Warn("album assignment failed", "user_id", userID, "album_id", albumSK, "sk", item.SK, "error", err)
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("Failed to assign %s", item.SK))
			continue
		}
		res.Success++
	}

	svc.logger.Info("album assignment completed", "user_id", userID, "album_id", albumSK, "success", res.Success, "failed", res.Failed)
	return res, nil
}

// Unassign removes items from albumID, or from whatever album they are in
// when albumID is empty.
func (svc *AlbumServiceImpl) Unassign(ctx context.Context, userID string, albumID string, items []models.ItemKey) (*models.AssignResult, error) {
	items, err := svc.checkItems(userID, items)
	if err != nil {
		return nil, err
	}

	if err := svc.checkItemsExist(ctx, userID, items); err != nil {
		return nil, err
	}

	albumSK := ""
	if id := strings.TrimSpace(albumID); id != "" {
		albumSK = models.AlbumSK(id)
	}

	res := &models.AssignResult{}
	for _, item := range items {
		err := svc.mediaStore.UnassignAlbum(ctx, userID, item, albumSK)
		switch {
		case err == nil:
			res.Success++
			continue
		case isNotFound(err) && albumSK != "":
			res.Errors = append(res.Errors, fmt.Sprintf("%s is not assigned to the specified album", item.SK))
		case isNotFound(err):
			res.Errors = append(res.Errors, fmt.Sprintf("%s does not exist or is not owned by user", item.SK))
		default:
			svc.logger.Warn("album unassignment failed", "user_id", userID, "sk", item.SK, "error", err)
			res.Errors = append(res.Errors, fmt.Sprintf("Failed to unassign %s", item.SK))
		}
		res.Failed++
	}

	return res, nil
}

// checkItems rejects empty lists and items of other users, and drops
// duplicates.
func (svc *AlbumServiceImpl) checkItems(userID string, items []models.ItemKey) ([]models.ItemKey, error) {
	if len(items) == 0 {
		return nil, apperror.Validation("items array is required and cannot be empty")
	}

	for _, item := range items {
		if item.PK == "" || item.SK == "" || item.PK != userID {
			return nil, apperror.Validation("invalid item format or unauthorized access")
		}
	}

	return lo.Uniq(items), nil
}

func (svc *AlbumServiceImpl) checkItemsExist(ctx context.Context, userID string, items []models.ItemKey) error {
	found, err := svc.mediaStore.BatchGet(ctx, items)
	if err != nil {
		return err
	}

	media := lo.Filter(found, func(m models.MediaItem, _ int) bool {
		return m.PK == userID && models.IsMediaRow(m.PK, m.SK)
	})
	if len(media) != len(items) {
		return apperror.Validation("some items do not exist or are not photos/videos")
	}
	return nil
}

// Delete empties the album and removes it. Its media stay in the library.
func (svc *AlbumServiceImpl) Delete(ctx context.Context, userID string, albumID string) (int, error) {
	albumSK, err := svc.requireAlbum(ctx, userID, albumID)
	if err != nil {
		return 0, err
	}

	members, err := svc.mediaStore.ListAlbumItems(ctx, userID, albumSK)
	if err != nil {
		return 0, err
	}

	unassigned := 0
	for _, m := range members {
		err := svc.mediaStore.UnassignAlbum(ctx, userID, m.Key(), albumSK)
		if err != nil && !isNotFound(err) {
			return unassigned, fmt.Errorf("failed to unassign %s: %w", m.SK, err)
		}
		if err == nil {
			unassigned++
		}
	}

	if err := svc.albumStore.Delete(ctx, userID, albumSK); err != nil {
		if errors.Is(err, apperror.ErrAlbumNotFound) {
			// deleted concurrently
			return unassigned, nil
		}
		return unassigned, err
	}

	svc.logger.Info("album deleted", "user_id", userID, "album_id", albumSK, "unassigned", unassigned)
	return unassigned, nil
}
