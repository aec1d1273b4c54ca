package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Yulian302/lfusys-services-media/internal/apperror"
	logger "github.com/Yulian302/lfusys-services-media/internal/logging"
	"github.com/Yulian302/lfusys-services-media/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mediaDeps struct {
	media   *mockMediaStore
	faces   *mockFaceStore
	uploads *mockStorage
	thumbs  *mockStorage
	index   *mockFaceIndex
}

func newMediaService() (*MediaServiceImpl, mediaDeps) {
	d := mediaDeps{
		media:   &mockMediaStore{},
		faces:   &mockFaceStore{},
		uploads: &mockStorage{bucket: "uploads"},
		thumbs:  &mockStorage{bucket: "thumbs"},
		index:   &mockFaceIndex{},
	}
	return NewMediaServiceImpl(d.media, d.faces, d.uploads, d.thumbs, d.index, logger.NewNopLogger()), d
}

func TestMediaList_EmptyIsNotNil(t *testing.T) {
	svc, d := newMediaService()
	d.media.On("List", mock.Anything, "u1", "2024-05").Return(nil, nil)

	items, err := svc.List(context.Background(), "u1", "2024-05")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestMediaList_RejectsNonDatePrefix(t *testing.T) {
	svc, d := newMediaService()

	for _, date := range []string{"ALBUM#", "A", "2024-05-01T"} {
		_, err := svc.List(context.Background(), "u1", date)
		assert.ErrorIs(t, err, apperror.ErrInvalidInput, date)
	}
	d.media.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
}

func TestMediaGet(t *testing.T) {
	svc, d := newMediaService()
	key := models.ItemKey{PK: "u1", SK: "2024-05-01T10:00:00.000Z"}
	d.media.On("Get", mock.Anything, key).Return(&models.MediaItem{PK: "u1", SK: key.SK, FileName: "a.jpg"}, nil)

	item, err := svc.Get(context.Background(), "u1", models.ItemKey{SK: key.SK})
	require.NoError(t, err)
	assert.Equal(t, "a.jpg", item.FileName)
}

func TestMediaGet_Rejections(t *testing.T) {
	svc, d := newMediaService()

	_, err := svc.Get(context.Background(), "u1", models.ItemKey{PK: "u1"})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = svc.Get(context.Background(), "u1", models.ItemKey{PK: "u2", SK: "2024"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = svc.Get(context.Background(), "u1", models.ItemKey{PK: "u1", SK: "ALBUM#a1"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	d.media.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestMediaDelete_RemovesEverything(t *testing.T) {
	svc, d := newMediaService()
	files := []models.DeleteFile{
		{PK: "u1", SK: "s1", FileName: "a.jpg", ImageID: "forged"},
		{SK: "s2", FileName: "b.mp4"},
	}
	keys := []models.ItemKey{{PK: "u1", SK: "s1"}, {PK: "u1", SK: "s2"}}
	objects := []string{"u1/a.jpg", "u1/b.mp4"}

	d.media.On("BatchGet", mock.Anything, keys).Return([]models.MediaItem{
		{PK: "u1", SK: "s1", FileName: "a.jpg", ImageID: "img-1"},
		{PK: "u1", SK: "s2", FileName: "b.mp4"},
	}, nil)
	d.uploads.On("DeleteKeys", mock.Anything, objects).Return(objects, nil)
	d.thumbs.On("DeleteKeys", mock.Anything, objects).Return([]string{"u1/a.jpg"}, nil)
	d.media.On("DeleteBatch", mock.Anything, keys).Return(nil)
	d.faces.On("DeleteByImages", mock.Anything, []string{"img-1"}).Return([]models.Face{
		{PK: "IMAGE#img-1", SK: "FACE#f1"},
		{PK: "IMAGE#img-1", SK: "FACE#f2"},
	}, nil)
	d.index.On("DeleteFaces", mock.Anything, "u1", []string{"f1", "f2"}).Return(2, nil)

	res, err := svc.Delete(context.Background(), "u1", files)
	require.NoError(t, err)
	assert.Equal(t, objects, res.UploadFilesDeleted)
	assert.Equal(t, []string{"u1/a.jpg"}, res.ThumbnailFilesDeleted)
	assert.Equal(t, 2, res.FaceRecordsDeleted)

	d.media.AssertExpectations(t)
	d.faces.AssertExpectations(t)
	d.index.AssertExpectations(t)
}

func TestMediaDelete_CollectionFailureIsNotFatal(t *testing.T) {
	svc, d := newMediaService()
	keys := []models.ItemKey{{PK: "u1", SK: "s1"}}

	d.media.On("BatchGet", mock.Anything, keys).Return([]models.MediaItem{{PK: "u1", SK: "s1", ImageID: "img-1"}}, nil)
	d.uploads.On("DeleteKeys", mock.Anything, mock.Anything).Return([]string{"u1/a.jpg"}, nil)
	d.thumbs.On("DeleteKeys", mock.Anything, mock.Anything).Return(nil, nil)
	d.media.On("DeleteBatch", mock.Anything, keys).Return(nil)
	d.faces.On("DeleteByImages", mock.Anything, []string{"img-1"}).Return([]models.Face{{PK: "IMAGE#img-1", SK: "FACE#f1"}}, nil)
	d.index.On("DeleteFaces", mock.Anything, "u1", []string{"f1"}).Return(0, errors.New("throttled"))

	res, err := svc.Delete(context.Background(), "u1", []models.DeleteFile{{SK: "s1", FileName: "a.jpg"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.FaceRecordsDeleted)
}

func TestMediaDelete_StorageFailureKeepsRows(t *testing.T) {
	svc, d := newMediaService()

	d.media.On("BatchGet", mock.Anything, mock.Anything).Return(nil, nil)
	d.uploads.On("DeleteKeys", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))
	d.thumbs.On("DeleteKeys", mock.Anything, mock.Anything).Return(nil, nil)

	_, err := svc.Delete(context.Background(), "u1", []models.DeleteFile{{SK: "s1", FileName: "a.jpg"}})
	require.Error(t, err)
	d.media.AssertNotCalled(t, "DeleteBatch", mock.Anything, mock.Anything)
}

func TestMediaDelete_Validation(t *testing.T) {
	svc, _ := newMediaService()

	_, err := svc.Delete(context.Background(), "u1", nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = svc.Delete(context.Background(), "u1", []models.DeleteFile{{SK: "s1"}})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = svc.Delete(context.Background(), "u1", []models.DeleteFile{{PK: "u2", SK: "s1", FileName: "a.jpg"}})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = svc.Delete(context.Background(), "u1", []models.DeleteFile{{SK: "ALBUM#a1", FileName: "a.jpg"}})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}
