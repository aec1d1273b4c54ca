package handlers

import (
	"context"

	"github.com/Yulian302/lfusys-services-media/models"
	"github.com/stretchr/testify/mock"
)

type mockAuth struct{ mock.Mock }

func (m *mockAuth) SignIn(ctx context.Context, username string, password string) (*models.SignInResult, error) {
	args := m.Called(ctx, username, password)
	res, _ := args.Get(0).(*models.SignInResult)
	return res, args.Error(1)
}

func (m *mockAuth) SignOut(ctx context.Context, accessToken string) error {
	return m.Called(ctx, accessToken).Error(0)
}

func (m *mockAuth) Authenticate(ctx context.Context, accessToken string) (*models.UserInfo, error) {
	args := m.Called(ctx, accessToken)
	info, _ := args.Get(0).(*models.UserInfo)
	return info, args.Error(1)
}

type mockUploads struct{ mock.Mock }

func (m *mockUploads) Initiate(ctx context.Context, userID string, req models.InitiateUploadRequest) (*models.MultipartUpload, error) {
	args := m.Called(ctx, userID, req)
	res, _ := args.Get(0).(*models.MultipartUpload)
	return res, args.Error(1)
}

func (m *mockUploads) Complete(ctx context.Context, userID string, uploadID string, key string, parts []models.CompletedPart) (*models.CompletedUpload, error) {
	args := m.Called(ctx, userID, uploadID, key, parts)
	res, _ := args.Get(0).(*models.CompletedUpload)
	return res, args.Error(1)
}

func (m *mockUploads) Abort(ctx context.Context, userID string, uploadID string, key string) error {
	return m.Called(ctx, userID, uploadID, key).Error(0)
}

func (m *mockUploads) DownloadURL(ctx context.Context, userID string, fileName string, thumbnail bool) (string, error) {
	args := m.Called(ctx, userID, fileName, thumbnail)
	return args.String(0), args.Error(1)
}

func (m *mockUploads) ListObjects(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	keys, _ := args.Get(0).([]string)
	return keys, args.Error(1)
}

type mockMedia struct{ mock.Mock }

func (m *mockMedia) List(ctx context.Context, userID string, date string) ([]models.MediaItem, error) {
	args := m.Called(ctx, userID, date)
	items, _ := args.Get(0).([]models.MediaItem)
	return items, args.Error(1)
}

func (m *mockMedia) Get(ctx context.Context, userID string, key models.ItemKey) (*models.MediaItem, error) {
	args := m.Called(ctx, userID, key)
	item, _ := args.Get(0).(*models.MediaItem)
	return item, args.Error(1)
}

func (m *mockMedia) Delete(ctx context.Context, userID string, files []models.DeleteFile) (*models.DeleteResult, error) {
	args := m.Called(ctx, userID, files)
	res, _ := args.Get(0).(*models.DeleteResult)
	return res, args.Error(1)
}

type mockFaces struct{ mock.Mock }

func (m *mockFaces) Get(ctx context.Context, userID string, imageID string) ([]models.Face, error) {
	args := m.Called(ctx, userID, imageID)
	faces, _ := args.Get(0).([]models.Face)
	return faces, args.Error(1)
}

func (m *mockFaces) Rename(ctx context.Context, userID string, imageID string, faceID string, name string) (int, error) {
	args := m.Called(ctx, userID, imageID, faceID, name)
	return args.Int(0), args.Error(1)
}

func (m *mockFaces) IndexImage(ctx context.Context, item models.MediaItem) (int, error) {
	args := m.Called(ctx, item)
	return args.Int(0), args.Error(1)
}

func (m *mockFaces) MatchImage(ctx context.Context, userID string, imageID string) (int, error) {
	args := m.Called(ctx, userID, imageID)
	return args.Int(0), args.Error(1)
}

type mockAlbums struct{ mock.Mock }

func (m *mockAlbums) Save(ctx context.Context, userID string, albumID string, name string) (*models.SaveAlbumResult, error) {
	args := m.Called(ctx, userID, albumID, name)
	res, _ := args.Get(0).(*models.SaveAlbumResult)
	return res, args.Error(1)
}

func (m *mockAlbums) List(ctx context.Context, userID string) ([]models.AlbumView, error) {
	args := m.Called(ctx, userID)
	views, _ := args.Get(0).([]models.AlbumView)
	return views, args.Error(1)
}

func (m *mockAlbums) Photos(ctx context.Context, userID string, albumID string, token string) (*models.AlbumPage, error) {
	args := m.Called(ctx, userID, albumID, token)
	page, _ := args.Get(0).(*models.AlbumPage)
	return page, args.Error(1)
}

func (m *mockAlbums) Assign(ctx context.Context, userID string, albumID string, items []models.ItemKey) (*models.AssignResult, error) {
	args := m.Called(ctx, userID, albumID, items)
	res, _ := args.Get(0).(*models.AssignResult)
	return res, args.Error(1)
}

func (m *mockAlbums) Unassign(ctx context.Context, userID string, albumID string, items []models.ItemKey) (*models.AssignResult, error) {
	args := m.Called(ctx, userID, albumID, items)
	res, _ := args.Get(0).(*models.AssignResult)
	return res, args.Error(1)
}

func (m *mockAlbums) Delete(ctx context.Context, userID string, albumID string) (int, error) {
	args := m.Called(ctx, userID, albumID)
	return args.Int(0), args.Error(1)
}

type mockIngest struct{ mock.Mock }

func (m *mockIngest) ProcessObjectCreated(ctx context.Context, detail models.ObjectCreatedDetail) (*models.MediaItem, error) {
	args := m.Called(ctx, detail)
	item, _ := args.Get(0).(*models.MediaItem)
	return item, args.Error(1)
}
