package services

import (
	"context"
	"io"
	"time"

	"github.com/Yulian302/lfusys-services-media/models"
	"github.com/stretchr/testify/mock"
)

type mockMediaStore struct{ mock.Mock }

func (m *mockMediaStore) IsReady(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockMediaStore) Name() string                      { return "MediaStore[mock]" }

func (m *mockMediaStore) Put(ctx context.Context, item models.MediaItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *mockMediaStore) Get(ctx context.Context, key models.ItemKey) (*models.MediaItem, error) {
	args := m.Called(ctx, key)
	item, _ := args.Get(0).(*models.MediaItem)
	return item, args.Error(1)
}

func (m *mockMediaStore) List(ctx context.Context, userID string, datePrefix string) ([]models.MediaItem, error) {
	args := m.Called(ctx, userID, datePrefix)
	items, _ := args.Get(0).([]models.MediaItem)
	return items, args.Error(1)
}

func (m *mockMediaStore) BatchGet(ctx context.Context, keys []models.ItemKey) ([]models.MediaItem, error) {
	args := m.Called(ctx, keys)
	items, _ := args.Get(0).([]models.MediaItem)
	return items, args.Error(1)
}

func (m *mockMediaStore) DeleteBatch(ctx context.Context, keys []models.ItemKey) error {
	return m.Called(ctx, keys).Error(0)
}

func (m *mockMediaStore) SetImageID(ctx context.Context, key models.ItemKey, imageID string) error {
	return m.Called(ctx, key, imageID).Error(0)
}

func (m *mockMediaStore) AssignAlbum(ctx context.Context, userID string, key models.ItemKey, albumSK string) error {
	return m.Called(ctx, userID, key, albumSK).Error(0)
}

func (m *mockMediaStore) UnassignAlbum(ctx context.Context, userID string, key models.ItemKey, albumSK string) error {
	return m.Called(ctx, userID, key, albumSK).Error(0)
}

func (m *mockMediaStore) ListAlbumPage(ctx context.Context, userID string, albumSK string, token string, limit int32) ([]models.MediaItem, string, error) {
	args := m.Called(ctx, userID, albumSK, token, limit)
	items, _ := args.Get(0).([]models.MediaItem)
	return items, args.String(1), args.Error(2)
}

func (m *mockMediaStore) ListAlbumItems(ctx context.Context, userID string, albumSK string) ([]models.MediaItem, error) {
	args := m.Called(ctx, userID, albumSK)
	items, _ := args.Get(0).([]models.MediaItem)
	return items, args.Error(1)
}

type mockAlbumStore struct{ mock.Mock }

func (m *mockAlbumStore) IsReady(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockAlbumStore) Name() string                      { return "AlbumStore[mock]" }

func (m *mockAlbumStore) List(ctx context.Context, userID string) ([]models.Album, error) {
	args := m.Called(ctx, userID)
	albums, _ := args.Get(0).([]models.Album)
	return albums, args.Error(1)
}

func (m *mockAlbumStore) Get(ctx context.Context, userID string, albumSK string) (*models.Album, error) {
	args := m.Called(ctx, userID, albumSK)
	album, _ := args.Get(0).(*models.Album)
	return album, args.Error(1)
}

func (m *mockAlbumStore) Put(ctx context.Context, album models.Album) error {
	return m.Called(ctx, album).Error(0)
}

func (m *mockAlbumStore) Delete(ctx context.Context, userID string, albumSK string) error {
	return m.Called(ctx, userID, albumSK).Error(0)
}

type mockFaceStore struct{ mock.Mock }

func (m *mockFaceStore) IsReady(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockFaceStore) Name() string                      { return "FaceStore[mock]" }

func (m *mockFaceStore) PutBatch(ctx context.Context, faces []models.Face) error {
	return m.Called(ctx, faces).Error(0)
}

func (m *mockFaceStore) ListByImage(ctx context.Context, imageID string) ([]models.Face, error) {
	args := m.Called(ctx, imageID)
	faces, _ := args.Get(0).([]models.Face)
	return faces, args.Error(1)
}

func (m *mockFaceStore) GetName(ctx context.Context, imageID string, faceID string) (string, error) {
	args := m.Called(ctx, imageID, faceID)
	return args.String(0), args.Error(1)
}

func (m *mockFaceStore) SetName(ctx context.Context, imageID string, faceID string, name string) error {
	return m.Called(ctx, imageID, faceID, name).Error(0)
}

func (m *mockFaceStore) DeleteByImages(ctx context.Context, imageIDs []string) ([]models.Face, error) {
	args := m.Called(ctx, imageIDs)
	faces, _ := args.Get(0).([]models.Face)
	return faces, args.Error(1)
}

type mockStorage struct {
	mock.Mock
	bucket string
}

func (m *mockStorage) Bucket() string                    { return m.bucket }
func (m *mockStorage) IsReady(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockStorage) Name() string                      { return "ObjectStorage[" + m.bucket + "]" }

func (m *mockStorage) CreateMultipartUpload(ctx context.Context, key string, contentType string) (string, error) {
	args := m.Called(ctx, key, contentType)
	return args.String(0), args.Error(1)
}

func (m *mockStorage) PresignUploadPart(ctx context.Context, key string, uploadID string, partNumber int32, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, uploadID, partNumber, ttl)
	return args.String(0), args.Error(1)
}

func (m *mockStorage) CompleteMultipartUpload(ctx context.Context, key string, uploadID string, parts []models.CompletedPart) (*models.CompletedUpload, error) {
	args := m.Called(ctx, key, uploadID, parts)
	res, _ := args.Get(0).(*models.CompletedUpload)
	return res, args.Error(1)
}

func (m *mockStorage) AbortMultipartUpload(ctx context.Context, key string, uploadID string) error {
	return m.Called(ctx, key, uploadID).Error(0)
}

func (m *mockStorage) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

func (m *mockStorage) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	keys, _ := args.Get(0).([]string)
	return keys, args.Error(1)
}

func (m *mockStorage) DeleteKeys(ctx context.Context, keys []string) ([]string, error) {
	args := m.Called(ctx, keys)
	deleted, _ := args.Get(0).([]string)
	return deleted, args.Error(1)
}

func (m *mockStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	body, _ := args.Get(0).(io.ReadCloser)
	return body, args.Error(1)
}

func (m *mockStorage) Put(ctx context.Context, key string, body []byte, contentType string) error {
	return m.Called(ctx, key, body, contentType).Error(0)
}

type mockFaceIndex struct{ mock.Mock }

func (m *mockFaceIndex) EnsureCollection(ctx context.Context, collectionID string) error {
	return m.Called(ctx, collectionID).Error(0)
}

func (m *mockFaceIndex) IndexFaces(ctx context.Context, collectionID string, bucket string, key string) ([]models.IndexedFace, error) {
	args := m.Called(ctx, collectionID, bucket, key)
	faces, _ := args.Get(0).([]models.IndexedFace)
	return faces, args.Error(1)
}

func (m *mockFaceIndex) SearchFaces(ctx context.Context, collectionID string, faceID string, maxFaces int32, threshold float32) ([]models.FaceMatch, error) {
	args := m.Called(ctx, collectionID, faceID, maxFaces, threshold)
	matches, _ := args.Get(0).([]models.FaceMatch)
	return matches, args.Error(1)
}

func (m *mockFaceIndex) DeleteFaces(ctx context.Context, collectionID string, faceIDs []string) (int, error) {
	args := m.Called(ctx, collectionID, faceIDs)
	return args.Int(0), args.Error(1)
}

type mockProvider struct{ mock.Mock }

func (m *mockProvider) SignIn(ctx context.Context, username string, password string) (*models.SignInResult, error) {
	args := m.Called(ctx, username, password)
	res, _ := args.Get(0).(*models.SignInResult)
	return res, args.Error(1)
}

func (m *mockProvider) SignOut(ctx context.Context, accessToken string) error {
	return m.Called(ctx, accessToken).Error(0)
}

func (m *mockProvider) GetUser(ctx context.Context, accessToken string) (*models.UserInfo, error) {
	args := m.Called(ctx, accessToken)
	info, _ := args.Get(0).(*models.UserInfo)
	return info, args.Error(1)
}
