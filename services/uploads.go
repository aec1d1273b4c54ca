package services

import (
	"context"
	"time"

	"github.com/Yulian302/lfusys-services-media/internal/apperror"
	logger "github.com/Yulian302/lfusys-services-media/internal/logging"
	"github.com/Yulian302/lfusys-services-media/models"
	"github.com/Yulian302/lfusys-services-media/store"
)

const (
	// MaxParts is the most parts one multipart upload may have.
	MaxParts        = 10000
	DefaultPartSize = 10 << 20
)

type UploadOptions struct {
	PartSize       int64
	UploadURLTTL   time.Duration
	DownloadURLTTL time.Duration
}

type UploadService interface {
	Initiate(ctx context.Context, userID string, req models.InitiateUploadRequest) (*models.MultipartUpload, error)
	Complete(ctx context.Context, userID string, uploadID string, key string, parts []models.CompletedPart) (*models.CompletedUpload, error)
	Abort(ctx context.Context, userID string, uploadID string, key string) error
	DownloadURL(ctx context.Context, userID string, fileName string, thumbnail bool) (string, error)
	ListObjects(ctx context.Context, userID string) ([]string, error)
}

type UploadServiceImpl struct {
	uploads    store.ObjectStorage
	thumbnails store.ObjectStorage
	opts       UploadOptions

	logger logger.Logger
}

func NewUploadServiceImpl(
	uploads store.ObjectStorage,
	thumbnails store.ObjectStorage,
	opts UploadOptions,
	l logger.Logger,
) *UploadServiceImpl {
	if opts.PartSize <= 0 {
		opts.PartSize = DefaultPartSize
	}

	return &UploadServiceImpl{
		uploads:    uploads,
		thumbnails: thumbnails,
		opts:       opts,
		logger:     l,
	}
}

func (svc *UploadServiceImpl) Initiate(ctx context.Context, userID string, req models.InitiateUploadRequest) (*models.MultipartUpload, error) {
	if !models.ValidFileName(req.FileName) {
		return nil, apperror.Validation("fileName is required and cannot contain '/'")
	}

	parts, err := svc.partCount(req)
	if err != nil {
		return nil, err
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = models.ContentTypeFor(req.FileName)
	}

	key := models.ObjectKey(userID, req.FileName)
	uploadID, err := svc.uploads.CreateMultipartUpload(ctx, key, contentType)
	if err != nil {
		return nil, err
	}

	upload := &models.MultipartUpload{
		UploadID: uploadID,
		Key:      key,
		Parts:    make([]models.UploadPart, 0, parts),
	}
	for n := int32(1); n <= int32(parts); n++ {
		url, err := svc.uploads.PresignUploadPart(ctx, key, uploadID, n, svc.opts.UploadURLTTL)
		if err != nil {
			svc.logger.Error("part presign failed, aborting upload", "upload_id", uploadID, "part", n, "error", err)
			if abortErr := svc.uploads.AbortMultipartUpload(ctx, key, uploadID); abortErr != nil {
				svc.logger.Error("abort after failed presign failed", "upload_id", uploadID, "error", abortErr)
			}
			return nil, err
		}
		upload.Parts = append(upload.Parts, models.UploadPart{PartNumber: n, URL: url})
	}

	svc.logger.Info("upload initiated", "user_id", userID, "upload_id", uploadID, "key", key, "parts", parts)
	return upload, nil
}

func (svc *UploadServiceImpl) partCount(req models.InitiateUploadRequest) (int, error) {
	if req.FileSize < 0 || req.PartCount < 0 {
		return 0, apperror.Validation("fileSize and partCount cannot be negative")
	}

	parts := req.PartCount
	if req.FileSize > 0 {
		parts = int((req.FileSize + svc.opts.PartSize - 1) / svc.opts.PartSize)
	}
	if parts == 0 {
		parts = 1
	}
	if parts > MaxParts {
		return 0, apperror.Validation("upload needs %d parts, at most %d are allowed", parts, MaxParts)
	}
	return parts, nil
}

func (svc *UploadServiceImpl) Complete(
	ctx context.Context,
	userID string,
	uploadID string,
	key string,
	parts []models.CompletedPart,
) (*models.CompletedUpload, error) {
	if uploadID == "" || key == "" || len(parts) == 0 {
		return nil, apperror.Validation("uploadId, key and parts are required")
	}
	if err := checkKeyOwner(userID, key); err != nil {
		return nil, err
	}

	for _, p := range parts {
		if p.ETag == "" || p.PartNumber < 1 || p.PartNumber > MaxParts {
			return nil, apperror.Validation("every part needs an ETag and a PartNumber between 1 and %d", MaxParts)
		}
	}

	return svc.uploads.CompleteMultipartUpload(ctx, key, uploadID, parts)
}

func (svc *UploadServiceImpl) Abort(ctx context.Context, userID string, uploadID string, key string) error {
	if uploadID == "" || key == "" {
		return apperror.Validation("uploadId and key are required")
	}
	if err := checkKeyOwner(userID, key); err != nil {
		return err
	}

	return svc.uploads.AbortMultipartUpload(ctx, key, uploadID)
}

func checkKeyOwner(userID string, key string) error {
	owner, _, ok := models.SplitObjectKey(key)
	if !ok {
		return apperror.Validation("key must look like <userId>/<fileName>")
	}
	if owner != userID {
		return apperror.ErrForbidden
	}
	return nil
}

// DownloadURL presigns a GET for one of the user's files, or for its
// thumbnail.
func (svc *UploadServiceImpl) DownloadURL(ctx context.Context, userID string, fileName string, thumbnail bool) (string, error) {
	if !models.ValidFileName(fileName) {
		return "", apperror.Validation("fileName is required and cannot contain '/'")
	}

	storage := svc.uploads
	if thumbnail {
		storage = svc.thumbnails
	}

	return storage.PresignGet(ctx, models.ObjectKey(userID, fileName), svc.opts.DownloadURLTTL)
}

func (svc *UploadServiceImpl) ListObjects(ctx context.Context, userID string) ([]string, error) {
	return svc.uploads.ListKeys(ctx, userID+"/")
}
