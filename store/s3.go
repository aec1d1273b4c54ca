package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/Yulian302/lfusys-services-media/internal/apperror"
	"github.com/Yulian302/lfusys-services-media/internal/health"
	logger "github.com/Yulian302/lfusys-services-media/internal/logging"
	"github.com/Yulian302/lfusys-services-media/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/samber/lo"
)

// deleteObjectsLimit is the most keys S3 accepts in one DeleteObjects call.
const deleteObjectsLimit = 1000

type ObjectStorage interface {
	Bucket() string
	CreateMultipartUpload(ctx context.Context, key string, contentType string) (string, error)
	PresignUploadPart(ctx context.Context, key string, uploadID string, partNumber int32, ttl time.Duration) (string, error)
	CompleteMultipartUpload(ctx context.Context, key string, uploadID string, parts []models.CompletedPart) (*models.CompletedUpload, error)
	AbortMultipartUpload(ctx context.Context, key string, uploadID string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	DeleteKeys(ctx context.Context, keys []string) ([]string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, body []byte, contentType string) error

	health.ReadinessCheck
}

type S3ObjectStorageImpl struct {
	client     S3API
	presigner  PresignAPI
	bucketName string

	logger logger.Logger
}

func NewS3ObjectStorageImpl(client S3API, presigner PresignAPI, bucketName string, l logger.Logger) *S3ObjectStorageImpl {
	return &S3ObjectStorageImpl{
		client:     client,
		presigner:  presigner,
		bucketName: bucketName,
		logger:     l,
	}
}

func (s *S3ObjectStorageImpl) Bucket() string {
	return s.bucketName
}

func (s *S3ObjectStorageImpl) IsReady(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucketName),
	})
	return err
}

func (s *S3ObjectStorageImpl) Name() string {
	return "ObjectStorage[" + s.bucketName + "]"
}

func (s *S3ObjectStorageImpl) CreateMultipartUpload(ctx context.Context, key string, contentType string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key cannot be empty")
	}

	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	out, err := s.client.CreateMultipartUpload(ctx, input)
	if err != nil {
		s.logger.Error("failed to create multipart upload", "key", key, "error", err)
		return "", fmt.Errorf("failed to create multipart upload: %w", err)
	}

	uploadID := aws.ToString(out.UploadId)
	s.logger.Debug("created multipart upload", "upload_id", uploadID, "key", key)
	return uploadID, nil
}

func (s *S3ObjectStorageImpl) PresignUploadPart(
	ctx context.Context,
	key string,
	uploadID string,
	partNumber int32,
	ttl time.Duration,
) (string, error) {
	presigned, err := s.presigner.PresignUploadPart(
		ctx,
		&s3.UploadPartInput{
			Bucket:     aws.String(s.bucketName),
			Key:        aws.String(key),
			UploadId:   aws.String(uploadID),
			PartNumber: aws.Int32(partNumber),
		},
		s3.WithPresignExpires(ttl),
	)
	if err != nil {
		return "", fmt.Errorf("failed to presign part %d: %w", partNumber, err)
	}

	return presigned.URL, nil
}

func (s *S3ObjectStorageImpl) CompleteMultipartUpload(
	ctx context.Context,
	key string,
	uploadID string,
	parts []models.CompletedPart,
) (*models.CompletedUpload, error) {
	sorted := append([]models.CompletedPart(nil), parts...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PartNumber < sorted[j].PartNumber
	})

	completedParts := lo.Map(sorted, func(p models.CompletedPart, _ int) types.CompletedPart {
		return types.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int32(p.PartNumber),
		}
	})

	out, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(s.bucketName),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completedParts,
		},
	})
	if err != nil {
		s.logger.Error("failed to complete multipart upload", "upload_id", uploadID, "key", key, "error", err)
		return nil, mapMultipartError(err)
	}

	s.logger.Info("successfully completed multipart upload", "upload_id", uploadID, "key", key, "parts", len(completedParts))

	return &models.CompletedUpload{
		Location: aws.ToString(out.Location),
		Bucket:   aws.ToString(out.Bucket),
		Key:      aws.ToString(out.Key),
		ETag:     aws.ToString(out.ETag),
	}, nil
}

func (s *S3ObjectStorageImpl) AbortMultipartUpload(ctx context.Context, key string, uploadID string) error {
	_, err := s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.bucketName),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		s.logger.Error("failed to abort multipart upload", "upload_id", uploadID, "key", key, "error", err)
		return mapMultipartError(err)
	}

	s.logger.Info("aborted multipart upload", "upload_id", uploadID, "key", key)
	return nil
}

func mapMultipartError(err error) error {
	var noSuchUpload *types.NoSuchUpload
	if errors.As(err, &noSuchUpload) {
		return apperror.ErrNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchUpload":
			return apperror.ErrNotFound
		case "InvalidPart", "InvalidPartOrder", "EntityTooSmall":
			return apperror.Validation("%s", apiErr.ErrorMessage())
		}
	}
	return fmt.Errorf("multipart upload: %w", err)
}

func (s *S3ObjectStorageImpl) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	presigned, err := s.presigner.PresignGetObject(
		ctx,
		&s3.GetObjectInput{
			Bucket: aws.String(s.bucketName),
			Key:    aws.String(key),
		},
		s3.WithPresignExpires(ttl),
	)
	if err != nil {
		return "", err
	}

	return presigned.URL, nil
}

func (s *S3ObjectStorageImpl) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	if prefix == "" {
		return nil, fmt.Errorf("prefix cannot be empty")
	}

	s.logger.Debug("listing objects", "prefix", prefix)

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucketName),
		Prefix: aws.String(prefix),
	})

	keys := []string{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			s.logger.Error("failed to list objects", "prefix", prefix, "error", err)
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	s.logger.Debug("listed objects", "prefix", prefix, "count", len(keys))
	return keys, nil
}

// DeleteKeys deletes keys in batches and returns the keys S3 reports as
// deleted. Per-key failures are logged, not returned.
func (s *S3ObjectStorageImpl) DeleteKeys(ctx context.Context, keys []string) ([]string, error) {
	deleted := []string{}

	for _, chunk := range lo.Chunk(keys, deleteObjectsLimit) {
		select {
		case <-ctx.Done():
			return deleted, ctx.Err()
		default:
		}

		objects := lo.Map(chunk, func(k string, _ int) types.ObjectIdentifier {
			return types.ObjectIdentifier{Key: aws.String(k)}
		})

		s.logger.Debug("deleting batch of objects", "bucket", s.bucketName, "count", len(objects))

		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucketName),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(false),
			},
		})
		if err != nil {
			s.logger.Error("failed to delete objects", "bucket", s.bucketName, "batch_size", len(objects), "error", err)
			return deleted, fmt.Errorf("failed to delete objects: %w", err)
		}

		for _, d := range out.Deleted {
			deleted = append(deleted, aws.ToString(d.Key))
		}
		for _, e := range out.Errors {
			s.logger.Warn("object not deleted", "bucket", s.bucketName, "key", aws.ToString(e.Key), "code", aws.ToString(e.Code))
		}
	}

	s.logger.Info("deleted objects", "bucket", s.bucketName, "total_deleted", len(deleted))
	return deleted, nil
}

func (s *S3ObjectStorageImpl) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, apperror.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}

	return out.Body, nil
}

func (s *S3ObjectStorageImpl) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		s.logger.Error("failed to put object", "bucket", s.bucketName, "key", key, "error", err)
		return fmt.Errorf("failed to put object: %w", err)
	}

	return nil
}
