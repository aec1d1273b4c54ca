package vision

import (
	"context"
	"errors"
	"fmt"

	logger "github.com/Yulian302/lfusys-services-media/internal/logging"
	"github.com/Yulian302/lfusys-services-media/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/samber/lo"
)

// deleteFacesLimit is the most face ids DeleteFaces accepts per call.
const deleteFacesLimit = 4096

// RekognitionAPI is the subset of the Rekognition client the face index uses.
type RekognitionAPI interface {
	DescribeCollection(ctx context.Context, params *rekognition.DescribeCollectionInput, optFns ...func(*rekognition.Options)) (*rekognition.DescribeCollectionOutput, error)
	CreateCollection(ctx context.Context, params *rekognition.CreateCollectionInput, optFns ...func(*rekognition.Options)) (*rekognition.CreateCollectionOutput, error)
	IndexFaces(ctx context.Context, params *rekognition.IndexFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.IndexFacesOutput, error)
	SearchFaces(ctx context.Context, params *rekognition.SearchFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.SearchFacesOutput, error)
	DeleteFaces(ctx context.Context, params *rekognition.DeleteFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DeleteFacesOutput, error)
}

var _ RekognitionAPI = (*rekognition.Client)(nil)

// FaceIndex keeps one face collection per user, named by the user id.
type FaceIndex interface {
	EnsureCollection(ctx context.Context, collectionID string) error
	IndexFaces(ctx context.Context, collectionID string, bucket string, key string) ([]models.IndexedFace, error)
	SearchFaces(ctx context.Context, collectionID string, faceID string, maxFaces int32, threshold float32) ([]models.FaceMatch, error)
	DeleteFaces(ctx context.Context, collectionID string, faceIDs []string) (int, error)
}

type RekognitionFaceIndexImpl struct {
	client   RekognitionAPI
	maxFaces int32

	logger logger.Logger
}

func NewRekognitionFaceIndexImpl(client RekognitionAPI, maxFaces int32, l logger.Logger) *RekognitionFaceIndexImpl {
	return &RekognitionFaceIndexImpl{
		client:   client,
		maxFaces: maxFaces,
		logger:   l,
	}
}

func (r *RekognitionFaceIndexImpl) EnsureCollection(ctx context.Context, collectionID string) error {
	_, err := r.client.DescribeCollection(ctx, &rekognition.DescribeCollectionInput{
		CollectionId: aws.String(collectionID),
	})
	if err == nil {
		return nil
	}

	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to describe collection: %w", err)
	}

	r.logger.Info("collection not found, creating", "collection_id", collectionID)

	_, err = r.client.CreateCollection(ctx, &rekognition.CreateCollectionInput{
		CollectionId: aws.String(collectionID),
	})
	if err != nil {
		// another invocation won the race
		var exists *types.ResourceAlreadyExistsException
		if errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

func (r *RekognitionFaceIndexImpl) IndexFaces(ctx context.Context, collectionID string, bucket string, key string) ([]models.IndexedFace, error) {
	out, err := r.client.IndexFaces(ctx, &rekognition.IndexFacesInput{
		CollectionId: aws.String(collectionID),
		Image: &types.Image{
			S3Object: &types.S3Object{
				Bucket: aws.String(bucket),
				Name:   aws.String(key),
			},
		},
		DetectionAttributes: []types.Attribute{types.AttributeDefault},
		MaxFaces:            aws.Int32(r.maxFaces),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to index faces of %s: %w", key, err)
	}

	faces := make([]models.IndexedFace, 0, len(out.FaceRecords))
	for _, rec := range out.FaceRecords {
		if rec.Face == nil || rec.Face.FaceId == nil || rec.Face.ImageId == nil {
			continue
		}
		faces = append(faces, models.IndexedFace{
			FaceID:      aws.ToString(rec.Face.FaceId),
			ImageID:     aws.ToString(rec.Face.ImageId),
			Confidence:  aws.ToFloat32(rec.Face.Confidence),
			BoundingBox: boundingBox(rec.Face.BoundingBox),
		})
	}

	r.logger.Debug("indexed faces", "collection_id", collectionID, "key", key, "faces", len(faces), "unindexed", len(out.UnindexedFaces))
	return faces, nil
}

func boundingBox(b *types.BoundingBox) *models.BoundingBox {
	if b == nil {
		return nil
	}
	return &models.BoundingBox{
		Width:  aws.ToFloat32(b.Width),
		Height: aws.ToFloat32(b.Height),
		Left:   aws.ToFloat32(b.Left),
		Top:    aws.ToFloat32(b.Top),
	}
}

// SearchFaces returns the faces of the collection most similar to faceID,
// best match first. The face itself is never among the results.
func (r *RekognitionFaceIndexImpl) SearchFaces(
	ctx context.Context,
	collectionID string,
	faceID string,
	maxFaces int32,
	threshold float32,
) ([]models.FaceMatch, error) {
	input := &rekognition.SearchFacesInput{
		CollectionId: aws.String(collectionID),
		FaceId:       aws.String(models.TrimFacePrefix(faceID)),
		MaxFaces:     aws.Int32(maxFaces),
	}
	if threshold > 0 {
		input.FaceMatchThreshold = aws.Float32(threshold)
	}

	out, err := r.client.SearchFaces(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to search faces like %s: %w", faceID, err)
	}

	matches := make([]models.FaceMatch, 0, len(out.FaceMatches))
	for _, m := range out.FaceMatches {
		if m.Face == nil || m.Face.FaceId == nil || m.Face.ImageId == nil {
			continue
		}
		matches = append(matches, models.FaceMatch{
			FaceID:     aws.ToString(m.Face.FaceId),
			ImageID:    aws.ToString(m.Face.ImageId),
			Similarity: aws.ToFloat32(m.Similarity),
		})
	}

	return matches, nil
}

func (r *RekognitionFaceIndexImpl) DeleteFaces(ctx context.Context, collectionID string, faceIDs []string) (int, error) {
	ids := lo.Uniq(lo.Map(lo.Compact(faceIDs), func(id string, _ int) string {
		return models.TrimFacePrefix(id)
	}))

	deleted := 0
	for _, chunk := range lo.Chunk(ids, deleteFacesLimit) {
		out, err := r.client.DeleteFaces(ctx, &rekognition.DeleteFacesInput{
			CollectionId: aws.String(collectionID),
			FaceIds:      chunk,
		})
		if err != nil {
			var notFound *types.ResourceNotFoundException
			if errors.As(err, &notFound) {
				return deleted, nil
			}
			return deleted, fmt.Errorf("failed to delete faces: %w", err)
		}
		deleted += len(out.DeletedFaces)
	}

	return deleted, nil
}
