package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Yulian302/lfusys-services-media/internal/apperror"
	"github.com/Yulian302/lfusys-services-media/internal/health"
	"github.com/Yulian302/lfusys-services-media/internal/retries"
	"github.com/Yulian302/lfusys-services-media/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/samber/lo"
)

type FaceStore interface {
	PutBatch(ctx context.Context, faces []models.Face) error
	ListByImage(ctx context.Context, imageID string) ([]models.Face, error)
	GetName(ctx context.Context, imageID string, faceID string) (string, error)
	SetName(ctx context.Context, imageID string, faceID string, name string) error
	DeleteByImages(ctx context.Context, imageIDs []string) ([]models.Face, error)

	health.ReadinessCheck
}

type DynamoDbFaceStoreImpl struct {
	client    DynamoDBAPI
	tableName string

	now func() time.Time
}

func NewDynamoDbFaceStoreImpl(client DynamoDBAPI, tableName string) *DynamoDbFaceStoreImpl {
	return &DynamoDbFaceStoreImpl{
		client:    client,
		tableName: tableName,
		now:       time.Now,
	}
}

func (s *DynamoDbFaceStoreImpl) IsReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	})
	return err
}

func (s *DynamoDbFaceStoreImpl) Name() string {
	return "FaceStore[" + s.tableName + "]"
}

func (s *DynamoDbFaceStoreImpl) PutBatch(ctx context.Context, faces []models.Face) error {
	items := make([]map[string]types.AttributeValue, 0, len(faces))
	for _, f := range faces {
		item, err := attributevalue.MarshalMap(f)
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	return batchWrite(ctx, s.client, s.tableName, putRequests(items))
}

func (s *DynamoDbFaceStoreImpl) ListByImage(ctx context.Context, imageID string) ([]models.Face, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(models.ImagePK(imageID))).
		And(expression.Key("SK").BeginsWith(models.FacePrefix))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("build face query: %w", err)
	}

	faces := []models.Face{}
	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		var pageFaces []models.Face
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &pageFaces); err != nil {
			return nil, err
		}
		faces = append(faces, pageFaces...)
	}

	return faces, nil
}

// GetName returns the face's name, "" when it has none yet, or ErrNotFound
// when the face row does not exist.
func (s *DynamoDbFaceStoreImpl) GetName(ctx context.Context, imageID string, faceID string) (string, error) {
	var face models.Face

	err := retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
				TableName:            aws.String(s.tableName),
				Key:                  itemKey(models.ImagePK(imageID), models.FaceSK(faceID)),
				ProjectionExpression: aws.String("faceName"),
			})
			if err != nil {
				return err
			}

			if out.Item == nil {
				return apperror.ErrNotFound
			}

			return attributevalue.UnmarshalMap(out.Item, &face)
		},
		retries.IsRetriableDbError,
	)
	if err != nil {
		return "", err
	}

	return face.FaceName, nil
}

// SetName names an existing face row; it never creates one.
func (s *DynamoDbFaceStoreImpl) SetName(ctx context.Context, imageID string, faceID string, name string) error {
	update := expression.Set(expression.Name("faceName"), expression.Value(name)).
		Set(expression.Name("updatedAt"), expression.Value(models.Timestamp(s.now())))
	cond := expression.AttributeExists(expression.Name("PK"))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("build face update: %w", err)
	}

	err = retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
				TableName:                 aws.String(s.tableName),
				Key:                       itemKey(models.ImagePK(imageID), models.FaceSK(faceID)),
				UpdateExpression:          expr.Update(),
				ConditionExpression:       expr.Condition(),
				ExpressionAttributeNames:  expr.Names(),
				ExpressionAttributeValues: expr.Values(),
			})
			return err
		},
		retries.IsRetriableDbError,
	)

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return apperror.ErrNotFound
	}
	return err
}

// DeleteByImages removes every face row of the given images. Face rows can
// only be addressed by full key, so each image is queried first.
func (s *DynamoDbFaceStoreImpl) DeleteByImages(ctx context.Context, imageIDs []string) ([]models.Face, error) {
	var faces []models.Face
	for _, imageID := range lo.Uniq(lo.Compact(imageIDs)) {
		imageFaces, err := s.ListByImage(ctx, imageID)
		if err != nil {
			return nil, fmt.Errorf("list faces of image %s: %w", imageID, err)
		}
		faces = append(faces, imageFaces...)
	}

	if len(faces) == 0 {
		return nil, nil
	}

	keys := lo.Map(faces, func(f models.Face, _ int) map[string]types.AttributeValue {
		return itemKey(f.PK, f.SK)
	})
	if err := batchWrite(ctx, s.client, s.tableName, deleteRequests(keys)); err != nil {
		return nil, err
	}

	return faces, nil
}
