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

type MediaStore interface {
	Put(ctx context.Context, item models.MediaItem) error
	Get(ctx context.Context, key models.ItemKey) (*models.MediaItem, error)
	List(ctx context.Context, userID string, datePrefix string) ([]models.MediaItem, error)
	BatchGet(ctx context.Context, keys []models.ItemKey) ([]models.MediaItem, error)
	DeleteBatch(ctx context.Context, keys []models.ItemKey) error
	SetImageID(ctx context.Context, key models.ItemKey, imageID string) error
	AssignAlbum(ctx context.Context, userID string, key models.ItemKey, albumSK string) error
	UnassignAlbum(ctx context.Context, userID string, key models.ItemKey, albumSK string) error
	ListAlbumPage(ctx context.Context, userID string, albumSK string, token string, limit int32) ([]models.MediaItem, string, error)
	ListAlbumItems(ctx context.Context, userID string, albumSK string) ([]models.MediaItem, error)

	health.ReadinessCheck
}

type DynamoDbMediaStoreImpl struct {
	client    DynamoDBAPI
	tableName string

	now func() time.Time
}

func NewDynamoDbMediaStoreImpl(client DynamoDBAPI, tableName string) *DynamoDbMediaStoreImpl {
	return &DynamoDbMediaStoreImpl{
		client:    client,
		tableName: tableName,
		now:       time.Now,
	}
}

func (s *DynamoDbMediaStoreImpl) IsReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	return retries.Retry(
		ctx,
		retries.HealthAttempts,
		retries.HealthBaseDelay,
		func() error {
			_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
				TableName: aws.String(s.tableName),
			})
			return err
		},
		retries.IsRetriableDbError,
	)
}

func (s *DynamoDbMediaStoreImpl) Name() string {
	return "MediaStore[" + s.tableName + "]"
}

func (s *DynamoDbMediaStoreImpl) Put(ctx context.Context, item models.MediaItem) error {
	mediaItem, err := attributevalue.MarshalMap(item)
	if err != nil {
		return err
	}

	err = retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
				TableName:           aws.String(s.tableName),
				Item:                mediaItem,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			})
			return err
		},
		retries.IsRetriableDbError,
	)

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return apperror.ErrAlreadyExists
	}
	return err
}

func (s *DynamoDbMediaStoreImpl) Get(ctx context.Context, key models.ItemKey) (*models.MediaItem, error) {
	var item models.MediaItem

	err := retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
				TableName:      aws.String(s.tableName),
				Key:            itemKey(key.PK, key.SK),
				ConsistentRead: aws.Bool(true),
			})
			if err != nil {
				return err
			}

			if out.Item == nil {
				return apperror.ErrNotFound
			}

			return attributevalue.UnmarshalMap(out.Item, &item)
		},
		retries.IsRetriableDbError,
	)
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// List returns the user's media newest first. An empty prefix lists all
// media rows; album rows sort after every timestamp and are excluded.
func (s *DynamoDbMediaStoreImpl) List(ctx context.Context, userID string, datePrefix string) ([]models.MediaItem, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(userID))
	if datePrefix == "" {
		keyCond = keyCond.And(expression.Key("SK").LessThan(expression.Value(models.AlbumPrefix)))
	} else {
		keyCond = keyCond.And(expression.Key("SK").BeginsWith(datePrefix))
	}

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("build media query: %w", err)
	}

	return s.queryAll(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	})
}

func (s *DynamoDbMediaStoreImpl) queryAll(ctx context.Context, input *dynamodb.QueryInput) ([]models.MediaItem, error) {
	var items []models.MediaItem

	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		var pageItems []models.MediaItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &pageItems); err != nil {
			return nil, err
		}
		items = append(items, pageItems...)
	}

	return items, nil
}

// BatchGet returns the media rows that exist among keys, in no particular order.
func (s *DynamoDbMediaStoreImpl) BatchGet(ctx context.Context, keys []models.ItemKey) ([]models.MediaItem, error) {
	var items []models.MediaItem

	for _, chunk := range lo.Chunk(lo.Uniq(keys), BatchGetLimit) {
		pending := lo.Map(chunk, func(k models.ItemKey, _ int) map[string]types.AttributeValue {
			return itemKey(k.PK, k.SK)
		})

		err := retries.Retry(
			ctx,
			unprocessedAttempts,
			retries.DefaultBaseDelay,
			func() error {
				out, err := s.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
					RequestItems: map[string]types.KeysAndAttributes{
						s.tableName: {Keys: pending},
					},
				})
				if err != nil {
					return err
				}

				var found []models.MediaItem
				if err := attributevalue.UnmarshalListOfMaps(out.Responses[s.tableName], &found); err != nil {
					return err
				}
				items = append(items, found...)

				pending = out.UnprocessedKeys[s.tableName].Keys
				if len(pending) > 0 {
					return apperror.ErrUnprocessedItems
				}
				return nil
			},
			func(err error) bool {
				return errors.Is(err, apperror.ErrUnprocessedItems) || retries.IsRetriableDbError(err)
			},
		)
		if err != nil {
			return nil, fmt.Errorf("batch get %d items: %w", len(chunk), err)
		}
	}

	return items, nil
}

func (s *DynamoDbMediaStoreImpl) DeleteBatch(ctx context.Context, keys []models.ItemKey) error {
	avKeys := lo.Map(keys, func(k models.ItemKey, _ int) map[string]types.AttributeValue {
		return itemKey(k.PK, k.SK)
	})
	return batchWrite(ctx, s.client, s.tableName, deleteRequests(avKeys))
}

func (s *DynamoDbMediaStoreImpl) SetImageID(ctx context.Context, key models.ItemKey, imageID string) error {
	update := expression.Set(expression.Name("imageId"), expression.Value(imageID)).
		Set(expression.Name("updatedAt"), expression.Value(models.Timestamp(s.now())))
	cond := expression.AttributeExists(expression.Name("PK"))

	return s.conditionalUpdate(ctx, key, update, cond)
}

// AssignAlbum sets albumId on a media row owned by userID. A missing row or
// a row of another user yields ErrNotFound.
func (s *DynamoDbMediaStoreImpl) AssignAlbum(ctx context.Context, userID string, key models.ItemKey, albumSK string) error {
	update := expression.Set(expression.Name("albumId"), expression.Value(albumSK)).
		Set(expression.Name("updatedAt"), expression.Value(models.Timestamp(s.now())))
	cond := expression.Name("PK").Equal(expression.Value(userID)).
		And(expression.AttributeExists(expression.Name("PK")))

	return s.conditionalUpdate(ctx, key, update, cond)
}

// UnassignAlbum removes albumId from a media row owned by userID. With a
// non-empty albumSK the row must currently belong to that album.
func (s *DynamoDbMediaStoreImpl) UnassignAlbum(ctx context.Context, userID string, key models.ItemKey, albumSK string) error {
	update := expression.Remove(expression.Name("albumId")).
		Set(expression.Name("updatedAt"), expression.Value(models.Timestamp(s.now())))
	cond := expression.Name("PK").Equal(expression.Value(userID)).
		And(expression.AttributeExists(expression.Name("PK")))
	if albumSK != "" {
		cond = cond.And(expression.Name("albumId").Equal(expression.Value(albumSK)))
	}

	return s.conditionalUpdate(ctx, key, update, cond)
}

func (s *DynamoDbMediaStoreImpl) conditionalUpdate(
	ctx context.Context,
	key models.ItemKey,
	update expression.UpdateBuilder,
	cond expression.ConditionBuilder,
) error {
	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	err = retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
				TableName:                 aws.String(s.tableName),
				Key:                       itemKey(key.PK, key.SK),
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

func (s *DynamoDbMediaStoreImpl) albumQuery(userID string, albumSK string) (expression.Expression, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(userID)).
		And(expression.Key("SK").LessThan(expression.Value(models.AlbumPrefix)))
	filter := expression.Name("albumId").Equal(expression.Value(albumSK))

	return expression.NewBuilder().WithKeyCondition(keyCond).WithFilter(filter).Build()
}

// ListAlbumPage returns one page of an album's media, newest first, and the
// token for the next page ("" on the last page). The filter runs after the
// limit, so a page can hold fewer than limit items and still have a successor.
func (s *DynamoDbMediaStoreImpl) ListAlbumPage(
	ctx context.Context,
	userID string,
	albumSK string,
	token string,
	limit int32,
) ([]models.MediaItem, string, error) {
	startKey, err := DecodePageToken(token, userID)
	if err != nil {
		return nil, "", err
	}

	expr, err := s.albumQuery(userID, albumSK)
	if err != nil {
		return nil, "", fmt.Errorf("build album query: %w", err)
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
		Limit:                     aws.Int32(limit),
		ExclusiveStartKey:         startKey,
	})
	if err != nil {
		return nil, "", err
	}

	items := []models.MediaItem{}
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, "", err
	}

	next, err := EncodePageToken(out.LastEvaluatedKey)
	if err != nil {
		return nil, "", err
	}

	return items, next, nil
}

func (s *DynamoDbMediaStoreImpl) ListAlbumItems(ctx context.Context, userID string, albumSK string) ([]models.MediaItem, error) {
	expr, err := s.albumQuery(userID, albumSK)
	if err != nil {
		return nil, fmt.Errorf("build album query: %w", err)
	}

	return s.queryAll(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
}
