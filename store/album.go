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
)

type AlbumStore interface {
	List(ctx context.Context, userID string) ([]models.Album, error)
	Get(ctx context.Context, userID string, albumSK string) (*models.Album, error)
	Put(ctx context.Context, album models.Album) error
	Delete(ctx context.Context, userID string, albumSK string) error

	health.ReadinessCheck
}

type DynamoDbAlbumStoreImpl struct {
	client    DynamoDBAPI
	tableName string
}

func NewDynamoDbAlbumStoreImpl(client DynamoDBAPI, tableName string) *DynamoDbAlbumStoreImpl {
	return &DynamoDbAlbumStoreImpl{
		client:    client,
		tableName: tableName,
	}
}

func (s *DynamoDbAlbumStoreImpl) IsReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	})
	return err
}

func (s *DynamoDbAlbumStoreImpl) Name() string {
	return "AlbumStore[" + s.tableName + "]"
}

// List returns the user's albums, most recently created id first.
func (s *DynamoDbAlbumStoreImpl) List(ctx context.Context, userID string) ([]models.Album, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(userID)).
		And(expression.Key("SK").BeginsWith(models.AlbumPrefix))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("build album query: %w", err)
	}

	albums := []models.Album{}
	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		var pageAlbums []models.Album
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &pageAlbums); err != nil {
			return nil, err
		}
		albums = append(albums, pageAlbums...)
	}

	return albums, nil
}

func (s *DynamoDbAlbumStoreImpl) Get(ctx context.Context, userID string, albumSK string) (*models.Album, error) {
	var album models.Album

	err := retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
				TableName: aws.String(s.tableName),
				Key:       itemKey(userID, models.AlbumSK(albumSK)),
			})
			if err != nil {
				return err
			}

			if out.Item == nil {
				return apperror.ErrAlbumNotFound
			}

			return attributevalue.UnmarshalMap(out.Item, &album)
		},
		retries.IsRetriableDbError,
	)
	if err != nil {
		return nil, err
	}

	return &album, nil
}

func (s *DynamoDbAlbumStoreImpl) Put(ctx context.Context, album models.Album) error {
	album.SK = models.AlbumSK(album.SK)

	albumItem, err := attributevalue.MarshalMap(album)
	if err != nil {
		return err
	}

	return retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
				TableName: aws.String(s.tableName),
				Item:      albumItem,
			})
			return err
		},
		retries.IsRetriableDbError,
	)
}

func (s *DynamoDbAlbumStoreImpl) Delete(ctx context.Context, userID string, albumSK string) error {
	err := retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName:           aws.String(s.tableName),
				Key:                 itemKey(userID, models.AlbumSK(albumSK)),
				ConditionExpression: aws.String("attribute_exists(PK)"),
			})
			return err
		},
		retries.IsRetriableDbError,
	)

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return apperror.ErrAlbumNotFound
	}
	return err
}
