package store

import (
	"context"
	"testing"

	"github.com/Yulian302/lfusys-services-media/internal/apperror"
	"github.com/Yulian302/lfusys-services-media/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlbumStore_PutNormalisesKey(t *testing.T) {
	var got *dynamodb.PutItemInput
	db := &fakeDynamo{
		putItem: func(in *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
			got = in
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	s := NewDynamoDbAlbumStoreImpl(db, "photos")

	require.NoError(t, s.Put(context.Background(), models.Album{PK: "user-1", SK: "abc", AlbumName: "Trips"}))

	var stored models.Album
	require.NoError(t, attributevalue.UnmarshalMap(got.Item, &stored))
	assert.Equal(t, "ALBUM#abc", stored.SK)
	assert.Equal(t, "Trips", stored.AlbumName)
}

func TestAlbumStore_GetMissing(t *testing.T) {
	s := NewDynamoDbAlbumStoreImpl(&fakeDynamo{}, "photos")

	_, err := s.Get(context.Background(), "user-1", "abc")
	assert.ErrorIs(t, err, apperror.ErrAlbumNotFound)
}

func TestAlbumStore_ListQueriesAlbumPrefix(t *testing.T) {
	var got *dynamodb.QueryInput
	row, err := attributevalue.MarshalMap(models.Album{PK: "user-1", SK: "ALBUM#a", AlbumName: "A"})
	require.NoError(t, err)

	db := &fakeDynamo{
		query: func(in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
			got = in
			return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{row}}, nil
		},
	}
	s := NewDynamoDbAlbumStoreImpl(db, "photos")

	albums, err := s.List(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, "A", albums[0].AlbumName)
	assert.Contains(t, aws.ToString(got.KeyConditionExpression), "begins_with")
}

func TestAlbumStore_DeleteMissing(t *testing.T) {
	db := &fakeDynamo{
		deleteItem: func(in *dynamodb.DeleteItemInput) (*dynamodb.DeleteItemOutput, error) {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("failed")}
		},
	}
	s := NewDynamoDbAlbumStoreImpl(db, "photos")

	err := s.Delete(context.Background(), "user-1", "ALBUM#a")
	assert.ErrorIs(t, err, apperror.ErrAlbumNotFound)
}
