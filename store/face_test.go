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

func faceRow(t *testing.T, f models.Face) map[string]types.AttributeValue {
	t.Helper()
	av, err := attributevalue.MarshalMap(f)
	require.NoError(t, err)
	return av
}

func TestFaceStore_GetName(t *testing.T) {
	db := &fakeDynamo{
		getItem: func(in *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
			assert.Equal(t, itemKey("IMAGE#img-1", "FACE#face-1"), in.Key)
			return &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
				"faceName": &types.AttributeValueMemberS{Value: "Ana"},
			}}, nil
		},
	}
	s := NewDynamoDbFaceStoreImpl(db, "photos")

	name, err := s.GetName(context.Background(), "img-1", "FACE#face-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", name)
}

func TestFaceStore_GetNameMissingRow(t *testing.T) {
	s := NewDynamoDbFaceStoreImpl(&fakeDynamo{}, "photos")

	_, err := s.GetName(context.Background(), "img-1", "face-1")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestFaceStore_SetNameMissingRow(t *testing.T) {
	db := &fakeDynamo{
		updateItem: func(in *dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("failed")}
		},
	}
	s := NewDynamoDbFaceStoreImpl(db, "photos")

	err := s.SetName(context.Background(), "img-1", "face-1", "Ana")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestFaceStore_PutBatch(t *testing.T) {
	var written int
	db := &fakeDynamo{
		batchWriteItem: func(in *dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error) {
			for _, r := range in.RequestItems["photos"] {
				require.NotNil(t, r.PutRequest)
				written++
			}
			return &dynamodb.BatchWriteItemOutput{}, nil
		},
	}
	s := NewDynamoDbFaceStoreImpl(db, "photos")

	faces := make([]models.Face, 30)
	for i := range faces {
		faces[i] = models.Face{PK: "IMAGE#img-1", SK: models.FaceSK(string(rune('a' + i))), UserID: "user-1"}
	}

	require.NoError(t, s.PutBatch(context.Background(), faces))
	assert.Equal(t, 30, written)
	assert.Equal(t, 2, db.count("BatchWriteItem"))
}

func TestFaceStore_DeleteByImages(t *testing.T) {
	var deleted int
	db := &fakeDynamo{
		query: func(in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
			var pk string
			for _, v := range in.ExpressionAttributeValues {
				if s, ok := v.(*types.AttributeValueMemberS); ok && s.Value != models.FacePrefix {
					pk = s.Value
				}
			}
			return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
				faceRow(t, models.Face{PK: pk, SK: "FACE#1", UserID: "user-1"}),
				faceRow(t, models.Face{PK: pk, SK: "FACE#2", UserID: "user-1"}),
			}}, nil
		},
		batchWriteItem: func(in *dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error) {
			for _, r := range in.RequestItems["photos"] {
				require.NotNil(t, r.DeleteRequest)
				deleted++
			}
			return &dynamodb.BatchWriteItemOutput{}, nil
		},
	}
	s := NewDynamoDbFaceStoreImpl(db, "photos")

	faces, err := s.DeleteByImages(context.Background(), []string{"img-1", "", "img-2", "img-1"})
	require.NoError(t, err)
	assert.Len(t, faces, 4)
	assert.Equal(t, 4, deleted)
	assert.Equal(t, 2, db.count("Query"))
}

func TestFaceStore_DeleteByImagesNothingToDelete(t *testing.T) {
	db := &fakeDynamo{}
	s := NewDynamoDbFaceStoreImpl(db, "photos")

	faces, err := s.DeleteByImages(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, faces)
	assert.Zero(t, db.count("BatchWriteItem"))
}
