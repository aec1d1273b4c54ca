package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Yulian302/lfusys-services-media/internal/apperror"
	"github.com/Yulian302/lfusys-services-media/internal/retries"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/samber/lo"
)

const (
	// BatchWriteLimit is the most requests DynamoDB accepts in one BatchWriteItem.
	BatchWriteLimit = 25
	// BatchGetLimit is the most keys DynamoDB accepts in one BatchGetItem.
	BatchGetLimit = 100

	unprocessedAttempts = 3
)

// batchWrite sends reqs in chunks of 25. Unprocessed requests are resent a
// few times before giving up with ErrUnprocessedItems.
func batchWrite(ctx context.Context, client DynamoDBAPI, table string, reqs []types.WriteRequest) error {
	for _, chunk := range lo.Chunk(reqs, BatchWriteLimit) {
		pending := chunk

		err := retries.Retry(
			ctx,
			unprocessedAttempts,
			retries.DefaultBaseDelay,
			func() error {
				out, err := client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
					RequestItems: map[string][]types.WriteRequest{table: pending},
				})
				if err != nil {
					return err
				}

				pending = out.UnprocessedItems[table]
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
			return fmt.Errorf("batch write %d items: %w", len(chunk), err)
		}
	}
	return nil
}

func deleteRequests(keys []map[string]types.AttributeValue) []types.WriteRequest {
	return lo.Map(keys, func(k map[string]types.AttributeValue, _ int) types.WriteRequest {
		return types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: k}}
	})
}

func putRequests(items []map[string]types.AttributeValue) []types.WriteRequest {
	return lo.Map(items, func(it map[string]types.AttributeValue, _ int) types.WriteRequest {
		return types.WriteRequest{PutRequest: &types.PutRequest{Item: it}}
	})
}

func itemKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}
