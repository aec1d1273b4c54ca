package store

import (
	"encoding/base64"
	"encoding/json"

	"github.com/Yulian302/lfusys-services-media/internal/apperror"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// EncodePageToken turns a LastEvaluatedKey into an opaque client token:
// base64 of the JSON object of its string attributes. An empty key yields "".
func EncodePageToken(key map[string]types.AttributeValue) (string, error) {
	if len(key) == 0 {
		return "", nil
	}

	var plain map[string]string
	if err := attributevalue.UnmarshalMap(key, &plain); err != nil {
		return "", err
	}

	b, err := json.Marshal(plain)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecodePageToken reverses EncodePageToken. Tokens that do not decode, or
// that point into another user's partition, are rejected.
func DecodePageToken(token string, userID string) (map[string]types.AttributeValue, error) {
	if token == "" {
		return nil, nil
	}

	b, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, apperror.ErrInvalidToken
	}

	var plain map[string]string
	if err := json.Unmarshal(b, &plain); err != nil {
		return nil, apperror.ErrInvalidToken
	}
	if plain["PK"] != userID || plain["SK"] == "" {
		return nil, apperror.ErrInvalidToken
	}

	key, err := attributevalue.MarshalMap(plain)
	if err != nil {
		return nil, apperror.ErrInvalidToken
	}
	return key, nil
}
