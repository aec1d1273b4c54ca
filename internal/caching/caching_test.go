package caching

import (
	"context"
	"testing"
	"time"

	"github.com/Yulian302/lfusys-services-media/internal/apperror"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCachingService_GetHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectGet("auth:token:abc").SetVal(`{"userId":"u1"}`)

	svc := NewRedisCachingService(db)
	val, err := svc.Get(context.Background(), "auth:token:abc")
	require.NoError(t, err)
	assert.Equal(t, `{"userId":"u1"}`, val)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCachingService_GetMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectGet("missing").RedisNil()

	svc := NewRedisCachingService(db)
	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrCacheMiss)
}

func TestRedisCachingService_SetAndDelete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectSet("k", "v", time.Minute).SetVal("OK")
	mock.ExpectDel("k").SetVal(1)

	svc := NewRedisCachingService(db)
	require.NoError(t, svc.Set(context.Background(), "k", "v", time.Minute))
	require.NoError(t, svc.Delete(context.Background(), "k"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNullCachingService(t *testing.T) {
	svc := NewNullCachingService()
	require.NoError(t, svc.Set(context.Background(), "k", "v", time.Minute))

	_, err := svc.Get(context.Background(), "k")
	assert.ErrorIs(t, err, apperror.ErrCacheMiss)
	assert.NoError(t, svc.Delete(context.Background(), "k"))
}
