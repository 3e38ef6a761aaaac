package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStoreSaveAndGetModel(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStoreWithClient(client, "fc", nil)
	ctx := context.Background()

	model := testModel("m-1", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	data, err := store.codec.EncodeModel(model)
	require.NoError(t, err)

	mock.ExpectSet("fc:model:m-1", data, 0).SetVal("OK")
	mock.ExpectSAdd("fc:models", "m-1").SetVal(1)
	require.NoError(t, store.SaveModel(ctx, model))

	mock.ExpectGet("fc:model:m-1").SetVal(string(data))
	got, ok, err := store.GetModel(ctx, "m-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.Stages, got.Stages)
	assert.Equal(t, model.Report, got.Report)

	mock.ExpectGet("fc:model:missing").RedisNil()
	_, ok, err = store.GetModel(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreListModels(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStoreWithClient(client, "", nil)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	a, err := store.codec.EncodeModel(testModel("a", base))
	require.NoError(t, err)
	b, err := store.codec.EncodeModel(testModel("b", base.Add(time.Hour)))
	require.NoError(t, err)

	mock.ExpectSMembers("fuzzcast:models").SetVal([]string{"a", "b", "gone"})
	mock.ExpectGet("fuzzcast:model:a").SetVal(string(a))
	mock.ExpectGet("fuzzcast:model:b").SetVal(string(b))
	mock.ExpectGet("fuzzcast:model:gone").RedisNil()

	list, err := store.ListModels(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, "a", list[1].ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreSnapshots(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStoreWithClient(client, "fc", nil)
	ctx := context.Background()

	snap := Snapshot{ModelID: "m", Version: 1, Stage: "learning", CreatedAt: time.Unix(100, 0).UTC(), FIS: testSystem(t)}
	data, err := store.codec.EncodeSnapshot(snap)
	require.NoError(t, err)

	mock.ExpectSet("fc:snapshot:m:1", data, 0).SetVal("OK")
	mock.ExpectZAdd("fc:snapshots:m", redis.Z{Score: 1, Member: "1"}).SetVal(1)
	require.NoError(t, store.SaveSnapshot(ctx, snap))

	mock.ExpectZRange("fc:snapshots:m", 0, -1).SetVal([]string{"1"})
	mock.ExpectGet("fc:snapshot:m:1").SetVal(string(data))
	list, err := store.ListSnapshots(ctx, "m")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "learning", list[0].Stage)
	assert.Len(t, list[0].FIS.Rules, len(snap.FIS.Rules))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreErrors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStoreWithClient(client, "fc", nil)
	ctx := context.Background()

	mock.ExpectPing().SetErr(errors.New("connection refused"))
	assert.Error(t, store.Init(ctx))

	model := testModel("m", time.Unix(0, 0).UTC())
	data, err := store.codec.EncodeModel(model)
	require.NoError(t, err)
	mock.ExpectSet("fc:model:m", data, 0).SetErr(errors.New("READONLY"))
	assert.Error(t, store.SaveModel(ctx, model))

	mock.ExpectGet("fc:model:bad").SetVal("not a record")
	_, _, err = store.GetModel(ctx, "bad")
	assert.ErrorIs(t, err, ErrCorruptRecord)

	require.NoError(t, mock.ExpectationsWereMet())
}
