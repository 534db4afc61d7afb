package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisx "stagepass/internal/redis"
	redisrepo "stagepass/internal/repository/redis"
)

type eventSummary struct {
	Title string `json:"title"`
	Venue string `json:"venue"`
}

func TestGetOrSetJSON_MissLoadsAndStores(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := redisrepo.New(db)

	want := eventSummary{Title: "Hamlet", Venue: "Main Hall"}

	mock.ExpectGet("k").RedisNil()
	mock.ExpectGet("k").RedisNil()
	mock.ExpectSet("k", `{"title":"Hamlet","venue":"Main Hall"}`, time.Minute).SetVal("OK")

	loads := 0
	got, err := redisrepo.GetOrSetJSON(context.Background(), cache, "k", time.Minute,
		func(ctx context.Context) (eventSummary, error) {
			loads++
			return want, nil
		})
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, loads)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrSetJSON_HitSkipsLoader(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := redisrepo.New(db)

	mock.ExpectGet("k").SetVal(`{"title":"Hamlet","venue":"Main Hall"}`)

	got, err := redisrepo.GetOrSetJSON(context.Background(), cache, "k", time.Minute,
		func(ctx context.Context) (eventSummary, error) {
			t.Fatal("loader must not run on a cache hit")
			return eventSummary{}, nil
		})
	require.NoError(t, err)
	assert.Equal(t, "Hamlet", got.Title)
}

func TestInvalidateEvent_DropsAllEventViews(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := redisrepo.New(db)

	eventID := uuid.New()
	mock.ExpectDel(
		redisx.KeyEventSummary(eventID),
		redisx.KeyEventAvailability(eventID),
		redisx.KeyEventSeatMap(eventID),
	).SetVal(3)

	require.NoError(t, cache.InvalidateEvent(context.Background(), eventID))
	require.NoError(t, mock.ExpectationsWereMet())
}
