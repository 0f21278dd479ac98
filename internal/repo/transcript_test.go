package repo

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogue-assistant/server/internal/agent/model"
	errx "github.com/catalogue-assistant/server/internal/core/error"
)

func newRepo(t *testing.T, ttl time.Duration) (*RedisTranscriptRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisTranscriptRepository(rdb, ttl), mr
}

func TestTranscript_SaveLoadDelete(t *testing.T) {
	r, mr := newRepo(t, 15*time.Minute)
	ctx := context.Background()

	items := []*schema.Message{
		model.UserInputMessage("Tell me about SS 316 fasteners"),
		schema.AssistantMessage(`{"classification":"Catalogue_Agent"}`, nil),
		schema.AssistantMessage("SS 316 bolts resist pitting.", nil),
	}
	require.NoError(t, r.SaveTranscript(ctx, "run-1", items))

	assert.True(t, mr.Exists("workflow:run-1:items"))
	assert.Equal(t, 15*time.Minute, mr.TTL("workflow:run-1:items"))

	got, err := r.LoadTranscript(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Tell me about SS 316 fasteners", model.TextOf(got[0]))
	assert.Equal(t, schema.Assistant, got[2].Role)
	assert.Equal(t, "SS 316 bolts resist pitting.", got[2].Content)

	require.NoError(t, r.DeleteTranscript(ctx, "run-1"))
	_, err = r.LoadTranscript(ctx, "run-1")
	assert.Equal(t, http.StatusNotFound, errx.StatusOf(err))
}

func TestTranscript_NoTTL(t *testing.T) {
	r, mr := newRepo(t, 0)
	require.NoError(t, r.SaveTranscript(context.Background(), "run-2", []*schema.Message{schema.UserMessage("hi")}))
	assert.Equal(t, time.Duration(0), mr.TTL("workflow:run-2:items"))
}

func TestTranscript_EmptySaveIsNoop(t *testing.T) {
	r, mr := newRepo(t, time.Minute)
	require.NoError(t, r.SaveTranscript(context.Background(), "run-3", nil))
	assert.False(t, mr.Exists("workflow:run-3:items"))
}

func TestTranscript_RedisDown(t *testing.T) {
	r, mr := newRepo(t, time.Minute)
	mr.Close()

	err := r.SaveTranscript(context.Background(), "run-4", []*schema.Message{schema.UserMessage("hi")})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))
}
