package conversations

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogue-assistant/server/internal/agent/model"
	errx "github.com/catalogue-assistant/server/internal/core/error"
)

type memRepo struct {
	saved map[string][]*schema.Message
	err   error
}

func (m *memRepo) SaveTranscript(_ context.Context, runID string, items []*schema.Message) error {
	if m.err != nil {
		return m.err
	}
	m.saved[runID] = items
	return nil
}

func (m *memRepo) LoadTranscript(_ context.Context, runID string) ([]*schema.Message, error) {
	return m.saved[runID], nil
}

func (m *memRepo) DeleteTranscript(_ context.Context, runID string) error {
	delete(m.saved, runID)
	return nil
}

func TestTranscriptManager_SaveAndLoad(t *testing.T) {
	repo := &memRepo{saved: map[string][]*schema.Message{}}
	tm := NewTranscriptManager(repo)
	require.True(t, tm.Enabled())

	h := model.NewConversationHistory("hello")
	h.Append(schema.AssistantMessage("hi", nil))
	require.NoError(t, tm.SaveRun(context.Background(), "run-1", h))

	items, err := tm.LoadRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestTranscriptManager_Disabled(t *testing.T) {
	tm := NewTranscriptManager(nil)
	assert.False(t, tm.Enabled())
	assert.NoError(t, tm.SaveRun(context.Background(), "run-1", model.NewConversationHistory("x")))

	_, err := tm.LoadRun(context.Background(), "run-1")
	assert.Equal(t, http.StatusNotFound, errx.StatusOf(err))
}

func TestTranscriptManager_SaveError(t *testing.T) {
	boom := errors.New("boom")
	tm := NewTranscriptManager(&memRepo{err: boom})
	err := tm.SaveRun(context.Background(), "run-1", model.NewConversationHistory("x"))
	assert.ErrorIs(t, err, boom)
}
