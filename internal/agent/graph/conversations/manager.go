package conversations

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/catalogue-assistant/server/internal/agent/model"
	logx "github.com/catalogue-assistant/server/pkg/logger"
)

// TranscriptManager persists the history of finished runs. A manager
// without a repository is disabled and every call is a no-op.
type TranscriptManager struct {
	transcriptRepo model.TranscriptRepository
}

func NewTranscriptManager(transcriptRepo model.TranscriptRepository) *TranscriptManager {
	return &TranscriptManager{transcriptRepo: transcriptRepo}
}

// Enabled reports whether transcripts are stored.
func (tm *TranscriptManager) Enabled() bool {
	return tm != nil && tm.transcriptRepo != nil
}

// SaveRun stores the full history of a run.
func (tm *TranscriptManager) SaveRun(ctx context.Context, runID string, history *model.ConversationHistory) error {
	if !tm.Enabled() || history.Len() == 0 {
		return nil
	}
	if err := tm.transcriptRepo.SaveTranscript(ctx, runID, history.Items()); err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	logx.Ctx(ctx).Debug().Int("items", history.Len()).Msg("Transcript saved")
	return nil
}

// LoadRun returns the stored history of a run.
func (tm *TranscriptManager) LoadRun(ctx context.Context, runID string) ([]*schema.Message, error) {
	if !tm.Enabled() {
		return nil, ErrTranscriptsDisabled
	}
	return tm.transcriptRepo.LoadTranscript(ctx, runID)
}
