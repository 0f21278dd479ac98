package model

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// ConversationHistory is the ordered log of items exchanged during one
// workflow run. It is the literal context passed to every model call and
// only ever grows; existing entries are never replaced or reordered.
type ConversationHistory struct {
	items []*schema.Message
}

// NewConversationHistory seeds a history with a single user message whose
// content is one input_text part.
func NewConversationHistory(input string) *ConversationHistory {
	return &ConversationHistory{
		items: []*schema.Message{UserInputMessage(input)},
	}
}

// UserInputMessage builds the seed message for a run.
func UserInputMessage(text string) *schema.Message {
	return &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: text},
		},
	}
}

// Append adds items to the end of the history. Nil items are skipped.
func (h *ConversationHistory) Append(items ...*schema.Message) {
	for _, it := range items {
		if it == nil {
			continue
		}
		h.items = append(h.items, it)
	}
}

// Len returns the number of items recorded so far.
func (h *ConversationHistory) Len() int {
	if h == nil {
		return 0
	}
	return len(h.items)
}

// Items returns a copy of the recorded items so callers cannot reorder or
// truncate the underlying log.
func (h *ConversationHistory) Items() []*schema.Message {
	if h == nil {
		return nil
	}
	out := make([]*schema.Message, len(h.items))
	copy(out, h.items)
	return out
}

// TextOf returns the textual content of a message, joining text parts.
func TextOf(m *schema.Message) string {
	if m == nil {
		return ""
	}
	if len(m.MultiContent) == 0 {
		return m.Content
	}
	var b strings.Builder
	b.WriteString(m.Content)
	for _, p := range m.MultiContent {
		if p.Type != schema.ChatMessagePartTypeText || p.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

// TranscriptRepository persists the history of completed runs.
type TranscriptRepository interface {
	// SaveTranscript stores every history item of a run in order
	SaveTranscript(ctx context.Context, runID string, items []*schema.Message) error

	// LoadTranscript retrieves the stored items of a run
	LoadTranscript(ctx context.Context, runID string) ([]*schema.Message, error)

	// DeleteTranscript removes a stored run
	DeleteTranscript(ctx context.Context, runID string) error
}
