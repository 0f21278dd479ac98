package completion

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
)

const DefaultMaxToolCalls = 10

type loopState struct {
	toolCallCount int
	limitReached  bool
	toolCallIDSeq int
}

// normalizeMaxToolCalls returns a sane default when the provided value is invalid.
func normalizeMaxToolCalls(n int) int {
	if n <= 0 {
		return DefaultMaxToolCalls
	}
	return n
}

// checkAndMarkToolLimit marks the state once the tool round count reaches
// max. Returns true only when marked now.
func checkAndMarkToolLimit(st *loopState, max int) bool {
	max = normalizeMaxToolCalls(max)
	if !st.limitReached && st.toolCallCount >= max {
		st.limitReached = true
		return true
	}
	return false
}

func wrapUpNotice(max int) *schema.Message {
	return &schema.Message{
		Role: schema.System,
		Content: fmt.Sprintf(
			"SYSTEM NOTICE: You have reached the maximum tool call limit (%d). "+
				"Please synthesize a helpful response using the information you've already gathered. "+
				"Acknowledge any limitations in your response if you couldn't complete all necessary tool calls.",
			max,
		),
	}
}

// normalizeToolCallIDs assigns ids to tool calls the provider left blank.
func normalizeToolCallIDs(st *loopState, msg *schema.Message) {
	for i := range msg.ToolCalls {
		if strings.TrimSpace(msg.ToolCalls[i].ID) == "" {
			st.toolCallIDSeq++
			msg.ToolCalls[i].ID = fmt.Sprintf("call_%d", st.toolCallIDSeq)
		}
	}
}

// fillToolCallIDs makes sure every tool result carries the id of the call it
// answers, pairing results with calls by position.
func fillToolCallIDs(call *schema.Message, results []*schema.Message) {
	for i, r := range results {
		if r == nil || strings.TrimSpace(r.ToolCallID) != "" || i >= len(call.ToolCalls) {
			continue
		}
		r.ToolCallID = call.ToolCalls[i].ID
	}
}
