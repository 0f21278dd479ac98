package model

import (
	"time"

	"github.com/catalogue-assistant/server/internal/core"
)

// ================ Config ================
type CoreConfig struct {
	Environment core.Environment `envconfig:"ENVIRONMENT" default:"development"`
}

type ModelConfig struct {
	APIKey         string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL        string `envconfig:"GEMINI_BASE_URL"`
	DefaultModel   string `envconfig:"DEFAULT_MODEL" default:"gemini-2.5-flash"`
	GuardrailModel string `envconfig:"GUARDRAIL_MODEL" default:"gemini-2.5-flash-lite"`
	ThinkingBudget int32  `envconfig:"MODEL_THINKING_BUDGET" default:"1024"`
}

type ConversationConfig struct {
	TTL   string `envconfig:"CONVERSATION_TTL" default:"15m"`
	Tools struct {
		MaxCalls int `envconfig:"CONVERSATION_TOOL_MAX_CALLS" default:"10"`
	}
}

type WorkflowConfig struct {
	// Name selects one of the embedded workflow definitions.
	Name string `envconfig:"WORKFLOW_NAME" default:"rustx"`
	// File points to a YAML definition that replaces the embedded one.
	File            string        `envconfig:"WORKFLOW_FILE"`
	Timeout         time.Duration `envconfig:"WORKFLOW_TIMEOUT" default:"60s"`
	GuardrailStrict bool          `envconfig:"GUARDRAIL_STRICT" default:"true"`
}

type ServerConfig struct {
	Port               int           `envconfig:"PORT" default:"3000"`
	Token              string        `envconfig:"AGENT_SERVER_TOKEN"`
	CORSOrigins        []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"https://chat.openai.com,https://ai-pandit.com"`
	RateLimitPerMinute int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60"`
	ServedBy           string        `envconfig:"SERVED_BY" default:"catalogue-agent@render"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}
