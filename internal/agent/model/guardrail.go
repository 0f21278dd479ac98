package model

// Guardrail category names as reported in a result's info.guardrail_name.
const (
	GuardrailPII           = "Contains PII"
	GuardrailModeration    = "Moderation"
	GuardrailJailbreak     = "Jailbreak"
	GuardrailHallucination = "Hallucination Detection"
)

// GuardrailResult is the outcome of one configured check for one evaluation.
// Info is sparse: fields appear only when the check produced them.
type GuardrailResult struct {
	Name              string         `json:"name"`
	TripwireTriggered bool           `json:"tripwire_triggered"`
	ExecutionFailed   bool           `json:"execution_failed"`
	Info              map[string]any `json:"info,omitempty"`
}

// GuardrailReport is returned to the caller when at least one tripwire fired.
type GuardrailReport struct {
	PII           PIIReport           `json:"pii"`
	Moderation    ModerationReport    `json:"moderation"`
	Jailbreak     JailbreakReport     `json:"jailbreak"`
	Hallucination HallucinationReport `json:"hallucination"`
}

// Optional fields below are omitted from JSON when absent in the source
// result; they are never encoded as null or as empty placeholders.

type PIIReport struct {
	Failed         bool     `json:"failed"`
	DetectedCounts []string `json:"detected_counts,omitempty"`
	Error          *string  `json:"error,omitempty"`
}

type ModerationReport struct {
	Failed            bool     `json:"failed"`
	FlaggedCategories []string `json:"flagged_categories,omitempty"`
	Error             *string  `json:"error,omitempty"`
}

type JailbreakReport struct {
	Failed bool    `json:"failed"`
	Error  *string `json:"error,omitempty"`
}

type HallucinationReport struct {
	Failed                 bool     `json:"failed"`
	Reasoning              *string  `json:"reasoning,omitempty"`
	HallucinationType      *string  `json:"hallucination_type,omitempty"`
	HallucinatedStatements []string `json:"hallucinated_statements,omitempty"`
	VerifiedStatements     []string `json:"verified_statements,omitempty"`
	Error                  *string  `json:"error,omitempty"`
}
