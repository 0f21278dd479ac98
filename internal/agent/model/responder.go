package model

// ModelParams configures a single chat model invocation. Nil pointers leave
// the provider default in place.
type ModelParams struct {
	Model       string   `koanf:"model" json:"model"`
	Temperature *float32 `koanf:"temperature" json:"temperature,omitempty"`
	TopP        *float32 `koanf:"top_p" json:"top_p,omitempty"`
	MaxTokens   *int     `koanf:"max_tokens" json:"max_tokens,omitempty"`
}

// ResponderDescriptor describes a capability the completion service can run:
// the classifier and every responder are described this way.
type ResponderDescriptor struct {
	Name         string      `koanf:"name" json:"name"`
	Instructions string      `koanf:"instructions" json:"instructions"`
	Model        ModelParams `koanf:"model" json:"model"`
	Tools        []string    `koanf:"tools" json:"tools,omitempty"`
}
