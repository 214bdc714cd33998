package llm

import "context"

// CompletionOptions mirrors the teacher's llm.CompletionOptions shape;
// Format requests the provider bias its output toward strict JSON when
// the underlying model supports it.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
	Format      string
}

// Provider is the opaque external completion capability spec §1 treats
// as out of scope beyond this interface: Complete(prompt) -> text.
type Provider interface {
	Complete(ctx context.Context, prompt string, options CompletionOptions) (string, error)
	IsAvailable() bool
}
