package llm

import "context"

// CompletionOptions are the sampling parameters for one completion call.
type CompletionOptions struct {
	Temperature     float32
	TopP            float32
	PresencePenalty float32
	Seed            int
}

// DefaultOptions mirrors the completion service defaults; Seed is pinned for
// reproducibility.
func DefaultOptions() CompletionOptions {
	return CompletionOptions{
		Temperature: 1.0,
		TopP:        1.0,
		Seed:        25,
	}
}

// Completer is the single capability the pipeline needs from the model
// service: complete this prompt, or fail.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
}
