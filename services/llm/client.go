package llm

import "context"

// GenerationParams tunes a single generation call. Nil fields use the
// backend's defaults. Scoring tasks always set MaxTokens: task outputs are
// small JSON objects and anything longer is waste.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient is the standard interface for any scoring-task backend. The
// analyzer treats it as an untrusted black box: it may fail, time out, or
// return malformed output, and the caller degrades accordingly.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}
