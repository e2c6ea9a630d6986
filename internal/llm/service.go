package llm

import "context"

// Service is a provider-agnostic chat-completion interface. Pared down
// to the single call summaryclient needs — a one-shot, non-streaming
// completion — since this core never drives an interactive chat UI.
type Service interface {
	ChatCompletion(ctx context.Context, model string, messages []ChatMessage, temperature float64) (*ChatResponse, error)
}
