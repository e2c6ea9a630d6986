// Package summaryclient implements SummaryClient (spec §4.I): turns a
// day's transcripts into a structured family/business/misc digest.
// Built directly on internal/llm's chat-completion shape — same
// request/response envelope, same bearer auth, same JSON decode —
// generalized from free-form chat replies to a JSON-mode prompt the
// processor can parse without a second LLM round trip.
package summaryclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"voicecore/internal/apperr"
	"voicecore/internal/llm"
	"voicecore/internal/models"
)

type Result struct {
	Body       models.SummaryBody
	TokensIn   int
	TokensOut  int
}

type Service struct {
	chat         llm.Service
	model        string
	promptTmpl   string
}

func New(chat llm.Service, model, promptTemplate string) *Service {
	return &Service{chat: chat, model: model, promptTmpl: promptTemplate}
}

// Summarize sends the day's transcript texts through the configured
// model and parses its JSON-mode reply into a SummaryBody. A reply
// that isn't valid JSON in the expected shape surfaces as
// apperr.Unavailable — the processor treats that as transient and
// retries, since it's usually a one-off model hiccup rather than a
// permanently malformed prompt.
func (s *Service) Summarize(ctx context.Context, transcripts []string) (*Result, error) {
	prompt := s.buildPrompt(transcripts)

	messages := []llm.ChatMessage{
		{Role: "system", Content: s.promptTmpl},
		{Role: "user", Content: prompt},
	}

	resp, err := s.chat.ChatCompletion(ctx, s.model, messages, 0.2)
	if err != nil {
		return nil, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperr.New(apperr.Unavailable, "summary model returned no choices", nil)
	}

	raw := resp.Choices[0].Message.Content
	body, err := parseBody(raw)
	if err != nil {
		return nil, apperr.New(apperr.Unavailable, "summary model returned malformed JSON", err)
	}

	return &Result{
		Body:      *body,
		TokensIn:  resp.Usage.PromptTokens,
		TokensOut: resp.Usage.CompletionTokens,
	}, nil
}

func (s *Service) buildPrompt(transcripts []string) string {
	var b strings.Builder
	b.WriteString("Summarize the following recordings from one day into family, business, and misc items.\n\n")
	for i, t := range transcripts {
		fmt.Fprintf(&b, "Recording %d: %s\n", i+1, t)
	}
	b.WriteString("\nRespond with JSON only: {\"family\": [...], \"business\": [...], \"misc\": [...]}")
	return b.String()
}

func parseBody(raw string) (*models.SummaryBody, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var body models.SummaryBody
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// classifyError maps the underlying llm.Service error text to the
// taxonomy category the processor's retry policy needs. The Service
// interface itself returns plain errors, so this recognizes the status
// substrings OpenAIService.ChatCompletion embeds in its error text.
func classifyError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "API error: 429"):
		return apperr.New(apperr.RateLimited, "summary provider rate limited the request", err)
	case strings.Contains(msg, "API error: 504"), strings.Contains(msg, "context deadline exceeded"):
		return apperr.New(apperr.Timeout, "summary provider timed out", err)
	default:
		return apperr.New(apperr.Unavailable, "summary provider request failed", err)
	}
}
