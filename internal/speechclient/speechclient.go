// Package speechclient implements SpeechClient (spec §4.H): a thin
// wrapper over a Whisper-compatible transcription API, built the same
// way internal/llm's OpenAIService talks to the chat completions
// endpoint — context-bound requests, bearer auth, typed JSON decode.
package speechclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"voicecore/internal/apperr"
)

const requestTimeout = 5 * time.Minute

type Service struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func New(apiKey, baseURL string) *Service {
	return &Service{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the normalized audio at path and returns its
// text. An empty transcript (silence, non-speech audio) is a valid
// result, not an error — the processor stores it as-is.
func (s *Service) Transcribe(ctx context.Context, audioPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	f, err := os.Open(audioPath)
	if err != nil {
		return "", apperr.New(apperr.UnsupportedFormat, "failed to open normalized audio", err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", apperr.New(apperr.Unavailable, "failed to build multipart request", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", apperr.New(apperr.Unavailable, "failed to stream audio into request", err)
	}
	if err := writer.WriteField("model", "whisper-1"); err != nil {
		return "", apperr.New(apperr.Unavailable, "failed to build multipart request", err)
	}
	if err := writer.Close(); err != nil {
		return "", apperr.New(apperr.Unavailable, "failed to finalize multipart request", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", apperr.New(apperr.Unavailable, "failed to create transcription request", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", apperr.New(apperr.Timeout, "transcription request timed out", err)
		}
		return "", apperr.New(apperr.Unavailable, "transcription request failed", err)
	}
	defer resp.Body.Close()

	return s.decodeResponse(resp)
}

func (s *Service) decodeResponse(resp *http.Response) (string, error) {
	switch resp.StatusCode {
	case http.StatusOK:
		var tr transcriptionResponse
		if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
			return "", apperr.New(apperr.Unavailable, "failed to decode transcription response", err)
		}
		return tr.Text, nil
	case http.StatusTooManyRequests:
		return "", apperr.New(apperr.RateLimited, "transcription provider rate limited the request", nil)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		errBody, _ := io.ReadAll(resp.Body)
		return "", apperr.New(apperr.InvalidInput, "transcription provider rejected input", fmt.Errorf("%s", truncate(errBody, 300)))
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return "", apperr.New(apperr.Timeout, "transcription provider timed out", nil)
	default:
		errBody, _ := io.ReadAll(resp.Body)
		return "", apperr.New(apperr.Unavailable, fmt.Sprintf("transcription provider error %d", resp.StatusCode), fmt.Errorf("%s", truncate(errBody, 300)))
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
