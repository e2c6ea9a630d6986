// Package mailer implements Mailer (spec §4.J): sending the daily
// summary email once it's generated. Built on the same retry shape as
// the teacher's webhook.Service — a fixed attempt count with linear
// backoff — generalized from a generic POST callback to a
// provider-specific transactional email send.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"voicecore/internal/apperr"
	"voicecore/internal/config"
)

const maxAttempts = 3

type Message struct {
	To      string
	Subject string
	Body    string
}

type Service struct {
	provider config.MailProvider
	apiKey   string
	sender   string
	client   *http.Client
}

func New(provider config.MailProvider, apiKey, sender string) *Service {
	return &Service{
		provider: provider,
		apiKey:   apiKey,
		sender:   sender,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type sendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// Send delivers msg, retrying up to maxAttempts times with linear
// backoff on transient failures. A provider-reported bad address or
// invalid payload is not retried.
func (s *Service) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return apperr.New(apperr.InvalidInput, "mail recipient is empty", nil)
	}

	reqBody := sendRequest{From: s.sender, To: msg.To, Subject: msg.Subject, Text: msg.Body}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return apperr.New(apperr.InvalidInput, "failed to marshal mail payload", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * time.Second)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", s.providerEndpoint(), bytes.NewBuffer(payload))
		if err != nil {
			return apperr.New(apperr.Unavailable, "failed to build mail request", err)
		}
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		status := resp.StatusCode
		resp.Body.Close()

		if status >= 200 && status < 300 {
			return nil
		}
		if status == http.StatusBadRequest || status == http.StatusUnprocessableEntity {
			return apperr.New(apperr.InvalidInput, fmt.Sprintf("mail provider rejected message: status %d", status), nil)
		}
		if status == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("mail provider rate limited: status %d", status)
			continue
		}
		lastErr = fmt.Errorf("mail provider returned status %d", status)
	}

	return apperr.New(apperr.Unavailable, "failed to send mail after retries", lastErr)
}

func (s *Service) providerEndpoint() string {
	switch s.provider {
	case config.MailProviderSMTP:
		return "https://smtp-relay.internal/v1/send"
	default:
		return "https://api.mailprovider.com/v1/send"
	}
}
