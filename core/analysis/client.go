package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bastion-icc/core/apperr"
	"bastion-icc/core/utils"
)

// GatewayClient talks to the model endpoint. Swappable for a stub in
// tests.
type GatewayClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type httpGateway struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
	logger   *utils.Logger
}

func NewHTTPGateway(endpoint, model, apiKey string, timeout time.Duration, logger *utils.Logger) GatewayClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpGateway{
		endpoint: endpoint,
		model:    model,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

func (g *httpGateway) Generate(ctx context.Context, prompt string) (string, error) {
	if g.endpoint == "" {
		return "", fmt.Errorf("analysis: gateway endpoint not configured")
	}
	raw, err := json.Marshal(generateRequest{Model: g.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("analysis: gateway request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("analysis: gateway read: %w", err)
	}
	// Upstream throttling is surfaced verbatim and never retried here.
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", apperr.ErrRateLimited
	}
	if resp.StatusCode == http.StatusPaymentRequired || containsQuotaSignal(string(body)) {
		return "", apperr.ErrQuotaExhausted
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		g.logger.Errorf("analysis: upstream status %d", resp.StatusCode)
		return "", fmt.Errorf("analysis: upstream status %d", resp.StatusCode)
	}
	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		// Some gateways answer with the completion as plain text.
		return string(body), nil
	}
	if out.Error != "" {
		return "", fmt.Errorf("analysis: upstream error: %s", out.Error)
	}
	return out.Response, nil
}

func containsQuotaSignal(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "quota") || strings.Contains(lower, "insufficient credit")
}
