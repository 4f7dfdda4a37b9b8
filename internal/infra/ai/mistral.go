package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/Formille/CthulhuCalender/internal/platform/metrics"
)

// MistralProvider implements LLMProvider for the Mistral chat API.
type MistralProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	usageStats UsageStats
	budgetGate *BudgetGate
}

// Mistral API request/response structures. The wire format is
// OpenAI-compatible chat completions.
type mistralRequest struct {
	Model       string           `json:"model"`
	Messages    []mistralMessage `json:"messages"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
}

type mistralMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type mistralResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Model string `json:"model"`
}

// NewMistralProvider creates a new Mistral adapter. The key comes from
// the environment when not passed explicitly.
func NewMistralProvider(apiKey, model string, budgetGate *BudgetGate) *MistralProvider {
	if apiKey == "" {
		apiKey = os.Getenv("MISTRAL_API_KEY")
	}
	if model == "" {
		model = "mistral-small-latest"
	}
	return &MistralProvider{
		apiKey:     apiKey,
		baseURL:    "https://api.mistral.ai/v1/chat/completions",
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		budgetGate: budgetGate,
	}
}

// Name returns the provider name.
func (p *MistralProvider) Name() string {
	return "Mistral"
}

// IsAvailable checks if the API key is configured.
func (p *MistralProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// Complete sends a completion request to Mistral.
func (p *MistralProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if !p.IsAvailable() {
		return nil, fmt.Errorf("Mistral API key not configured")
	}

	estimatedCost := p.estimateCost(req)
	if p.budgetGate != nil && !p.budgetGate.CanSpend(estimatedCost) {
		return nil, fmt.Errorf("budget limit exceeded: %s", p.budgetGate.GetStatus())
	}

	model := p.model
	if req.Model != "" {
		model = req.Model
	}

	messages := make([]mistralMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = mistralMessage{Role: m.Role, Content: m.Content}
	}

	body, err := json.Marshal(mistralRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	latency := time.Since(start)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Mistral error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var mResp mistralResponse
	if err := json.Unmarshal(respBody, &mResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(mResp.Choices) == 0 {
		return nil, fmt.Errorf("no response choices returned")
	}

	actualCost := p.calculateCost(mResp.Usage.TotalTokens)
	if p.budgetGate != nil {
		p.budgetGate.RecordSpend(actualCost)
	}
	metrics.Get().RecordLLMCall(mResp.Usage.TotalTokens, actualCost, latency)
	p.usageStats.TotalRequests++
	p.usageStats.TotalTokens += mResp.Usage.TotalTokens
	p.usageStats.TotalCostUSD += actualCost

	return &CompletionResponse{
		Content:      mResp.Choices[0].Message.Content,
		Model:        mResp.Model,
		PromptTokens: mResp.Usage.PromptTokens,
		OutputTokens: mResp.Usage.CompletionTokens,
		TotalTokens:  mResp.Usage.TotalTokens,
		Latency:      latency,
		FinishReason: mResp.Choices[0].FinishReason,
	}, nil
}

// estimateCost estimates the cost before making a request.
func (p *MistralProvider) estimateCost(req CompletionRequest) float64 {
	estimatedTokens := 1000 + req.MaxTokens
	return p.calculateCost(estimatedTokens)
}

// calculateCost computes the cost based on tokens. Mistral Small is
// about $0.20/1M input and $0.60/1M output; a blended rate is close
// enough for budget gating.
func (p *MistralProvider) calculateCost(tokens int) float64 {
	return float64(tokens) * 0.0000004
}

// GetUsageStats returns current usage statistics.
func (p *MistralProvider) GetUsageStats() UsageStats {
	if p.budgetGate != nil {
		p.usageStats.BudgetRemaining = p.budgetGate.MonthRemaining()
	}
	return p.usageStats
}

// ResetUsage resets all usage counters.
func (p *MistralProvider) ResetUsage() {
	p.usageStats = UsageStats{LastReset: time.Now()}
}

// Ensure MistralProvider implements LLMProvider
var _ LLMProvider = (*MistralProvider)(nil)
