package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"rotorbot/internal/model"
)

// AdvisorGate asks an LLM advisory service whether a proposed trade should
// proceed. It speaks the OpenAI-style chat-completions protocol so any
// compatible endpoint works. Any transport or protocol failure holds the
// trade — the advisor can block but never force execution.
type AdvisorGate struct {
	url    string
	apiKey string
	model  string
	client *http.Client
}

// NewAdvisorGate creates an advisory gate.
// url: chat-completions endpoint (e.g. https://api.openai.com/v1/chat/completions)
// model: model identifier to request.
func NewAdvisorGate(url, apiKey, model string) *AdvisorGate {
	return &AdvisorGate{
		url:    url,
		apiKey: apiKey,
		model:  model,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (g *AdvisorGate) Name() string { return "advisor" }

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (g *AdvisorGate) Approve(ctx context.Context, p model.Proposal) (bool, string, error) {
	prompt := fmt.Sprintf(
		"You're an advanced trading assistant. Here is the current trading data:\n\n"+
			"Symbol: %s\nFrom Asset: %s\nTo Asset: %s\nSuggested Action: %s\n"+
			"Current Balance: %g\nPrice: %g\n"+
			"Indicators: SMA50=%g SMA200=%g EMA20=%g RSI=%g MACD=%g MACD_signal=%g\n\n"+
			"Based on this information, should the bot proceed with the trade ('proceed') or hold off ('hold off')?",
		p.Pair, p.FromAsset, p.ToAsset, p.Action, p.Balance, p.Price,
		p.Snapshot.SMA50, p.Snapshot.SMA200, p.Snapshot.EMA20,
		p.Snapshot.RSI, p.Snapshot.MACD, p.Snapshot.MACDSignal)

	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a helpful assistant for trading decisions."},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return false, "", fmt.Errorf("advisor: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.url, bytes.NewReader(body))
	if err != nil {
		return false, "", fmt.Errorf("advisor: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return false, "", fmt.Errorf("advisor: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, "", fmt.Errorf("advisor: unexpected status %d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, "", fmt.Errorf("advisor: decode: %w", err)
	}
	if len(out.Choices) == 0 {
		return false, "", fmt.Errorf("advisor: empty response")
	}

	advice := strings.ToLower(strings.TrimSpace(out.Choices[0].Message.Content))
	if strings.HasPrefix(advice, "proceed") {
		return true, advice, nil
	}
	return false, advice, nil
}
