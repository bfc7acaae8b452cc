// Package suggest calls an external reasoning service for advisory seating
// proposals. Responses are untrusted input: the seating service validates
// every proposal and falls back to the deterministic algorithm on any
// failure here.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-seat-api/internal/dto"
	"github.com/noah-isme/exam-seat-api/pkg/config"
)

// ProposalRequest carries everything the reasoning service needs.
type ProposalRequest struct {
	StudentIDs []string
	SeatIDs    []string
	Cohort     string
	Hints      []string
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds a proposal client from seating configuration. The
// configured timeout bounds the whole request.
func NewClient(cfg config.SeatingConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.HeuristicTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.HeuristicBaseURL, "/"),
		apiKey:  cfg.HeuristicAPIKey,
		model:   cfg.HeuristicModel,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type proposalPayload struct {
	Assignments []dto.SeatProposal `json:"assignments"`
}

// Propose requests a seating proposal. Any transport, decoding or shape
// problem is returned as an error; callers must treat it as advisory.
func (c *Client) Propose(ctx context.Context, req ProposalRequest) ([]dto.SeatProposal, error) {
	payload := chatRequest{
		Model:          c.model,
		Messages:       []chatMessage{{Role: "user", Content: buildPrompt(req)}},
		Temperature:    0.3,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode proposal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build proposal request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("proposal request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read proposal response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("proposal service returned %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.Unmarshal(raw, &chat); err != nil {
		return nil, fmt.Errorf("decode proposal response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("proposal response has no choices")
	}

	var proposal proposalPayload
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &proposal); err != nil {
		return nil, fmt.Errorf("decode proposal payload: %w", err)
	}
	if len(proposal.Assignments) == 0 {
		return nil, fmt.Errorf("proposal payload has no assignments")
	}
	return proposal.Assignments, nil
}

func buildPrompt(req ProposalRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a seating arrangement for %d students across %d seats.\n", len(req.StudentIDs), len(req.SeatIDs))
	fmt.Fprintf(&b, "Cohort: %s\n", req.Cohort)
	b.WriteString("Student IDs: " + strings.Join(req.StudentIDs, ", ") + "\n")
	b.WriteString("Seat IDs: " + strings.Join(req.SeatIDs, ", ") + "\n")
	if len(req.Hints) > 0 {
		b.WriteString("Rules:\n")
		for i, hint := range req.Hints {
			fmt.Fprintf(&b, "%d. %s\n", i+1, hint)
		}
	}
	b.WriteString(`Respond with JSON only: {"assignments":[{"studentId":"...","seatId":"..."}]}. `)
	fmt.Fprintf(&b, "Use exact IDs from the lists, create exactly %d assignments, no duplicate students or seats.", len(req.StudentIDs))
	return b.String()
}
