package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"VibeFM/core/pipeline"
	"VibeFM/logger"
	"VibeFM/model"
)

// AgentConfig contains configuration for the recommendation agent.
type AgentConfig struct {
	APIBaseURL  string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// System prompt constraining the model to the exact query shape the catalog
// search expects. Any extra text is rejected by the shape check below.
const recommendSystemPrompt = `You are a music recommendation engine.
The user describes a mood, scene or vibe. Reply with exactly one song that fits.

Rules:
1. Reply with ONLY the literal text: songName, artistName
2. One line, one comma, nothing else. No quotes, no numbering, no explanation.
3. Pick a real, well-known recording.

Example input: a slow rainy evening
Example output: Blue in Green, Miles Davis`

// queryShape matches a single-line "songName, artistName" reply.
var queryShape = regexp.MustCompile(`^[^,\r\n]+,\s*[^,\r\n]+$`)

// AgentResolver resolves vibe descriptions through an OpenAI-compatible
// chat-completions endpoint.
type AgentResolver struct {
	config     *AgentConfig
	httpClient *http.Client
}

// NewAgentResolver creates a new recommendation resolver.
func NewAgentResolver(config *AgentConfig) *AgentResolver {
	return &AgentResolver{
		config: config,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Resolve sends the description to the chat endpoint and returns the raw
// "songName, artistName" reply for the metadata search. Replies that do not
// match the requested shape fail loud rather than leaking malformed queries
// downstream.
func (r *AgentResolver) Resolve(ctx context.Context, description string) (string, error) {
	reqBody := model.OpenAIChatRequest{
		Model: r.config.Model,
		Messages: []model.OpenAIChatMessage{
			{Role: "system", Content: recommendSystemPrompt},
			{Role: "user", Content: description},
		},
		MaxTokens:   r.config.MaxTokens,
		Temperature: r.config.Temperature,
		Stream:      false,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", pipeline.WrapError(pipeline.KindRecommendation, "failed to marshal chat request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.APIBaseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", pipeline.WrapError(pipeline.KindRecommendation, "failed to create chat request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.config.APIKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", pipeline.WrapError(pipeline.KindRecommendation, "recommendation service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", pipeline.WrapError(pipeline.KindRecommendation,
			"recommendation service returned an error",
			fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	var chatResp model.OpenAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", pipeline.WrapError(pipeline.KindRecommendation, "failed to decode chat response", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", pipeline.NewError(pipeline.KindRecommendation, "recommendation service returned no choices")
	}

	query := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if query == "" {
		return "", pipeline.NewError(pipeline.KindRecommendation, "recommendation service returned an empty reply")
	}
	if !queryShape.MatchString(query) {
		logger.Warn("recommendation reply rejected",
			logger.String("reply", query))
		return "", pipeline.Errorf(pipeline.KindRecommendation,
			"recommendation reply %q does not match the \"song, artist\" shape", query)
	}

	return query, nil
}
