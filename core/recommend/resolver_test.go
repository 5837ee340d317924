package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VibeFM/core/pipeline"
	"VibeFM/model"
)

func newAgentServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer agent-key", r.Header.Get("Authorization"))

		var req model.OpenAIChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.False(t, req.Stream)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, reply)
	}))
}

func newResolver(baseURL string) *AgentResolver {
	return NewAgentResolver(&AgentConfig{
		APIBaseURL:  baseURL,
		APIKey:      "agent-key",
		Model:       "test-model",
		MaxTokens:   64,
		Temperature: 0.7,
	})
}

func TestResolveReturnsReplyVerbatim(t *testing.T) {
	srv := newAgentServer(t, "Blue in Green, Miles Davis")
	defer srv.Close()

	query, err := newResolver(srv.URL).Resolve(context.Background(), "a slow rainy evening")
	require.NoError(t, err)
	assert.Equal(t, "Blue in Green, Miles Davis", query)
}

func TestResolveTrimsWhitespace(t *testing.T) {
	srv := newAgentServer(t, "  Clair de Lune, Claude Debussy\n")
	defer srv.Close()

	query, err := newResolver(srv.URL).Resolve(context.Background(), "moonlight")
	require.NoError(t, err)
	assert.Equal(t, "Clair de Lune, Claude Debussy", query)
}

func TestResolveRejectsMalformedShape(t *testing.T) {
	cases := []struct {
		name  string
		reply string
	}{
		{"no comma", "Bohemian Rhapsody by Queen"},
		{"extra prose", "Sure! I recommend: Yesterday, The Beatles, a classic"},
		{"multiline", "Yesterday, The Beatles\nHope you enjoy it!"},
		{"empty", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newAgentServer(t, tc.reply)
			defer srv.Close()

			_, err := newResolver(srv.URL).Resolve(context.Background(), "anything")
			require.Error(t, err)
			assert.Equal(t, pipeline.KindRecommendation, pipeline.KindOf(err))
		})
	}
}

func TestResolveNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	_, err := newResolver(srv.URL).Resolve(context.Background(), "anything")
	require.Error(t, err)
	assert.Equal(t, pipeline.KindRecommendation, pipeline.KindOf(err))
}

func TestResolveUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newResolver(srv.URL).Resolve(context.Background(), "anything")
	require.Error(t, err)
	assert.Equal(t, pipeline.KindRecommendation, pipeline.KindOf(err))
}
