package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"VibeFM/core/pipeline"
	"VibeFM/logger"
	"VibeFM/model"
)

// watchURLFormat builds a playable locator from a video id.
const watchURLFormat = "https://www.youtube.com/watch?v=%s"

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

// YouTubeClient locates a playable stream source for resolved track metadata
// through the YouTube Data API v3 search endpoint. Third-party video search is
// the flakiest stage of the pipeline, so calls go through a circuit breaker
// and a quota-friendly rate limiter.
type YouTubeClient struct {
	searchURL  string
	apiKey     string
	httpClient *retryablehttp.Client
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
}

// NewYouTubeClient creates a stream source locator.
func NewYouTubeClient(searchURL, apiKey string) *YouTubeClient {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = 15 * time.Second
	client.Logger = nil

	settings := gobreaker.Settings{
		Name:        "youtube-search",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	}

	return &YouTubeClient{
		searchURL:  searchURL,
		apiKey:     apiKey,
		httpClient: client,
		breaker:    gobreaker.NewCircuitBreaker(settings),
		// Data API search costs 100 quota units per call; 5 rps is already generous.
		limiter: rate.NewLimiter(rate.Limit(5), 5),
	}
}

// SearchQuery synthesizes the video search query for a track. The trailing
// "audio" literal disambiguates toward audio uploads over music videos.
func SearchQuery(meta model.TrackMetadata) string {
	parts := []string{meta.Title}
	if meta.Artist != "" {
		parts = append(parts, meta.Artist)
	}
	parts = append(parts, "audio")
	return strings.Join(parts, " ")
}

// Locate resolves metadata to the first ranked video link. No verification is
// done that the hit is the intended track; upstream ranking is trusted.
func (c *YouTubeClient) Locate(ctx context.Context, meta model.TrackMetadata) (model.SourceLocator, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", pipeline.WrapError(pipeline.KindSourceService, "source search rate limit wait aborted", err)
	}

	query := SearchQuery(meta)
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.search(ctx, query)
	})
	if err != nil {
		if pipeline.KindOf(err) != "" {
			return "", err
		}
		return "", pipeline.WrapError(pipeline.KindSourceService, "source search unavailable", err)
	}

	links := result.([]string)
	if len(links) == 0 {
		return "", pipeline.Errorf(pipeline.KindSourceNotFound, "no YouTube video found for %q", query)
	}

	logger.Debug("stream source located",
		logger.String("query", query),
		logger.String("link", links[0]))
	return model.SourceLocator(links[0]), nil
}

func (c *YouTubeClient) search(ctx context.Context, query string) ([]string, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("maxResults", "5")
	params.Set("q", query)
	params.Set("key", c.apiKey)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, pipeline.WrapError(pipeline.KindSourceService, "failed to build source search request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pipeline.WrapError(pipeline.KindSourceService, "source search service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, pipeline.WrapError(pipeline.KindSourceService,
			"source search failed",
			fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, pipeline.WrapError(pipeline.KindSourceService, "failed to decode source search response", err)
	}

	links := make([]string, 0, len(result.Items))
	for _, item := range result.Items {
		if item.ID.VideoID == "" {
			continue
		}
		links = append(links, fmt.Sprintf(watchURLFormat, item.ID.VideoID))
	}
	return links, nil
}
