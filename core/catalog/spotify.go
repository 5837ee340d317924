package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"VibeFM/core/pipeline"
	"VibeFM/logger"
	"VibeFM/model"
)

// TokenProvider supplies a valid bearer credential for each search call.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TrackItem is one ranked hit from the catalog search.
type TrackItem struct {
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
}

// Selector picks the winning item from a non-empty ranked result list and
// returns its index. The default trusts upstream relevance ranking.
type Selector func(items []TrackItem) int

// FirstItem is the default selector: upstream rank order wins.
func FirstItem(items []TrackItem) int { return 0 }

type searchResponse struct {
	Tracks struct {
		Items []TrackItem `json:"items"`
	} `json:"tracks"`
}

// SpotifyClient resolves query strings to track metadata through the Spotify
// track search API.
type SpotifyClient struct {
	searchURL  string
	tokens     TokenProvider
	httpClient *retryablehttp.Client
	selector   Selector
}

// NewSpotifyClient creates a metadata locator against the given search
// endpoint. selector may be nil, which trusts upstream ranking.
func NewSpotifyClient(searchURL string, tokens TokenProvider, selector Selector) *SpotifyClient {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = 15 * time.Second
	client.Logger = nil

	if selector == nil {
		selector = FirstItem
	}
	return &SpotifyClient{
		searchURL:  searchURL,
		tokens:     tokens,
		httpClient: client,
		selector:   selector,
	}
}

// Search issues a track search and extracts metadata from the selected hit.
// Missing artist or cover fields on the winning item are left empty rather
// than failing the lookup.
func (c *SpotifyClient) Search(ctx context.Context, query string) (model.TrackMetadata, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return model.TrackMetadata{}, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return model.TrackMetadata{}, pipeline.WrapError(pipeline.KindMetadataService, "failed to build search request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.TrackMetadata{}, pipeline.WrapError(pipeline.KindMetadataService, "metadata service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return model.TrackMetadata{}, pipeline.WrapError(pipeline.KindMetadataService,
			"metadata search failed",
			fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return model.TrackMetadata{}, pipeline.WrapError(pipeline.KindMetadataService, "failed to decode search response", err)
	}

	items := result.Tracks.Items
	if len(items) == 0 {
		return model.TrackMetadata{}, pipeline.Errorf(pipeline.KindMetadataNotFound, "no track found for %q", query)
	}

	idx := c.selector(items)
	if idx < 0 || idx >= len(items) {
		idx = 0
	}
	item := items[idx]

	meta := model.TrackMetadata{Title: item.Name}
	if len(item.Artists) > 0 {
		meta.Artist = item.Artists[0].Name
	}
	if len(item.Album.Images) > 0 {
		meta.CoverURL = item.Album.Images[0].URL
	}

	logger.Debug("metadata located",
		logger.String("query", query),
		logger.String("title", meta.Title),
		logger.String("artist", meta.Artist))
	return meta, nil
}
