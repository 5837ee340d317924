package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VibeFM/core/pipeline"
	"VibeFM/model"
)

func TestSearchQuerySynthesis(t *testing.T) {
	cases := []struct {
		name string
		meta model.TrackMetadata
		want string
	}{
		{
			name: "title and artist",
			meta: model.TrackMetadata{Title: "Bohemian Rhapsody", Artist: "Queen"},
			want: "Bohemian Rhapsody Queen audio",
		},
		{
			name: "missing artist",
			meta: model.TrackMetadata{Title: "Obscure Track"},
			want: "Obscure Track audio",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SearchQuery(tc.meta))
		})
	}
}

func TestLocateFirstResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bohemian Rhapsody Queen audio", r.URL.Query().Get("q"))
		assert.Equal(t, "video", r.URL.Query().Get("type"))
		assert.Equal(t, "test-api-key", r.URL.Query().Get("key"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[
			{"id":{"videoId":"abc123"},"snippet":{"title":"Bohemian Rhapsody (audio)"}},
			{"id":{"videoId":"def456"},"snippet":{"title":"Bohemian Rhapsody Live"}}
		]}`)
	}))
	defer srv.Close()

	c := NewYouTubeClient(srv.URL, "test-api-key")

	locator, err := c.Locate(context.Background(), model.TrackMetadata{Title: "Bohemian Rhapsody", Artist: "Queen"})
	require.NoError(t, err)
	assert.Equal(t, model.SourceLocator("https://www.youtube.com/watch?v=abc123"), locator)
}

func TestLocateNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[]}`)
	}))
	defer srv.Close()

	c := NewYouTubeClient(srv.URL, "test-api-key")

	_, err := c.Locate(context.Background(), model.TrackMetadata{Title: "Nothing", Artist: "Nobody"})
	require.Error(t, err)
	assert.Equal(t, pipeline.KindSourceNotFound, pipeline.KindOf(err))
	assert.Contains(t, pipeline.UserMessage(err), "no YouTube video found")
}

func TestLocateSkipsItemsWithoutVideoID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[
			{"id":{},"snippet":{"title":"a channel hit"}},
			{"id":{"videoId":"real01"},"snippet":{"title":"the actual video"}}
		]}`)
	}))
	defer srv.Close()

	c := NewYouTubeClient(srv.URL, "test-api-key")

	locator, err := c.Locate(context.Background(), model.TrackMetadata{Title: "Song", Artist: "Artist"})
	require.NoError(t, err)
	assert.Equal(t, model.SourceLocator("https://www.youtube.com/watch?v=real01"), locator)
}

func TestLocateUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewYouTubeClient(srv.URL, "bad-key")

	_, err := c.Locate(context.Background(), model.TrackMetadata{Title: "Song", Artist: "Artist"})
	require.Error(t, err)
	assert.Equal(t, pipeline.KindSourceService, pipeline.KindOf(err))
}
