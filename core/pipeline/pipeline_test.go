package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VibeFM/model"
)

type stubRecommender struct {
	gotDescription string
	query          string
	err            error
}

func (s *stubRecommender) Resolve(ctx context.Context, description string) (string, error) {
	s.gotDescription = description
	return s.query, s.err
}

type stubMetadata struct {
	gotQuery string
	meta     model.TrackMetadata
	err      error
	delay    time.Duration
}

func (s *stubMetadata) Search(ctx context.Context, query string) (model.TrackMetadata, error) {
	s.gotQuery = query
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return model.TrackMetadata{}, ctx.Err()
		}
	}
	return s.meta, s.err
}

type stubSource struct {
	called  bool
	locator model.SourceLocator
	err     error
}

func (s *stubSource) Locate(ctx context.Context, meta model.TrackMetadata) (model.SourceLocator, error) {
	s.called = true
	return s.locator, s.err
}

type stubMaterializer struct {
	gotMode  MaterializeMode
	gotTitle string
	artifact *model.AudioArtifact
	err      error
}

func (s *stubMaterializer) Materialize(ctx context.Context, locator model.SourceLocator, title string, mode MaterializeMode) (*model.AudioArtifact, error) {
	s.gotMode = mode
	s.gotTitle = title
	return s.artifact, s.err
}

type stubStrategy struct {
	mode   model.DeliveryMode
	result *model.PipelineResult
	err    error
}

func (s *stubStrategy) Mode() model.DeliveryMode { return s.mode }

func (s *stubStrategy) Deliver(ctx context.Context, meta model.TrackMetadata, artifact *model.AudioArtifact) (*model.PipelineResult, error) {
	return s.result, s.err
}

var bohemianMeta = model.TrackMetadata{
	Title:    "Bohemian Rhapsody",
	Artist:   "Queen",
	CoverURL: "https://img.example/cover.jpg",
}

func tempArtifact(t *testing.T) *model.AudioArtifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.mp3")
	require.NoError(t, os.WriteFile(path, []byte("bytes"), 0o644))
	return &model.AudioArtifact{LocalPath: path, Filename: "Bohemian_Rhapsody.mp3"}
}

func TestResolvePassthroughFlow(t *testing.T) {
	metadata := &stubMetadata{meta: bohemianMeta}
	source := &stubSource{locator: "https://www.youtube.com/watch?v=abc"}
	materializer := &stubMaterializer{artifact: &model.AudioArtifact{DirectURL: "https://cdn.example/audio"}}
	want := &model.PipelineResult{Name: "Bohemian Rhapsody", Artist: "Queen", MP3Link: "https://cdn.example/audio"}
	strategy := &stubStrategy{mode: model.DeliveryPassthrough, result: want}

	o := NewOrchestrator(nil, metadata, source, materializer, 0)

	result, err := o.Resolve(context.Background(), model.PipelineRequest{Query: "Bohemian Rhapsody Queen"}, strategy)
	require.NoError(t, err)
	assert.Equal(t, want, result)
	assert.Equal(t, "Bohemian Rhapsody Queen", metadata.gotQuery, "explicit query goes to metadata search verbatim")
	assert.Equal(t, MaterializePassthrough, materializer.gotMode)
	assert.Equal(t, "Bohemian Rhapsody", materializer.gotTitle)
}

func TestResolveDescriptionRunsRecommender(t *testing.T) {
	recommender := &stubRecommender{query: "Blue in Green, Miles Davis"}
	metadata := &stubMetadata{meta: model.TrackMetadata{Title: "Blue in Green", Artist: "Miles Davis"}}
	source := &stubSource{locator: "https://www.youtube.com/watch?v=xyz"}
	materializer := &stubMaterializer{artifact: &model.AudioArtifact{DirectURL: "https://cdn.example/audio"}}
	strategy := &stubStrategy{mode: model.DeliveryPassthrough, result: &model.PipelineResult{}}

	o := NewOrchestrator(recommender, metadata, source, materializer, 0)

	_, err := o.Resolve(context.Background(), model.PipelineRequest{Description: "a slow rainy evening"}, strategy)
	require.NoError(t, err)
	assert.Equal(t, "a slow rainy evening", recommender.gotDescription)
	assert.Equal(t, "Blue in Green, Miles Davis", metadata.gotQuery)
}

func TestResolveDescriptionWithoutRecommender(t *testing.T) {
	o := NewOrchestrator(nil, &stubMetadata{}, &stubSource{}, &stubMaterializer{}, 0)

	_, err := o.Resolve(context.Background(), model.PipelineRequest{Description: "anything"}, &stubStrategy{mode: model.DeliveryPassthrough})
	require.Error(t, err)
	assert.Equal(t, KindRecommendation, KindOf(err))
}

func TestResolveMetadataNotFoundStopsPipeline(t *testing.T) {
	metadata := &stubMetadata{err: NewError(KindMetadataNotFound, "no tracks matched query")}
	source := &stubSource{}

	o := NewOrchestrator(nil, metadata, source, &stubMaterializer{}, 0)

	_, err := o.Resolve(context.Background(), model.PipelineRequest{Query: "gibberish"}, &stubStrategy{mode: model.DeliveryPassthrough})
	require.Error(t, err)
	assert.Equal(t, KindMetadataNotFound, KindOf(err))
	assert.False(t, source.called, "a failed stage must abort the pipeline")
}

func TestResolveTranscodeModeForNonPassthrough(t *testing.T) {
	materializer := &stubMaterializer{artifact: tempArtifact(t)}
	strategy := &stubStrategy{mode: model.DeliveryUpload, result: &model.PipelineResult{MP3Link: "https://storage.example/x"}}

	o := NewOrchestrator(nil, &stubMetadata{meta: bohemianMeta}, &stubSource{locator: "l"}, materializer, 0)

	_, err := o.Resolve(context.Background(), model.PipelineRequest{Query: "q"}, strategy)
	require.NoError(t, err)
	assert.Equal(t, MaterializeTranscode, materializer.gotMode)
}

func TestResolveCleansUpArtifactOnSuccess(t *testing.T) {
	artifact := tempArtifact(t)
	materializer := &stubMaterializer{artifact: artifact}
	strategy := &stubStrategy{mode: model.DeliveryDownload, result: &model.PipelineResult{Downloaded: true}}

	o := NewOrchestrator(nil, &stubMetadata{meta: bohemianMeta}, &stubSource{locator: "l"}, materializer, 0)

	_, err := o.Resolve(context.Background(), model.PipelineRequest{Query: "q"}, strategy)
	require.NoError(t, err)

	_, statErr := os.Stat(artifact.LocalPath)
	assert.True(t, os.IsNotExist(statErr), "temp file must be deleted after delivery")
}

func TestResolveCleansUpArtifactOnDeliveryFailure(t *testing.T) {
	artifact := tempArtifact(t)
	materializer := &stubMaterializer{artifact: artifact}
	strategy := &stubStrategy{mode: model.DeliveryUpload, err: NewError(KindDelivery, "bucket unreachable")}

	o := NewOrchestrator(nil, &stubMetadata{meta: bohemianMeta}, &stubSource{locator: "l"}, materializer, 0)

	_, err := o.Resolve(context.Background(), model.PipelineRequest{Query: "q"}, strategy)
	require.Error(t, err)
	assert.Equal(t, KindDelivery, KindOf(err))

	_, statErr := os.Stat(artifact.LocalPath)
	assert.True(t, os.IsNotExist(statErr), "temp file must be deleted even when delivery fails")
}

func TestResolveTimeoutOverridesStageKind(t *testing.T) {
	metadata := &stubMetadata{meta: bohemianMeta, delay: 200 * time.Millisecond}

	o := NewOrchestrator(nil, metadata, &stubSource{}, &stubMaterializer{}, 10*time.Millisecond)

	_, err := o.Resolve(context.Background(), model.PipelineRequest{Query: "q"}, &stubStrategy{mode: model.DeliveryPassthrough})
	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
