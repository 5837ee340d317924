package audio

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/kkdai/youtube/v2"

	"VibeFM/core/pipeline"
	"VibeFM/core/utils"
	"VibeFM/logger"
	"VibeFM/model"
)

// StreamResolver resolves a source locator to its available representations
// and opens byte streams for them. *youtube.Client satisfies it; tests inject
// a fake with fixture formats.
type StreamResolver interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
}

// Materializer turns a source locator into an audio artifact: either the
// direct URL of the first audio-only representation, or a local MP3 produced
// by streaming that representation through the transcoder.
type Materializer struct {
	resolver   StreamResolver
	transcoder Transcoder
	tempDir    string
}

// NewMaterializer creates a materializer writing transcode output under tempDir.
func NewMaterializer(resolver StreamResolver, transcoder Transcoder, tempDir string) *Materializer {
	return &Materializer{
		resolver:   resolver,
		transcoder: transcoder,
		tempDir:    tempDir,
	}
}

// Materialize resolves the locator's audio-only representations and lands the
// audio per mode. A source with zero audio-only representations is
// stream-unavailable: the video exists but has no separable audio track.
func (m *Materializer) Materialize(ctx context.Context, locator model.SourceLocator, title string, mode pipeline.MaterializeMode) (*model.AudioArtifact, error) {
	video, err := m.resolver.GetVideoContext(ctx, string(locator))
	if err != nil {
		return nil, pipeline.WrapError(pipeline.KindSourceService, "failed to resolve stream source", err)
	}

	formats := video.Formats.Type("audio")
	if len(formats) == 0 {
		return nil, pipeline.NewError(pipeline.KindStreamUnavailable, "no audio formats found")
	}
	format := &formats[0]

	if mode == pipeline.MaterializePassthrough {
		if format.URL == "" {
			return nil, pipeline.NewError(pipeline.KindStreamUnavailable, "audio format has no direct URL")
		}
		return &model.AudioArtifact{DirectURL: format.URL}, nil
	}

	return m.transcode(ctx, video, format, title)
}

func (m *Materializer) transcode(ctx context.Context, video *youtube.Video, format *youtube.Format, title string) (*model.AudioArtifact, error) {
	stream, _, err := m.resolver.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, pipeline.WrapError(pipeline.KindSourceService, "failed to open audio stream", err)
	}
	defer stream.Close()

	// Unique per-request path so concurrent requests never collide.
	outputPath := filepath.Join(m.tempDir, uuid.New().String()+".mp3")

	if err := m.transcoder.TranscodeStream(ctx, stream, outputPath); err != nil {
		// Never leave a partial file referenced as a success.
		_ = os.Remove(outputPath)
		return nil, pipeline.WrapError(pipeline.KindTranscode, "audio transcode failed", err)
	}

	if duration, derr := m.transcoder.GetAudioDuration(ctx, outputPath); derr == nil {
		logger.Debug("transcode complete",
			logger.String("path", outputPath),
			logger.Any("durationSeconds", duration))
	}

	return &model.AudioArtifact{
		LocalPath: outputPath,
		Filename:  utils.SafeFileName(title) + ".mp3",
	}, nil
}
