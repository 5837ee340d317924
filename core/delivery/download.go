package delivery

import (
	"context"
	"io"
	"os"

	"VibeFM/core/pipeline"
	"VibeFM/model"
)

// Download streams the transcoded local file into the caller's sink under the
// artifact's sanitized filename. Deleting the file afterwards is the
// orchestrator's job and happens whether the transfer succeeded or not.
type Download struct {
	sink Sink
}

// NewDownload creates a local-download strategy bound to one request's sink.
func NewDownload(sink Sink) *Download {
	return &Download{sink: sink}
}

func (d *Download) Mode() model.DeliveryMode {
	return model.DeliveryDownload
}

func (d *Download) Deliver(ctx context.Context, meta model.TrackMetadata, artifact *model.AudioArtifact) (*model.PipelineResult, error) {
	if !artifact.IsLocal() {
		return nil, pipeline.NewError(pipeline.KindDelivery, "download delivery requires a local audio file")
	}

	f, err := os.Open(artifact.LocalPath)
	if err != nil {
		return nil, pipeline.WrapError(pipeline.KindDelivery, "failed to open transcoded file", err)
	}
	defer f.Close()

	size := int64(-1)
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	w, err := d.sink.Open(artifact.Filename, mp3ContentType, size)
	if err != nil {
		return nil, pipeline.WrapError(pipeline.KindDelivery, "failed to start file transfer", err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return nil, pipeline.WrapError(pipeline.KindDelivery, "file transfer failed", err)
	}

	return &model.PipelineResult{
		Name:       meta.Title,
		Image:      meta.CoverURL,
		Artist:     meta.Artist,
		Downloaded: true,
	}, nil
}
