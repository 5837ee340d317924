package delivery

import (
	"context"

	"VibeFM/core/pipeline"
	"VibeFM/model"
)

// Passthrough bundles track metadata with the raw upstream audio URL. No
// bytes are fetched and no local file exists, so there is nothing to clean up.
type Passthrough struct{}

// NewPassthrough creates the url-passthrough strategy.
func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

func (p *Passthrough) Mode() model.DeliveryMode {
	return model.DeliveryPassthrough
}

func (p *Passthrough) Deliver(ctx context.Context, meta model.TrackMetadata, artifact *model.AudioArtifact) (*model.PipelineResult, error) {
	if artifact == nil || artifact.DirectURL == "" {
		return nil, pipeline.NewError(pipeline.KindDelivery, "passthrough delivery requires a direct audio URL")
	}
	return &model.PipelineResult{
		Name:    meta.Title,
		Image:   meta.CoverURL,
		Artist:  meta.Artist,
		MP3Link: artifact.DirectURL,
	}, nil
}
