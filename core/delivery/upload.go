package delivery

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"VibeFM/core/pipeline"
	"VibeFM/model"
)

// Upload pushes the transcoded local file to remote storage and returns the
// public URL in place of a direct link. The local file is removed by the
// orchestrator regardless of the upload outcome.
type Upload struct {
	uploader Uploader
}

// NewUpload creates the remote-upload strategy.
func NewUpload(uploader Uploader) *Upload {
	return &Upload{uploader: uploader}
}

func (u *Upload) Mode() model.DeliveryMode {
	return model.DeliveryUpload
}

func (u *Upload) Deliver(ctx context.Context, meta model.TrackMetadata, artifact *model.AudioArtifact) (*model.PipelineResult, error) {
	if !artifact.IsLocal() {
		return nil, pipeline.NewError(pipeline.KindDelivery, "upload delivery requires a local audio file")
	}

	// Unique object prefix so repeated requests for the same track never clash.
	objectName := fmt.Sprintf("audio/%s/%s", uuid.New().String(), artifact.Filename)
	fileURL, err := u.uploader.Upload(ctx, artifact.LocalPath, objectName, mp3ContentType)
	if err != nil {
		return nil, pipeline.WrapError(pipeline.KindDelivery, "failed to upload audio to storage", err)
	}

	return &model.PipelineResult{
		Name:    meta.Title,
		Image:   meta.CoverURL,
		Artist:  meta.Artist,
		MP3Link: fileURL,
	}, nil
}
