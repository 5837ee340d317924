package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"VibeFM/logger"
	"VibeFM/model"
)

// Stage names the orchestrator states for logging and error reporting.
type Stage string

const (
	StageRecommending     Stage = "recommending"
	StageLocatingMetadata Stage = "locating_metadata"
	StageLocatingSource   Stage = "locating_source"
	StageMaterializing    Stage = "materializing"
	StageDelivering       Stage = "delivering"
)

// MaterializeMode selects how the materializer lands audio bytes.
type MaterializeMode int

const (
	// MaterializePassthrough resolves a direct upstream URL, no local I/O.
	MaterializePassthrough MaterializeMode = iota
	// MaterializeTranscode streams the source through ffmpeg into a local file.
	MaterializeTranscode
)

// RecommendationResolver turns a free-text vibe description into a
// "songName, artistName" query string.
type RecommendationResolver interface {
	Resolve(ctx context.Context, description string) (string, error)
}

// MetadataLocator resolves a query string to track metadata via catalog search.
type MetadataLocator interface {
	Search(ctx context.Context, query string) (model.TrackMetadata, error)
}

// SourceLocator resolves track metadata to a playable source locator.
type SourceLocator interface {
	Locate(ctx context.Context, meta model.TrackMetadata) (model.SourceLocator, error)
}

// AudioMaterializer obtains audio for a source locator, either as a direct URL
// or as a locally transcoded file.
type AudioMaterializer interface {
	Materialize(ctx context.Context, locator model.SourceLocator, title string, mode MaterializeMode) (*model.AudioArtifact, error)
}

// Strategy is a terminal delivery behavior. Strategies never delete local
// files; the orchestrator owns artifact cleanup.
type Strategy interface {
	Mode() model.DeliveryMode
	Deliver(ctx context.Context, meta model.TrackMetadata, artifact *model.AudioArtifact) (*model.PipelineResult, error)
}

// Orchestrator sequences the resolution stages for one request. Stages run
// strictly sequentially; any failure aborts the pipeline immediately and the
// cleanup path still runs.
type Orchestrator struct {
	recommender  RecommendationResolver // nil when the deployment has no agent
	metadata     MetadataLocator
	source       SourceLocator
	materializer AudioMaterializer
	callTimeout  time.Duration
}

// NewOrchestrator wires the stages together. recommender may be nil; requests
// carrying a description then fail with a recommendation error.
func NewOrchestrator(
	recommender RecommendationResolver,
	metadata MetadataLocator,
	source SourceLocator,
	materializer AudioMaterializer,
	callTimeout time.Duration,
) *Orchestrator {
	return &Orchestrator{
		recommender:  recommender,
		metadata:     metadata,
		source:       source,
		materializer: materializer,
		callTimeout:  callTimeout,
	}
}

// Resolve runs the full pipeline for one request with the given delivery
// strategy. Every local temp file created along the way is deleted before
// Resolve returns, on success and on failure.
func (o *Orchestrator) Resolve(ctx context.Context, req model.PipelineRequest, strategy Strategy) (result *model.PipelineResult, err error) {
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}

	var artifact *model.AudioArtifact
	defer func() {
		if cerr := artifact.Cleanup(); cerr != nil {
			logger.Warn("清理临时文件失败",
				logger.String("requestId", req.RequestID),
				logger.ErrorField(cerr))
		}
	}()

	query := req.Query
	if req.Description != "" {
		o.logStage(req.RequestID, StageRecommending)
		query, err = o.resolveDescription(ctx, req.Description)
		if err != nil {
			return nil, o.stageErr(req.RequestID, StageRecommending, err)
		}
		logger.Info("recommendation resolved",
			logger.String("requestId", req.RequestID),
			logger.String("query", query))
	}

	o.logStage(req.RequestID, StageLocatingMetadata)
	meta, err := o.searchMetadata(ctx, query)
	if err != nil {
		return nil, o.stageErr(req.RequestID, StageLocatingMetadata, err)
	}

	o.logStage(req.RequestID, StageLocatingSource)
	locator, err := o.locateSource(ctx, meta)
	if err != nil {
		return nil, o.stageErr(req.RequestID, StageLocatingSource, err)
	}

	mode := MaterializeTranscode
	if strategy.Mode() == model.DeliveryPassthrough {
		mode = MaterializePassthrough
	}

	o.logStage(req.RequestID, StageMaterializing)
	artifact, err = o.materialize(ctx, locator, meta.Title, mode)
	if err != nil {
		return nil, o.stageErr(req.RequestID, StageMaterializing, err)
	}

	o.logStage(req.RequestID, StageDelivering)
	result, err = strategy.Deliver(ctx, meta, artifact)
	if err != nil {
		return nil, o.stageErr(req.RequestID, StageDelivering, err)
	}

	logger.Info("pipeline done",
		logger.String("requestId", req.RequestID),
		logger.String("title", meta.Title),
		logger.String("artist", meta.Artist),
		logger.String("mode", string(strategy.Mode())))
	return result, nil
}

func (o *Orchestrator) resolveDescription(ctx context.Context, description string) (string, error) {
	if o.recommender == nil {
		return "", NewError(KindRecommendation, "recommendation stage is not configured")
	}
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()
	return o.recommender.Resolve(ctx, description)
}

func (o *Orchestrator) searchMetadata(ctx context.Context, query string) (model.TrackMetadata, error) {
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()
	return o.metadata.Search(ctx, query)
}

func (o *Orchestrator) locateSource(ctx context.Context, meta model.TrackMetadata) (model.SourceLocator, error) {
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()
	return o.source.Locate(ctx, meta)
}

func (o *Orchestrator) materialize(ctx context.Context, locator model.SourceLocator, title string, mode MaterializeMode) (*model.AudioArtifact, error) {
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()
	return o.materializer.Materialize(ctx, locator, title, mode)
}

func (o *Orchestrator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.callTimeout)
}

// stageErr normalizes a stage failure. Deadline expiry wins over the stage's
// own classification so callers see a timeout for a timed-out call.
func (o *Orchestrator) stageErr(requestID string, stage Stage, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		err = WrapError(KindTimeout, "external call timed out during "+string(stage), err)
	}
	logger.Error("pipeline stage failed",
		logger.String("requestId", requestID),
		logger.String("stage", string(stage)),
		logger.String("kind", string(KindOf(err))),
		logger.ErrorField(err))
	return err
}

func (o *Orchestrator) logStage(requestID string, stage Stage) {
	logger.Debug("pipeline stage",
		logger.String("requestId", requestID),
		logger.String("stage", string(stage)))
}
