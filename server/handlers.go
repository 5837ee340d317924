package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"VibeFM/config"
	"VibeFM/core/delivery"
	"VibeFM/core/pipeline"
	"VibeFM/logger"
	"VibeFM/model"
)

// songResolver runs the resolution pipeline for one request.
type songResolver interface {
	Resolve(ctx context.Context, req model.PipelineRequest, strategy pipeline.Strategy) (*model.PipelineResult, error)
}

// SongHandler 处理歌曲解析请求
type SongHandler struct {
	resolver songResolver
	uploader delivery.Uploader // nil when upload delivery is not configured
	cfg      *config.Config
}

// NewSongHandler 创建新的歌曲处理器
func NewSongHandler(resolver songResolver, uploader delivery.Uploader, cfg *config.Config) *SongHandler {
	return &SongHandler{
		resolver: resolver,
		uploader: uploader,
		cfg:      cfg,
	}
}

// ResolveSong handles GET /api/song (and the legacy /download alias).
// Exactly one of `query` (literal song query) or `description` (free text)
// must be supplied; `mode` optionally overrides the configured delivery mode.
func (h *SongHandler) ResolveSong(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	description := r.URL.Query().Get("description")

	if (query == "") == (description == "") {
		writeError(w, http.StatusBadRequest, "supply exactly one of 'query' or 'description'")
		return
	}

	mode := h.cfg.DeliveryMode
	if raw := r.URL.Query().Get("mode"); raw != "" {
		parsed, ok := model.ParseDeliveryMode(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown delivery mode %q", raw))
			return
		}
		mode = parsed
	}

	requestID := uuid.New().String()
	sink := &responseSink{w: w}

	var strategy pipeline.Strategy
	switch mode {
	case model.DeliveryPassthrough:
		strategy = delivery.NewPassthrough()
	case model.DeliveryDownload:
		strategy = delivery.NewDownload(sink)
	case model.DeliveryUpload:
		if h.uploader == nil {
			writeError(w, http.StatusInternalServerError, "upload delivery is not configured")
			return
		}
		strategy = delivery.NewUpload(h.uploader)
	}

	req := model.PipelineRequest{
		Query:       query,
		Description: description,
		RequestID:   requestID,
	}

	result, err := h.resolver.Resolve(r.Context(), req, strategy)
	if err != nil {
		// Once download bytes started flowing the status line is gone; all we
		// can do is drop the connection and log.
		if sink.started {
			logger.Error("download aborted mid-transfer",
				logger.String("requestId", requestID),
				logger.ErrorField(err))
			return
		}
		writeError(w, statusFor(err), pipeline.UserMessage(err))
		return
	}

	if result.Downloaded {
		// Bytes already streamed by the delivery stage.
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// statusFor maps pipeline failure kinds onto HTTP status codes. Only the
// missing-audio case gets a 404; everything else is a generic 500, matching
// the service's original behavior.
func statusFor(err error) int {
	if pipeline.IsKind(err, pipeline.KindStreamUnavailable) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// responseSink adapts the HTTP response writer to the delivery.Sink contract
// for local-download runs.
type responseSink struct {
	w       http.ResponseWriter
	started bool
}

func (s *responseSink) Open(filename, contentType string, size int64) (io.Writer, error) {
	s.w.Header().Set("Content-Type", contentType)
	s.w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if size >= 0 {
		s.w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	s.started = true
	return s.w, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
