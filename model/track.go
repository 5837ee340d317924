package model

import (
	"os"
)

// DeliveryMode selects how resolved audio is returned to the caller.
type DeliveryMode string

const (
	// DeliveryPassthrough returns the upstream direct audio URL without touching bytes.
	DeliveryPassthrough DeliveryMode = "passthrough"
	// DeliveryDownload transcodes locally and streams the file back to the caller.
	DeliveryDownload DeliveryMode = "download"
	// DeliveryUpload transcodes locally, uploads to object storage and returns the URL.
	DeliveryUpload DeliveryMode = "upload"
)

// ParseDeliveryMode validates a mode string from config or query parameter.
func ParseDeliveryMode(s string) (DeliveryMode, bool) {
	switch DeliveryMode(s) {
	case DeliveryPassthrough, DeliveryDownload, DeliveryUpload:
		return DeliveryMode(s), true
	}
	return "", false
}

// TrackMetadata is the catalog view of a resolved track. It is immutable once
// constructed from the top search hit. CoverURL and Artist may be empty when the
// winning item lacks those fields; that is partial success, not an error.
type TrackMetadata struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	CoverURL string `json:"coverUrl"`
}

// SourceLocator identifies exactly one playable remote media item, e.g. a watch URL.
type SourceLocator string

// PipelineRequest is one inbound resolution request. Exactly one of Query or
// Description is set; Description routes the request through the recommendation stage.
type PipelineRequest struct {
	// Query is a literal "song artist" style search string.
	Query string
	// Description is free text describing a vibe, resolved to a query by the agent.
	Description string
	// RequestID tags logs and temp file paths so concurrent requests never collide.
	RequestID string
}

// AudioArtifact is the output of the materializer: either a remote reference to
// already-hosted audio (DirectURL) or a local transcoded file (LocalPath) plus the
// filename the caller should see.
type AudioArtifact struct {
	DirectURL string
	LocalPath string
	Filename  string
}

// IsLocal reports whether the artifact owns a local temp file that must be
// deleted before the request completes.
func (a *AudioArtifact) IsLocal() bool {
	return a != nil && a.LocalPath != ""
}

// Cleanup removes the local temp file if one exists. It is safe to call on a
// nil artifact, on a remote-only artifact, and more than once.
func (a *AudioArtifact) Cleanup() error {
	if !a.IsLocal() {
		return nil
	}
	err := os.Remove(a.LocalPath)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// PipelineResult is the terminal outcome of a successful pipeline run.
// MP3Link is set for passthrough and upload delivery; Downloaded marks a run
// where the bytes were already streamed to the caller by the delivery stage.
type PipelineResult struct {
	Name       string `json:"name"`
	Image      string `json:"image"`
	Artist     string `json:"artist"`
	MP3Link    string `json:"mp3Link,omitempty"`
	Downloaded bool   `json:"-"`
}
