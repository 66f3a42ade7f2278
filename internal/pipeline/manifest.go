// Package pipeline contains the two collection loops: budgeted burst
// collection and per-video best-frame ("court") collection.
package pipeline

import (
	"encoding/json"
	"time"

	"framesampler/internal/filter"
	"framesampler/internal/storage"
	"framesampler/internal/youtube"
)

// Reason is the closed set of per-attempt outcome codes. Control decisions
// key off these; free-form detail rides alongside for humans.
type Reason string

const (
	ReasonAccepted      Reason = "accepted"
	ReasonRejected      Reason = "rejected"
	ReasonDownloadError Reason = "download_error"
	ReasonExtractError  Reason = "extract_error"
	ReasonNoFrames      Reason = "no_frames_extracted"
)

// Segment is a sampled clip's bounds within its video.
type Segment struct {
	StartS float64 `json:"start_s"`
	EndS   float64 `json:"end_s"`
}

// SampleRecord is one burst attempt's outcome. Appended to the manifest and
// never mutated afterwards.
type SampleRecord struct {
	VideoID         string          `json:"video_id"`
	VideoURL        string          `json:"video_url"`
	Title           string          `json:"title"`
	UploadDate      string          `json:"upload_date"`
	DurationS       float64         `json:"duration_s"`
	Segment         Segment         `json:"segment"`
	ExtractedFrames int             `json:"extracted_frames"`
	Accepted        bool            `json:"accepted"`
	Reason          Reason          `json:"reason"`
	Detail          string          `json:"detail,omitempty"`
	Metrics         *filter.Metrics `json:"filter_metrics,omitempty"`
	Attempt         int             `json:"attempt"`
	OutputPrefix    string          `json:"output_prefix,omitempty"`
}

// CourtStatus is the closed per-video outcome set for court-frames mode.
type CourtStatus string

const (
	CourtSaved   CourtStatus = "saved"
	CourtSkipped CourtStatus = "skipped"
)

// CourtResult is one video's outcome in court-frames mode.
type CourtResult struct {
	VideoID        string            `json:"video_id"`
	VideoURL       string            `json:"video_url"`
	Title          string            `json:"title"`
	UploadDate     string            `json:"upload_date"`
	DurationS      float64           `json:"duration_s"`
	Status         CourtStatus       `json:"status"`
	MatchType      youtube.MatchType `json:"match_type"`
	Filename       string            `json:"filename,omitempty"`
	TimestampS     *float64          `json:"timestamp_s,omitempty"`
	CompositeScore *float64          `json:"composite_score,omitempty"`
}

// Totals carries the running counters for a run. Burst and court runs use
// their respective counters.
type Totals struct {
	AcceptedBursts  int `json:"accepted_bursts,omitempty"`
	RejectedBursts  int `json:"rejected_bursts,omitempty"`
	FramesWritten   int `json:"frames_written"`
	VideosProcessed int `json:"videos_processed,omitempty"`
	FramesSaved     int `json:"frames_saved,omitempty"`
	VideosSkipped   int `json:"videos_skipped,omitempty"`
}

// Manifest is the append-only record of a run: parameters, candidate count,
// every attempt or result, and running totals. Owned by a single collector;
// written once at the end of the run.
type Manifest struct {
	RunID      string    `json:"run_id,omitempty"`
	Mode       string    `json:"mode"`
	CreatedUTC time.Time `json:"created_utc"`
	Params     any       `json:"params"`
	Candidates struct {
		Count int `json:"count"`
	} `json:"candidates"`
	Samples []SampleRecord `json:"samples,omitempty"`
	Results []CourtResult  `json:"results,omitempty"`
	Totals  Totals         `json:"totals"`
}

// NewManifest creates a manifest for a run in the given mode.
func NewManifest(runID, mode string, params any, candidateCount int) *Manifest {
	m := &Manifest{
		RunID:      runID,
		Mode:       mode,
		CreatedUTC: time.Now().UTC(),
		Params:     params,
	}
	m.Candidates.Count = candidateCount
	return m
}

// Write serialises the manifest as pretty-printed JSON to path, atomically.
func (m *Manifest) Write(path string) error {
	w, err := storage.NewAtomicWriter(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		w.Abort()
		return err
	}
	return w.Commit()
}
