package pipeline

import (
	"context"

	"github.com/google/uuid"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
)

const (
	StageExtraction    = "media_extraction"
	StageTranscription = "transcription"
	StageVisual        = "visual_assessment"
	StageVerification  = "content_verification"
)

// Job is the unit of work handed to the orchestrator.
type Job struct {
	SessionID    uuid.UUID
	RecordingRef string
	// Generation fences writes: only the run holding the stored generation may persist.
	Generation int64
	// State is shared with the queue so callers can observe the run. Run creates one when nil.
	State *JobState
}

// Frame is a still sampled from the recording.
type Frame struct {
	Path string
	// Offset is the position of the frame in the recording, in seconds.
	Offset float64
}

// Artifacts are the files produced by the media extractor. They live in WorkDir until Cleanup.
type Artifacts struct {
	WorkDir         string
	AudioPath       string
	Frames          []Frame
	FrameInterval   float64
	DurationSeconds float64
}

// Transcript is the output of the transcription stage.
type Transcript struct {
	Utterances []model.Utterance
	Metadata   model.TranscriptMetadata
}

type MediaExtractor interface {
	Run(ctx context.Context, job Job) StageResult[*Artifacts]
	Cleanup(artifacts *Artifacts) error
}

type Transcriber interface {
	Run(ctx context.Context, artifacts *Artifacts) StageResult[Transcript]
}

type VisualAssessor interface {
	Run(ctx context.Context, artifacts *Artifacts) StageResult[*model.VideoAnalysis]
}

type ContentVerifier interface {
	Run(ctx context.Context, transcript Transcript) StageResult[*model.AudioAnalysis]
}

type Notifier interface {
	Notify(ctx context.Context, sessionID uuid.UUID, status model.AnalysisStatus) error
}
