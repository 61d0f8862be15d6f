package transcription

import (
	"context"
	"math"
	"time"

	"github.com/unique-Sachin/CounselPro-AI/internal/pipeline"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
	"go.uber.org/zap"
)

// Stage transcribes the audio artifact and labels each utterance with the role of its speaker.
type Stage struct {
	client Client
	log    *zap.SugaredLogger
}

func NewStage(client Client) *Stage {
	return &Stage{
		client: client,
		log:    zap.S().Named("transcription"),
	}
}

func (s *Stage) Run(ctx context.Context, artifacts *pipeline.Artifacts) pipeline.StageResult[pipeline.Transcript] {
	if artifacts == nil || artifacts.AudioPath == "" {
		return pipeline.Skipped[pipeline.Transcript]("no audio")
	}

	start := time.Now()
	resp, err := s.client.Transcribe(ctx, artifacts.AudioPath)
	if err != nil {
		if ctx.Err() != nil {
			return pipeline.Failed[pipeline.Transcript](ctx.Err())
		}
		return pipeline.Failed[pipeline.Transcript](pipeline.NewStageUnavailableError(pipeline.StageTranscription, err))
	}
	elapsed := time.Since(start)

	utterances := toUtterances(resp.Results.Utterances)
	if len(utterances) == 0 {
		return pipeline.Skipped[pipeline.Transcript]("empty transcript")
	}

	roles := IdentifyRoles(utterances)
	utterances = ApplyRoles(utterances, roles)

	metadata := model.TranscriptMetadata{
		TotalSpeakers:         len(roles),
		RoleMapping:           roles,
		ProcessingTimeSeconds: math.Round(elapsed.Seconds()*100) / 100,
		Timestamp:             time.Now().UTC(),
	}
	if resp.Metadata.RequestID != "" {
		metadata.Extra = map[string]string{"requestId": resp.Metadata.RequestID}
	}

	s.log.Infow("transcription done", "utterances", len(utterances), "speakers", len(roles), "elapsed", elapsed)
	return pipeline.Ok(pipeline.Transcript{Utterances: utterances, Metadata: metadata})
}

func toUtterances(in []DeepgramUtterance) []model.Utterance {
	out := make([]model.Utterance, 0, len(in))
	for _, u := range in {
		out = append(out, model.Utterance{
			Speaker:    u.Speaker,
			Text:       u.Transcript,
			StartTime:  FormatTimestamp(u.Start),
			EndTime:    FormatTimestamp(u.End),
			Confidence: roundConfidence(u.Confidence),
		})
	}
	return out
}
