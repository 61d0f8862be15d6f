package visual

import (
	"context"
	"errors"
	"sync"

	"github.com/unique-Sachin/CounselPro-AI/internal/pipeline"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 4

type StageOption func(s *Stage)

// Stage labels every sampled frame and folds the labels into a VideoAnalysis.
// Frames the classifier cannot label are left out; the stage fails only when none could be labeled.
type Stage struct {
	classifier  FrameClassifier
	concurrency int
	log         *zap.SugaredLogger
}

func NewStage(classifier FrameClassifier, opts ...StageOption) *Stage {
	s := &Stage{
		classifier:  classifier,
		concurrency: DefaultConcurrency,
		log:         zap.S().Named("visual_assessment"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithConcurrency bounds the number of frames classified at the same time.
func WithConcurrency(n int) StageOption {
	return func(s *Stage) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func (s *Stage) Run(ctx context.Context, artifacts *pipeline.Artifacts) pipeline.StageResult[*model.VideoAnalysis] {
	if artifacts == nil || len(artifacts.Frames) == 0 {
		return pipeline.Skipped[*model.VideoAnalysis]("no frames")
	}
	if s.classifier == nil {
		return pipeline.Skipped[*model.VideoAnalysis]("no frame classifier configured")
	}

	var (
		mu      sync.Mutex
		samples = make([]Sample, 0, len(artifacts.Frames))
		errs    []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, frame := range artifacts.Frames {
		g.Go(func() error {
			label, err := s.classifier.Classify(gctx, frame)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				s.log.Debugw("frame not classified", "frame", frame.Path, "error", err)
				return gctx.Err()
			}
			samples = append(samples, Sample{Offset: frame.Offset, Label: label})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return pipeline.Failed[*model.VideoAnalysis](err)
	}
	if err := ctx.Err(); err != nil {
		return pipeline.Failed[*model.VideoAnalysis](err)
	}

	if len(samples) == 0 {
		return pipeline.Failed[*model.VideoAnalysis](pipeline.NewStageUnavailableError(pipeline.StageVisual, errors.Join(errs...)))
	}
	if len(errs) > 0 {
		s.log.Warnw("some frames could not be classified", "failed", len(errs), "classified", len(samples))
	}

	analysis := Fold(samples, artifacts.FrameInterval, artifacts.DurationSeconds)
	s.log.Infow("visual assessment done", "frames", len(samples), "participants", analysis.SessionOverview.ParticipantCount)
	return pipeline.Ok(analysis)
}
