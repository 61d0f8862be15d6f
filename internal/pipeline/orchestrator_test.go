package pipeline_test

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/unique-Sachin/CounselPro-AI/internal/config"
	"github.com/unique-Sachin/CounselPro-AI/internal/pipeline"
	"github.com/unique-Sachin/CounselPro-AI/internal/store"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("orchestrator", Ordered, func() {
	var (
		s         store.Store
		gormdb    *gorm.DB
		extractor *fakeExtractor
		verifier  *recordingVerifier
		notifier  *recordingNotifier
	)

	zeroBackOff := pipeline.WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} })

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration(context.TODO())).To(BeNil())
	})

	AfterAll(func() {
		s.Close()
	})

	BeforeEach(func() {
		extractor = &fakeExtractor{}
		verifier = &recordingVerifier{}
		notifier = &recordingNotifier{}
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM raw_transcripts;")
		gormdb.Exec("DELETE FROM session_analyses;")
	})

	admit := func(generation int64) pipeline.Job {
		job := pipeline.Job{
			SessionID:    uuid.New(),
			RecordingRef: "s3://recordings/session.mp4",
			Generation:   generation,
			State:        pipeline.NewJobState(),
		}
		Expect(s.Analysis().Upsert(context.TODO(), model.NewPendingAnalysis(job.SessionID, generation))).To(BeNil())
		return job
	}

	Context("all stages succeed", func() {
		It("completes with both analyses and the transcript", func() {
			o := pipeline.NewOrchestrator(s, extractor, okTranscriber(), okVisual(), verifier, notifier)
			job := admit(1)

			status := o.Run(context.TODO(), job)
			Expect(status).To(Equal(model.AnalysisStatusCompleted))
			Expect(job.State.Status()).To(Equal(model.AnalysisStatusCompleted))

			a, err := s.Analysis().Get(context.TODO(), job.SessionID)
			Expect(err).To(BeNil())
			Expect(a.Status).To(Equal(model.AnalysisStatusCompleted))
			Expect(a.VideoAnalysis).ToNot(BeNil())
			Expect(a.AudioAnalysis).ToNot(BeNil())
			Expect(a.TranscriptAvailable).To(BeTrue())
			Expect(a.StartedAt).ToNot(BeNil())
			Expect(a.FinishedAt).ToNot(BeNil())

			t, err := s.Transcript().Get(context.TODO(), job.SessionID)
			Expect(err).To(BeNil())
			Expect(t.TotalSegments).To(Equal(2))

			Expect(verifier.calls.Load()).To(Equal(int32(1)))
			Expect(extractor.cleaned.Load()).To(Equal(int32(1)))
			Expect(notifier.Sent()).To(ConsistOf(notification{SessionID: job.SessionID, Status: model.AnalysisStatusCompleted}))
		})
	})

	Context("non fatal stage failures", func() {
		It("completes without audio analysis when transcription fails", func() {
			o := pipeline.NewOrchestrator(s, extractor, failingTranscriber(errors.New("unsupported codec")), okVisual(), verifier, notifier)
			job := admit(1)

			status := o.Run(context.TODO(), job)
			Expect(status).To(Equal(model.AnalysisStatusCompleted))

			a, err := s.Analysis().Get(context.TODO(), job.SessionID)
			Expect(err).To(BeNil())
			Expect(a.Status).To(Equal(model.AnalysisStatusCompleted))
			Expect(a.AudioAnalysis).To(BeNil())
			Expect(a.VideoAnalysis).ToNot(BeNil())
			Expect(a.TranscriptAvailable).To(BeFalse())

			_, err = s.Transcript().Get(context.TODO(), job.SessionID)
			Expect(err).To(Equal(store.ErrRecordNotFound))

			Expect(verifier.calls.Load()).To(BeZero())
			Expect(extractor.cleaned.Load()).To(Equal(int32(1)))
		})

		It("completes without video analysis when the visual assessment fails", func() {
			o := pipeline.NewOrchestrator(s, extractor, okTranscriber(), failingVisual(errors.New("vision endpoint down")), verifier, notifier)
			job := admit(1)

			Expect(o.Run(context.TODO(), job)).To(Equal(model.AnalysisStatusCompleted))

			a, err := s.Analysis().Get(context.TODO(), job.SessionID)
			Expect(err).To(BeNil())
			Expect(a.VideoAnalysis).To(BeNil())
			Expect(a.AudioAnalysis).ToNot(BeNil())
			Expect(a.TranscriptAvailable).To(BeTrue())
		})

		It("completes with no analysis at all when every non fatal stage fails", func() {
			o := pipeline.NewOrchestrator(s, extractor, failingTranscriber(errors.New("boom")), failingVisual(errors.New("boom")), verifier, notifier)
			job := admit(1)

			Expect(o.Run(context.TODO(), job)).To(Equal(model.AnalysisStatusCompleted))

			a, err := s.Analysis().Get(context.TODO(), job.SessionID)
			Expect(err).To(BeNil())
			Expect(a.Status).To(Equal(model.AnalysisStatusCompleted))
			Expect(a.VideoAnalysis).To(BeNil())
			Expect(a.AudioAnalysis).To(BeNil())
		})

		It("reports a panicking stage as failed", func() {
			panicking := visualFunc(func(_ context.Context, _ *pipeline.Artifacts) pipeline.StageResult[*model.VideoAnalysis] {
				panic("nil frame")
			})
			o := pipeline.NewOrchestrator(s, extractor, okTranscriber(), panicking, verifier, notifier)
			job := admit(1)

			Expect(o.Run(context.TODO(), job)).To(Equal(model.AnalysisStatusCompleted))

			a, err := s.Analysis().Get(context.TODO(), job.SessionID)
			Expect(err).To(BeNil())
			Expect(a.VideoAnalysis).To(BeNil())
		})
	})

	Context("fatal stage failure", func() {
		It("fails the job and clears the analysis", func() {
			extractor.err = errors.New("recording not found")
			o := pipeline.NewOrchestrator(s, extractor, okTranscriber(), okVisual(), verifier, notifier)
			job := admit(1)

			status := o.Run(context.TODO(), job)
			Expect(status).To(Equal(model.AnalysisStatusFailed))

			a, err := s.Analysis().Get(context.TODO(), job.SessionID)
			Expect(err).To(BeNil())
			Expect(a.Status).To(Equal(model.AnalysisStatusFailed))
			Expect(a.VideoAnalysis).To(BeNil())
			Expect(a.AudioAnalysis).To(BeNil())
			Expect(a.FailureReason).To(ContainSubstring("media extraction failed"))
			Expect(a.FailureReason).To(ContainSubstring("recording not found"))

			Expect(verifier.calls.Load()).To(BeZero())
			Expect(notifier.Sent()).To(ConsistOf(notification{SessionID: job.SessionID, Status: model.AnalysisStatusFailed}))
		})
	})

	Context("timeouts", func() {
		It("treats a slow non fatal stage as a timeout", func() {
			slow := transcriberFunc(func(ctx context.Context, _ *pipeline.Artifacts) pipeline.StageResult[pipeline.Transcript] {
				<-ctx.Done()
				return pipeline.Failed[pipeline.Transcript](ctx.Err())
			})
			o := pipeline.NewOrchestrator(s, extractor, slow, okVisual(), verifier, notifier,
				pipeline.WithTimeouts(pipeline.Timeouts{Job: 5 * time.Second, Transcription: 50 * time.Millisecond}))
			job := admit(1)

			Expect(o.Run(context.TODO(), job)).To(Equal(model.AnalysisStatusCompleted))

			a, err := s.Analysis().Get(context.TODO(), job.SessionID)
			Expect(err).To(BeNil())
			Expect(a.AudioAnalysis).To(BeNil())
			Expect(a.VideoAnalysis).ToNot(BeNil())
		})

		It("fails the job when extraction times out", func() {
			slow := &blockingExtractor{}
			o := pipeline.NewOrchestrator(s, slow, okTranscriber(), okVisual(), verifier, notifier,
				pipeline.WithTimeouts(pipeline.Timeouts{Job: 5 * time.Second, Extraction: 50 * time.Millisecond}))
			job := admit(1)

			Expect(o.Run(context.TODO(), job)).To(Equal(model.AnalysisStatusFailed))

			a, err := s.Analysis().Get(context.TODO(), job.SessionID)
			Expect(err).To(BeNil())
			Expect(a.FailureReason).To(ContainSubstring("exceeded"))
		})

		It("fails the job on the global timeout and fences the late stage", func() {
			release := make(chan struct{})
			stuck := transcriberFunc(func(_ context.Context, _ *pipeline.Artifacts) pipeline.StageResult[pipeline.Transcript] {
				<-release
				return okTranscriber()(context.TODO(), nil)
			})
			o := pipeline.NewOrchestrator(s, extractor, stuck, okVisual(), verifier, notifier, zeroBackOff,
				pipeline.WithTimeouts(pipeline.Timeouts{Job: 100 * time.Millisecond}))
			job := admit(1)

			start := time.Now()
			Expect(o.Run(context.TODO(), job)).To(Equal(model.AnalysisStatusFailed))
			Expect(time.Since(start)).To(BeNumerically("<", 2*time.Second))

			a, err := s.Analysis().Get(context.TODO(), job.SessionID)
			Expect(err).To(BeNil())
			Expect(a.Status).To(Equal(model.AnalysisStatusFailed))
			Expect(a.FailureReason).To(ContainSubstring("job exceeded"))

			close(release)
			Eventually(func() int32 { return extractor.cleaned.Load() }).Should(Equal(int32(1)))

			a, err = s.Analysis().Get(context.TODO(), job.SessionID)
			Expect(err).To(BeNil())
			Expect(a.Status).To(Equal(model.AnalysisStatusFailed))
			Expect(a.AudioAnalysis).To(BeNil())
			_, err = s.Transcript().Get(context.TODO(), job.SessionID)
			Expect(err).To(Equal(store.ErrRecordNotFound))

			Expect(notifier.Sent()).To(HaveLen(1))
		})
	})

	Context("persistence", func() {
		It("retries a failing write", func() {
			flaky := newFlakyStore(s, 2)
			o := pipeline.NewOrchestrator(flaky, extractor, okTranscriber(), okVisual(), verifier, notifier,
				zeroBackOff, pipeline.WithPersistenceAttempts(3))
			job := admit(1)

			Expect(o.Run(context.TODO(), job)).To(Equal(model.AnalysisStatusCompleted))
			Expect(flaky.analysis.attempts.Load()).To(Equal(int32(3)))

			a, err := s.Analysis().Get(context.TODO(), job.SessionID)
			Expect(err).To(BeNil())
			Expect(a.Status).To(Equal(model.AnalysisStatusCompleted))
		})

		It("fails the job once the attempts are exhausted", func() {
			flaky := newFlakyStore(s, 100)
			o := pipeline.NewOrchestrator(flaky, extractor, okTranscriber(), okVisual(), verifier, notifier,
				zeroBackOff, pipeline.WithPersistenceAttempts(3))
			job := admit(1)

			Expect(o.Run(context.TODO(), job)).To(Equal(model.AnalysisStatusFailed))
			Expect(flaky.analysis.attempts.Load()).To(Equal(int32(3)))

			a, err := s.Analysis().Get(context.TODO(), job.SessionID)
			Expect(err).To(BeNil())
			Expect(a.Status).To(Equal(model.AnalysisStatusFailed))
			Expect(a.FailureReason).To(ContainSubstring("persisting results"))

			_, err = s.Transcript().Get(context.TODO(), job.SessionID)
			Expect(err).To(Equal(store.ErrRecordNotFound))
			Expect(notifier.Sent()).To(ConsistOf(notification{SessionID: job.SessionID, Status: model.AnalysisStatusFailed}))
		})

		It("does not write for a superseded run", func() {
			o := pipeline.NewOrchestrator(s, extractor, okTranscriber(), okVisual(), verifier, notifier)
			job := admit(1)
			Expect(s.Analysis().Upsert(context.TODO(), model.NewPendingAnalysis(job.SessionID, 2))).To(BeNil())

			Expect(o.Run(context.TODO(), job)).To(Equal(model.AnalysisStatusFailed))
			Expect(extractor.calls.Load()).To(BeZero())

			a, err := s.Analysis().Get(context.TODO(), job.SessionID)
			Expect(err).To(BeNil())
			Expect(a.Status).To(Equal(model.AnalysisStatusPending))
			Expect(a.Generation).To(Equal(int64(2)))
			Expect(notifier.Sent()).To(BeEmpty())
		})

		It("replaces the results of an earlier run", func() {
			o := pipeline.NewOrchestrator(s, extractor, okTranscriber(), okVisual(), verifier, notifier)
			job := admit(1)
			Expect(o.Run(context.TODO(), job)).To(Equal(model.AnalysisStatusCompleted))

			rerun := pipeline.NewOrchestrator(s, extractor, failingTranscriber(errors.New("unsupported codec")), okVisual(), verifier, notifier)
			second := pipeline.Job{SessionID: job.SessionID, RecordingRef: job.RecordingRef, Generation: 2, State: pipeline.NewJobState()}
			Expect(s.Analysis().Upsert(context.TODO(), model.NewPendingAnalysis(second.SessionID, 2))).To(BeNil())
			Expect(rerun.Run(context.TODO(), second)).To(Equal(model.AnalysisStatusCompleted))

			a, err := s.Analysis().Get(context.TODO(), job.SessionID)
			Expect(err).To(BeNil())
			Expect(a.Generation).To(Equal(int64(2)))
			Expect(a.AudioAnalysis).To(BeNil())
			Expect(a.TranscriptAvailable).To(BeFalse())

			count := 0
			tx := gormdb.Raw("SELECT COUNT(*) FROM session_analyses;").Scan(&count)
			Expect(tx.Error).To(BeNil())
			Expect(count).To(Equal(1))
		})
	})

	Context("notification", func() {
		It("keeps the recorded status when notification fails", func() {
			notifier.err = errors.New("webhook unreachable")
			o := pipeline.NewOrchestrator(s, extractor, okTranscriber(), okVisual(), verifier, notifier)
			job := admit(1)

			Expect(o.Run(context.TODO(), job)).To(Equal(model.AnalysisStatusCompleted))

			a, err := s.Analysis().Get(context.TODO(), job.SessionID)
			Expect(err).To(BeNil())
			Expect(a.Status).To(Equal(model.AnalysisStatusCompleted))
		})
	})
})

type blockingExtractor struct{}

func (b *blockingExtractor) Run(ctx context.Context, _ pipeline.Job) pipeline.StageResult[*pipeline.Artifacts] {
	<-ctx.Done()
	return pipeline.Failed[*pipeline.Artifacts](ctx.Err())
}

func (b *blockingExtractor) Cleanup(_ *pipeline.Artifacts) error { return nil }
