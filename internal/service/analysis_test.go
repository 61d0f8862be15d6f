package service_test

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/unique-Sachin/CounselPro-AI/internal/config"
	"github.com/unique-Sachin/CounselPro-AI/internal/queue"
	"github.com/unique-Sachin/CounselPro-AI/internal/service"
	"github.com/unique-Sachin/CounselPro-AI/internal/store"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

type failingQueue struct {
	err error
}

func (f failingQueue) Enqueue(_ context.Context, _ uuid.UUID, _ string) (*queue.Handle, bool, error) {
	return nil, false, f.err
}

var _ = Describe("analysis service", Ordered, func() {
	var (
		s          store.Store
		gormdb     *gorm.DB
		runner     *scriptedRunner
		q          *queue.Queue
		svc        *service.AnalysisService
		sessionSvc *service.SessionService
	)

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
		runner = newScriptedRunner(s)
		q = queue.NewQueue(s, runner, 8, 2)
		Expect(q.Start(context.TODO())).To(BeNil())

		svc = service.NewAnalysisService(s, q)
		sessionSvc = service.NewSessionService(s, svc)
	})

	AfterEach(func() {
		q.Shutdown(0)
		gormdb.Exec("DELETE FROM session_analyses;")
		gormdb.Exec("DELETE FROM raw_transcripts;")
		gormdb.Exec("DELETE FROM sessions;")
	})

	newSession := func() uuid.UUID {
		session, result, err := sessionSvc.CreateSession(context.TODO(), service.SessionForm{
			RecordingRef:  "s3://recordings/session.mp4",
			CounselorName: "Counselor",
		})
		Expect(err).To(BeNil())
		Expect(result).To(BeNil())
		return session.ID
	}

	statusOf := func(id uuid.UUID) func() model.AnalysisStatus {
		return func() model.AnalysisStatus {
			st, err := svc.GetStatus(context.TODO(), id)
			if err != nil {
				return ""
			}
			return st.Status
		}
	}

	Context("trigger", func() {
		It("refuses unknown sessions", func() {
			_, err := svc.Trigger(context.TODO(), uuid.New(), "")

			var notFound *service.ErrResourceNotFound
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})

		It("admits the analysis with the recording of the session", func() {
			id := newSession()

			result, err := svc.Trigger(context.TODO(), id, "")
			Expect(err).To(BeNil())
			Expect(result.Accepted).To(BeTrue())
			Expect(result.CurrentStatus).To(BeElementOf(model.AnalysisStatusPending, model.AnalysisStatusRunning))
		})

		It("reports the job in flight when triggered again", func() {
			id := newSession()

			first, err := svc.Trigger(context.TODO(), id, "")
			Expect(err).To(BeNil())
			Expect(first.Accepted).To(BeTrue())
			Eventually(statusOf(id)).Should(Equal(model.AnalysisStatusRunning))

			second, err := svc.Trigger(context.TODO(), id, "https://cdn.example.com/other.mp4")
			Expect(err).To(BeNil())
			Expect(second.Accepted).To(BeFalse())
			Expect(second.CurrentStatus).To(Equal(model.AnalysisStatusRunning))
		})

		It("reports a full queue as unavailable", func() {
			id := newSession()
			svc = service.NewAnalysisService(s, failingQueue{err: queue.ErrQueueFull})

			_, err := svc.Trigger(context.TODO(), id, "")

			var unavailable *service.ErrAnalysisUnavailable
			Expect(errors.As(err, &unavailable)).To(BeTrue())
			Expect(errors.Is(err, queue.ErrQueueFull)).To(BeTrue())
		})

		It("starts the analysis of a session created with auto analyze", func() {
			session, result, err := sessionSvc.CreateSession(context.TODO(), service.SessionForm{
				RecordingRef: "file:///recordings/session.mp4",
				AutoAnalyze:  true,
			})
			Expect(err).To(BeNil())
			Expect(result).NotTo(BeNil())
			Expect(result.Accepted).To(BeTrue())
			Eventually(statusOf(session.ID)).Should(Equal(model.AnalysisStatusRunning))
		})

		It("refuses sessions without a recording", func() {
			_, _, err := sessionSvc.CreateSession(context.TODO(), service.SessionForm{CounselorName: "Counselor"})

			var invalid *service.ErrInvalidRequest
			Expect(errors.As(err, &invalid)).To(BeTrue())
		})
	})

	Context("status", func() {
		It("is not found before the first trigger", func() {
			_, err := svc.GetStatus(context.TODO(), newSession())

			var notFound *service.ErrResourceNotFound
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})

		It("shows the analyses only once the run is over", func() {
			id := newSession()
			runner.transcript.Store(true)
			_, err := svc.Trigger(context.TODO(), id, "")
			Expect(err).To(BeNil())
			Eventually(statusOf(id)).Should(Equal(model.AnalysisStatusRunning))

			st, err := svc.GetStatus(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(st.VideoAnalysis).To(BeNil())
			Expect(st.AudioAnalysis).To(BeNil())

			close(runner.release)
			Eventually(statusOf(id)).Should(Equal(model.AnalysisStatusCompleted))

			st, err = svc.GetStatus(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(st.VideoAnalysis).NotTo(BeNil())
			Expect(st.VideoAnalysis.SessionOverview.ParticipantCount).To(Equal(2))
			Expect(st.AudioAnalysis).NotTo(BeNil())
			Expect(st.UpdatedAt).NotTo(BeZero())
		})

		It("lists the sessions that were analyzed in the order asked", func() {
			first, second, never := newSession(), newSession(), newSession()
			close(runner.release)
			for _, id := range []uuid.UUID{first, second} {
				_, err := svc.Trigger(context.TODO(), id, "")
				Expect(err).To(BeNil())
				Eventually(statusOf(id)).Should(Equal(model.AnalysisStatusCompleted))
			}

			statuses, err := svc.ListStatuses(context.TODO(), []uuid.UUID{second, never, first, uuid.New()})
			Expect(err).To(BeNil())
			Expect(statuses).To(HaveLen(2))
			Expect(statuses[0].SessionID).To(Equal(second))
			Expect(statuses[1].SessionID).To(Equal(first))
		})
	})

	Context("transcript", func() {
		It("is not found for unknown sessions", func() {
			_, err := svc.GetTranscript(context.TODO(), uuid.New())

			var notFound *service.ErrResourceNotFound
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})

		It("is unavailable before the first run", func() {
			t, err := svc.GetTranscript(context.TODO(), newSession())
			Expect(err).To(BeNil())
			Expect(t.Available).To(BeFalse())
			Expect(t.Status).To(BeEmpty())
		})

		It("is only served once the run completed", func() {
			id := newSession()
			runner.transcript.Store(true)
			_, err := svc.Trigger(context.TODO(), id, "")
			Expect(err).To(BeNil())
			Eventually(statusOf(id)).Should(Equal(model.AnalysisStatusRunning))

			t, err := svc.GetTranscript(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(t.Available).To(BeFalse())
			Expect(t.Status).To(Equal(model.AnalysisStatusRunning))
			Expect(t.Utterances).To(BeEmpty())

			close(runner.release)
			Eventually(statusOf(id)).Should(Equal(model.AnalysisStatusCompleted))

			t, err = svc.GetTranscript(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(t.Available).To(BeTrue())
			Expect(t.Utterances).To(HaveLen(1))
			Expect(t.Metadata.RoleMapping).To(HaveKeyWithValue("counselor", 0))
		})

		It("does not serve the transcript of an earlier run", func() {
			id := newSession()
			close(runner.release)
			runner.transcript.Store(true)
			_, err := svc.Trigger(context.TODO(), id, "")
			Expect(err).To(BeNil())
			Eventually(statusOf(id)).Should(Equal(model.AnalysisStatusCompleted))

			// the second run completes without a transcript
			runner.transcript.Store(false)
			Eventually(func() bool {
				result, err := svc.Trigger(context.TODO(), id, "")
				return err == nil && result.Accepted
			}).Should(BeTrue())
			Eventually(func() bool {
				st, err := svc.GetStatus(context.TODO(), id)
				return err == nil && st.Status == model.AnalysisStatusCompleted && st.AudioAnalysis == nil
			}).Should(BeTrue())

			t, err := svc.GetTranscript(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(t.Status).To(Equal(model.AnalysisStatusCompleted))
			Expect(t.Available).To(BeFalse())
		})
	})
})
