package store_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/unique-Sachin/CounselPro-AI/internal/config"
	st "github.com/unique-Sachin/CounselPro-AI/internal/store"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("Store", Ordered, func() {
	var (
		store  st.Store
		gormDB *gorm.DB
	)

	BeforeAll(func() {
		cfg := config.NewDefault()
		db, err := st.InitDB(cfg)
		Expect(err).To(BeNil())
		gormDB = db

		store = st.NewStore(db)
		Expect(store).ToNot(BeNil())
		Expect(store.InitialMigration(context.TODO())).To(BeNil())
	})

	AfterAll(func() {
		store.Close()
	})

	newSession := func() model.Session {
		return model.Session{
			ID:            uuid.New(),
			RecordingRef:  "s3://recordings/session.mp4",
			CounselorName: "Counselor",
			CreatedAt:     time.Now(),
		}
	}

	Context("transaction", func() {
		It("writes the transcript and the analysis together", func() {
			session, err := store.Session().Create(context.TODO(), newSession())
			Expect(err).To(BeNil())
			Expect(store.Analysis().Upsert(context.TODO(), model.NewPendingAnalysis(session.ID, 1))).To(BeNil())

			ctx, err := store.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			transcript := model.NewRawTranscript(session.ID, []model.Utterance{{Speaker: 0, Role: "counselor", Text: "hello"}}, model.TranscriptMetadata{TotalSpeakers: 1})
			Expect(store.Transcript().Upsert(ctx, transcript)).To(BeNil())
			Expect(store.Analysis().UpsertIfCurrent(ctx, model.SessionAnalysis{
				SessionID:           session.ID,
				Generation:          1,
				Status:              model.AnalysisStatusCompleted,
				TranscriptAvailable: true,
			})).To(BeNil())

			// commit
			_, cerr := st.Commit(ctx)
			Expect(cerr).To(BeNil())

			count := 0
			err = gormDB.Raw("SELECT COUNT(*) from raw_transcripts;").Scan(&count).Error
			Expect(err).To(BeNil())
			Expect(count).To(Equal(1))

			analysis, err := store.Analysis().Get(context.TODO(), session.ID)
			Expect(err).To(BeNil())
			Expect(analysis.Status).To(Equal(model.AnalysisStatusCompleted))
		})

		It("rolls back the transcript", func() {
			session, err := store.Session().Create(context.TODO(), newSession())
			Expect(err).To(BeNil())

			ctx, err := store.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			transcript := model.NewRawTranscript(session.ID, []model.Utterance{}, model.TranscriptMetadata{})
			Expect(store.Transcript().Upsert(ctx, transcript)).To(BeNil())

			// visible in the same transaction
			found, err := store.Transcript().Get(ctx, session.ID)
			Expect(err).To(BeNil())
			Expect(found.SessionID).To(Equal(session.ID))

			// rollback
			_, cerr := st.Rollback(ctx)
			Expect(cerr).To(BeNil())

			_, err = store.Transcript().Get(context.TODO(), session.ID)
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})

		It("drops the transaction when the commit fails", func() {
			ctx, err := store.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			// end it behind the store's back so the store commit fails
			Expect(st.FromContext(ctx).Commit().Error).To(BeNil())

			ctx, err = st.Commit(ctx)
			Expect(err).ToNot(BeNil())
			Expect(err.Error()).To(ContainSubstring("committing transaction"))
			Expect(st.FromContext(ctx)).To(BeNil())

			_, err = st.Rollback(ctx)
			Expect(err).To(BeNil())
		})

		It("ignores commit and rollback without a transaction", func() {
			ctx, err := st.Commit(context.TODO())
			Expect(err).To(BeNil())
			_, err = st.Rollback(ctx)
			Expect(err).To(BeNil())
		})

		AfterEach(func() {
			gormDB.Exec("DELETE from raw_transcripts;")
			gormDB.Exec("DELETE from session_analyses;")
			gormDB.Exec("DELETE from sessions;")
		})
	})

	Context("statistics", func() {
		It("counts the sessions and the analyses by status", func() {
			for i := 0; i < 3; i++ {
				session, err := store.Session().Create(context.TODO(), newSession())
				Expect(err).To(BeNil())
				if i > 0 {
					Expect(store.Analysis().Upsert(context.TODO(), model.NewPendingAnalysis(session.ID, int64(i)))).To(BeNil())
				}
			}

			stats, err := store.Statistics(context.TODO())
			Expect(err).To(BeNil())
			Expect(stats.TotalSessions).To(Equal(3))
			Expect(stats.AnalysesByStatus).To(HaveKeyWithValue(model.AnalysisStatusPending, 2))
		})

		AfterEach(func() {
			gormDB.Exec("DELETE from session_analyses;")
			gormDB.Exec("DELETE from sessions;")
		})
	})
})
