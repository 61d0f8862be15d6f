package store_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/unique-Sachin/CounselPro-AI/internal/config"
	"github.com/unique-Sachin/CounselPro-AI/internal/store"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("transcript store", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
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

	AfterEach(func() {
		gormdb.Exec("DELETE FROM raw_transcripts;")
		gormdb.Exec("DELETE FROM session_analyses;")
	})

	utterances := func(texts ...string) []model.Utterance {
		u := make([]model.Utterance, 0, len(texts))
		for i, t := range texts {
			u = append(u, model.Utterance{Speaker: i % 2, Role: "counselor", Text: t, StartTime: "00:00:01.00", EndTime: "00:00:02.50", Confidence: 0.97})
		}
		return u
	}

	metadata := model.TranscriptMetadata{
		TotalSpeakers: 2,
		RoleMapping:   map[string]int{"counselor": 0, "student": 1},
		Timestamp:     time.Now().UTC(),
	}

	It("stores a transcript", func() {
		id := uuid.New()
		err := s.Transcript().Upsert(context.TODO(), model.NewRawTranscript(id, utterances("hello", "hi"), metadata))
		Expect(err).To(BeNil())

		t, err := s.Transcript().Get(context.TODO(), id)
		Expect(err).To(BeNil())
		Expect(t.TotalSegments).To(Equal(2))
		Expect(t.Utterances).To(HaveLen(2))
		Expect(t.Utterances[0].Text).To(Equal("hello"))
		Expect(t.Metadata.Data().RoleMapping).To(HaveKeyWithValue("student", 1))
	})

	It("replaces the transcript of an earlier run", func() {
		id := uuid.New()
		Expect(s.Transcript().Upsert(context.TODO(), model.NewRawTranscript(id, utterances("one", "two", "three"), metadata))).To(BeNil())
		Expect(s.Transcript().Upsert(context.TODO(), model.NewRawTranscript(id, utterances("only"), metadata))).To(BeNil())

		count := 0
		tx := gormdb.Raw("SELECT COUNT(*) FROM raw_transcripts;").Scan(&count)
		Expect(tx.Error).To(BeNil())
		Expect(count).To(Equal(1))

		t, err := s.Transcript().Get(context.TODO(), id)
		Expect(err).To(BeNil())
		Expect(t.TotalSegments).To(Equal(1))
		Expect(t.Utterances[0].Text).To(Equal("only"))
	})

	It("returns ErrRecordNotFound for a session without transcript", func() {
		_, err := s.Transcript().Get(context.TODO(), uuid.New())
		Expect(err).To(Equal(store.ErrRecordNotFound))
	})

	Context("transaction", func() {
		It("commits the transcript and the analysis together", func() {
			id := uuid.New()
			Expect(s.Analysis().Upsert(context.TODO(), model.NewPendingAnalysis(id, 1))).To(BeNil())

			ctx, err := s.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())
			Expect(s.Transcript().Upsert(ctx, model.NewRawTranscript(id, utterances("hello"), metadata))).To(BeNil())
			a := model.NewPendingAnalysis(id, 1)
			a.Status = model.AnalysisStatusCompleted
			a.TranscriptAvailable = true
			Expect(s.Analysis().UpsertIfCurrent(ctx, a)).To(BeNil())
			_, err = store.Commit(ctx)
			Expect(err).To(BeNil())

			stored, err := s.Analysis().Get(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(model.AnalysisStatusCompleted))
			_, err = s.Transcript().Get(context.TODO(), id)
			Expect(err).To(BeNil())
		})

		It("rolls back the transcript when the analysis write is stale", func() {
			id := uuid.New()
			Expect(s.Analysis().Upsert(context.TODO(), model.NewPendingAnalysis(id, 2))).To(BeNil())

			ctx, err := s.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())
			Expect(s.Transcript().Upsert(ctx, model.NewRawTranscript(id, utterances("late"), metadata))).To(BeNil())
			a := model.NewPendingAnalysis(id, 1)
			a.Status = model.AnalysisStatusCompleted
			Expect(s.Analysis().UpsertIfCurrent(ctx, a)).To(Equal(store.ErrStaleGeneration))
			_, err = store.Rollback(ctx)
			Expect(err).To(BeNil())

			_, err = s.Transcript().Get(context.TODO(), id)
			Expect(err).To(Equal(store.ErrRecordNotFound))
		})
	})
})
