package queue_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/unique-Sachin/CounselPro-AI/internal/config"
	"github.com/unique-Sachin/CounselPro-AI/internal/queue"
	"github.com/unique-Sachin/CounselPro-AI/internal/store"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("stale run reaper", Ordered, func() {
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
		gormdb.Exec("DELETE FROM session_analyses;")
	})

	seed := func(status model.AnalysisStatus, age time.Duration) uuid.UUID {
		id := uuid.New()
		a := model.NewPendingAnalysis(id, 42)
		a.Status = status
		Expect(s.Analysis().Upsert(context.TODO(), a)).To(BeNil())
		tx := gormdb.Exec("UPDATE session_analyses SET updated_at = ? WHERE session_id = ?", time.Now().UTC().Add(-age), id.String())
		Expect(tx.Error).To(BeNil())
		return id
	}

	nobody := ownerFunc(func(uuid.UUID) bool { return false })

	It("fails active analyses nobody works on", func() {
		running := seed(model.AnalysisStatusRunning, time.Hour)
		pending := seed(model.AnalysisStatusPending, time.Hour)

		recovered, err := queue.NewReaper(s, nobody, time.Minute, 10*time.Minute).Reap(context.TODO())
		Expect(err).To(BeNil())
		Expect(recovered).To(Equal(2))

		for _, id := range []uuid.UUID{running, pending} {
			a, err := s.Analysis().Get(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(a.Status).To(Equal(model.AnalysisStatusFailed))
			Expect(a.FailureReason).To(HavePrefix("abandoned"))
			Expect(a.FinishedAt).ToNot(BeNil())
		}
	})

	It("leaves recent, owned and terminal analyses alone", func() {
		recent := seed(model.AnalysisStatusRunning, time.Minute)
		owned := seed(model.AnalysisStatusRunning, time.Hour)
		done := seed(model.AnalysisStatusCompleted, time.Hour)

		owner := ownerFunc(func(id uuid.UUID) bool { return id == owned })
		recovered, err := queue.NewReaper(s, owner, time.Minute, 10*time.Minute).Reap(context.TODO())
		Expect(err).To(BeNil())
		Expect(recovered).To(BeZero())

		expected := map[uuid.UUID]model.AnalysisStatus{
			recent: model.AnalysisStatusRunning,
			owned:  model.AnalysisStatusRunning,
			done:   model.AnalysisStatusCompleted,
		}
		for id, status := range expected {
			a, err := s.Analysis().Get(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(a.Status).To(Equal(status))
		}
	})

	It("reaps on start", func() {
		id := seed(model.AnalysisStatusRunning, time.Hour)

		ctx, cancel := context.WithCancel(context.TODO())
		defer cancel()
		queue.NewReaper(s, nobody, time.Hour, 10*time.Minute).Start(ctx)

		a, err := s.Analysis().Get(context.TODO(), id)
		Expect(err).To(BeNil())
		Expect(a.Status).To(Equal(model.AnalysisStatusFailed))
	})
})
