package queue

import (
	"github.com/google/uuid"
	"github.com/unique-Sachin/CounselPro-AI/internal/pipeline"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("job registry", func() {
	var (
		r         *registry
		sessionID uuid.UUID
	)

	BeforeEach(func() {
		r = newRegistry()
		sessionID = uuid.New()
	})

	newHandle := func(generation int64) func() *Handle {
		return func() *Handle {
			return &Handle{SessionID: sessionID, Generation: generation, state: pipeline.NewJobState()}
		}
	}

	It("keeps the active handle of a session", func() {
		first, admitted := r.reserve(sessionID, newHandle(1))
		Expect(admitted).To(BeTrue())

		Expect(first.state.Transition(model.AnalysisStatusRunning)).To(BeNil())

		h, admitted := r.reserve(sessionID, newHandle(2))
		Expect(admitted).To(BeFalse())
		Expect(h).To(BeIdenticalTo(first))
	})

	It("replaces a finished handle its worker did not release yet", func() {
		first, _ := r.reserve(sessionID, newHandle(1))
		Expect(first.state.Transition(model.AnalysisStatusRunning)).To(BeNil())
		Expect(first.state.Transition(model.AnalysisStatusCompleted)).To(BeNil())

		second, admitted := r.reserve(sessionID, newHandle(2))
		Expect(admitted).To(BeTrue())
		Expect(second.Generation).To(Equal(int64(2)))

		// the late release of the finished run leaves the new one in place
		r.release(first)
		h, found := r.get(sessionID)
		Expect(found).To(BeTrue())
		Expect(h).To(BeIdenticalTo(second))
	})
})
