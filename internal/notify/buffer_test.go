package notify

import (
	"github.com/google/uuid"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("buffer", func() {
	msg := func() *message {
		return &message{Event: newEvent(uuid.New(), model.AnalysisStatusCompleted)}
	}

	It("keeps events in order", func() {
		b := newBuffer()
		first, second, third := msg(), msg(), msg()

		Expect(b.PushBack(first)).To(Equal(1))
		Expect(b.PushBack(second)).To(Equal(2))
		Expect(b.PushBack(third)).To(Equal(3))
		Expect(b.head).To(Equal(first))
		Expect(b.tail).To(Equal(third))

		Expect(b.Pop()).To(Equal(first))
		Expect(b.Size()).To(Equal(2))
		Expect(b.Pop()).To(Equal(second))
		Expect(b.Pop()).To(Equal(third))
		Expect(b.Size()).To(Equal(0))
		Expect(b.head).To(BeNil())
		Expect(b.tail).To(BeNil())

		Expect(b.Pop()).To(BeNil())
	})

	It("accepts events again once drained", func() {
		b := newBuffer()
		b.PushBack(msg())
		Expect(b.Pop()).NotTo(BeNil())

		again := msg()
		Expect(b.PushBack(again)).To(Equal(1))
		Expect(b.Pop()).To(Equal(again))
	})
})
