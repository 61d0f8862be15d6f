package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type testWriter struct {
	mu      sync.Mutex
	events  []Event
	release chan struct{}
	fail    bool
	closed  bool
}

func newTestWriter() *testWriter {
	return &testWriter{}
}

func (t *testWriter) Write(ctx context.Context, e Event) error {
	if t.release != nil {
		select {
		case <-t.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if t.fail {
		return errors.New("subscriber unavailable")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
	return nil
}

func (t *testWriter) Close(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *testWriter) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Event(nil), t.events...)
}

var _ = Describe("dispatcher", func() {
	It("delivers terminal statuses in order", func() {
		w := newTestWriter()
		d := NewDispatcher(w)

		first, second := uuid.New(), uuid.New()
		Expect(d.Notify(context.TODO(), first, model.AnalysisStatusCompleted)).To(Succeed())
		Expect(d.Notify(context.TODO(), second, model.AnalysisStatusFailed)).To(Succeed())

		Eventually(w.Events).Should(HaveLen(2))
		events := w.Events()
		Expect(events[0].SessionID).To(Equal(first))
		Expect(events[0].Type).To(Equal("counselpro.analysis.completed"))
		Expect(events[1].SessionID).To(Equal(second))
		Expect(events[1].Status).To(Equal(model.AnalysisStatusFailed))
		Expect(events[0].ID).NotTo(Equal(events[1].ID))

		Expect(d.Close()).To(Succeed())
		Expect(w.closed).To(BeTrue())
	})

	It("refuses statuses that are not terminal", func() {
		w := newTestWriter()
		d := NewDispatcher(w)
		defer d.Close()

		Expect(d.Notify(context.TODO(), uuid.New(), model.AnalysisStatusRunning)).NotTo(Succeed())
		Expect(d.Pending()).To(Equal(0))
	})

	It("does not wait for a slow writer", func() {
		w := newTestWriter()
		w.release = make(chan struct{})
		d := NewDispatcher(w)

		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(done)
			for i := 0; i < 10; i++ {
				Expect(d.Notify(context.TODO(), uuid.New(), model.AnalysisStatusCompleted)).To(Succeed())
			}
		}()
		Eventually(done).Should(BeClosed())
		Expect(w.Events()).To(BeEmpty())

		close(w.release)
		Eventually(w.Events).Should(HaveLen(10))
		Expect(d.Close()).To(Succeed())
	})

	It("drops events over the buffer limit", func() {
		w := newTestWriter()
		w.release = make(chan struct{})
		d := NewDispatcher(w, WithBufferLimit(2))

		Expect(d.Notify(context.TODO(), uuid.New(), model.AnalysisStatusCompleted)).To(Succeed())
		// the consumer holds the first event while the writer is blocked
		Eventually(d.Pending).Should(Equal(0))
		Expect(d.Notify(context.TODO(), uuid.New(), model.AnalysisStatusCompleted)).To(Succeed())
		Expect(d.Notify(context.TODO(), uuid.New(), model.AnalysisStatusCompleted)).To(Succeed())
		Expect(d.Notify(context.TODO(), uuid.New(), model.AnalysisStatusCompleted)).NotTo(Succeed())

		close(w.release)
		Eventually(w.Events).Should(HaveLen(3))
		Expect(d.Close()).To(Succeed())
	})

	It("keeps going when the writer fails", func() {
		w := newTestWriter()
		w.fail = true
		d := NewDispatcher(w)

		Expect(d.Notify(context.TODO(), uuid.New(), model.AnalysisStatusCompleted)).To(Succeed())
		Eventually(d.Pending).Should(Equal(0))
		Expect(d.Close()).To(Succeed())
	})

	It("delivers pending events on close and refuses new ones", func() {
		w := newTestWriter()
		w.release = make(chan struct{})
		d := NewDispatcher(w)

		for i := 0; i < 3; i++ {
			Expect(d.Notify(context.TODO(), uuid.New(), model.AnalysisStatusCompleted)).To(Succeed())
		}
		close(w.release)

		Expect(d.Close()).To(Succeed())
		Expect(w.Events()).To(HaveLen(3))
		Expect(d.Notify(context.TODO(), uuid.New(), model.AnalysisStatusCompleted)).To(MatchError(ErrDispatcherClosed))
	})

	It("gives up closing when the writer hangs", func() {
		w := newTestWriter()
		w.release = make(chan struct{})
		d := NewDispatcher(w)
		Expect(d.Notify(context.TODO(), uuid.New(), model.AnalysisStatusCompleted)).To(Succeed())

		start := time.Now()
		Expect(d.Close()).NotTo(Succeed())
		Expect(time.Since(start)).To(BeNumerically("<", closeTimeout+time.Second))
	})
})

var _ = Describe("webhook writer", func() {
	noWait := func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
	}

	It("posts the event as json", func() {
		var received Event
		var eventType string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			eventType = r.Header.Get(eventTypeHeader)
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
			w.WriteHeader(http.StatusAccepted)
		}))
		defer ts.Close()

		e := newEvent(uuid.New(), model.AnalysisStatusCompleted)
		Expect(NewWebhookWriter(ts.URL, time.Second).Write(context.TODO(), e)).To(Succeed())
		Expect(received.SessionID).To(Equal(e.SessionID))
		Expect(received.Status).To(Equal(model.AnalysisStatusCompleted))
		Expect(eventType).To(Equal("counselpro.analysis.completed"))
	})

	It("retries when the subscriber is unavailable", func() {
		var calls atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer ts.Close()

		w := NewWebhookWriter(ts.URL, time.Second, WithWebhookBackOff(noWait))
		Expect(w.Write(context.TODO(), newEvent(uuid.New(), model.AnalysisStatusFailed))).To(Succeed())
		Expect(calls.Load()).To(Equal(int32(3)))
	})

	It("does not retry rejected events", func() {
		var calls atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))
		defer ts.Close()

		w := NewWebhookWriter(ts.URL, time.Second, WithWebhookBackOff(noWait))
		Expect(w.Write(context.TODO(), newEvent(uuid.New(), model.AnalysisStatusFailed))).NotTo(Succeed())
		Expect(calls.Load()).To(Equal(int32(1)))
	})
})
