package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
	"github.com/unique-Sachin/CounselPro-AI/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBufferLimit = 1024
	closeTimeout       = 5 * time.Second

	resultSent    = "sent"
	resultFailed  = "failed"
	resultDropped = "dropped"
)

var ErrDispatcherClosed = errors.New("notification dispatcher closed")

// Writer delivers events to a subscriber.
type Writer interface {
	Write(ctx context.Context, e Event) error
	Close(ctx context.Context) error
}

// Dispatcher is a wrapper around a Writer with a buffer.
// Notify never waits for the writer: events are queued and delivered in order by a single consumer.
type Dispatcher struct {
	buffer           *buffer
	startConsumingCh chan struct{}
	doneCh           chan struct{}
	finishedCh       chan struct{}
	closeOnce        sync.Once
	closed           atomic.Bool
	writer           Writer
	limit            int
	ctx              context.Context
	cancel           context.CancelFunc
	log              *zap.SugaredLogger
}

func NewDispatcher(w Writer, opts ...DispatcherOption) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		buffer:           newBuffer(),
		startConsumingCh: make(chan struct{}, 1),
		doneCh:           make(chan struct{}),
		finishedCh:       make(chan struct{}),
		writer:           w,
		limit:            defaultBufferLimit,
		ctx:              ctx,
		cancel:           cancel,
		log:              zap.S().Named("notify"),
	}

	for _, o := range opts {
		o(d)
	}

	go d.run()
	return d
}

// Notify queues an event for a session whose analysis reached a terminal status.
func (d *Dispatcher) Notify(_ context.Context, sessionID uuid.UUID, status model.AnalysisStatus) error {
	if !status.IsTerminal() {
		return fmt.Errorf("status %s is not terminal", status)
	}
	if d.closed.Load() {
		return ErrDispatcherClosed
	}

	e := newEvent(sessionID, status)
	if d.limit > 0 && d.buffer.Size() >= d.limit {
		metrics.IncreaseNotificationsMetric(resultDropped)
		return fmt.Errorf("notification buffer full, dropping %s", e)
	}
	d.buffer.PushBack(&message{Event: e})

	// unblock the consumer
	select {
	case d.startConsumingCh <- struct{}{}:
	default:
	}

	return nil
}

// Pending is the number of events not delivered yet.
func (d *Dispatcher) Pending() int {
	return d.buffer.Size()
}

// Close delivers the pending events and closes the writer. It gives up after 5 seconds.
func (d *Dispatcher) Close() error {
	var err error
	d.closeOnce.Do(func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		defer d.cancel()

		d.closed.Store(true)
		close(d.doneCh)

		g, ctx := errgroup.WithContext(closeCtx)
		g.Go(func() error {
			select {
			case <-d.finishedCh:
			case <-ctx.Done():
				return fmt.Errorf("%d notification(s) not delivered: %w", d.buffer.Size(), ctx.Err())
			}
			return d.writer.Close(ctx)
		})
		if err = g.Wait(); err != nil {
			d.log.Errorf("notification dispatcher closed with error: %s", err)
			return
		}

		d.log.Info("notification dispatcher closed")
	})
	return err
}

func (d *Dispatcher) run() {
	defer close(d.finishedCh)

	for {
		if d.ctx.Err() != nil {
			return
		}

		msg := d.buffer.Pop()
		if msg == nil {
			select {
			case <-d.startConsumingCh:
				continue
			case <-d.doneCh:
				if d.buffer.Size() == 0 {
					return
				}
				continue
			case <-d.ctx.Done():
				return
			}
		}

		if err := d.writer.Write(d.ctx, msg.Event); err != nil {
			metrics.IncreaseNotificationsMetric(resultFailed)
			d.log.Errorw("failed to deliver notification", "error", err, "event", msg.Event.ID, "session_id", msg.Event.SessionID)
			continue
		}
		metrics.IncreaseNotificationsMetric(resultSent)
	}
}
