package notification

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/ugram-notify/internal/domain"
	"github.com/ugram-notify/internal/observability/metrics"
)

const defaultCapacity = 1024

// OverflowPolicy decides what Push does when the queue is at capacity.
type OverflowPolicy string

const (
	// OverflowDropOldest evicts the head of the queue to make room.
	OverflowDropOldest OverflowPolicy = "drop-oldest"
	// OverflowReject discards the incoming notification.
	OverflowReject OverflowPolicy = "reject"
)

// Deliverer performs the resolve-and-push step for one notification. It
// reports whether the target user had a live connection to hand it to.
type Deliverer interface {
	TryDeliver(userID string, kind domain.Kind, payload any) bool
}

// Producer is the side post handlers depend on. Calls never block on delivery
// and never fail.
type Producer interface {
	NotifyLike(postOwnerID string, like domain.Like)
	NotifyComment(postOwnerID string, comment domain.Comment)
}

// Options configures a Dispatcher.
type Options struct {
	Capacity int
	Overflow OverflowPolicy
	Logger   logrus.FieldLogger
	Metrics  *metrics.NotificationMetrics
}

// Dispatcher is a bounded FIFO of pending notifications with at most one drain
// goroutine. The drain goroutine is started by Push when none is running and
// exits as soon as it finds the queue empty, so every notification is handed to
// the Deliverer in push order, one at a time.
type Dispatcher struct {
	deliverer Deliverer
	capacity  int
	overflow  OverflowPolicy
	log       logrus.FieldLogger
	metrics   *metrics.NotificationMetrics

	mu       sync.Mutex
	queue    []domain.Notification
	draining bool
	closed   bool
	wg       sync.WaitGroup
}

func NewDispatcher(deliverer Deliverer, opts Options) *Dispatcher {
	if opts.Capacity <= 0 {
		opts.Capacity = defaultCapacity
	}
	if opts.Overflow != OverflowReject {
		opts.Overflow = OverflowDropOldest
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Dispatcher{
		deliverer: deliverer,
		capacity:  opts.Capacity,
		overflow:  opts.Overflow,
		log:       opts.Logger.WithField("component", "dispatcher"),
		metrics:   opts.Metrics,
	}
}

// Push appends n to the tail of the queue and starts the drain loop if it is
// idle. It returns immediately. The result reports whether n was queued; a
// false result is informational only and callers are free to ignore it.
func (d *Dispatcher) Push(n domain.Notification) bool {
	kind := n.Kind().String()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.metrics.Dropped(kind, metrics.DropClosed)
		d.log.WithError(domain.ErrClosed).WithFields(logrus.Fields{"user_id": n.TargetUserID(), "kind": kind}).
			Debug("Dispatcher closed, notification dropped")
		return false
	}

	if len(d.queue) >= d.capacity {
		if d.overflow == OverflowReject {
			d.mu.Unlock()
			d.metrics.Dropped(kind, metrics.DropOverflow)
			d.log.WithError(domain.ErrQueueFull).WithFields(logrus.Fields{"user_id": n.TargetUserID(), "kind": kind}).
				Warn("Notification queue full, notification rejected")
			return false
		}
		evicted := d.queue[0]
		d.queue[0] = domain.Notification{}
		d.queue = d.queue[1:]
		d.metrics.Dropped(evicted.Kind().String(), metrics.DropOverflow)
		d.log.WithError(domain.ErrQueueFull).
			WithFields(logrus.Fields{"user_id": evicted.TargetUserID(), "kind": evicted.Kind().String()}).
			Warn("Notification queue full, oldest notification dropped")
	}

	d.queue = append(d.queue, n)
	depth := len(d.queue)
	start := !d.draining
	if start {
		d.draining = true
		d.wg.Add(1)
	}
	d.mu.Unlock()

	d.metrics.Pushed(kind)
	d.metrics.SetQueueDepth(depth)
	if start {
		go d.drain()
	}
	return true
}

// NotifyLike queues a like notification for the post owner. Liking your own
// post does not notify you.
func (d *Dispatcher) NotifyLike(postOwnerID string, like domain.Like) {
	if postOwnerID == like.UserID {
		return
	}
	d.Push(domain.NewLikeNotification(postOwnerID, like))
}

// NotifyComment queues a comment notification for the post owner. Commenting
// on your own post does not notify you.
func (d *Dispatcher) NotifyComment(postOwnerID string, comment domain.Comment) {
	if postOwnerID == comment.UserID {
		return
	}
	d.Push(domain.NewCommentNotification(postOwnerID, comment))
}

// Idle reports whether no drain loop is running.
func (d *Dispatcher) Idle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.draining
}

// Len returns the number of queued notifications, excluding one in flight.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Close stops accepting notifications and waits for the drain loop to empty
// the queue. If ctx ends first, Close returns its error and the drain loop
// finishes in the background.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) drain() {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.queue = nil
			d.draining = false
			d.mu.Unlock()
			return
		}
		n := d.queue[0]
		d.queue[0] = domain.Notification{}
		d.queue = d.queue[1:]
		depth := len(d.queue)
		d.mu.Unlock()

		d.metrics.SetQueueDepth(depth)
		d.dispatch(n)
	}
}

func (d *Dispatcher) dispatch(n domain.Notification) {
	entry := d.log.WithFields(logrus.Fields{"user_id": n.TargetUserID(), "kind": n.Kind().String()})
	defer func() {
		if r := recover(); r != nil {
			entry.WithField("panic", r).Error("Notification delivery panicked")
		}
	}()

	entry.Debug("Sending notification")
	if !d.deliverer.TryDeliver(n.TargetUserID(), n.Kind(), n.Payload()) {
		entry.Debug("Notification not delivered")
	}
}
