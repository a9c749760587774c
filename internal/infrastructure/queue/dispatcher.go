package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/peaberry/peaberry-api/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 64
	sendTimeout    = 30 * time.Second
)

// ErrQueueFull is returned when the recipient's worker cannot accept more mail.
var ErrQueueFull = errors.New("mail queue full")

// ErrStopped is returned by Send after Stop.
var ErrStopped = errors.New("mail dispatcher stopped")

var _ ports.Mailer = (*Dispatcher)(nil)

// Dispatcher delivers mail asynchronously through a fixed set of workers.
// Messages are sharded by recipient, so mail to one address is sent in order.
type Dispatcher struct {
	workers []chan ports.MailMessage
	next    ports.Mailer
	log     zerolog.Logger
	onSent  func(err error)

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers in
// front of next. If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, next ports.Mailer, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.MailMessage, numWorkers),
		next:    next,
		log:     log,
		onSent:  func(error) {},
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.MailMessage, channelBuffer)
	}
	return d
}

// OnSent registers a hook called after each delivery attempt.
func (d *Dispatcher) OnSent(fn func(err error)) {
	if fn != nil {
		d.onSent = fn
	}
}

// Start launches all worker goroutines.
func (d *Dispatcher) Start() {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(i, ch)
	}
}

// Stop closes the queues and waits for queued mail to drain or ctx to end.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
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

// Send queues msg and returns without waiting for delivery.
func (d *Dispatcher) Send(_ context.Context, msg ports.MailMessage) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrStopped
	}

	select {
	case d.workers[d.shardIndex(msg.To)] <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *Dispatcher) shardIndex(recipient string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(recipient)))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(id int, ch <-chan ports.MailMessage) {
	defer d.wg.Done()
	for msg := range ch {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err := d.next.Send(ctx, msg)
		cancel()

		d.onSent(err)
		if err != nil {
			d.log.Error().Err(err).
				Str("to", msg.To).
				Int("worker_id", id).
				Msg("mail delivery failed")
		}
	}
}
