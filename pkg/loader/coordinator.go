package loader

import (
	"context"
	"sync"

	"github.com/edgequill/netload/pkg/http"
)

// DefaultSlots is the historical cap on concurrently running loads.
const DefaultSlots = 255

// Coordinator bounds the number of concurrently active loads. When no slot
// is free, Acquire parks the caller in a FIFO queue; each Release hands the
// freed slot to the oldest waiter before growing the free count.
type Coordinator struct {
	mu        sync.Mutex
	available int
	waiters   []chan struct{}
}

func NewCoordinator(slots int) *Coordinator {
	if slots <= 0 {
		slots = DefaultSlots
	}
	return &Coordinator{available: slots}
}

// Acquire claims a slot, blocking in FIFO order until one frees up or the
// context is cancelled. A successful Acquire must be paired with Release.
func (c *Coordinator) Acquire(ctx context.Context) error {
	c.mu.Lock()
	if c.available > 0 {
		c.available--
		c.mu.Unlock()
		return nil
	}
	grant := make(chan struct{})
	c.waiters = append(c.waiters, grant)
	c.mu.Unlock()

	select {
	case <-grant:
		return nil
	case <-ctx.Done():
		c.mu.Lock()
		for i, w := range c.waiters {
			if w == grant {
				c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
				c.mu.Unlock()
				return ctx.Err()
			}
		}
		c.mu.Unlock()
		// the grant raced the cancellation; pass the slot on
		c.Release()
		return ctx.Err()
	}
}

// Release returns a slot, waking the oldest waiter if any.
func (c *Coordinator) Release() {
	c.mu.Lock()
	if len(c.waiters) > 0 {
		grant := c.waiters[0]
		c.waiters = c.waiters[1:]
		c.mu.Unlock()
		close(grant)
		return
	}
	c.available++
	c.mu.Unlock()
}

// Service couples a Loader with a Coordinator so callers get slot-bounded
// loads without wiring the two themselves.
type Service struct {
	loader *Loader
	coord  *Coordinator
}

func NewService(slots int, opts ...Option) *Service {
	return &Service{
		loader: New(opts...),
		coord:  NewCoordinator(slots),
	}
}

// Do claims a slot for the duration of the load. In streamed mode the slot
// is released once the response headers are delivered; draining the body
// stream is the consumer's business and is not slot-bounded.
func (s *Service) Do(ctx context.Context, req *Request) (*http.Result, error) {
	if err := s.coord.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.coord.Release()
	return s.loader.Do(ctx, req)
}
