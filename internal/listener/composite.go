package listener

import (
	"sync"

	"github.com/papapumpkin/cascade/internal/event"
)

// Handler consumes one event record. BuildResults, FailedNodes, SlotTime
// and Composite all implement it.
type Handler interface {
	Handle(res *event.Result, stage string)
}

// Composite fans each record out to its handlers in the order they were
// added.
type Composite struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewComposite returns a Composite over hs.
func NewComposite(hs ...Handler) *Composite {
	return &Composite{handlers: append([]Handler(nil), hs...)}
}

// Add appends h. Records already delivered are not replayed to it.
func (c *Composite) Add(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

// Handle delivers the record to every handler.
func (c *Composite) Handle(res *event.Result, stage string) {
	c.mu.RLock()
	hs := c.handlers
	c.mu.RUnlock()
	for _, h := range hs {
		h.Handle(res, stage)
	}
}
