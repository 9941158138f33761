package notify

import (
	"sync"
	"time"
)

// Level is the severity of a toast.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Toast is a transient notification.
type Toast struct {
	Level       Level     `json:"level"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	At          time.Time `json:"at"`
}

// String renders the toast on one line.
func (t Toast) String() string {
	if t.Description == "" {
		return "[" + string(t.Level) + "] " + t.Title
	}
	return "[" + string(t.Level) + "] " + t.Title + ": " + t.Description
}

// Notifier accepts toasts.
type Notifier interface {
	Notify(Toast)
}

const defaultCapacity = 64

// Center queues toasts until a renderer drains them. When full, the oldest
// toast is dropped.
type Center struct {
	mu       sync.Mutex
	queue    []Toast
	capacity int
	now      func() time.Time
}

// NewCenter creates an empty center.
func NewCenter() *Center {
	return &Center{capacity: defaultCapacity, now: time.Now}
}

// Notify queues t.
func (c *Center) Notify(t Toast) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.At.IsZero() {
		t.At = c.now()
	}
	if len(c.queue) == c.capacity {
		c.queue = c.queue[1:]
	}
	c.queue = append(c.queue, t)
}

// Drain returns and removes all queued toasts in arrival order.
func (c *Center) Drain() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.queue
	c.queue = nil
	return out
}

// Pending returns the number of queued toasts.
func (c *Center) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}
