package testutil

import (
	"strconv"
	"sync"
	"time"

	"sharesync/internal/sharing"
)

// StubClock is a manually driven sharing.Clock. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

var _ sharing.Clock = (*StubClock)(nil)

// NewStubClock creates a StubClock reading t until moved.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock set to ShareTime, the stime of seeded shares.
func FixedClock() *StubClock {
	return NewStubClock(ShareTime)
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// StubIDGenerator issues correlation tokens "token-1", "token-2", ... and
// remembers them in order.
type StubIDGenerator struct {
	mu     sync.Mutex
	issued []string
}

var _ sharing.IDGenerator = (*StubIDGenerator)(nil)

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	token := "token-" + strconv.Itoa(len(g.issued)+1)
	g.issued = append(g.issued, token)
	return token
}

// Issued returns every token handed out so far.
func (g *StubIDGenerator) Issued() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.issued...)
}
