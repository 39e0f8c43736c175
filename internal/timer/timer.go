// Package timer provides a coarse clock shared by I/O deadlines and the Date header of
// responses.
package timer

import (
	"context"
	"sync/atomic"
	"time"
)

// Resolution is how often the shared clock ticks. Neither deadlines nor the Date header
// need anything finer.
const Resolution = 500 * time.Millisecond

// HTTPDate is the layout of the Date header, always in GMT.
const HTTPDate = "Mon, 02 Jan 2006 15:04:05 GMT"

// Clock caches the current time along with its HTTP-date representation. Tick must be
// called from a single goroutine, reads are safe from any.
type Clock struct {
	millis atomic.Int64
	date   atomic.Pointer[string]
}

func NewClock(now time.Time) *Clock {
	c := new(Clock)
	c.Tick(now)
	return c
}

// Tick advances the clock. The date is rendered again only when the second changes.
func (c *Clock) Tick(now time.Time) {
	millis := now.UnixMilli()
	prev := c.millis.Swap(millis)
	if c.date.Load() != nil && prev/1000 == millis/1000 {
		return
	}

	date := now.UTC().Format(HTTPDate)
	c.date.Store(&date)
}

func (c *Clock) Now() time.Time {
	return time.UnixMilli(c.millis.Load())
}

// Date returns the current time formatted for the Date header.
func (c *Clock) Date() string {
	return *c.date.Load()
}

// Run ticks the clock every resolution until the context is done.
func (c *Clock) Run(ctx context.Context, resolution time.Duration) {
	ticker := time.NewTicker(resolution)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.Tick(now)
		}
	}
}

var shared = NewClock(time.Now())

func init() {
	go shared.Run(context.Background(), Resolution)
}

// Now returns the time of the shared clock.
func Now() time.Time {
	return shared.Now()
}

// Date returns the Date header value of the shared clock.
func Date() string {
	return shared.Date()
}
