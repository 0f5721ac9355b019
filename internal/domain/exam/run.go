package exam

import (
	"context"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the local wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// OffsetClock shifts a base clock by a fixed offset, typically the measured
// difference between the server's clock and the device's.
type OffsetClock struct {
	Base   Clock
	Offset time.Duration
}

// Now implements Clock.
func (c OffsetClock) Now() time.Time { return c.Base.Now().Add(c.Offset) }

// NewServerClock returns a clock aligned to serverTime as observed at
// localTime on base.
func NewServerClock(base Clock, serverTime, localTime time.Time) OffsetClock {
	return OffsetClock{Base: base, Offset: serverTime.Sub(localTime)}
}

// Run drives s from ticks until it reaches a terminal state or ctx is done.
// Each received tick is translated through clock (the tick's own value is
// only a wake-up signal) and processed before the next one is read, so tick
// handling never overlaps. observe, when non-nil, receives a view after every
// tick.
func Run(ctx context.Context, s *Session, clock Clock, ticks <-chan time.Time, observe func(View)) State {
	for {
		if st := s.State(); st.Terminal() {
			return st
		}

		select {
		case <-ctx.Done():
			return s.State()
		case _, ok := <-ticks:
			if !ok {
				return s.State()
			}
			now := clock.Now()
			s.Tick(now)
			if observe != nil {
				observe(s.View(now))
			}
		}
	}
}

// RunWithTicker runs s on a one-second ticker.
func RunWithTicker(ctx context.Context, s *Session, clock Clock, observe func(View)) State {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	return Run(ctx, s, clock, ticker.C, observe)
}
