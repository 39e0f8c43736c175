package timer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClock(t *testing.T) {
	t.Run("date", func(t *testing.T) {
		moment := time.Date(1994, time.November, 6, 8, 49, 37, 0, time.UTC)
		clock := NewClock(moment)
		require.Equal(t, "Sun, 06 Nov 1994 08:49:37 GMT", clock.Date())
		require.True(t, moment.Equal(clock.Now()))
	})

	t.Run("date is rendered in GMT", func(t *testing.T) {
		kyiv := time.FixedZone("EET", 2*60*60)
		clock := NewClock(time.Date(1994, time.November, 6, 10, 49, 37, 0, kyiv))
		require.Equal(t, "Sun, 06 Nov 1994 08:49:37 GMT", clock.Date())
	})

	t.Run("date follows seconds", func(t *testing.T) {
		moment := time.Date(2024, time.February, 29, 23, 59, 59, 100*int(time.Millisecond), time.UTC)
		clock := NewClock(moment)

		clock.Tick(moment.Add(500 * time.Millisecond))
		require.Equal(t, "Thu, 29 Feb 2024 23:59:59 GMT", clock.Date())
		require.Equal(t, moment.Add(500*time.Millisecond).UnixMilli(), clock.Now().UnixMilli())

		clock.Tick(moment.Add(900 * time.Millisecond))
		require.Equal(t, "Fri, 01 Mar 2024 00:00:00 GMT", clock.Date())
	})

	t.Run("run until cancelled", func(t *testing.T) {
		clock := NewClock(time.Unix(0, 0))
		ctx, cancel := context.WithCancel(context.Background())
		stopped := make(chan struct{})
		go func() {
			clock.Run(ctx, time.Millisecond)
			close(stopped)
		}()

		require.Eventually(t, func() bool {
			return time.Since(clock.Now()) < time.Second
		}, time.Second, time.Millisecond)

		cancel()
		select {
		case <-stopped:
		case <-time.After(time.Second):
			require.Fail(t, "clock didn't stop")
		}
	})
}

func TestShared(t *testing.T) {
	const (
		threshold = 200 * time.Millisecond
		// a tick may come up to a millisecond later than Resolution
		tolerance = Resolution + Resolution/2
	)

	for range 2 * time.Second / threshold {
		require.Less(t, time.Since(Now()), tolerance, "the shared clock is too slow")
		parsed, err := time.Parse(HTTPDate, Date())
		require.NoError(t, err)
		require.Less(t, time.Since(parsed), tolerance+time.Second)

		time.Sleep(threshold)
	}
}

func BenchmarkNow(b *testing.B) {
	b.Run("time.Now()", func(b *testing.B) {
		for range b.N {
			_ = time.Now()
		}
	})

	b.Run("shared clock", func(b *testing.B) {
		for range b.N {
			_ = Now()
		}
	})
}
