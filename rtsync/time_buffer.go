package rtsync

import (
	"time"

	"go.uber.org/atomic"
)

// TimeData carries one control tick's clock sample.
type TimeData struct {
	// Time is the wall time of the tick.
	Time time.Time
	// Period is the duration since the previous tick.
	Period time.Duration
	// Uptime is the controller uptime accumulated over all ticks so far. It
	// never decreases and is the time axis trajectories are sampled on.
	Uptime time.Duration
}

// TimeBuffer exchanges the latest TimeData between the real-time writer and
// any number of monitoring readers. The fields live in atomic cells under a
// Seqlock: Write is called once per tick from the control loop and never
// blocks or allocates; Read returns the most recently completed write, never
// a torn value.
type TimeBuffer struct {
	lock   Seqlock
	sec    atomic.Int64
	nsec   atomic.Int64
	period atomic.Int64
	uptime atomic.Int64
	primed atomic.Bool
}

// Write publishes td. Real-time context only, single writer.
func (b *TimeBuffer) Write(td TimeData) {
	b.lock.Write(func() {
		b.sec.Store(td.Time.Unix())
		b.nsec.Store(int64(td.Time.Nanosecond()))
		b.period.Store(int64(td.Period))
		b.uptime.Store(int64(td.Uptime))
	})
	b.primed.Store(true)
}

// Read returns the latest published TimeData, or a zero TimeData before the
// first Write.
func (b *TimeBuffer) Read() TimeData {
	if !b.primed.Load() {
		return TimeData{}
	}
	var td TimeData
	b.lock.Read(func() {
		td = TimeData{
			Time:   time.Unix(b.sec.Load(), b.nsec.Load()),
			Period: time.Duration(b.period.Load()),
			Uptime: time.Duration(b.uptime.Load()),
		}
	})
	return td
}
