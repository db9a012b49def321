package scheduler

import "time"

// DefaultInterval is the minimum spacing between two classification attempts
const DefaultInterval = 600 * time.Millisecond

// ShouldAnalyze reports whether strictly more than interval has elapsed since last.
// A zero last time is always due.
func ShouldAnalyze(now, last time.Time, interval time.Duration) bool {
	if last.IsZero() {
		return true
	}
	return now.Sub(last) > interval
}

// Poller gates classifier calls from the render loop. It is owned by a single
// goroutine and does not lock.
type Poller struct {
	interval    time.Duration
	lastAttempt time.Time
	attempts    int64
}

// NewPoller creates a poller; a non-positive interval falls back to DefaultInterval.
func NewPoller(interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{interval: interval}
}

// Due checks the gate once for the current render iteration.
func (p *Poller) Due(now time.Time) bool {
	return ShouldAnalyze(now, p.lastAttempt, p.interval)
}

// MarkAttempt records an attempt started at the given time, whatever its outcome.
func (p *Poller) MarkAttempt(at time.Time) {
	p.lastAttempt = at
	p.attempts++
}

func (p *Poller) Interval() time.Duration { return p.interval }

func (p *Poller) LastAttempt() time.Time { return p.lastAttempt }

func (p *Poller) Attempts() int64 { return p.attempts }
