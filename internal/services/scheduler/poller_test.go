package scheduler

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

func TestShouldAnalyze(t *testing.T) {
	base := time.Unix(1000, 0)

	tests := []struct {
		name string
		now  time.Time
		last time.Time
		want bool
	}{
		{"never analyzed", base, time.Time{}, true},
		{"just analyzed", base, base, false},
		{"exactly one interval", base.Add(DefaultInterval), base, false},
		{"past one interval", base.Add(DefaultInterval + time.Nanosecond), base, true},
		{"clock went backwards", base.Add(-time.Second), base, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldAnalyze(tt.now, tt.last, DefaultInterval); got != tt.want {
				t.Errorf("ShouldAnalyze() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewPollerFallsBackToDefault(t *testing.T) {
	if got := NewPoller(0).Interval(); got != DefaultInterval {
		t.Errorf("Interval = %s, want %s", got, DefaultInterval)
	}
}

func TestPollerWaitsFullIntervalAfterAttempt(t *testing.T) {
	p := NewPoller(DefaultInterval)
	start := time.Unix(0, 0).Add(time.Hour)

	if !p.Due(start) {
		t.Fatal("first frame should be due")
	}
	p.MarkAttempt(start)

	// A render loop at ~100 fps must not trigger again before 600ms.
	for at := start.Add(10 * time.Millisecond); !at.After(start.Add(DefaultInterval)); at = at.Add(10 * time.Millisecond) {
		if p.Due(at) {
			t.Fatalf("due %s after the attempt", at.Sub(start))
		}
	}
	if !p.Due(start.Add(DefaultInterval + 10*time.Millisecond)) {
		t.Fatal("should be due after the interval elapsed")
	}
}

// Over any span of T seconds the number of attempts is bounded by ceil(T/interval)+1.
func TestPollerAttemptBound(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 50; run++ {
		p := NewPoller(DefaultInterval)
		start := time.Unix(5000, 0)
		at := start
		span := time.Duration(1+rng.Intn(20)) * time.Second

		for !at.After(start.Add(span)) {
			if p.Due(at) {
				p.MarkAttempt(at)
			}
			at = at.Add(time.Duration(1+rng.Intn(80)) * time.Millisecond)
		}

		bound := int64(math.Ceil(span.Seconds()/DefaultInterval.Seconds())) + 1
		if p.Attempts() > bound {
			t.Fatalf("run %d: %d attempts over %s, bound %d", run, p.Attempts(), span, bound)
		}
	}
}
