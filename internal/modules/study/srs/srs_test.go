package srs

import (
	"errors"
	"math"
	"testing"
	"time"
)

var t0 = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

func mustNext(t *testing.T, s State, q int, now time.Time) (State, time.Time) {
	t.Helper()
	next, at, err := Next(s, q, now)
	if err != nil {
		t.Fatalf("Next(%+v, %d): %v", s, q, err)
	}
	return next, at
}

func TestSchedulerScenario(t *testing.T) {
	s := State{EaseFactor: 2.5, IntervalDays: 1, Streak: 0}

	s, at := mustNext(t, s, 4, t0)
	if s.Streak != 1 || s.IntervalDays != 1 {
		t.Fatalf("first answer: want streak=1 interval=1 got %+v", s)
	}
	if !at.Equal(t0.Add(24 * time.Hour)) {
		t.Fatalf("first due: got %s", at)
	}

	s, _ = mustNext(t, s, 4, t0)
	if s.Streak != 2 || s.IntervalDays != 6 {
		t.Fatalf("second answer: want streak=2 interval=6 got %+v", s)
	}

	s, _ = mustNext(t, s, 4, t0)
	if s.Streak != 3 || s.IntervalDays != int(math.Round(6*2.5)) {
		t.Fatalf("third answer: want streak=3 interval=15 got %+v", s)
	}

	before := s.EaseFactor
	s, at = mustNext(t, s, 2, t0)
	if s.Streak != 0 || s.IntervalDays != 1 {
		t.Fatalf("lapse: want streak=0 interval=1 got %+v", s)
	}
	if s.EaseFactor != before {
		t.Fatalf("lapse: ease factor should not change, want=%v got=%v", before, s.EaseFactor)
	}
	if !at.Equal(t0.Add(24 * time.Hour)) {
		t.Fatalf("lapse due: got %s", at)
	}
}

func TestEaseFactorUpdates(t *testing.T) {
	cases := []struct {
		q    int
		want float64
	}{
		{5, 2.6},
		{4, 2.5},
		{3, 2.36},
	}
	for _, tc := range cases {
		s, _ := mustNext(t, NewState(), tc.q, t0)
		if math.Abs(s.EaseFactor-tc.want) > 1e-9 {
			t.Fatalf("q=%d: want ease=%v got=%v", tc.q, tc.want, s.EaseFactor)
		}
	}

	s := State{EaseFactor: 1.3, IntervalDays: 10, Streak: 4}
	s, _ = mustNext(t, s, 3, t0)
	if s.EaseFactor != MinEaseFactor {
		t.Fatalf("floor: want=%v got=%v", MinEaseFactor, s.EaseFactor)
	}
}

func TestRejectsInvalidQuality(t *testing.T) {
	for _, q := range []int{-1, 6} {
		if _, _, err := Next(NewState(), q, t0); !errors.Is(err, ErrInvalidQuality) {
			t.Fatalf("q=%d: want ErrInvalidQuality got %v", q, err)
		}
	}
}

func TestPreview(t *testing.T) {
	p := Preview(State{EaseFactor: 2.5, IntervalDays: 6, Streak: 2})
	if p[0] != 1 || p[2] != 1 || p[4] != 15 {
		t.Fatalf("preview: got %v", p)
	}
}
