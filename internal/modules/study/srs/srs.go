// Package srs implements the SM-2 variant used to schedule flashcard reviews.
package srs

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	DefaultEaseFactor = 2.5
	MinEaseFactor     = 1.3

	MinQuality = 0
	MaxQuality = 5
	// PassQuality is the lowest quality that counts as remembered.
	PassQuality = 3
)

var ErrInvalidQuality = errors.New("srs: quality outside [0,5]")

type State struct {
	EaseFactor   float64
	IntervalDays int
	Streak       int
}

func NewState() State {
	return State{EaseFactor: DefaultEaseFactor, IntervalDays: 1, Streak: 0}
}

// Next applies one answer.
//
//	quality >= 3: streak+1; interval 1, then 6, then round(interval*EF);
//	              EF += 0.1 - (5-q)*(0.08 + (5-q)*0.02), floored at 1.3
//	quality <  3: streak 0, interval 1, EF unchanged
//
// The next review is now + interval days.
func Next(s State, quality int, now time.Time) (State, time.Time, error) {
	if quality < MinQuality || quality > MaxQuality {
		return s, time.Time{}, fmt.Errorf("%w: %d", ErrInvalidQuality, quality)
	}
	if s.EaseFactor < MinEaseFactor {
		s.EaseFactor = MinEaseFactor
	}
	if s.IntervalDays < 1 {
		s.IntervalDays = 1
	}

	out := s
	if quality >= PassQuality {
		out.Streak = s.Streak + 1
		switch out.Streak {
		case 1:
			out.IntervalDays = 1
		case 2:
			out.IntervalDays = 6
		default:
			out.IntervalDays = int(math.Round(float64(s.IntervalDays) * s.EaseFactor))
			if out.IntervalDays < 1 {
				out.IntervalDays = 1
			}
		}
		miss := float64(MaxQuality - quality)
		out.EaseFactor = math.Max(MinEaseFactor, s.EaseFactor+(0.1-miss*(0.08+miss*0.02)))
	} else {
		out.Streak = 0
		out.IntervalDays = 1
	}
	return out, now.Add(time.Duration(out.IntervalDays) * 24 * time.Hour), nil
}

// Preview returns the interval in days each quality would produce.
func Preview(s State) [MaxQuality + 1]int {
	var out [MaxQuality + 1]int
	for q := MinQuality; q <= MaxQuality; q++ {
		next, _, _ := Next(s, q, time.Time{})
		out[q] = next.IntervalDays
	}
	return out
}
