// Package chunking splits normalized document text into overlapping,
// boundary-aware segments. Output is a pure function of (text, Params):
// chunk ids derived from it are embedded as citations in generated
// artifacts and must survive regeneration.
package chunking

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

type Params struct {
	Target  int
	Min     int
	Max     int
	Overlap int
}

func DefaultParams() Params {
	return Params{Target: 760, Min: 600, Max: 900, Overlap: 120}
}

func (p Params) Validate() error {
	if p.Overlap < 0 || p.Overlap >= p.Min || p.Min > p.Target || p.Target > p.Max {
		return fmt.Errorf("chunking: invalid params %+v (need 0 <= overlap < min <= target <= max)", p)
	}
	return nil
}

// Chunk is one segment. Start and End are byte offsets into the normalized
// text; Text is the trimmed span.
type Chunk struct {
	Index int
	Start int
	End   int
	Text  string
}

var ErrIterationLimit = errors.New("chunking: iteration limit exceeded")

// Breakpoints in priority order. The last match inside the window wins for
// the first pattern that matches at all.
var breakpoints = []*regexp.Regexp{
	regexp.MustCompile(`\n[ \t]*\n`),
	regexp.MustCompile(`\n`),
	regexp.MustCompile(`[.!?;:]["')\]]*\s`),
	regexp.MustCompile(`,\s`),
	regexp.MustCompile(`\s`),
}

// Normalize converts CRLF and stray CR to LF, NBSP to space, and trims.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\u00a0", " ")
	return strings.TrimSpace(text)
}

// TextHash is the hex SHA-256 of the normalized text.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(sum[:])
}

// Split chunks already-normalized text.
func Split(text string, p Params) ([]Chunk, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	n := len(text)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	ceiling := n/max(1, p.Min-p.Overlap) + 64
	out := make([]Chunk, 0, n/max(1, p.Target-p.Overlap)+1)
	cursor := 0
	prevStart := -1

	for iter := 0; cursor < n; iter++ {
		if iter > ceiling {
			return nil, ErrIterationLimit
		}

		end := n
		if n-cursor > p.Max {
			end = cut(text, cursor+p.Min, cursor+p.Max)
		}

		start, stop := trimSpan(text, cursor, end)
		if stop > start {
			out = append(out, Chunk{Index: len(out), Start: start, End: stop, Text: text[start:stop]})
			prevStart = start
		}
		if end >= n {
			break
		}

		next := end - p.Overlap
		if next <= prevStart {
			next = prevStart + 1
		}
		if next <= cursor {
			next = cursor + 1
		}
		cursor = runeStartForward(text, next)
	}
	return out, nil
}

// ChunkText normalizes text and splits it.
func ChunkText(text string, p Params) ([]Chunk, error) {
	return Split(Normalize(text), p)
}

// cut returns the end offset for a window [lo, hi].
func cut(text string, lo, hi int) int {
	window := text[lo:hi]
	for _, re := range breakpoints {
		locs := re.FindAllStringIndex(window, -1)
		if len(locs) == 0 {
			continue
		}
		last := locs[len(locs)-1]
		return lo + last[1]
	}
	return runeStartBackward(text, hi, lo)
}

func trimSpan(text string, start, end int) (int, int) {
	for start < end && isSpace(text[start]) {
		start++
	}
	for end > start && isSpace(text[end-1]) {
		end--
	}
	return start, end
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r' || b == '\v' || b == '\f'
}

// runeStartBackward moves i back to a rune boundary but never below floor.
func runeStartBackward(text string, i, floor int) int {
	j := i
	for j > floor && j < len(text) && !utf8.RuneStart(text[j]) {
		j--
	}
	if j <= floor {
		return i
	}
	return j
}

func runeStartForward(text string, i int) int {
	for i < len(text) && !utf8.RuneStart(text[i]) {
		i++
	}
	return i
}
