package thumbnail

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Position is the point of the video a thumbnail is captured at, either a
// fraction of the duration or an absolute offset.
type Position struct {
	fraction float64
	offset   time.Duration
	relative bool
}

// DefaultPosition captures at a quarter of the duration.
var DefaultPosition = Relative(0.25)

// Relative returns a position at fraction (0..1) of the duration.
func Relative(fraction float64) Position {
	return Position{fraction: fraction, relative: true}
}

// At returns an absolute position.
func At(offset time.Duration) Position {
	return Position{offset: offset}
}

// ParsePosition accepts "25%" style percentages or a number of seconds.
func ParsePosition(s string) (Position, error) {
	s = strings.TrimSpace(s)
	if pct, ok := strings.CutSuffix(s, "%"); ok {
		v, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		if err != nil || v < 0 || v > 100 {
			return Position{}, fmt.Errorf("invalid thumbnail position %q", s)
		}
		return Relative(v / 100), nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil || secs < 0 {
		return Position{}, fmt.Errorf("invalid thumbnail position %q", s)
	}
	return At(time.Duration(secs * float64(time.Second))), nil
}

// IsRelative reports whether the position depends on the video duration.
func (p Position) IsRelative() bool { return p.relative }

// Resolve returns the offset in seconds for a video of the given duration.
// An unknown (zero) duration resolves relative positions to the first frame.
func (p Position) Resolve(durationSeconds float64) float64 {
	if !p.relative {
		return p.offset.Seconds()
	}
	if durationSeconds <= 0 {
		return 0
	}
	return durationSeconds * p.fraction
}

func (p Position) String() string {
	if p.relative {
		return strconv.FormatFloat(p.fraction*100, 'f', -1, 64) + "%"
	}
	return strconv.FormatFloat(p.offset.Seconds(), 'f', -1, 64)
}
