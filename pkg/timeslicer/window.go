// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package timeslicer

import (
	"iter"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// layoutAware renders timestamps that were given with an explicit offset.
	layoutAware = "2006-01-02T15:04:05.999999999Z07:00"
	// layoutNaive renders timestamps that were given without an offset.
	layoutNaive = "2006-01-02T15:04:05.999999999"
	layoutDate  = "2006-01-02"
)

// Timestamp is a parsed ISO 8601 instant that remembers whether it was given with an offset.
type Timestamp struct {
	time.Time
	naive bool
}

var (
	awareLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999Z0700",
		"2006-01-02T15:04:05.999999999Z07",
		"2006-01-02T15:04Z07:00",
		"2006-01-02T15:04Z0700",
		"2006-01-02T15Z07:00",
		"2006-01-02T15Z0700",
	}
	naiveLayouts = []string{
		layoutNaive,
		"2006-01-02T15:04",
		"2006-01-02T15",
		layoutDate,
	}
)

// ParseTimestamp parses an ISO 8601 date-time with or without offset, or a plain date.
// Date and time may be separated by a space, offsets may omit the colon.
// Values without offset are interpreted as UTC.
func ParseTimestamp(value string) (Timestamp, error) {
	value = strings.TrimSpace(value)
	normalized := value
	if len(normalized) > len(layoutDate) && normalized[len(layoutDate)] == ' ' {
		normalized = normalized[:len(layoutDate)] + "T" + normalized[len(layoutDate)+1:]
	}
	for _, layout := range awareLayouts {
		if t, err := time.Parse(layout, normalized); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, normalized, time.UTC); err == nil {
			return Timestamp{Time: t, naive: true}, nil
		}
	}
	return Timestamp{}, configErrorf("%q is not a valid ISO8601 timestamp", value)
}

// Naive reports whether the timestamp was given without offset.
func (t Timestamp) Naive() bool {
	return t.naive
}

// TimeRange is the validated [Oldest, Newest) range a run walks through.
type TimeRange struct {
	Oldest time.Time
	Newest time.Time

	layout string
}

// NewTimeRange validates the newest (start time) and oldest (end time) boundary.
func NewTimeRange(newest, oldest string) (TimeRange, error) {
	n, err := ParseTimestamp(newest)
	if err != nil {
		return TimeRange{}, errors.Wrap(err, "start time")
	}
	o, err := ParseTimestamp(oldest)
	if err != nil {
		return TimeRange{}, errors.Wrap(err, "end time")
	}
	if n.Naive() != o.Naive() {
		return TimeRange{}, configErrorf("start time %q and end time %q must both either carry a UTC offset or not", newest, oldest)
	}
	if !o.Before(n.Time) {
		return TimeRange{}, configErrorf("end time %q has to be older than start time %q", oldest, newest)
	}

	layout := layoutAware
	if n.Naive() {
		layout = layoutNaive
	}
	return TimeRange{Oldest: o.Time, Newest: n.Time, layout: layout}, nil
}

// Format renders t in the same profile the range boundaries were given in.
func (r TimeRange) Format(t time.Time) string {
	if r.layout == "" {
		return t.Format(layoutAware)
	}
	if r.layout == layoutNaive {
		t = t.UTC()
	}
	return t.Format(r.layout)
}

// Window is one [Begin, End) slice of a TimeRange.
type Window struct {
	Begin time.Time
	End   time.Time
}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Begin)
}

// Cursor walks a TimeRange from the oldest to the newest boundary.
// It is only advanced explicitly, after a window has been processed.
type Cursor struct {
	rng       TimeRange
	increment time.Duration
	position  time.Time
}

// NewCursor creates a cursor positioned at the oldest boundary of rng.
func NewCursor(rng TimeRange, increment time.Duration) (*Cursor, error) {
	if increment <= 0 {
		return nil, configErrorf("increment has to be positive but is %s", increment)
	}
	return &Cursor{
		rng:       rng,
		increment: increment,
		position:  rng.Oldest,
	}, nil
}

// Done reports whether the whole range has been processed.
func (c *Cursor) Done() bool {
	return !c.position.Before(c.rng.Newest)
}

// Position returns the oldest instant that has not been processed yet.
func (c *Cursor) Position() time.Time {
	return c.position
}

// Window returns the next window. The end is clamped to the newest boundary.
func (c *Cursor) Window() Window {
	end := c.position.Add(c.increment)
	if end.After(c.rng.Newest) {
		end = c.rng.Newest
	}
	return Window{Begin: c.position, End: end}
}

// Advance moves the cursor to the end of w. The cursor never moves backwards.
func (c *Cursor) Advance(w Window) {
	if w.End.After(c.position) {
		c.position = w.End
	}
}

// Windows yields all windows of rng in ascending order.
func Windows(rng TimeRange, increment time.Duration) iter.Seq[Window] {
	return func(yield func(Window) bool) {
		c, err := NewCursor(rng, increment)
		if err != nil {
			return
		}
		for !c.Done() {
			w := c.Window()
			if !yield(w) {
				return
			}
			c.Advance(w)
		}
	}
}
