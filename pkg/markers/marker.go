// Package markers manages frame interval markers: editing, the text file
// format and side-by-side alignment of two marker lists.
package markers

import (
	"errors"
	"fmt"
	"sort"
)

// Open is the end frame of a marker that has not been closed yet.
const Open int64 = -1

var (
	// ErrNoOpenMarker is returned when ending a marker while none is open.
	ErrNoOpenMarker = errors.New("markers: no open marker")

	// ErrMarkerAlreadyOpen is returned when starting a marker while one is open.
	ErrMarkerAlreadyOpen = errors.New("markers: a marker is already open")

	// ErrInvalidRange is returned for negative frames or an end before the start.
	ErrInvalidRange = errors.New("markers: invalid frame range")

	// ErrRowOutOfRange is returned for a row index outside the list.
	ErrRowOutOfRange = errors.New("markers: row out of range")

	// ErrColumnOutOfRange is returned for a column other than 0 or 1.
	ErrColumnOutOfRange = errors.New("markers: column out of range")
)

// Marker is a [Start, End] frame interval. End is Open while the marker is
// still being recorded.
type Marker struct {
	Start int64
	End   int64
}

// IsOpen reports whether the marker has no end yet.
func (m Marker) IsOpen() bool {
	return m.End == Open
}

// span returns the interval used for comparison. An open marker compares
// as a zero-length interval at its start.
func (m Marker) span() (int64, int64) {
	if m.IsOpen() {
		return m.Start, m.Start
	}
	return m.Start, m.End
}

func (m Marker) String() string {
	return fmt.Sprintf("%d, %d", m.Start, m.End)
}

// Validate checks that the frames are non-negative and ordered.
func (m Marker) Validate() error {
	if m.Start < 0 || (m.End != Open && m.End < m.Start) {
		return fmt.Errorf("%w: %s", ErrInvalidRange, m)
	}
	return nil
}

// List is an ordered list of markers. Markers are kept in start order by the
// editing operations; loaded files are taken as they are.
type List struct {
	markers []Marker
}

// NewList returns a list holding a copy of ms.
func NewList(ms ...Marker) *List {
	l := &List{markers: make([]Marker, len(ms))}
	copy(l.markers, ms)
	return l
}

// Len returns the number of markers.
func (l *List) Len() int {
	return len(l.markers)
}

// At returns the marker at row i.
func (l *List) At(i int) Marker {
	return l.markers[i]
}

// Markers returns a copy of the markers.
func (l *List) Markers() []Marker {
	out := make([]Marker, len(l.markers))
	copy(out, l.markers)
	return out
}

// Started reports whether a marker is open.
func (l *List) Started() bool {
	return l.openIndex() >= 0
}

func (l *List) openIndex() int {
	for i := len(l.markers) - 1; i >= 0; i-- {
		if l.markers[i].IsOpen() {
			return i
		}
	}
	return -1
}

// EndAndStart closes the open marker at end and opens a new marker at start.
// Either side is skipped when it is Open (-1), so EndAndStart(-1, f) only
// starts a marker and EndAndStart(f, -1) only ends one.
func (l *List) EndAndStart(end, start int64) error {
	if end != Open {
		i := l.openIndex()
		if i < 0 {
			return ErrNoOpenMarker
		}
		closed := Marker{Start: l.markers[i].Start, End: end}
		if err := closed.Validate(); err != nil {
			return err
		}
		l.markers[i] = closed
	}

	if start != Open {
		if l.Started() {
			return ErrMarkerAlreadyOpen
		}
		m := Marker{Start: start, End: Open}
		if err := m.Validate(); err != nil {
			return err
		}
		l.insert(m)
	}
	return nil
}

// insert places m after every marker starting at or before it.
func (l *List) insert(m Marker) {
	i := sort.Search(len(l.markers), func(i int) bool {
		return l.markers[i].Start > m.Start
	})
	l.markers = append(l.markers, Marker{})
	copy(l.markers[i+1:], l.markers[i:])
	l.markers[i] = m
}

// SetCell edits one value of a marker: column 0 is the start, column 1 the end.
func (l *List) SetCell(row, col int, value int64) error {
	if row < 0 || row >= len(l.markers) {
		return fmt.Errorf("%w: %d", ErrRowOutOfRange, row)
	}
	m := l.markers[row]
	switch col {
	case 0:
		m.Start = value
	case 1:
		m.End = value
	default:
		return fmt.Errorf("%w: %d", ErrColumnOutOfRange, col)
	}
	if err := m.Validate(); err != nil {
		return err
	}
	l.markers[row] = m
	return nil
}

// Remove deletes the marker at row.
func (l *List) Remove(row int) error {
	if row < 0 || row >= len(l.markers) {
		return fmt.Errorf("%w: %d", ErrRowOutOfRange, row)
	}
	l.markers = append(l.markers[:row], l.markers[row+1:]...)
	return nil
}

// Clear removes all markers.
func (l *List) Clear() {
	l.markers = l.markers[:0]
}
