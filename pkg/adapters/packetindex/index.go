// Package packetindex keeps the ordered list of video access units of a
// demuxed file and the read cursor over it.
package packetindex

import (
	"errors"
	"io"
	"sort"

	"github.com/user/framemark/pkg/ports"
)

// ErrEmpty is returned when seeking in an index without entries.
var ErrEmpty = errors.New("packetindex: no packets")

// Entry is one access unit. Loc is demuxer specific: a byte offset, a
// sample number or an ordinal, whatever the demuxer needs to fetch Data
// lazily. Data may be nil when the demuxer loads it on read.
type Entry struct {
	DTS      int64
	PTS      int64
	Duration int64
	Keyframe bool
	Loc      int64
	Size     int
	Data     []byte
}

// Index is an ordered list of entries with a cursor.
type Index struct {
	entries []Entry
	next    int
}

// Append adds an entry in decode order.
func (x *Index) Append(e Entry) {
	x.entries = append(x.entries, e)
}

// Len returns the number of entries.
func (x *Index) Len() int {
	return len(x.entries)
}

// At returns the i-th entry.
func (x *Index) At(i int) Entry {
	return x.entries[i]
}

// Keyframes counts the keyframe entries.
func (x *Index) Keyframes() int {
	n := 0
	for _, e := range x.entries {
		if e.Keyframe {
			n++
		}
	}
	return n
}

// Next returns the position of the entry the next read returns.
func (x *Index) Next() int {
	return x.next
}

// Read returns the entry under the cursor and advances it, or io.EOF.
func (x *Index) Read() (Entry, int, error) {
	if x.next >= len(x.entries) {
		return Entry{}, x.next, io.EOF
	}
	i := x.next
	x.next++
	return x.entries[i], i, nil
}

// Rewind puts the cursor on the first entry.
func (x *Index) Rewind() {
	x.next = 0
}

// SeekKeyframe puts the cursor on the last keyframe that is at or before
// target: by decode timestamp for SeekBackward and by position for
// SeekFrame. A target before the first keyframe selects the first one.
func (x *Index) SeekKeyframe(target int64, flag ports.SeekFlag) error {
	if len(x.entries) == 0 {
		return ErrEmpty
	}

	var limit int
	if flag == ports.SeekFrame {
		limit = int(min(max(target, 0), int64(len(x.entries)-1)))
	} else {
		// First entry after target, then step back into range.
		limit = sort.Search(len(x.entries), func(i int) bool {
			return x.entries[i].DTS > target
		}) - 1
	}

	for i := limit; i >= 0; i-- {
		if x.entries[i].Keyframe {
			x.next = i
			return nil
		}
	}
	for i := range x.entries {
		if x.entries[i].Keyframe {
			x.next = i
			return nil
		}
	}
	x.next = 0
	return nil
}

// FirstDTS returns the decode timestamp of the first entry, or NoTimestamp.
func (x *Index) FirstDTS() int64 {
	if len(x.entries) == 0 {
		return ports.NoTimestamp
	}
	return x.entries[0].DTS
}

// MinPTS returns the smallest presentation timestamp, or NoTimestamp.
func (x *Index) MinPTS() int64 {
	if len(x.entries) == 0 {
		return ports.NoTimestamp
	}
	m := x.entries[0].PTS
	for _, e := range x.entries[1:] {
		if e.PTS != ports.NoTimestamp && (m == ports.NoTimestamp || e.PTS < m) {
			m = e.PTS
		}
	}
	return m
}

// FrameDuration estimates the nominal frame duration from the median
// decode timestamp step of the first entries. It returns 0 when fewer than
// two entries carry timestamps.
func (x *Index) FrameDuration() int64 {
	const sample = 120
	var steps []int64
	for i := 1; i < len(x.entries) && i <= sample; i++ {
		a, b := x.entries[i-1].DTS, x.entries[i].DTS
		if a == ports.NoTimestamp || b == ports.NoTimestamp || b <= a {
			continue
		}
		steps = append(steps, b-a)
	}
	if len(steps) == 0 {
		return 0
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i] < steps[j] })
	return steps[len(steps)/2]
}

// Span returns last DTS + duration - first DTS, in stream ticks.
func (x *Index) Span() int64 {
	if len(x.entries) == 0 {
		return 0
	}
	last := x.entries[len(x.entries)-1]
	d := last.Duration
	if d <= 0 {
		d = x.FrameDuration()
	}
	return last.DTS + d - x.entries[0].DTS
}
