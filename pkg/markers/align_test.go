package markers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type wantRow struct {
	left, right string // "" for a blank
	highlighted bool
}

func rowsText(rows []Row) []wantRow {
	out := make([]wantRow, len(rows))
	for i, r := range rows {
		out[i] = wantRow{left: cellText(r.Left), right: cellText(r.Right), highlighted: r.Highlighted}
	}
	return out
}

func m(s, e int64) Marker { return Marker{Start: s, End: e} }

func TestAlign_ExactMatch(t *testing.T) {
	rows := Align(NewList(m(10, 20), m(30, 40)), NewList(m(10, 20), m(30, 40)))

	require.Equal(t, []wantRow{
		{"10, 20", "10, 20", false},
		{"30, 40", "30, 40", false},
	}, rowsText(rows))
	for _, r := range rows {
		require.Equal(t, NoColor, r.Color)
	}
}

func TestAlign_DisjointInsertion(t *testing.T) {
	rows := Align(NewList(m(0, 10), m(50, 60)), NewList(m(0, 10), m(20, 30), m(50, 60)))

	require.Equal(t, []wantRow{
		{"0, 10", "0, 10", false},
		{"", "20, 30", true},
		{"50, 60", "50, 60", false},
	}, rowsText(rows))
	require.Equal(t, 1, rows[1].Right.Index)
	require.True(t, rows[1].Left.Blank())
}

func TestAlign_Containment(t *testing.T) {
	rows := Align(NewList(m(10, 50)), NewList(m(10, 20), m(30, 50)))

	require.Equal(t, []wantRow{
		{"10, 50", "10, 20", true},
		{"", "30, 50", true},
	}, rowsText(rows))
	require.Equal(t, rows[0].Color, rows[1].Color)
}

func TestAlign_NestedInsideDifferentStart(t *testing.T) {
	rows := Align(NewList(m(0, 100)), NewList(m(10, 20)))

	require.Equal(t, []wantRow{{"0, 100", "10, 20", true}}, rowsText(rows))
}

func TestAlign_SameStartStopsAtNextInterval(t *testing.T) {
	a := NewList(m(0, 50), m(60, 70))
	b := NewList(m(0, 20), m(25, 48), m(55, 58), m(60, 70))

	rows := Align(a, b)

	require.Equal(t, []wantRow{
		{"0, 50", "0, 20", true},
		{"", "25, 48", true},
		{"", "55, 58", true},
		{"60, 70", "60, 70", false},
	}, rowsText(rows))
	require.Equal(t, rows[0].Color, rows[1].Color)
	require.NotEqual(t, rows[1].Color, rows[2].Color)
}

func TestAlign_SameStartShorterListIsLonger(t *testing.T) {
	a := NewList(m(0, 10), m(12, 28), m(40, 50))
	b := NewList(m(0, 30), m(40, 50), m(60, 70), m(80, 90))

	rows := Align(a, b)

	require.Equal(t, []wantRow{
		{"0, 10", "0, 30", true},
		{"12, 28", "", true},
		{"40, 50", "40, 50", false},
		{"", "60, 70", true},
		{"", "80, 90", true},
	}, rowsText(rows))
}

func TestAlign_SidesFollowArguments(t *testing.T) {
	// b is the shorter list, so it drives the walk; a still prints on the left.
	a := NewList(m(0, 10), m(12, 20), m(40, 50))
	b := NewList(m(0, 20), m(40, 50))

	rows := Align(a, b)

	require.Equal(t, []wantRow{
		{"0, 10", "0, 20", true},
		{"12, 20", "", true},
		{"40, 50", "40, 50", false},
	}, rowsText(rows))
	require.Equal(t, 1, rows[1].Left.Index)
}

func TestAlign_PartialOverlap(t *testing.T) {
	a := NewList(m(10, 100))
	b := NewList(m(0, 20), m(30, 40), m(95, 120))

	rows := Align(a, b)

	require.Equal(t, []wantRow{
		{"10, 100", "0, 20", true},
		{"", "30, 40", true},
		{"", "95, 120", false},
	}, rowsText(rows))
	require.Equal(t, rows[0].Color, rows[1].Color)
	require.Equal(t, NoColor, rows[2].Color)
}

func TestAlign_LeftoverRowsOnBothSides(t *testing.T) {
	a := NewList(m(0, 10), m(20, 30))
	b := NewList(m(100, 110), m(200, 210))

	rows := Align(a, b)

	require.Equal(t, []wantRow{
		{"0, 10", "", true},
		{"20, 30", "", true},
		{"", "100, 110", true},
		{"", "200, 210", true},
	}, rowsText(rows))
	for i, r := range rows {
		require.Equal(t, i, r.Color)
	}
}

func TestAlign_EmptyLists(t *testing.T) {
	require.Empty(t, Align(NewList(), NewList()))

	rows := Align(NewList(), NewList(m(1, 2), m(3, 4)))
	require.Len(t, rows, 2)
	for _, r := range rows {
		require.True(t, r.Highlighted)
		require.True(t, r.Left.Blank())
	}
}

func TestAlign_OpenMarkerComparesAtStart(t *testing.T) {
	rows := Align(NewList(m(0, 10), m(40, Open)), NewList(m(0, 10), m(40, 50)))

	require.Equal(t, []wantRow{
		{"0, 10", "0, 10", false},
		{"40, -1", "40, 50", true},
	}, rowsText(rows))
}

func TestAlign_PaletteWraps(t *testing.T) {
	var bs []Marker
	for i := int64(0); i < 7; i++ {
		bs = append(bs, m(i*10, i*10+5))
	}

	rows := Align(NewList(), NewList(bs...))

	require.Len(t, rows, 7)
	require.Equal(t, 0, rows[5].Color)
	require.Equal(t, 1, rows[6].Color)
}
