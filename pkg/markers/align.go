package markers

// NoColor is the Color of a row that is not highlighted.
const NoColor = -1

// Cell is one side of an aligned row.
type Cell struct {
	Index  int // row in the source list, -1 for a blank placeholder
	Marker Marker
}

// Blank reports whether the cell is a placeholder.
func (c Cell) Blank() bool {
	return c.Index < 0
}

var blankCell = Cell{Index: -1}

// Row is one line of an aligned comparison. Left comes from the first list
// and Right from the second.
type Row struct {
	Left        Cell
	Right       Cell
	Highlighted bool
	Color       int // index into Palette, NoColor when not highlighted
}

// Align lines up two marker lists for a visual diff. Equal markers share an
// unhighlighted row. Mismatches are highlighted, and blank placeholders are
// inserted so that overlapping and nested intervals end up on nearby rows.
// Rows that resolve the same mismatch share a palette color.
//
// The shorter list drives the walk (the first list on a tie); the longer list
// supplies the extra rows. The result is a best-effort alignment.
func Align(a, b *List) []Row {
	al := &aligner{min: a.markers, max: b.markers, minIsA: true}
	if len(a.markers) > len(b.markers) {
		al.min, al.max, al.minIsA = b.markers, a.markers, false
	}
	return al.run()
}

type aligner struct {
	min    []Marker
	max    []Marker
	minIsA bool
	rows   []Row
	colors rotation
}

func (al *aligner) run() []Row {
	iMin, iMax := 0, 0
	for iMin < len(al.min) && iMax < len(al.max) {
		ms, me := al.min[iMin].span()
		xs, xe := al.max[iMax].span()

		switch {
		case ms == xs && me == xe:
			al.emit(iMin, iMax, NoColor)
			iMin++
			iMax++

		case ms == xs:
			c := al.colors.take()
			al.emit(iMin, iMax, c)
			if me > xe {
				next, ok := startOf(al.min, iMin+1)
				iMax = al.absorb(al.max, iMax+1, me, next, ok, func(k int) { al.emit(-1, k, c) })
				iMin++
			} else {
				next, ok := startOf(al.max, iMax+1)
				iMin = al.absorb(al.min, iMin+1, xe, next, ok, func(k int) { al.emit(k, -1, c) })
				iMax++
			}

		case (ms >= xs && me <= xe) || (xs >= ms && xe <= me):
			al.emit(iMin, iMax, al.colors.take())
			iMin++
			iMax++

		case ms >= xe:
			al.emit(-1, iMax, al.colors.take())
			iMax++

		case me <= xs:
			al.emit(iMin, -1, al.colors.take())
			iMin++

		default:
			c := al.colors.take()
			al.emit(iMin, iMax, c)
			inDiff := xe - ms
			j := iMax + 1
			for ; j < len(al.max); j++ {
				s, _ := al.max[j].span()
				if s >= me || me-s <= inDiff {
					break
				}
				al.emit(-1, j, c)
			}
			iMin++
			iMax = j
		}
	}

	if iMax < len(al.max) {
		var lastEnd int64
		if len(al.min) > 0 {
			_, lastEnd = al.min[len(al.min)-1].span()
		}
		for ; iMax < len(al.max); iMax++ {
			c := NoColor
			if s, _ := al.max[iMax].span(); len(al.min) == 0 || s > lastEnd {
				c = al.colors.take()
			}
			al.emit(-1, iMax, c)
		}
	}
	for ; iMin < len(al.min); iMin++ {
		al.emit(iMin, -1, al.colors.take())
	}
	return al.rows
}

// absorb emits the markers of list from index from that belong to a longer
// interval ending at longEnd: they start before longEnd and end closer to it
// than to next, the start of the interval that follows the longer one.
// It returns the index of the first marker not absorbed.
func (al *aligner) absorb(list []Marker, from int, longEnd, next int64, hasNext bool, emit func(int)) int {
	j := from
	for ; j < len(list); j++ {
		s, e := list[j].span()
		if s >= longEnd {
			break
		}
		if hasNext && abs(longEnd-e) >= abs(next-e) {
			break
		}
		emit(j)
	}
	return j
}

// emit appends a row; a negative index is a blank on that side.
func (al *aligner) emit(iMin, iMax, color int) {
	minCell, maxCell := cellAt(al.min, iMin), cellAt(al.max, iMax)
	row := Row{Highlighted: color != NoColor, Color: color}
	if al.minIsA {
		row.Left, row.Right = minCell, maxCell
	} else {
		row.Left, row.Right = maxCell, minCell
	}
	al.rows = append(al.rows, row)
}

func cellAt(list []Marker, i int) Cell {
	if i < 0 {
		return blankCell
	}
	return Cell{Index: i, Marker: list[i]}
}

func startOf(list []Marker, i int) (int64, bool) {
	if i >= len(list) {
		return 0, false
	}
	s, _ := list[i].span()
	return s, true
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
