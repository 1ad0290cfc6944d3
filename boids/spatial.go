package boids

import "math"

// World describes the rectangular simulation area, centered on the origin
// by convention but representable with any bounds.
type World struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// NewWorld returns a world of the given extents centered on the origin.
func NewWorld(width, height float64) World {
	return World{
		MinX: -width / 2, MinY: -height / 2,
		MaxX: width / 2, MaxY: height / 2,
	}
}

// Width returns the world extent along x.
func (w World) Width() float64 { return w.MaxX - w.MinX }

// Height returns the world extent along y.
func (w World) Height() float64 { return w.MaxY - w.MinY }

// WrapDistSq returns the squared minimum-image distance between two points
// on a torus of extents w, h. Squared to avoid sqrt in the hot path.
func WrapDistSq(x1, y1, x2, y2, w, h float64) float64 {
	dx := math.Abs(x1 - x2)
	dy := math.Abs(y1 - y2)
	if dx > w*0.5 {
		dx = w - dx
	}
	if dy > h*0.5 {
		dy = h - dy
	}
	return dx*dx + dy*dy
}

// WrapDelta returns the signed shortest offset from (x1,y1) to (x2,y2)
// across the wrap seam on a torus of extents w, h.
func WrapDelta(x1, y1, x2, y2, w, h float64) (dx, dy float64) {
	dx = x2 - x1
	dy = y2 - y1
	if dx > w*0.5 {
		dx -= w
	} else if dx < -w*0.5 {
		dx += w
	}
	if dy > h*0.5 {
		dy -= h
	} else if dy < -h*0.5 {
		dy += h
	}
	return dx, dy
}

// Grid is the per-tick spatial hash: a uniform cell grid over the world
// with active agent indices bucket-sorted into contiguous per-cell runs.
// It is rebuilt from scratch every tick and never updated incrementally.
type Grid struct {
	world World
	cellW float64
	cellH float64
	cols  int
	rows  int

	// Counting-sort buffers. cellOf and sorted are sized once for the
	// store capacity; counts and cellStart are resized only when the
	// grid geometry changes.
	cellOf    []int32 // cell index per agent, valid for [0, n)
	counts    []int32 // per-cell occupancy, reused as scatter cursors
	cellStart []int32 // prefix sums, len totalCells+1
	sorted    []int32 // agent indices grouped by cell
	n         int     // agents in the last Build
}

// NewGrid creates a grid over the world sized for capacity agents, with
// cell geometry derived from the given view range.
func NewGrid(world World, capacity int, rangeOfView float64) *Grid {
	g := &Grid{
		world:  world,
		cellOf: make([]int32, capacity),
		sorted: make([]int32, capacity),
	}
	g.Reconfigure(rangeOfView)
	return g
}

// Reconfigure recomputes cell size and grid dimensions for a new view
// range. The minimum cell edge is floored at 1.0 so a tiny view range
// cannot explode the cell count. Dimensions are the floor of extent over
// that minimum, with the cell size recomputed as extent/cells: every cell
// is then at least the view range wide, so the 3x3 wrapped scan cannot
// miss a visible neighbor. Ceiling division would instead leave a
// narrower remainder cell at the seam and drop neighbors across it.
// Must be called before the next Build whenever range_of_view changes.
func (g *Grid) Reconfigure(rangeOfView float64) {
	minCell := rangeOfView
	if minCell < 1.0 {
		minCell = 1.0
	}
	cols := int(g.world.Width() / minCell)
	if cols < 1 {
		cols = 1
	}
	rows := int(g.world.Height() / minCell)
	if rows < 1 {
		rows = 1
	}
	g.cellW = g.world.Width() / float64(cols)
	g.cellH = g.world.Height() / float64(rows)
	g.cols = cols
	g.rows = rows

	total := cols * rows
	if cap(g.counts) < total {
		g.counts = make([]int32, total)
		g.cellStart = make([]int32, total+1)
	} else {
		g.counts = g.counts[:total]
		g.cellStart = g.cellStart[:total+1]
	}
}

// Cols returns the number of grid columns.
func (g *Grid) Cols() int { return g.cols }

// Rows returns the number of grid rows.
func (g *Grid) Rows() int { return g.rows }

// CellSize returns the current cell edge lengths. Cells are square only
// when the world extents divide evenly.
func (g *Grid) CellSize() (w, h float64) { return g.cellW, g.cellH }

// cellIndex maps a position to its flat cell index, clamped to the grid.
func (g *Grid) cellIndex(x, y float64) int32 {
	cx := int((x - g.world.MinX) / g.cellW)
	cy := int((y - g.world.MinY) / g.cellH)
	if cx < 0 {
		cx = 0
	} else if cx >= g.cols {
		cx = g.cols - 1
	}
	if cy < 0 {
		cy = 0
	} else if cy >= g.rows {
		cy = g.rows - 1
	}
	return int32(cy*g.cols + cx)
}

// Build bucket-sorts the first n agents into per-cell runs. Counting sort:
// assign cells, count occupancy, prefix-sum into start offsets, scatter.
// O(n) time, no allocations.
func (g *Grid) Build(posX, posY []float64, n int) {
	g.n = n
	counts := g.counts
	for i := range counts {
		counts[i] = 0
	}

	for i := 0; i < n; i++ {
		c := g.cellIndex(posX[i], posY[i])
		g.cellOf[i] = c
		counts[c]++
	}

	g.cellStart[0] = 0
	for c := range counts {
		g.cellStart[c+1] = g.cellStart[c] + counts[c]
	}

	// Reuse counts as per-cell scatter cursors.
	for i := range counts {
		counts[i] = 0
	}
	for i := 0; i < n; i++ {
		c := g.cellOf[i]
		g.sorted[g.cellStart[c]+counts[c]] = int32(i)
		counts[c]++
	}
}

// CellOf returns the cell index assigned to agent i in the last Build.
func (g *Grid) CellOf(i int) int { return int(g.cellOf[i]) }

// CellRun returns the half-open range [start, end) into Sorted holding
// the agents of the given cell.
func (g *Grid) CellRun(cell int) (start, end int) {
	return int(g.cellStart[cell]), int(g.cellStart[cell+1])
}

// Sorted returns the agent indices grouped by cell, valid until the next
// Build or Reconfigure.
func (g *Grid) Sorted() []int32 { return g.sorted[:g.n] }
