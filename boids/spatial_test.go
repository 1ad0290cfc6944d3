package boids

import (
	"math"
	"math/rand"
	"sort"
	"testing"
)

// TestWrapDistSq_Symmetry verifies d(a,b) == d(b,a) and that the wrapped
// distance never exceeds half the world diagonal.
func TestWrapDistSq_Symmetry(t *testing.T) {
	const w, h = 200.0, 200.0
	maxDiagSq := (w/2)*(w/2) + (h/2)*(h/2)

	rng := rand.New(rand.NewSource(7))
	for n := 0; n < 1000; n++ {
		x1 := rng.Float64()*w - w/2
		y1 := rng.Float64()*h - h/2
		x2 := rng.Float64()*w - w/2
		y2 := rng.Float64()*h - h/2

		ab := WrapDistSq(x1, y1, x2, y2, w, h)
		ba := WrapDistSq(x2, y2, x1, y1, w, h)
		if ab != ba {
			t.Fatalf("asymmetric: d(a,b)=%f d(b,a)=%f", ab, ba)
		}
		if ab > maxDiagSq+1e-9 {
			t.Fatalf("distSq %f exceeds half-diagonal bound %f", ab, maxDiagSq)
		}
	}
}

// TestWrapDistSq_Seam verifies points near opposite edges are close.
func TestWrapDistSq_Seam(t *testing.T) {
	tests := []struct {
		name           string
		x1, y1, x2, y2 float64
		want           float64
	}{
		{name: "plain", x1: 0, y1: 0, x2: 3, y2: 4, want: 25},
		{name: "x seam", x1: -99, y1: 0, x2: 99, y2: 0, want: 4},
		{name: "y seam", x1: 0, y1: 98, x2: 0, y2: -99, want: 9},
		{name: "both seams", x1: -99, y1: 99, x2: 99, y2: -99, want: 8},
		{name: "exact half extent", x1: -50, y1: 0, x2: 50, y2: 0, want: 10000},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := WrapDistSq(tc.x1, tc.y1, tc.x2, tc.y2, 200, 200)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("WrapDistSq = %f, want %f", got, tc.want)
			}
		})
	}
}

// TestWrapDelta_SignedShortestPath verifies the offset points the short
// way around and its square matches WrapDistSq.
func TestWrapDelta_SignedShortestPath(t *testing.T) {
	tests := []struct {
		name           string
		x1, y1, x2, y2 float64
		wantDX, wantDY float64
	}{
		{name: "plain", x1: 0, y1: 0, x2: 3, y2: -4, wantDX: 3, wantDY: -4},
		{name: "across x seam", x1: -99, y1: 0, x2: 99, y2: 0, wantDX: -2, wantDY: 0},
		{name: "across y seam", x1: 0, y1: 99, x2: 0, y2: -99, wantDX: 0, wantDY: 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dx, dy := WrapDelta(tc.x1, tc.y1, tc.x2, tc.y2, 200, 200)
			if math.Abs(dx-tc.wantDX) > 1e-9 || math.Abs(dy-tc.wantDY) > 1e-9 {
				t.Errorf("WrapDelta = (%f, %f), want (%f, %f)", dx, dy, tc.wantDX, tc.wantDY)
			}
			distSq := WrapDistSq(tc.x1, tc.y1, tc.x2, tc.y2, 200, 200)
			if math.Abs(dx*dx+dy*dy-distSq) > 1e-9 {
				t.Errorf("|delta|^2 = %f disagrees with WrapDistSq %f", dx*dx+dy*dy, distSq)
			}
		})
	}
}

// TestGrid_Geometry verifies grid dimensions and that every cell is at
// least the view range wide (floored at 1.0), so the 3x3 scan guarantee
// holds even when the world extent is not a multiple of the view range.
func TestGrid_Geometry(t *testing.T) {
	tests := []struct {
		name         string
		rov          float64
		wantCellSize float64
		wantCols     int
		wantRows     int
	}{
		{name: "default view range", rov: 3.0, wantCellSize: 200.0 / 66.0, wantCols: 66, wantRows: 66},
		{name: "tiny range floors cell size", rov: 0.25, wantCellSize: 1.0, wantCols: 200, wantRows: 200},
		{name: "huge range collapses grid", rov: 500, wantCellSize: 200, wantCols: 1, wantRows: 1},
		{name: "half world", rov: 100, wantCellSize: 100, wantCols: 2, wantRows: 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGrid(NewWorld(200, 200), 10, tc.rov)
			cw, ch := g.CellSize()
			if cw != tc.wantCellSize || ch != tc.wantCellSize {
				t.Errorf("CellSize() = (%f, %f), want %f", cw, ch, tc.wantCellSize)
			}
			if g.Cols() > 1 && cw < tc.rov {
				t.Errorf("cell width %f below view range %f", cw, tc.rov)
			}
			if g.Cols() != tc.wantCols || g.Rows() != tc.wantRows {
				t.Errorf("grid = %dx%d, want %dx%d", g.Cols(), g.Rows(), tc.wantCols, tc.wantRows)
			}
		})
	}
}

// TestGrid_CellIndexClamps verifies out-of-range positions clamp to edge
// cells instead of indexing out of bounds.
func TestGrid_CellIndexClamps(t *testing.T) {
	g := NewGrid(NewWorld(200, 200), 10, 10)

	// Exactly at the upper bound: (100 - (-100))/10 = 20, one past the
	// last column, must clamp to 19.
	c := g.cellIndex(100, 100)
	wantLast := int32(g.rows*g.cols - 1)
	if c != wantLast {
		t.Errorf("cellIndex(100,100) = %d, want %d", c, wantLast)
	}
	if got := g.cellIndex(-100, -100); got != 0 {
		t.Errorf("cellIndex(-100,-100) = %d, want 0", got)
	}
	// Slightly outside (possible transiently before the boundary pass).
	if got := g.cellIndex(-100.5, 0); got != g.cellIndex(-100, 0) {
		t.Errorf("below-min x not clamped to first column")
	}
}

// TestGrid_BuildRunsAreConsistent verifies the counting sort: every active
// agent appears exactly once, inside the run of its own cell.
func TestGrid_BuildRunsAreConsistent(t *testing.T) {
	const n = 500
	world := NewWorld(200, 200)
	rng := rand.New(rand.NewSource(3))
	px := make([]float64, n)
	py := make([]float64, n)
	for i := range px {
		px[i] = world.MinX + rng.Float64()*world.Width()
		py[i] = world.MinY + rng.Float64()*world.Height()
	}

	g := NewGrid(world, n, 3.0)
	g.Build(px, py, n)

	seen := make([]bool, n)
	total := 0
	for cell := 0; cell < g.Cols()*g.Rows(); cell++ {
		start, end := g.CellRun(cell)
		for s := start; s < end; s++ {
			i := int(g.Sorted()[s])
			if seen[i] {
				t.Fatalf("agent %d appears twice", i)
			}
			seen[i] = true
			if g.CellOf(i) != cell {
				t.Fatalf("agent %d in run of cell %d but CellOf = %d", i, cell, g.CellOf(i))
			}
			total++
		}
	}
	if total != n {
		t.Fatalf("runs cover %d agents, want %d", total, n)
	}
}

// TestGrid_ReconfigureChangesGeometry verifies a view-range change takes
// effect on the next build.
func TestGrid_ReconfigureChangesGeometry(t *testing.T) {
	world := NewWorld(200, 200)
	g := NewGrid(world, 100, 3.0)
	if g.Cols() != 66 {
		t.Fatalf("initial cols = %d, want 66", g.Cols())
	}

	g.Reconfigure(10.0)
	if g.Cols() != 20 || g.Rows() != 20 {
		t.Fatalf("after Reconfigure(10): grid = %dx%d, want 20x20", g.Cols(), g.Rows())
	}

	px := []float64{0, 5, -99}
	py := []float64{0, 5, 99}
	g.Build(px, py, 3)
	start, end := g.CellRun(g.CellOf(0))
	if end <= start {
		t.Error("agent 0's cell run is empty after rebuild")
	}
}

// hashNeighbors returns the neighbor set of agent i found by scanning the
// 3x3 (wrapped, deduplicated) cell block, the same traversal the kernel
// uses.
func hashNeighbors(g *Grid, px, py []float64, i int, rovSq float64) []int {
	w, h := g.world.Width(), g.world.Height()
	cell := int(g.cellOf[i])
	cx := cell % g.cols
	cy := cell / g.cols
	dcxLo, dcxHi := scanRange(g.cols)
	dcyLo, dcyHi := scanRange(g.rows)

	var out []int
	for dcy := dcyLo; dcy <= dcyHi; dcy++ {
		ncy := (cy + dcy + g.rows) % g.rows
		for dcx := dcxLo; dcx <= dcxHi; dcx++ {
			ncx := (cx + dcx + g.cols) % g.cols
			nc := ncy*g.cols + ncx
			for s := g.cellStart[nc]; s < g.cellStart[nc+1]; s++ {
				j := int(g.sorted[s])
				if j == i {
					continue
				}
				if WrapDistSq(px[i], py[i], px[j], py[j], w, h) <= rovSq {
					out = append(out, j)
				}
			}
		}
	}
	sort.Ints(out)
	return out
}

// bruteNeighbors returns the neighbor set of agent i by checking every
// other agent with the wrapped distance.
func bruteNeighbors(px, py []float64, n, i int, rovSq, w, h float64) []int {
	var out []int
	for j := 0; j < n; j++ {
		if j == i {
			continue
		}
		if WrapDistSq(px[i], py[i], px[j], py[j], w, h) <= rovSq {
			out = append(out, j)
		}
	}
	sort.Ints(out)
	return out
}

// TestGrid_MatchesBruteForce verifies the hashed 3x3 scan finds exactly
// the brute-force neighbor set, including across the wrap seam.
func TestGrid_MatchesBruteForce(t *testing.T) {
	tests := []struct {
		name  string
		width float64
		rov   float64
		n     int
	}{
		{name: "dense default grid", width: 60, rov: 3.0, n: 300},
		{name: "small world", width: 20, rov: 3.0, n: 100},
		{name: "two-column grid", width: 200, rov: 100, n: 60},
		{name: "single-cell grid", width: 200, rov: 500, n: 40},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			world := NewWorld(tc.width, tc.width)
			rng := rand.New(rand.NewSource(11))
			px := make([]float64, tc.n)
			py := make([]float64, tc.n)
			for i := range px {
				px[i] = world.MinX + rng.Float64()*world.Width()
				py[i] = world.MinY + rng.Float64()*world.Height()
			}

			g := NewGrid(world, tc.n, tc.rov)
			g.Build(px, py, tc.n)

			rovSq := tc.rov * tc.rov
			for i := 0; i < tc.n; i++ {
				want := bruteNeighbors(px, py, tc.n, i, rovSq, world.Width(), world.Height())
				got := hashNeighbors(g, px, py, i, rovSq)
				if len(got) != len(want) {
					t.Fatalf("agent %d: hash found %d neighbors, brute force %d", i, len(got), len(want))
				}
				for k := range want {
					if got[k] != want[k] {
						t.Fatalf("agent %d: neighbor sets differ at %d: got %d, want %d", i, k, got[k], want[k])
					}
				}
			}
		})
	}
}

// TestGrid_SeamBandMatchesBruteForce pins the case where the world extent
// is not a multiple of the view range: agents within view range across the
// wrap seam but several columns apart in cell space. A grid sized by
// ceiling division leaves a narrow remainder column at the seam and the
// 3x3 scan misses such pairs.
func TestGrid_SeamBandMatchesBruteForce(t *testing.T) {
	world := NewWorld(20, 20)
	px := []float64{7.9, -9.8}
	py := []float64{0, 0}

	g := NewGrid(world, 2, 3.0)
	g.Build(px, py, 2)

	const rovSq = 3.0 * 3.0
	if d := WrapDistSq(px[0], py[0], px[1], py[1], 20, 20); d > rovSq {
		t.Fatalf("placement drifted: wrapped distSq = %f, want <= %f", d, rovSq)
	}
	for i := 0; i < 2; i++ {
		if got := hashNeighbors(g, px, py, i, rovSq); len(got) != 1 {
			t.Fatalf("agent %d: hash found %d neighbors, brute force 1", i, len(got))
		}
	}

	// Sweep the band: every agent within one view range of the x seam of
	// the default world, random y. Hash and brute force must agree for all.
	const n = 200
	bandWorld := NewWorld(200, 200)
	rng := rand.New(rand.NewSource(23))
	bx := make([]float64, n)
	by := make([]float64, n)
	for i := range bx {
		off := rng.Float64() * 3.0
		if rng.Intn(2) == 0 {
			bx[i] = bandWorld.MaxX - off
		} else {
			bx[i] = bandWorld.MinX + off
		}
		by[i] = bandWorld.MinY + rng.Float64()*bandWorld.Height()
	}

	bg := NewGrid(bandWorld, n, 3.0)
	bg.Build(bx, by, n)
	for i := 0; i < n; i++ {
		want := bruteNeighbors(bx, by, n, i, rovSq, 200, 200)
		got := hashNeighbors(bg, bx, by, i, rovSq)
		if len(got) != len(want) {
			t.Fatalf("agent %d: hash found %d neighbors, brute force %d", i, len(got), len(want))
		}
		for k := range want {
			if got[k] != want[k] {
				t.Fatalf("agent %d: neighbor sets differ at %d: got %d, want %d", i, k, got[k], want[k])
			}
		}
	}
}

// BenchmarkGrid_Build measures the full counting-sort rebuild.
func BenchmarkGrid_Build(b *testing.B) {
	const n = 5000
	world := NewWorld(200, 200)
	rng := rand.New(rand.NewSource(1))
	px := make([]float64, n)
	py := make([]float64, n)
	for i := range px {
		px[i] = world.MinX + rng.Float64()*world.Width()
		py[i] = world.MinY + rng.Float64()*world.Height()
	}
	g := NewGrid(world, n, 3.0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.Build(px, py, n)
	}
}
