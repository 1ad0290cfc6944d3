package boids

import "math"

// speedFloorRatio scales min_velocity into the speed floor applied to
// agents that had neighbors. Isolated agents are exempt so they can decay
// toward min_velocity.
const speedFloorRatio = 0.8

// FlockRange computes next-tick velocities for agents [lo, hi). It reads
// only the store's current positions/velocities and the grid built over
// them, and writes only newVX[i], newVY[i], and neighbors[i] for i in the
// range, so disjoint ranges can run concurrently.
//
// Per agent: scan the 3x3 block of cells around its own (cell coordinates
// wrap; the neighbor topology is toroidal regardless of boundary mode),
// accumulate alignment, cohesion, and separation from every visible
// neighbor, then steer and clamp.
func FlockRange(st *Store, g *Grid, p Params, lo, hi int, newVX, newVY []float64, neighbors []int32) {
	posX, posY := st.PosX, st.PosY
	velX, velY := st.VelX, st.VelY
	size := st.Size

	w := g.world.Width()
	h := g.world.Height()
	halfW, halfH := w*0.5, h*0.5
	rovSq := p.RangeOfView * p.RangeOfView
	maxSq := p.MaxVelocity * p.MaxVelocity
	floor := speedFloorRatio * p.MinVelocity
	floorSq := floor * floor
	minSq := p.MinVelocity * p.MinVelocity

	cols, rows := g.cols, g.rows
	// With fewer than three cells on an axis the usual -1..1 offsets
	// alias through the modulo and would visit a cell twice; shrink the
	// scan so each distinct cell is visited exactly once.
	dcxLo, dcxHi := scanRange(cols)
	dcyLo, dcyHi := scanRange(rows)

	for i := lo; i < hi; i++ {
		xi, yi := posX[i], posY[i]
		vxi, vyi := velX[i], velY[i]
		cell := int(g.cellOf[i])
		cx := cell % cols
		cy := cell / cols

		var count int
		var sumVX, sumVY float64 // alignment: neighbor velocities
		var sumDX, sumDY float64 // cohesion: wrapped offsets to neighbors
		var sepVX, sepVY float64 // separation impulse

		for dcy := dcyLo; dcy <= dcyHi; dcy++ {
			ncy := (cy + dcy + rows) % rows
			rowBase := ncy * cols
			for dcx := dcxLo; dcx <= dcxHi; dcx++ {
				ncx := (cx + dcx + cols) % cols
				nc := rowBase + ncx
				for s := g.cellStart[nc]; s < g.cellStart[nc+1]; s++ {
					j := int(g.sorted[s])
					if j == i {
						continue
					}
					// Signed minimum-image offset from i to j; its square
					// is the wrapped distance, so one reduction serves the
					// visibility test, cohesion, and separation direction.
					dx := posX[j] - xi
					if dx > halfW {
						dx -= w
					} else if dx < -halfW {
						dx += w
					}
					dy := posY[j] - yi
					if dy > halfH {
						dy -= h
					} else if dy < -halfH {
						dy += h
					}
					distSq := dx*dx + dy*dy
					if distSq > rovSq {
						continue
					}
					count++
					sumVX += velX[j]
					sumVY += velY[j]
					sumDX += dx
					sumDY += dy

					sumSize := size[i] + size[j]
					if distSq < sumSize*sumSize && distSq > 0 {
						// Coincident agents (distSq == 0) are skipped: no
						// direction to normalize.
						dist := math.Sqrt(distSq)
						sepVX -= dx / dist * p.RepulsionFactor
						sepVY -= dy / dist * p.RepulsionFactor
					}
				}
			}
		}

		nvx, nvy := vxi, vyi
		if count > 0 {
			n := float64(count)
			// Crowded agents respond less to any one signal.
			confusion := 1.0 / (1.0 + n*p.ConfusionFactor)

			avgVX, avgVY := sumVX/n, sumVY/n
			nvx += (avgVX - vxi) * p.AlignmentStrength * confusion
			nvy += (avgVY - vyi) * p.AlignmentStrength * confusion

			avgDX, avgDY := sumDX/n, sumDY/n
			// Cohesion pull weakens as the perceived centroid recedes.
			att := 1.0 / (1.0 + (avgDX*avgDX+avgDY*avgDY)*p.DistanceFactor)
			nvx += avgDX * p.AlignmentStrength * 0.5 * att * confusion
			nvy += avgDY * p.AlignmentStrength * 0.5 * att * confusion

			// Separation last, undamped: collision avoidance must not be
			// softened by crowd size.
			nvx += sepVX
			nvy += sepVY
		} else {
			// Isolated: shed speed toward min_velocity, direction unchanged.
			speedSq := nvx*nvx + nvy*nvy
			if speedSq > minSq {
				speed := math.Sqrt(speedSq)
				target := speed - p.SlowFactor
				if target < p.MinVelocity {
					target = p.MinVelocity
				}
				scale := target / speed
				nvx *= scale
				nvy *= scale
			}
		}

		// Speed clamp. The floor applies only to agents that had
		// neighbors; isolated agents may sit anywhere above min_velocity.
		speedSq := nvx*nvx + nvy*nvy
		if speedSq > maxSq {
			scale := p.MaxVelocity / math.Sqrt(speedSq)
			nvx *= scale
			nvy *= scale
		} else if count > 0 && speedSq > 0 && speedSq < floorSq {
			scale := floor / math.Sqrt(speedSq)
			nvx *= scale
			nvy *= scale
		}

		newVX[i] = nvx
		newVY[i] = nvy
		neighbors[i] = int32(count)
	}
}

// scanRange returns the cell-offset range covering up to three distinct
// cells along an axis of n cells.
func scanRange(n int) (lo, hi int) {
	switch {
	case n >= 3:
		return -1, 1
	case n == 2:
		return 0, 1
	default:
		return 0, 0
	}
}
