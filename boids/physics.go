package boids

// IntegrateRange advances positions by one velocity step for agents
// [lo, hi) and applies the boundary policy. Each axis is handled
// independently: an agent can wrap or bounce on x and y in the same tick.
// Writes touch only the agents in the range, so disjoint ranges can run
// concurrently.
func IntegrateRange(st *Store, mode BoundaryMode, lo, hi int) {
	w := st.world
	switch mode {
	case BoundaryBounce:
		for i := lo; i < hi; i++ {
			x := st.PosX[i] + st.VelX[i]
			if x > w.MaxX {
				x = w.MaxX
				st.VelX[i] = -st.VelX[i]
			} else if x < w.MinX {
				x = w.MinX
				st.VelX[i] = -st.VelX[i]
			}
			st.PosX[i] = x

			y := st.PosY[i] + st.VelY[i]
			if y > w.MaxY {
				y = w.MaxY
				st.VelY[i] = -st.VelY[i]
			} else if y < w.MinY {
				y = w.MinY
				st.VelY[i] = -st.VelY[i]
			}
			st.PosY[i] = y
		}
	default: // BoundaryWrap
		for i := lo; i < hi; i++ {
			x := st.PosX[i] + st.VelX[i]
			if x > w.MaxX {
				x = w.MinX
			} else if x < w.MinX {
				x = w.MaxX
			}
			st.PosX[i] = x

			y := st.PosY[i] + st.VelY[i]
			if y > w.MaxY {
				y = w.MinY
			} else if y < w.MinY {
				y = w.MaxY
			}
			st.PosY[i] = y
		}
	}
}
