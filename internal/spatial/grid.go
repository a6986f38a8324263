package spatial

import (
	"math"

	"github.com/globulab/globulator/internal/particle"
)

// cell addresses one grid bucket by its integer coordinates
// (floor(x/cellSize), floor(y/cellSize)).
type cell struct {
	cx, cy int
}

// Grid is a uniform hash grid over the image plane, built once per image
// from the globule population. Cells are keyed by integer coordinates, so
// centroids anywhere in the plane are valid; there is no world boundary
// to clamp against.
//
// The grid never removes entries. A globule claimed during the linking
// pass is skipped at query time by its status, which keeps queries
// consistent without mutating cell membership.
//
// Cell size is a fixed per-run configuration value (a good default is
// about three times the expected crescent radius). With an appropriate
// cell size the number of candidates per query stays small regardless of
// image size, which is what makes a pass sub-quadratic compared to an
// all-pairs scan.
type Grid struct {
	cellSize float64
	cells    map[cell][]*particle.Particle
}

// Build indexes all still-unlinked globules into a new grid.
//
// cellSize must be positive; linker.Config.Validate enforces this before
// any pass begins.
func Build(globules []*particle.Particle, cellSize float64) *Grid {
	g := &Grid{
		cellSize: cellSize,
		cells:    make(map[cell][]*particle.Particle),
	}
	for _, p := range globules {
		if p.Status != particle.StatusUnlinked {
			continue
		}
		g.cells[g.cellAt(p.X, p.Y)] = append(g.cells[g.cellAt(p.X, p.Y)], p)
	}
	return g
}

func (g *Grid) cellAt(x, y float64) cell {
	return cell{
		cx: int(math.Floor(x / g.cellSize)),
		cy: int(math.Floor(y / g.cellSize)),
	}
}

// Query returns the unclaimed globules whose centroid lies within radius
// of (x, y), in deterministic order (cell-range scan order, insertion
// order within a cell).
//
// The cell range covers the bounding square of the query circle,
// including partially overlapping cells; membership in a cell only makes
// a globule a candidate, so every candidate is re-checked against the
// exact Euclidean distance. An out-of-range center or an empty
// neighborhood yields an empty result, never an error.
func (g *Grid) Query(x, y, radius float64) []*particle.Particle {
	return g.scan(x, y, radius, particle.StatusUnlinked)
}

// QueryClaimed returns the already-claimed (Used) globules within radius
// of (x, y). The linker uses it to flag claim conflicts for manual
// review; it never influences candidate selection.
func (g *Grid) QueryClaimed(x, y, radius float64) []*particle.Particle {
	return g.scan(x, y, radius, particle.StatusUsed)
}

func (g *Grid) scan(x, y, radius float64, want particle.Status) []*particle.Particle {
	lo := g.cellAt(x-radius, y-radius)
	hi := g.cellAt(x+radius, y+radius)

	var out []*particle.Particle
	for cy := lo.cy; cy <= hi.cy; cy++ {
		for cx := lo.cx; cx <= hi.cx; cx++ {
			for _, p := range g.cells[cell{cx: cx, cy: cy}] {
				if p.Status != want {
					continue
				}
				if p.DistanceTo(x, y) <= radius {
					out = append(out, p)
				}
			}
		}
	}
	return out
}

// Len returns the number of indexed globules.
func (g *Grid) Len() int {
	n := 0
	for _, c := range g.cells {
		n += len(c)
	}
	return n
}
