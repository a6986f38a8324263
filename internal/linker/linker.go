package linker

import (
	"sort"

	"github.com/globulab/globulator/internal/particle"
	"github.com/globulab/globulator/internal/spatial"
)

// Link runs one linking pass over a single image's populations and
// returns the resulting partition.
//
// Crescents are processed in a fixed priority order: descending area,
// ties broken by ascending ID. The order is semantic, not incidental:
// an earlier crescent can claim a shared candidate globule before a
// later one sees it, so larger crescents win contested globules.
//
// Per crescent the pass:
//
//  1. sizes the search radius as Radius() * SearchRadiusFactor,
//  2. queries the grid for unclaimed globules within that radius,
//  3. keeps candidates with area >= crescent area * MinAreaRatio,
//  4. claims the largest survivor (ties: nearest centroid, then lowest
//     ID), marking the globule Used and the crescent Linked with mutual
//     LinkRefs.
//
// A crescent with no candidates at all stays Unlinked (free). A crescent
// whose candidates all fail the area filter becomes Ambiguous. A claimed
// globule that a later crescent's filters would have accepted is flagged
// for review without reopening the assignment; there is no backtracking.
//
// Link mutates only the Status and LinkRef fields of the given stores.
// It fails with ErrInvalidConfiguration before touching either store;
// empty populations are a valid, trivial input producing empty result
// sequences. The pass is single-threaded by design: claim order decides
// contested globules, so intra-image parallelism would break the
// at-most-one-claim invariant. Run separate images concurrently instead.
func Link(globules, crescents *particle.Store, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	order := make([]*particle.Particle, len(crescents.Particles))
	copy(order, crescents.Particles)
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].Area != order[j].Area {
			return order[i].Area > order[j].Area
		}
		return order[i].ID < order[j].ID
	})

	grid := spatial.Build(globules.Particles, cfg.CellSize)

	pairs := make([]Pair, 0, len(order))
	flagged := make(map[int]bool)

	for _, cres := range order {
		radius := cres.Radius() * cfg.SearchRadiusFactor
		minArea := cres.Area * cfg.MinAreaRatio

		candidates := grid.Query(cres.X, cres.Y, radius)

		var best *particle.Particle
		var bestDist float64
		for _, glob := range candidates {
			if glob.Area < minArea {
				continue
			}
			d := glob.DistanceTo(cres.X, cres.Y)
			if best == nil || better(glob, d, best, bestDist) {
				best, bestDist = glob, d
			}
		}

		// A claimed globule the current filters would have accepted was
		// excluded solely by the earlier claim; flag it for review.
		for _, glob := range grid.QueryClaimed(cres.X, cres.Y, radius) {
			if glob.Area >= minArea {
				flagged[glob.ID] = true
			}
		}

		switch {
		case best != nil:
			best.Status = particle.StatusUsed
			best.LinkRef = cres.ID
			cres.Status = particle.StatusLinked
			cres.LinkRef = best.ID
			pairs = append(pairs, Pair{Crescent: cres, Globule: best, Distance: bestDist})
		case len(candidates) > 0:
			// Proximity without a size-compatible partner.
			cres.Status = particle.StatusAmbiguous
		}
		// No candidates at all: the crescent stays Unlinked (free).
	}

	return assemble(globules, crescents, pairs, flagged), nil
}

// better reports whether candidate a at distance da beats the current
// best b at distance db: larger area first, then nearer centroid, then
// lower ID.
func better(a *particle.Particle, da float64, b *particle.Particle, db float64) bool {
	if a.Area != b.Area {
		return a.Area > b.Area
	}
	if da != db {
		return da < db
	}
	return a.ID < b.ID
}
