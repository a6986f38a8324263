package particle

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParticle marks a particle whose geometry cannot be processed:
// a non-finite centroid or a non-positive area. Invalid particles are
// excluded from indexing and linking; the pass continues without them.
var ErrInvalidParticle = errors.New("invalid particle")

// Population identifies which detected particle population a particle
// belongs to. Globules are the larger reference population; crescents
// seek a match among them. Contamination particles are carried through
// for reporting and rendering but never take part in linking.
type Population string

const (
	Globule       Population = "globule"
	Crescent      Population = "crescent"
	Contamination Population = "contamination"
)

// Status is the link state of a particle. It is owned exclusively by the
// linker during a linking pass and moves monotonically:
//
//	Unlinked -> Linked     (crescent that claimed a globule)
//	Unlinked -> Ambiguous  (crescent with proximity but no size match)
//	Unlinked -> Used       (globule claimed by a crescent)
//
// Used is the globule-side terminal state of a linked pair; the spatial
// index skips Used globules at query time rather than removing them.
type Status string

const (
	StatusUnlinked  Status = "unlinked"
	StatusLinked    Status = "linked"
	StatusUsed      Status = "used"
	StatusAmbiguous Status = "ambiguous"
)

// Particle is one detected particle from upstream segmentation.
//
// ID is unique within the particle's population and image. Centroid
// coordinates are in image space (pixels or calibrated units). Perimeter
// and Circularity are passthrough shape descriptors; the linking decision
// never reads them.
//
// Area and the radius derived from it are immutable after construction.
// Status and LinkRef are mutated only by the linker, at most once per
// particle per pass.
type Particle struct {
	ID          int        `json:"id"`
	Population  Population `json:"population"`
	X           float64    `json:"x"`
	Y           float64    `json:"y"`
	Area        float64    `json:"area"`
	Perimeter   float64    `json:"perimeter,omitempty"`
	Circularity float64    `json:"circularity,omitempty"`

	// Status is the particle's link state. See Status for the allowed
	// transitions.
	Status Status `json:"status"`

	// LinkRef is the ID of the matched particle in the opposite
	// population, or -1 when the particle is not part of a linked pair.
	LinkRef int `json:"link_ref"`
}

// New constructs an unlinked particle. Circularity is derived from area
// and perimeter (4πA/P²) when a perimeter is given, matching the upstream
// detector's measurement convention.
func New(id int, pop Population, x, y, area, perimeter float64) *Particle {
	circularity := 0.0
	if perimeter > 0 {
		circularity = 4 * math.Pi * area / (perimeter * perimeter)
	}
	return &Particle{
		ID:          id,
		Population:  pop,
		X:           x,
		Y:           y,
		Area:        area,
		Perimeter:   perimeter,
		Circularity: circularity,
		Status:      StatusUnlinked,
		LinkRef:     -1,
	}
}

// Radius returns the radius of a circle with the particle's area. It is
// used only to size the search neighborhood around a crescent.
func (p *Particle) Radius() float64 {
	return math.Sqrt(p.Area / math.Pi)
}

// DistanceTo returns the Euclidean distance from the particle's centroid
// to the given point.
func (p *Particle) DistanceTo(x, y float64) float64 {
	dx := p.X - x
	dy := p.Y - y
	return math.Sqrt(dx*dx + dy*dy)
}

// Validate reports whether the particle's geometry is usable. A
// non-finite centroid or a non-positive area yields ErrInvalidParticle.
func (p *Particle) Validate() error {
	if math.IsNaN(p.X) || math.IsInf(p.X, 0) || math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
		return fmt.Errorf("%w: particle %d has non-finite centroid (%v, %v)", ErrInvalidParticle, p.ID, p.X, p.Y)
	}
	if p.Area <= 0 || math.IsNaN(p.Area) || math.IsInf(p.Area, 0) {
		return fmt.Errorf("%w: particle %d has non-positive area %v", ErrInvalidParticle, p.ID, p.Area)
	}
	return nil
}
