package particle

import "log"

// Store holds one population's particles for a single image. It is
// populated once from upstream detection and discarded after the linkage
// result has been emitted. During a linking pass the store is checked out
// by the linker; status mutation is the only write that ever happens to
// it.
type Store struct {
	// Population is the population every particle in the store belongs to.
	Population Population

	// Particles are the valid particles in input order.
	Particles []*Particle

	// Excluded counts particles dropped at construction because they
	// failed Validate. They are reported as a data-quality figure, not
	// an error.
	Excluded int
}

// NewStore builds a store from raw detection output, excluding and
// logging particles with invalid geometry. The remaining particles keep
// their input order.
func NewStore(pop Population, particles []*Particle) *Store {
	s := &Store{Population: pop}
	for _, p := range particles {
		if err := p.Validate(); err != nil {
			log.Printf("excluding %s: %v", pop, err)
			s.Excluded++
			continue
		}
		s.Particles = append(s.Particles, p)
	}
	return s
}

// Len returns the number of valid particles in the store.
func (s *Store) Len() int {
	return len(s.Particles)
}

// CountByStatus returns how many particles currently carry the given
// status.
func (s *Store) CountByStatus(status Status) int {
	n := 0
	for _, p := range s.Particles {
		if p.Status == status {
			n++
		}
	}
	return n
}
