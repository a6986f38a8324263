package linker

import "github.com/globulab/globulator/internal/particle"

// Reason tags why a particle was flagged ambiguous.
type Reason string

const (
	// ReasonSizeIncompatible marks a crescent that had one or more
	// globules within its search radius but none passing the area-ratio
	// filter: spatial proximity without a size-compatible partner,
	// usually a detection or threshold problem rather than a genuinely
	// free crescent.
	ReasonSizeIncompatible Reason = "size-incompatible"

	// ReasonClaimConflict marks a globule that a later crescent's
	// distance and area filters would have accepted, but which an
	// earlier crescent had already claimed. The assignment stands; the
	// flag is for manual review only.
	ReasonClaimConflict Reason = "claim-conflict"
)

// Pair is one confirmed crescent-globule linkage.
type Pair struct {
	Crescent *particle.Particle `json:"crescent"`
	Globule  *particle.Particle `json:"globule"`

	// Distance is the Euclidean centroid distance of the pair.
	Distance float64 `json:"distance"`
}

// Ambiguity is a particle flagged for manual review together with the
// rule that flagged it.
type Ambiguity struct {
	Particle *particle.Particle `json:"particle"`
	Reason   Reason             `json:"reason"`
}

// Summary carries the per-image counts downstream reporting consumes.
type Summary struct {
	TotalGlobules      int `json:"total_globules"`
	TotalCrescents     int `json:"total_crescents"`
	LinkedPairs        int `json:"linked_pairs"`
	FreeGlobules       int `json:"free_globules"`
	FreeCrescents      int `json:"free_crescents"`
	AmbiguousCrescents int `json:"ambiguous_crescents"`
	FlaggedGlobules    int `json:"flagged_globules"`
	ExcludedGlobules   int `json:"excluded_globules"`
	ExcludedCrescents  int `json:"excluded_crescents"`

	// GlobuleWithCrescentPct is the percentage of globules that gained a
	// crescent (the nucleation rate in the reference pipeline).
	GlobuleWithCrescentPct float64 `json:"globule_with_crescent_percent"`

	// Mean areas over the linked pairs only.
	MeanCrescentArea float64 `json:"average_crescent_area"`
	MeanGlobuleArea  float64 `json:"average_globule_area"`
}

// Result is the final partition of both populations after a pass.
//
// Sequences are deterministic: Pairs follow claim order (descending
// crescent area, ties by ascending crescent ID), free and ambiguous
// particles follow input order within each population, and ambiguous
// crescents precede review-flagged globules.
//
// Partition rule: every valid input particle is linked, free, or carries
// ambiguous status. Review-flagged globules stay in the linked partition
// and are additionally listed under Ambiguous.
type Result struct {
	Pairs         []Pair               `json:"pairs"`
	FreeGlobules  []*particle.Particle `json:"free_globules"`
	FreeCrescents []*particle.Particle `json:"free_crescents"`
	Ambiguous     []Ambiguity          `json:"ambiguous"`
	Summary       Summary              `json:"summary"`
}

// assemble builds the result partitions from the post-pass particle
// state.
func assemble(globules, crescents *particle.Store, pairs []Pair, flagged map[int]bool) *Result {
	res := &Result{Pairs: pairs}

	for _, c := range crescents.Particles {
		switch c.Status {
		case particle.StatusUnlinked:
			res.FreeCrescents = append(res.FreeCrescents, c)
		case particle.StatusAmbiguous:
			res.Ambiguous = append(res.Ambiguous, Ambiguity{Particle: c, Reason: ReasonSizeIncompatible})
		}
	}
	for _, g := range globules.Particles {
		if g.Status == particle.StatusUnlinked {
			res.FreeGlobules = append(res.FreeGlobules, g)
		}
		if flagged[g.ID] {
			res.Ambiguous = append(res.Ambiguous, Ambiguity{Particle: g, Reason: ReasonClaimConflict})
		}
	}

	s := Summary{
		TotalGlobules:     globules.Len(),
		TotalCrescents:    crescents.Len(),
		LinkedPairs:       len(pairs),
		FreeGlobules:      len(res.FreeGlobules),
		FreeCrescents:     len(res.FreeCrescents),
		ExcludedGlobules:  globules.Excluded,
		ExcludedCrescents: crescents.Excluded,
		FlaggedGlobules:   len(flagged),
	}
	s.AmbiguousCrescents = crescents.CountByStatus(particle.StatusAmbiguous)
	if s.TotalGlobules > 0 {
		s.GlobuleWithCrescentPct = float64(s.LinkedPairs) / float64(s.TotalGlobules) * 100
	}
	if len(pairs) > 0 {
		var cresArea, globArea float64
		for _, p := range pairs {
			cresArea += p.Crescent.Area
			globArea += p.Globule.Area
		}
		s.MeanCrescentArea = cresArea / float64(len(pairs))
		s.MeanGlobuleArea = globArea / float64(len(pairs))
	}
	res.Summary = s
	return res
}
