package tables

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/globulab/globulator/internal/linker"
	"github.com/globulab/globulator/internal/particle"
)

// File prefixes shared with the reference pipeline. DIC_/RG_ tables are
// detector input (globule and crescent measurements per image, named
// after the microscope channels); the rest are linker output, so
// downstream tooling keeps working unchanged.
const (
	PrefixGlobuleTable  = "DIC_"
	PrefixCrescentTable = "RG_"
	SuffixContamination = "CONT"

	PrefixLinked        = "LINK_"
	PrefixNucleated     = "NUCLEATED_"
	PrefixFreeGlobules  = "GLOB_"
	PrefixFreeCrescents = "CRES_"
	PrefixAmbiguous     = "AMB_"
	PrefixStats         = "STAT_"
)

// Writer serializes linkage results into per-category tab-separated
// tables under a single output directory.
type Writer struct {
	// Dir is the output directory; it is created on first write.
	Dir string
}

// WriteAll writes every result category for one image: linked pairs,
// nucleated (linked) globules, free globules, free crescents, ambiguous
// particles and the summary counts. Row order follows the result's
// deterministic sequences, so repeated runs produce byte-identical
// files.
func (w *Writer) WriteAll(name string, res *linker.Result) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := w.WriteLinked(name, res.Pairs); err != nil {
		return err
	}
	if err := w.WriteNucleated(name, res.Pairs); err != nil {
		return err
	}
	if err := w.writeParticles(PrefixFreeGlobules, name, res.FreeGlobules); err != nil {
		return err
	}
	if err := w.writeParticles(PrefixFreeCrescents, name, res.FreeCrescents); err != nil {
		return err
	}
	if err := w.WriteAmbiguous(name, res.Ambiguous); err != nil {
		return err
	}
	return w.WriteStats(name, res.Summary)
}

// WriteLinked writes the LINK_ table: one row per pair with both
// centroids, both areas and the pair distance.
func (w *Writer) WriteLinked(name string, pairs []linker.Pair) error {
	var b strings.Builder
	b.WriteString("Cres_area\tCres_x\tCres_y\tGlob_area\tGlob_x\tGlob_y\tDistance\n")
	for _, p := range pairs {
		fmt.Fprintf(&b, "%.3f\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\n",
			p.Crescent.Area, p.Crescent.X, p.Crescent.Y,
			p.Globule.Area, p.Globule.X, p.Globule.Y, p.Distance)
	}
	return w.writeFile(PrefixLinked, name, b.String())
}

// WriteNucleated writes the NUCLEATED_ table: the globules that gained a
// crescent, in pair order.
func (w *Writer) WriteNucleated(name string, pairs []linker.Pair) error {
	globs := make([]*particle.Particle, len(pairs))
	for i, p := range pairs {
		globs[i] = p.Globule
	}
	return w.writeParticles(PrefixNucleated, name, globs)
}

// WriteAmbiguous writes the AMB_ table with the population and reason of
// every review-flagged particle.
func (w *Writer) WriteAmbiguous(name string, amb []linker.Ambiguity) error {
	var b strings.Builder
	b.WriteString("Type\tReason\tArea\tX\tY\tPerim.\tCirc.\n")
	for _, a := range amb {
		p := a.Particle
		fmt.Fprintf(&b, "%s\t%s\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\n",
			p.Population, a.Reason, p.Area, p.X, p.Y, p.Perimeter, p.Circularity)
	}
	return w.writeFile(PrefixAmbiguous, name, b.String())
}

// Summary keys in the STAT_ table. Summarize parses the same keys back.
const (
	keyTotalGlobules   = "Total Globules"
	keyTotalCrescents  = "Total Crescents"
	keyLinkedPairs     = "Linked Pairs"
	keyNucleationRate  = "Globules with Crescents (%)"
	keyMeanCresArea    = "Average Crescent Area"
	keyMeanGlobArea    = "Average Globule Area"
	keyFreeGlobules    = "Free Globules"
	keyFreeCrescents   = "Free Crescents"
	keyAmbiguousCres   = "Ambiguous Crescents"
	keyFlaggedGlobules = "Flagged Globules"
	keyExcludedGlobs   = "Excluded Globules"
	keyExcludedCres    = "Excluded Crescents"
)

// WriteStats writes the STAT_ table: one "key: value" line per summary
// figure.
func (w *Writer) WriteStats(name string, s linker.Summary) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d\n", keyTotalGlobules, s.TotalGlobules)
	fmt.Fprintf(&b, "%s: %d\n", keyTotalCrescents, s.TotalCrescents)
	fmt.Fprintf(&b, "%s: %d\n", keyLinkedPairs, s.LinkedPairs)
	fmt.Fprintf(&b, "%s: %.2f\n", keyNucleationRate, s.GlobuleWithCrescentPct)
	fmt.Fprintf(&b, "%s: %.3f\n", keyMeanCresArea, s.MeanCrescentArea)
	fmt.Fprintf(&b, "%s: %.3f\n", keyMeanGlobArea, s.MeanGlobuleArea)
	fmt.Fprintf(&b, "%s: %d\n", keyFreeGlobules, s.FreeGlobules)
	fmt.Fprintf(&b, "%s: %d\n", keyFreeCrescents, s.FreeCrescents)
	fmt.Fprintf(&b, "%s: %d\n", keyAmbiguousCres, s.AmbiguousCrescents)
	fmt.Fprintf(&b, "%s: %d\n", keyFlaggedGlobules, s.FlaggedGlobules)
	fmt.Fprintf(&b, "%s: %d\n", keyExcludedGlobs, s.ExcludedGlobules)
	fmt.Fprintf(&b, "%s: %d\n", keyExcludedCres, s.ExcludedCrescents)
	return w.writeFile(PrefixStats, name, b.String())
}

// writeParticles writes a measurement table in the upstream Area/X/Y/
// Perim./Circ. layout, readable again by ReadTable.
func (w *Writer) writeParticles(prefix, name string, ps []*particle.Particle) error {
	var b strings.Builder
	b.WriteString("Area\tX\tY\tPerim.\tCirc.\n")
	for _, p := range ps {
		fmt.Fprintf(&b, "%.3f\t%.3f\t%.3f\t%.3f\t%.3f\n",
			p.Area, p.X, p.Y, p.Perimeter, p.Circularity)
	}
	return w.writeFile(prefix, name, b.String())
}

func (w *Writer) writeFile(prefix, name, content string) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	path := filepath.Join(w.Dir, prefix+name+".txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
