package tables

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/globulab/globulator/internal/linker"
)

// ImageStats is one image's parsed STAT_ figures.
type ImageStats struct {
	Name    string         `json:"name"`
	Summary linker.Summary `json:"summary"`
}

// BatchStats aggregates the per-image figures of one results directory.
type BatchStats struct {
	Images []ImageStats `json:"images"`

	TotalGlobules       int     `json:"total_globules"`
	TotalCrescents      int     `json:"total_crescents"`
	TotalLinkedPairs    int     `json:"total_linked_pairs"`
	MeanNucleationRate  float64 `json:"mean_nucleation_rate"`
	ImagesWithParticles int     `json:"images_with_particles"`
}

// Summarize reads every STAT_*.txt table in dir, writes a combined
// tab-separated summary table next to them, and returns the aggregate.
// Images are ordered by name so the summary is deterministic.
func Summarize(dir string) (*BatchStats, error) {
	matches, err := filepath.Glob(filepath.Join(dir, PrefixStats+"*.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to list stats tables: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no %s*.txt tables found in %s", PrefixStats, dir)
	}
	sort.Strings(matches)

	batch := &BatchStats{}
	for _, path := range matches {
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), PrefixStats), ".txt")
		s, err := readStats(path)
		if err != nil {
			return nil, err
		}
		batch.Images = append(batch.Images, ImageStats{Name: name, Summary: s})

		batch.TotalGlobules += s.TotalGlobules
		batch.TotalCrescents += s.TotalCrescents
		batch.TotalLinkedPairs += s.LinkedPairs
		batch.MeanNucleationRate += s.GlobuleWithCrescentPct
		if s.TotalGlobules > 0 || s.TotalCrescents > 0 {
			batch.ImagesWithParticles++
		}
	}
	batch.MeanNucleationRate /= float64(len(batch.Images))

	if err := writeSummaryTable(dir, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

// readStats parses the "key: value" lines of one STAT_ table.
func readStats(path string) (linker.Summary, error) {
	var s linker.Summary

	f, err := os.Open(path)
	if err != nil {
		return s, fmt.Errorf("failed to open stats table: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case keyTotalGlobules:
			s.TotalGlobules, err = strconv.Atoi(value)
		case keyTotalCrescents:
			s.TotalCrescents, err = strconv.Atoi(value)
		case keyLinkedPairs:
			s.LinkedPairs, err = strconv.Atoi(value)
		case keyNucleationRate:
			s.GlobuleWithCrescentPct, err = strconv.ParseFloat(value, 64)
		case keyMeanCresArea:
			s.MeanCrescentArea, err = strconv.ParseFloat(value, 64)
		case keyMeanGlobArea:
			s.MeanGlobuleArea, err = strconv.ParseFloat(value, 64)
		case keyFreeGlobules:
			s.FreeGlobules, err = strconv.Atoi(value)
		case keyFreeCrescents:
			s.FreeCrescents, err = strconv.Atoi(value)
		case keyAmbiguousCres:
			s.AmbiguousCrescents, err = strconv.Atoi(value)
		case keyFlaggedGlobules:
			s.FlaggedGlobules, err = strconv.Atoi(value)
		case keyExcludedGlobs:
			s.ExcludedGlobules, err = strconv.Atoi(value)
		case keyExcludedCres:
			s.ExcludedCrescents, err = strconv.Atoi(value)
		}
		if err != nil {
			return s, fmt.Errorf("%s: bad value %q for %q: %w", path, value, key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return s, fmt.Errorf("failed to read stats table: %w", err)
	}
	return s, nil
}

func writeSummaryTable(dir string, batch *BatchStats) error {
	var b strings.Builder
	b.WriteString("Filename\tTotal Globules\tTotal Crescents\tLinked Pairs\tGlobules with Crescents (%)\tAverage Crescent Area\tAverage Globule Area\n")
	for _, img := range batch.Images {
		s := img.Summary
		fmt.Fprintf(&b, "%s\t%d\t%d\t%d\t%.2f\t%.3f\t%.3f\n",
			img.Name, s.TotalGlobules, s.TotalCrescents, s.LinkedPairs,
			s.GlobuleWithCrescentPct, s.MeanCrescentArea, s.MeanGlobuleArea)
	}

	name := filepath.Base(dir) + "_summary.txt"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write summary table %s: %w", path, err)
	}
	return nil
}
