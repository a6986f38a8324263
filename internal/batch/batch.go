// Package batch runs the linking pipeline over a directory of detection
// tables: discovery of per-image table pairs, bounded-concurrency
// processing, and a watch mode that picks up tables as a detector drops
// them.
package batch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/globulab/globulator/internal/config"
	"github.com/globulab/globulator/internal/linker"
	"github.com/globulab/globulator/internal/particle"
	"github.com/globulab/globulator/internal/render"
	"github.com/globulab/globulator/internal/tables"
)

// Pair is one image's detection tables on disk.
type Pair struct {
	// Name is the image name shared by both tables (the part between the
	// prefix and the extension).
	Name string `json:"name"`

	// GlobulePath and CrescentPath are the DIC_/RG_ measurement tables.
	GlobulePath  string `json:"globule_path"`
	CrescentPath string `json:"crescent_path"`

	// ContaminationPath is the optional RG_*CONT table; empty when the
	// detector found no contamination.
	ContaminationPath string `json:"contamination_path,omitempty"`
}

// ImageResult is the outcome of one processed image.
type ImageResult struct {
	Name    string         `json:"name"`
	Summary linker.Summary `json:"summary"`
}

// ImageFailure records an image the batch could not process. Failures
// do not abort the batch.
type ImageFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// Report aggregates a batch run.
type Report struct {
	Processed []ImageResult  `json:"processed"`
	Failed    []ImageFailure `json:"failed,omitempty"`
}

// DiscoverPairs scans dir for DIC_ globule tables with a matching RG_
// crescent table, sorted by image name. A DIC_ table without an RG_
// counterpart is skipped with a log line; the detector may still be
// writing it.
func DiscoverPairs(dir string) ([]Pair, error) {
	globPaths, err := filepath.Glob(filepath.Join(dir, tables.PrefixGlobuleTable+"*.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	pairs := make([]Pair, 0, len(globPaths))
	for _, gp := range globPaths {
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(gp), tables.PrefixGlobuleTable), ".txt")
		cp := filepath.Join(dir, tables.PrefixCrescentTable+name+".txt")
		if _, err := os.Stat(cp); err != nil {
			log.Printf("skipping %s: no crescent table %s", name, filepath.Base(cp))
			continue
		}

		pair := Pair{Name: name, GlobulePath: gp, CrescentPath: cp}
		contPath := filepath.Join(dir, tables.PrefixCrescentTable+name+tables.SuffixContamination+".txt")
		if _, err := os.Stat(contPath); err == nil {
			pair.ContaminationPath = contPath
		}
		pairs = append(pairs, pair)
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Name < pairs[j].Name })
	return pairs, nil
}

// ProcessPair links one image's tables and writes its result tables
// (and, when enabled, its linkage map) under cfg.OutputDir.
func ProcessPair(pair Pair, cfg config.Config) (ImageResult, error) {
	globs, err := tables.ReadTable(pair.GlobulePath, particle.Globule)
	if err != nil {
		return ImageResult{}, err
	}
	cress, err := tables.ReadTable(pair.CrescentPath, particle.Crescent)
	if err != nil {
		return ImageResult{}, err
	}

	var contamination []*particle.Particle
	if pair.ContaminationPath != "" {
		cont, err := tables.ReadTable(pair.ContaminationPath, particle.Contamination)
		if err != nil {
			return ImageResult{}, err
		}
		contamination = cont.Particles
	}

	res, err := linker.Link(globs, cress, cfg.Linker)
	if err != nil {
		return ImageResult{}, err
	}

	w := &tables.Writer{Dir: cfg.OutputDir}
	if err := w.WriteAll(pair.Name, res); err != nil {
		return ImageResult{}, err
	}

	if cfg.RenderMaps {
		mapPath := filepath.Join(cfg.OutputDir, "MAP_"+pair.Name+".png")
		if err := render.SaveLinkageMap(mapPath, nil, res, contamination, render.Options{Scale: cfg.MapScale}); err != nil {
			return ImageResult{}, err
		}
	}

	return ImageResult{Name: pair.Name, Summary: res.Summary}, nil
}

// Run processes every discovered pair under cfg.InputDir with at most
// cfg.Workers images in flight, then writes the batch summary table. A
// failed image is reported, not fatal; Run returns an error only when
// discovery fails, the directory holds no pairs, or ctx is canceled.
func Run(ctx context.Context, cfg config.Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pairs, err := DiscoverPairs(cfg.InputDir)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no table pairs found in %s", cfg.InputDir)
	}

	report := &Report{}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, pair := range pairs {
		pair := pair
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := ProcessPair(pair, cfg)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("image %s failed: %v", pair.Name, err)
				report.Failed = append(report.Failed, ImageFailure{Name: pair.Name, Error: err.Error()})
				return nil
			}
			report.Processed = append(report.Processed, res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(report.Processed, func(i, j int) bool { return report.Processed[i].Name < report.Processed[j].Name })
	sort.Slice(report.Failed, func(i, j int) bool { return report.Failed[i].Name < report.Failed[j].Name })

	if len(report.Processed) > 0 {
		if _, err := tables.Summarize(cfg.OutputDir); err != nil {
			return nil, fmt.Errorf("failed to summarize batch: %w", err)
		}
	}

	log.Printf("batch done: %d processed, %d failed", len(report.Processed), len(report.Failed))
	return report, nil
}
