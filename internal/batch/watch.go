package batch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/globulab/globulator/internal/config"
	"github.com/globulab/globulator/internal/tables"
)

// Watch processes table pairs as a detector drops them into
// cfg.InputDir, then blocks until ctx is canceled. An image is picked up
// once both of its tables exist; images already processed in this watch
// are not reprocessed when the detector appends to a table.
func Watch(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(cfg.InputDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", cfg.InputDir, err)
	}
	log.Printf("watching %s", cfg.InputDir)

	done := make(map[string]bool)

	// Tables that landed before the watch started.
	pairs, err := DiscoverPairs(cfg.InputDir)
	if err != nil {
		return err
	}
	for _, pair := range pairs {
		processWatched(pair, cfg, done)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			for _, name := range imageNames(event.Name) {
				if done[name] {
					continue
				}
				pair, ready := pairFor(cfg.InputDir, name)
				if !ready {
					continue
				}
				processWatched(pair, cfg, done)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch error: %v", err)
		}
	}
}

func processWatched(pair Pair, cfg config.Config, done map[string]bool) {
	if done[pair.Name] {
		return
	}
	done[pair.Name] = true
	if res, err := ProcessPair(pair, cfg); err != nil {
		log.Printf("image %s failed: %v", pair.Name, err)
	} else {
		log.Printf("image %s: %d pairs linked", res.Name, res.Summary.LinkedPairs)
	}
}

// imageNames extracts the candidate image names from a detection table
// path; other files in the watched directory yield none. An RG_ table
// ending in the contamination suffix is ambiguous: it may be the
// contamination table of the shorter name or a crescent table whose
// image name itself ends in the suffix, so both readings are returned
// and pairFor decides which one has a complete pair.
func imageNames(path string) []string {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, ".txt") {
		return nil
	}
	name := strings.TrimSuffix(base, ".txt")
	switch {
	case strings.HasPrefix(name, tables.PrefixGlobuleTable):
		return []string{strings.TrimPrefix(name, tables.PrefixGlobuleTable)}
	case strings.HasPrefix(name, tables.PrefixCrescentTable):
		name = strings.TrimPrefix(name, tables.PrefixCrescentTable)
		names := []string{name}
		if trimmed := strings.TrimSuffix(name, tables.SuffixContamination); trimmed != name {
			names = append(names, trimmed)
		}
		return names
	}
	return nil
}

// pairFor reports whether both of an image's tables are on disk yet.
func pairFor(dir, name string) (Pair, bool) {
	pair := Pair{
		Name:         name,
		GlobulePath:  filepath.Join(dir, tables.PrefixGlobuleTable+name+".txt"),
		CrescentPath: filepath.Join(dir, tables.PrefixCrescentTable+name+".txt"),
	}
	if _, err := os.Stat(pair.GlobulePath); err != nil {
		return Pair{}, false
	}
	if _, err := os.Stat(pair.CrescentPath); err != nil {
		return Pair{}, false
	}
	contPath := filepath.Join(dir, tables.PrefixCrescentTable+name+tables.SuffixContamination+".txt")
	if _, err := os.Stat(contPath); err == nil {
		pair.ContaminationPath = contPath
	}
	return pair, true
}
