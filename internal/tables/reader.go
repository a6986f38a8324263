package tables

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/globulab/globulator/internal/particle"
)

// columnSet maps the measurement columns of an ImageJ-style results
// table to their field positions.
type columnSet struct {
	area, x, y, perim int
}

// ReadTable reads a tab-separated particle measurement table into a
// store for the given population.
//
// The expected shape is the ImageJ "Analyze Particles" results table: a
// header row naming at least Area, X and Y (Perim. optional), preceded
// by any number of preamble lines, with one particle per data row. A
// leading unnamed row-number column is tolerated. Particles receive
// sequential 1-based IDs in row order, so a table read twice yields the
// same identities.
//
// Rows that parse but fail geometric validation are excluded and counted
// by the returned store; malformed rows are an error.
func ReadTable(path string, pop particle.Population) (*particle.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		cols      *columnSet
		particles []*particle.Particle
		line      int
	)

	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		fields := strings.Split(text, "\t")

		if cols == nil {
			if c, ok := headerColumns(fields); ok {
				cols = &c
			}
			// Preamble lines before the header are skipped.
			continue
		}

		p, err := parseRow(fields, *cols, len(particles)+1, pop)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		particles = append(particles, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	if cols == nil {
		return nil, fmt.Errorf("%s: no header row naming Area/X/Y found", path)
	}

	return particle.NewStore(pop, particles), nil
}

// headerColumns recognizes a header row and records where the named
// measurement columns sit.
func headerColumns(fields []string) (columnSet, bool) {
	c := columnSet{area: -1, x: -1, y: -1, perim: -1}
	for i, f := range fields {
		switch strings.TrimSpace(f) {
		case "Area":
			c.area = i
		case "X":
			c.x = i
		case "Y":
			c.y = i
		case "Perim.":
			c.perim = i
		}
	}
	return c, c.area >= 0 && c.x >= 0 && c.y >= 0
}

func parseRow(fields []string, cols columnSet, id int, pop particle.Population) (*particle.Particle, error) {
	area, err := fieldFloat(fields, cols.area, "Area")
	if err != nil {
		return nil, err
	}
	x, err := fieldFloat(fields, cols.x, "X")
	if err != nil {
		return nil, err
	}
	y, err := fieldFloat(fields, cols.y, "Y")
	if err != nil {
		return nil, err
	}
	perim := 0.0
	if cols.perim >= 0 && cols.perim < len(fields) {
		// Perimeter is an optional passthrough; a blank stays zero.
		if v := strings.TrimSpace(fields[cols.perim]); v != "" {
			perim, err = strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("bad Perim. value %q", v)
			}
		}
	}
	return particle.New(id, pop, x, y, area, perim), nil
}

func fieldFloat(fields []string, idx int, name string) (float64, error) {
	if idx >= len(fields) {
		return 0, fmt.Errorf("missing %s column", name)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(fields[idx]), 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s value %q", name, fields[idx])
	}
	return v, nil
}
