package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/anthonynsimon/bild/clone"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/globulab/globulator/internal/linker"
	"github.com/globulab/globulator/internal/particle"
)

// Fallback canvas edge when neither options nor particles give a field
// size.
const defaultFieldSize = 1000

// Options controls linkage map rendering.
type Options struct {
	// Width and Height are the field dimensions in image coordinates.
	// When zero they are derived from the particle extents.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Scale resizes the finished map (1.0 or 0 keeps the native size).
	Scale float64 `json:"scale"`
}

// MapResult is the rendered linkage map.
type MapResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Category colors, kept apart in hue so linked, free and flagged
// particles stay distinguishable when circles overlap.
var (
	globuleColor       = hsv(210, 0.85, 0.85) // blue
	crescentColor      = hsv(0, 0.85, 0.90)   // red
	linkColor          = hsv(130, 0.90, 0.70) // green
	ambiguousColor     = hsv(35, 0.95, 0.95)  // orange
	contaminationColor = hsv(0, 0, 0.55)      // gray
)

func hsv(h, s, v float64) color.RGBA {
	r, g, b := colorful.Hsv(h, s, v).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// LinkageMap draws the linkage result as a validation map: every
// particle as a circle of its derived radius, linked pairs joined by a
// segment, ambiguous particles re-ringed in the review color.
//
// When base is non-nil the map is drawn over a copy of it (the original
// field image a caller already holds); otherwise a white canvas is used.
// The output is PNG, base64-encoded for transport.
func LinkageMap(base image.Image, res *linker.Result, contamination []*particle.Particle, opts Options) (*MapResult, error) {
	canvas, err := newCanvas(base, res, contamination, opts)
	if err != nil {
		return nil, err
	}

	drawParticles(canvas, res, contamination)

	var out image.Image = canvas
	if opts.Scale > 0 && opts.Scale != 1.0 {
		w := int(float64(canvas.Bounds().Dx()) * opts.Scale)
		h := int(float64(canvas.Bounds().Dy()) * opts.Scale)
		if w < 1 || h < 1 {
			return nil, fmt.Errorf("scale %v collapses the map to zero size", opts.Scale)
		}
		out = imaging.Resize(canvas, w, h, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode linkage map: %w", err)
	}

	return &MapResult{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// SaveLinkageMap renders the map and writes it to path; the format
// follows the file extension.
func SaveLinkageMap(path string, base image.Image, res *linker.Result, contamination []*particle.Particle, opts Options) error {
	canvas, err := newCanvas(base, res, contamination, opts)
	if err != nil {
		return err
	}
	drawParticles(canvas, res, contamination)

	var out image.Image = canvas
	if opts.Scale > 0 && opts.Scale != 1.0 {
		w := int(float64(canvas.Bounds().Dx()) * opts.Scale)
		h := int(float64(canvas.Bounds().Dy()) * opts.Scale)
		if w < 1 || h < 1 {
			return fmt.Errorf("scale %v collapses the map to zero size", opts.Scale)
		}
		out = imaging.Resize(canvas, w, h, imaging.Lanczos)
	}

	if err := imaging.Save(out, path); err != nil {
		return fmt.Errorf("failed to save linkage map: %w", err)
	}
	return nil
}

func newCanvas(base image.Image, res *linker.Result, contamination []*particle.Particle, opts Options) (*image.RGBA, error) {
	if base != nil {
		return clone.AsRGBA(base), nil
	}

	w, h := opts.Width, opts.Height
	if w <= 0 || h <= 0 {
		ew, eh := extent(res, contamination)
		if w <= 0 {
			w = ew
		}
		if h <= 0 {
			h = eh
		}
	}

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	return canvas, nil
}

// extent sizes a blank canvas from the particle positions, with a 10%
// margin the way the reference maps are framed. Auto-sizing assumes
// image-space coordinates (origin top-left, non-negative): detector
// tables report pixel positions, so the field starts at (0,0). A caller
// with particles at negative coordinates must pass explicit dimensions
// or a base image; pixels outside the canvas are clipped.
func extent(res *linker.Result, contamination []*particle.Particle) (int, int) {
	maxX, maxY := 0.0, 0.0
	grow := func(p *particle.Particle) {
		r := p.Radius()
		maxX = math.Max(maxX, p.X+r)
		maxY = math.Max(maxY, p.Y+r)
	}
	for _, pair := range res.Pairs {
		grow(pair.Crescent)
		grow(pair.Globule)
	}
	for _, p := range res.FreeGlobules {
		grow(p)
	}
	for _, p := range res.FreeCrescents {
		grow(p)
	}
	for _, a := range res.Ambiguous {
		grow(a.Particle)
	}
	for _, p := range contamination {
		grow(p)
	}
	if maxX == 0 || maxY == 0 {
		return defaultFieldSize, defaultFieldSize
	}
	return int(maxX*1.1) + 1, int(maxY*1.1) + 1
}

func drawParticles(canvas *image.RGBA, res *linker.Result, contamination []*particle.Particle) {
	for _, p := range contamination {
		drawCircle(canvas, p, contaminationColor)
	}
	for _, p := range res.FreeGlobules {
		drawCircle(canvas, p, globuleColor)
	}
	for _, p := range res.FreeCrescents {
		drawCircle(canvas, p, crescentColor)
	}
	for _, pair := range res.Pairs {
		drawCircle(canvas, pair.Globule, globuleColor)
		drawCircle(canvas, pair.Crescent, crescentColor)
		drawLine(canvas,
			int(math.Round(pair.Crescent.X)), int(math.Round(pair.Crescent.Y)),
			int(math.Round(pair.Globule.X)), int(math.Round(pair.Globule.Y)),
			linkColor)
	}
	// Review rings last so they stay visible on top.
	for _, a := range res.Ambiguous {
		drawCircle(canvas, a.Particle, ambiguousColor)
	}
}

// drawCircle draws the particle's derived-radius outline with the
// midpoint circle algorithm.
func drawCircle(img *image.RGBA, p *particle.Particle, c color.RGBA) {
	cx := int(math.Round(p.X))
	cy := int(math.Round(p.Y))
	r := int(math.Round(p.Radius()))
	if r < 1 {
		r = 1
	}

	x, y := r, 0
	err := 1 - r
	for x >= y {
		setOctants(img, cx, cy, x, y, c)
		y++
		if err < 0 {
			err += 2*y + 1
		} else {
			x--
			err += 2*(y-x) + 1
		}
	}
}

func setOctants(img *image.RGBA, cx, cy, x, y int, c color.RGBA) {
	set(img, cx+x, cy+y, c)
	set(img, cx-x, cy+y, c)
	set(img, cx+x, cy-y, c)
	set(img, cx-x, cy-y, c)
	set(img, cx+y, cy+x, c)
	set(img, cx-y, cy+x, c)
	set(img, cx+y, cy-x, c)
	set(img, cx-y, cy-x, c)
}

// drawLine draws a segment with Bresenham's algorithm.
func drawLine(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	dx := abs(x2 - x1)
	dy := -abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx + dy

	for {
		set(img, x1, y1, c)
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x1 += sx
		}
		if e2 <= dx {
			err += dx
			y1 += sy
		}
	}
}

func set(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
