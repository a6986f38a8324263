// Package render draws linkage results as validation maps for manual
// review: globules, crescents and contamination as circles of their
// derived radius, linked pairs joined by a segment, review-flagged
// particles ringed in a distinct color.
//
// Rendering consumes a finished linkage result; it never decodes or
// analyzes image content. A caller that already holds the field image
// may pass it as a base layer, otherwise maps are drawn on a white
// canvas sized to the particle extents. Canvases are anchored at the
// image origin: auto-sizing assumes non-negative pixel coordinates,
// and anything drawn outside the canvas is clipped.
package render
