// Package particle defines the particle records exchanged between the
// upstream detector, the linker, and the downstream reporting tools.
//
// A particle is immutable after construction except for its link state
// (Status and LinkRef), which the linker owns for the duration of one
// linking pass. Particles arrive pre-extracted; this package performs no
// image processing of any kind.
//
// # Coordinate System
//
// Centroids are floating-point coordinates in image space with (0,0) at
// the top-left corner, X increasing rightward and Y increasing downward,
// matching the upstream measurement tables.
//
// # Validation
//
// Stores reject particles with non-finite centroids or non-positive
// areas (ErrInvalidParticle). Rejections are counted and logged but never
// abort a pass.
package particle
