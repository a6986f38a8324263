// Package linker implements the spatial linking pass that associates
// each crescent with at most one globule from the same image field.
//
// The pass is deterministic and pure given valid inputs: identical
// particle lists and configuration always produce an identical result,
// including sequence order. Retrying a failed pass without changed
// inputs is therefore meaningless and never attempted.
//
// # Ownership
//
// For the duration of one Link call the linker exclusively owns the two
// particle stores it was given; external mutation concurrent with a
// running pass is not permitted. Status and LinkRef are the only fields
// it writes, each at most once per particle.
package linker
