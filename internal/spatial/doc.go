// Package spatial provides the uniform grid index used to find candidate
// globules near a crescent without comparing every pair.
//
// The grid lives for the duration of one image's linking pass. It is
// built once from the unlinked globules and queried radius-bounded per
// crescent; claimed globules are filtered out during queries rather than
// removed from the index.
package spatial
