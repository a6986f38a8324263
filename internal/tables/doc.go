// Package tables reads the tab-separated particle measurement tables the
// upstream detector emits and writes the per-category linkage tables the
// downstream reporting tools consume.
//
// The file naming convention is shared with the reference pipeline:
// DIC_/RG_ tables are detector input, LINK_/NUCLEATED_/AMB_/STAT_ tables
// (and the free-particle GLOB_/CRES_ tables) are linker output. No
// report prose is generated here; everything written is a
// machine-readable serialization of the linkage result.
package tables
