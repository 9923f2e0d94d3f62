// Package extraction implements the incremental extraction state of a single
// caving column.
//
// A Column walks upward through its blocks, consuming fractional block
// heights as tonnage is requested. Per-block density is honoured, so the
// tonnage to height conversion is recomputed for every block. Once the top of
// the column is reached the column is depleted and every later call yields
// zero tonnage.
package extraction
