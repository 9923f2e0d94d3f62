// Package blockmodel holds the regular 3-D block model used by the caving
// scheduler. Datasets are stored as flat arrays indexed by (i, j, k) and are
// exposed to the scheduling core only through the read-only DensityProvider
// capability, so the engine never depends on the storage layout.
//
// Blocks absent from the source data are stored as NaN and read as zero
// density.
package blockmodel
