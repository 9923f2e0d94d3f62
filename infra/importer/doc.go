// Package importer reads the inputs of a schedule run from files: the block
// model, the footprint and sequence grids, and the production plan. It also
// writes plans back out so they can be edited and re-imported.
package importer
