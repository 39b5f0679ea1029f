// Package dataset owns the output container: a single sqlite database
// holding one demo record per accepted episode, per-frame image rows, a
// metadata table and the train/val filter keys. Numeric arrays are stored
// as NPY-encoded blobs so each blob carries its own shape and dtype.
package dataset
