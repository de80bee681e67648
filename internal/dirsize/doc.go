// Package dirsize computes the total byte size of a directory tree.
//
// A tree can be measured sequentially, with a bounded pool of goroutines,
// with a parallel fastwalk traversal, or by spreading the root's top-level
// subdirectories across a bounded pool of worker processes. Every strategy
// reports the same total for an unmodified tree. Symlinks are never followed
// below the root, and failures below the root are collected into the result
// instead of aborting the measurement.
package dirsize
