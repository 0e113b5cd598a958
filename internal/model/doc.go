// Package model defines the core data model for loom: artifacts, their
// immutable version snapshots, detected input changes, and trigger policies.
//
// Versions form a forest. Each artifact's lineage is a tree rooted at its
// first version, linked by a one-directional parent id. Children are never
// stored on the parent; they are computed on demand from the parent index
// in the store, which keeps the model free of reference cycles.
package model
