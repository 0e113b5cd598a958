// Package store provides durable storage for artifacts, version lineage,
// and trigger policies, backed by SQLite.
//
// Version insertion and the artifact's current-version pointer update are
// always one transaction (see AppendVersion), so a new version with a
// stale pointer is unreachable by construction. Historical versions are
// never hard-deleted; the package exposes no delete operation.
package store
