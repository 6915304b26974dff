//go:generate flatc --go --go-namespace fb -o internal schema/snapshot.fbs

// Package catalog discovers container source directories and materializes
// them into NUS3 containers on demand.
//
// A source directory is any directory whose name ends in ".nus3audio". The
// regular files directly inside it form a [Manifest], sorted by name; an
// entry's position in that order is its container id. Each directory is
// addressed by a [Key] derived from its logical path, the path relative to
// the discovery root with ';' replaced by ':'.
//
// [Discover] builds a [Catalog] once, before any fetch traffic. A [Resolver]
// reads payloads and builds containers; it only ever reads the catalog, so
// fetches may run concurrently.
package catalog
