// Package nus3free replaces nus3audio containers with ones assembled on
// demand from directories of loose audio files.
//
// A source directory is any directory whose name ends in ".nus3audio". Its
// regular files, sorted by name, become the entries of the container the
// host loads for the directory's logical path. The files are treated as
// opaque payloads; nothing here decodes audio.
//
// # Quick Start
//
// Discover sources under a mod root and hand them to the host:
//
//	p, err := nus3free.Open(ctx, "/mods/sound",
//	    nus3free.WithLogger(logger),
//	    nus3free.WithFallback(loader),
//	)
//	if err != nil {
//	    return err
//	}
//	p.Install(registrar)
//
// Directories whose logical path starts with "stream" are installed as
// stream hooks and receive the full container. All others are installed as
// fixed hooks with the estimated container size; a container that does not
// fit the host buffer is never written, and the original resource is loaded
// through the [FallbackLoader] instead.
//
// # Caching
//
// Use WithCacheDir to keep built containers on disk between runs:
//
//	p, err := nus3free.Open(ctx, "/mods/sound",
//	    nus3free.WithCacheDir("/var/cache/nus3free"),
//	)
//
// Cache entries are keyed by a digest over each directory's file names,
// sizes and modification times, so edits to a source directory are picked
// up on the next rediscovery.
//
// The container format itself lives in the [core] subpackage and discovery
// in [catalog].
package nus3free
