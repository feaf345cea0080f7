// Package cache implements the local key/archive store: it validates cache
// keys, maps them to <StoragePath>[/<Namespace>]/<key>/<archive file> on disk,
// picks the best entry for an ordered key list (prefix match, newest archive
// wins within a key, earlier keys win across keys), and commits new archives
// with create-if-absent semantics so readers never observe partial writes.
//
// Restorer and Saver are the only entry points higher layers need. Both absorb
// operational failures into their result value; only validation errors are
// returned, because a broken cache must never break the build that uses it.
package cache
