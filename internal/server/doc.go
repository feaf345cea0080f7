// Package server hosts the read-only Fiber diagnostics service that exposes
// the local cache store: health, entry listing, lookup-only key matching and
// the registered compression codecs. It never serves archive bodies, so the
// store stays a local filesystem cache rather than a remote transport.
// Keep exports narrow and accept explicit dependencies; route groups live in
// the routes subpackage.
package server
