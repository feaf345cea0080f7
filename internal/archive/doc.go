// Package archive is the byte-level engine behind the local cache: it packs a
// set of workspace-relative paths into a single tar stream, compresses it with
// one of the registered codecs, and unpacks or lists such archives later.
//
// Codecs register themselves in init() through MustRegister, mirroring how the
// store looks up a codec by Method to derive the archive file name. The engine
// never decides where archives live; callers hand it concrete paths.
package archive
