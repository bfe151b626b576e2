// Package sqlite persists knowledge bases in a single SQLite file so a
// named session survives restarts.
//
// The driver is modernc.org/sqlite, so no cgo toolchain is needed. Each
// knowledge base is a collection: a row in the collections table that
// records the embedding width, plus its chunks with their vectors stored
// as little-endian float32 blobs. Nearest-neighbour search loads the
// collection and ranks it with the cosine package; collections are the
// size of one session's uploads, so a scan is fast enough.
//
// The schema is versioned by the numbered .up.sql files embedded from
// migrations/. Each file runs in its own transaction together with the
// schema_migrations row that records it.
//
// The database opens in WAL mode. Replace swaps a collection inside one
// transaction, so concurrent searches see the old or the new contents,
// never a mix.
package sqlite
