// Package storage persists lottery bets and reads them back.
//
// # Overview
//
// The lottery server needs exactly two things from persistence: append a
// batch of bets, and scan every bet ever appended in the order it was
// written. BetStore captures that contract and nothing more.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│      Server (ingest / winners)      │
//	└─────────────────────────────────────┘
//	                 │
//	                 ▼
//	┌─────────────────────────────────────┐
//	│   Synchronized (one writer, many    │
//	│   concurrent scans)                 │
//	└─────────────────────────────────────┘
//	                 │
//	    ┌────────────┼────────────┐
//	    ▼            ▼            ▼
//	┌────────┐  ┌────────┐  ┌────────┐
//	│ Memory │  │  File  │  │ SQLite │
//	│ Store  │  │ (CSV)  │  │ Store  │
//	└────────┘  └────────┘  └────────┘
//
// # Implementations
//
// MemoryStore keeps bets in a slice guarded by a sync.RWMutex. Nothing
// survives a restart; it backs tests and throwaway runs.
//
// FileStore is the flat append-only CSV file the lottery has always used
// (./bets.csv by default). Each Append opens the file, writes every row in
// one write call and closes it again. FileStore does no locking of its own
// and is not safe for concurrent writers.
//
// SQLiteStore writes to an SQLite database through modernc.org/sqlite. Each
// Append is a single transaction, so a batch is either fully stored or not
// stored at all.
//
// # Read-back
//
// All returns an iter.Seq2 that is lazy (rows are read as the caller
// ranges), finite, and restartable (every range starts again from the first
// bet). Read failures are yielded as the error half of the pair, after which
// the sequence stops.
//
// # Concurrency
//
// Wrap any store in Synchronized before sharing it between goroutines.
// Appends are exclusive; scans share the lock for as long as the caller is
// ranging, so a scan never observes half a batch. Do not Append from inside
// a range over the same Synchronized store.
//
// # Errors
//
// Every failure from a backend is wrapped in ErrStorage.
package storage
