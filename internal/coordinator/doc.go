// Package coordinator holds the state the lottery server shares across
// client connections: the completion barrier and the lifecycle registry.
//
// # Overview
//
// Connections never talk to each other directly. The only cross-connection
// ordering the server provides comes from the Barrier, and the only reason
// the server keeps track of its connections at all is the Registry, which
// lets shutdown reach every socket and every worker.
//
//	┌─────────────────────────────────────┐
//	│            COORDINATOR              │
//	├─────────────────────────────────────┤
//	│  ┌──────────────────────────────┐   │
//	│  │   Barrier                    │   │
//	│  │   - Finished agency set      │   │
//	│  │   - One-shot release         │   │
//	│  └──────────────────────────────┘   │
//	│  ┌──────────────────────────────┐   │
//	│  │   Registry                   │   │
//	│  │   - Open connections         │   │
//	│  │   - Running workers          │   │
//	│  └──────────────────────────────┘   │
//	└─────────────────────────────────────┘
//
// # Barrier
//
// The barrier starts waiting and releases exactly once, when the number of
// distinct agencies that reported completion reaches the expected count.
// Release is terminal. Reporting the same agency twice does not count twice.
//
//	WAITING --Report(agency)--> WAITING | RELEASED
//
// Waiters block on a channel that is closed at release, so every waiter
// wakes together and late waiters return at once. Wait also takes a
// context; the server cancels it when it closes the waiter's connection.
//
// # Registry
//
// The registry maps connection ids to open connections and keeps the list
// of worker goroutines it started. Shutdown closes the connections and
// joins the workers using snapshots, so the registry lock is never held
// across a close or a join. Finished workers are pruned as new ones start.
//
// # Thread Safety
//
// Barrier and Registry each guard their state with their own mutex. Locks
// are held only for short updates and snapshots; no I/O happens under them.
package coordinator
