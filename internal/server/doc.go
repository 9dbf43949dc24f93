// Package server implements the lottery server: it accepts agency
// connections over TCP, stores the bets they send, and answers winners
// queries once every expected agency has finished.
//
// # Concurrency model
//
// One accept loop runs in Serve. Every accepted connection gets its own
// worker goroutine; there is no pool and no admission control, which suits
// the small fixed number of agencies the lottery serves. Workers block only
// on socket reads, socket writes and the completion barrier.
//
// # Per-connection protocol
//
//	RECEIVE_FRAME -> CLASSIFY
//	  BATCH         -> INGEST -> SUCCESS|n or FAIL|0 -> DONE
//	  FINISHED      -> REPORT -> ACK -> RECEIVE_FRAME (must be QUERY_WINNERS)
//	  QUERY_WINNERS -> AWAIT_BARRIER -> RESOLVE -> WINNERS|... -> DONE
//
// A connection always carries at most one batch, or one FINISHED followed by
// one QUERY_WINNERS, or a lone QUERY_WINNERS. The connection is closed when
// its worker returns.
//
// # Shutdown
//
// Shutdown raises the shutdown flag, closes the listener so Accept fails,
// closes every live connection, and joins the workers within the configured
// timeout before invoking the exit action. Closing a connection also ends
// any barrier wait its worker is blocked in; the barrier itself knows
// nothing about shutdown.
package server
