// Package protocol implements the wire format spoken between agencies and
// the lottery server.
//
// Requests are length-prefixed frames: a 2-byte big-endian unsigned length
// followed by exactly that many bytes of UTF-8 payload. Responses are plain
// newline-terminated text lines with no prefix. The asymmetry is part of
// the protocol; ReadFrame/WriteFrame handle requests and ReadLine/SendAll
// handle responses.
//
// Request payloads come in three shapes, told apart by Classify:
//
//	<count>\n<bet line>\n...        batch of bets (KindBatch)
//	FINISHED|<agency>               agency finished sending (KindFinished)
//	QUERY_WINNERS|<agency>          winners query (KindQueryWinners)
//
// Response lines:
//
//	SUCCESS|<n>   FAIL|<n>          batch acknowledgment
//	ACK                             finished acknowledgment
//	WINNERS|<doc>|<doc>...          winners of the querying agency
//	ERROR|<message>                 any failure after the request was understood
//
// Failures are reported with errors wrapping ErrFraming, ErrTransport or
// ErrProtocol so callers can pick a response with errors.Is.
package protocol
