package protocol

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// HeaderSize is the length of the frame length prefix in bytes.
const HeaderSize = 2

// MaxPayloadSize is the largest payload a single frame can carry.
const MaxPayloadSize = math.MaxUint16

var (
	// ErrFraming means the stream ended before a whole frame arrived.
	ErrFraming = errors.New("framing error")

	// ErrTransport means the connection failed while sending or receiving.
	ErrTransport = errors.New("transport error")

	// ErrProtocol means a frame arrived whole but its payload is malformed.
	ErrProtocol = errors.New("protocol error")
)

// ReadFrame reads one length-prefixed frame and returns its payload.
// Short reads are retried until the frame is complete.
//
// Returns an error wrapping ErrFraming when the stream closes before the
// 2 length bytes or the announced payload bytes arrive, and ErrTransport
// for any other read failure.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, readError("length prefix", err)
	}

	size := binary.BigEndian.Uint16(header[:])
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, readError(fmt.Sprintf("payload of %d bytes", size), err)
	}
	return payload, nil
}

func readError(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: stream closed before %s", ErrFraming, what)
	}
	return fmt.Errorf("%w: reading %s: %w", ErrTransport, what, err)
}

// WriteFrame writes payload as one length-prefixed frame.
// The prefix and payload go out in a single buffer.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return fmt.Errorf("%w: payload of %d bytes exceeds frame limit %d", ErrProtocol, len(payload), MaxPayloadSize)
	}

	frame := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint16(frame, uint16(len(payload)))
	copy(frame[HeaderSize:], payload)

	_, err := SendAll(w, frame)
	return err
}

// SendAll writes every byte of data, looping over short writes, and returns
// the number of bytes written. A write that reports success but moves zero
// bytes is treated as a broken connection.
func SendAll(w io.Writer, data []byte) (int, error) {
	total := 0
	for total < len(data) {
		n, err := w.Write(data[total:])
		total += n
		if err != nil {
			return total, fmt.Errorf("%w: sent %d/%d bytes: %w", ErrTransport, total, len(data), err)
		}
		if n == 0 {
			return total, fmt.Errorf("%w: connection broke after %d/%d bytes", ErrTransport, total, len(data))
		}
	}
	return total, nil
}

// SendLine writes s followed by a newline when s does not already end in one.
func SendLine(w io.Writer, s string) (int, error) {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return SendAll(w, []byte(s))
}

// ReadLine reads one newline-terminated response line and returns it
// without the line terminator.
func ReadLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: connection closed before end of line (got %q)", ErrTransport, line)
		}
		return "", fmt.Errorf("%w: reading line: %w", ErrTransport, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
