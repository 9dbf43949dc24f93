package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrServer wraps an ERROR response received from the server.
var ErrServer = errors.New("server error")

const (
	statusSuccess = "SUCCESS"
	statusFail    = "FAIL"
	winnersPrefix = "WINNERS|"
	errorPrefix   = "ERROR|"
)

// AckResponse acknowledges a FINISHED request.
const AckResponse = "ACK\n"

// BatchResponse acknowledges a batch: SUCCESS|n or FAIL|n.
func BatchResponse(success bool, n int) string {
	status := statusFail
	if success {
		status = statusSuccess
	}
	return status + "|" + strconv.Itoa(n) + "\n"
}

// WinnersResponse lists winning documents in order. With no documents the
// response is exactly "WINNERS|\n".
func WinnersResponse(documents []string) string {
	return winnersPrefix + strings.Join(documents, "|") + "\n"
}

// ErrorResponse reports a failure. Line breaks in message are flattened so
// the response stays on one line.
func ErrorResponse(message string) string {
	message = strings.NewReplacer("\r", " ", "\n", " ").Replace(message)
	return errorPrefix + message + "\n"
}

// ParseBatchResponse decodes a batch acknowledgment line.
func ParseBatchResponse(line string) (success bool, n int, err error) {
	line = strings.TrimSpace(line)
	if msg, ok := strings.CutPrefix(line, errorPrefix); ok {
		return false, 0, fmt.Errorf("%w: %s", ErrServer, msg)
	}

	status, count, ok := strings.Cut(line, "|")
	if !ok {
		return false, 0, fmt.Errorf("%w: invalid batch response %q", ErrProtocol, line)
	}
	n, err = strconv.Atoi(count)
	if err != nil {
		return false, 0, fmt.Errorf("%w: invalid batch response count %q", ErrProtocol, count)
	}

	switch status {
	case statusSuccess:
		return true, n, nil
	case statusFail:
		return false, n, nil
	default:
		return false, 0, fmt.Errorf("%w: invalid batch response status %q", ErrProtocol, status)
	}
}

// ParseWinnersResponse decodes a winners line into its documents.
func ParseWinnersResponse(line string) ([]string, error) {
	line = strings.TrimSpace(line)
	if msg, ok := strings.CutPrefix(line, errorPrefix); ok {
		return nil, fmt.Errorf("%w: %s", ErrServer, msg)
	}

	rest, ok := strings.CutPrefix(line, winnersPrefix)
	if !ok {
		return nil, fmt.Errorf("%w: invalid winners response %q", ErrProtocol, line)
	}
	if rest == "" {
		return []string{}, nil
	}
	return strings.Split(rest, "|"), nil
}

// ParseAckResponse checks the acknowledgment of a FINISHED request.
func ParseAckResponse(line string) error {
	line = strings.TrimSpace(line)
	if msg, ok := strings.CutPrefix(line, errorPrefix); ok {
		return fmt.Errorf("%w: %s", ErrServer, msg)
	}
	if line+"\n" != AckResponse {
		return fmt.Errorf("%w: expected ACK, got %q", ErrProtocol, line)
	}
	return nil
}
