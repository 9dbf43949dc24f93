package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponses(t *testing.T) {
	assert.Equal(t, "SUCCESS|2\n", BatchResponse(true, 2))
	assert.Equal(t, "FAIL|0\n", BatchResponse(false, 0))
	assert.Equal(t, "ACK\n", AckResponse)
	assert.Equal(t, "WINNERS|\n", WinnersResponse(nil))
	assert.Equal(t, "WINNERS|\n", WinnersResponse([]string{}))
	assert.Equal(t, "WINNERS|111|222\n", WinnersResponse([]string{"111", "222"}))
	assert.Equal(t, "ERROR|bad thing happened\n", ErrorResponse("bad thing\nhappened"))
}

func TestParseBatchResponse(t *testing.T) {
	ok, n, err := ParseBatchResponse("SUCCESS|2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	ok, n, err = ParseBatchResponse("FAIL|0\n")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, n)

	_, _, err = ParseBatchResponse("ERROR|storage down")
	assert.True(t, errors.Is(err, ErrServer))

	for _, line := range []string{"SUCCESS", "SUCCESS|x", "MAYBE|1"} {
		_, _, err := ParseBatchResponse(line)
		assert.True(t, errors.Is(err, ErrProtocol), "line %q", line)
	}
}

func TestParseWinnersResponse(t *testing.T) {
	docs, err := ParseWinnersResponse("WINNERS|")
	require.NoError(t, err)
	assert.Empty(t, docs)

	docs, err = ParseWinnersResponse("WINNERS|111|222\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"111", "222"}, docs)

	_, err = ParseWinnersResponse("ERROR|interrupted")
	assert.True(t, errors.Is(err, ErrServer))

	_, err = ParseWinnersResponse("ACK")
	assert.True(t, errors.Is(err, ErrProtocol))
}

func TestParseAckResponse(t *testing.T) {
	assert.NoError(t, ParseAckResponse("ACK"))
	assert.NoError(t, ParseAckResponse("ACK\n"))
	assert.ErrorIs(t, ParseAckResponse("ERROR|invalid agency"), ErrServer)
	assert.ErrorIs(t, ParseAckResponse("WINNERS|"), ErrProtocol)
}
