package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClassify covers the prefix rules, including near misses that fall back to batch.
func TestClassify(t *testing.T) {
	tests := []struct {
		payload string
		want    Kind
	}{
		{payload: "FINISHED|1", want: KindFinished},
		{payload: "FINISHED|", want: KindFinished},
		{payload: "QUERY_WINNERS|4", want: KindQueryWinners},
		{payload: "2\n1|Ana|Lopez|111|2000-01-01|7574\n1|Bea|Ruiz|222|2001-02-02|1", want: KindBatch},
		{payload: "FINISHED", want: KindBatch},
		{payload: "finished|1", want: KindBatch},
		{payload: "QUERY_WINNERS", want: KindBatch},
		{payload: "", want: KindBatch},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.payload))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "BATCH", KindBatch.String())
	assert.Equal(t, "FINISHED", KindFinished.String())
	assert.Equal(t, "QUERY_WINNERS", KindQueryWinners.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}

func TestParseAgency(t *testing.T) {
	agency, err := ParseAgency(FinishedMessage(3))
	require.NoError(t, err)
	assert.Equal(t, 3, agency)

	agency, err = ParseAgency(QueryWinnersMessage(12))
	require.NoError(t, err)
	assert.Equal(t, 12, agency)

	for _, payload := range []string{"FINISHED|", "FINISHED|abc", "QUERY_WINNERS|-1", "QUERY_WINNERS|0", "1\nx"} {
		_, err := ParseAgency(payload)
		assert.True(t, errors.Is(err, ErrProtocol), "payload %q: expected ErrProtocol, got %v", payload, err)
	}
}
