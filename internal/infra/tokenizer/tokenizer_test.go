package tokenizer

import (
	"errors"
	"testing"

	"rubric-orchestrator/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenLimit(t *testing.T) {
	tests := []struct {
		model string
		limit int
	}{
		{model: "gpt-35-turbo", limit: 4000},
		{model: "gpt-3.5-turbo-16k", limit: 16000},
		{model: "gpt-4", limit: 8100},
		{model: "gpt-4-32k", limit: 32000},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			limit, err := TokenLimit(tt.model)
			require.NoError(t, err)
			assert.Equal(t, tt.limit, limit)
		})
	}
}

func TestTokenLimit_UnknownModel(t *testing.T) {
	_, err := TokenLimit("not-a-model")
	assert.True(t, errors.Is(err, domain.ErrUnknownModel))
}

func TestTiktokenCounter_CountTokens(t *testing.T) {
	counter, err := NewTiktokenCounter("gpt-35-turbo")
	require.NoError(t, err)

	assert.Equal(t, 0, counter.CountTokens(""))
	assert.Equal(t, 2, counter.CountTokens("hello world"))
	assert.Greater(t, counter.CountTokens("a much longer sentence about rubric criteria"), 2)
}

func TestTiktokenCounter_UnknownModelFallsBack(t *testing.T) {
	counter, err := NewTiktokenCounter("some-custom-deployment")
	require.NoError(t, err)
	assert.Equal(t, 2, counter.CountTokens("hello world"))
}
