package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCommunity(t *testing.T) {
	got, err := NormalizeCommunity("  Growth Lab ")
	assert.NoError(t, err)
	assert.Equal(t, "growth-lab", got)

	got, err = NormalizeCommunity("growth-lab")
	assert.NoError(t, err)
	assert.Equal(t, "growth-lab", got)

	_, err = NormalizeCommunity("   ")
	assert.ErrorIs(t, err, ErrInvalidCommunity)

	_, err = NormalizeCommunity("!!!")
	assert.ErrorIs(t, err, ErrInvalidCommunity)
}
