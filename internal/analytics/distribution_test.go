package analytics

import (
	"testing"

	"github.com/smallbiznis/memberhud/internal/membership/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelDistribution(t *testing.T) {
	members := []domain.Member{{Level: 1}, {Level: 1}, {Level: 3}, {Level: 8}, {Level: 0}, {Level: 9}}

	buckets := LevelDistribution(members)
	require.Len(t, buckets, 8)
	assert.Equal(t, LevelBucket{Level: 1, Count: 2, Percent: 50}, buckets[0])
	assert.Equal(t, LevelBucket{Level: 3, Count: 1, Percent: 25}, buckets[2])
	assert.Equal(t, LevelBucket{Level: 8, Count: 1, Percent: 25}, buckets[7])
	assert.Equal(t, LevelBucket{Level: 2}, buckets[1])

	empty := LevelDistribution(nil)
	require.Len(t, empty, 8)
	assert.Zero(t, empty[0].Percent)
}

func TestSplitStanding(t *testing.T) {
	members := []domain.Member{
		{Standing: domain.StandingActive},
		{Standing: domain.StandingActive},
		{Standing: domain.StandingCancelling},
	}
	split := SplitStanding(members)
	assert.Equal(t, 2, split.ActiveCount)
	assert.Equal(t, 66.67, split.ActivePercent)
	assert.Equal(t, 1, split.CancellingCount)
	assert.Equal(t, 33.33, split.CancellingPercent)

	assert.Equal(t, StandingSplit{}, SplitStanding(nil))
}

func TestRenewalDistribution(t *testing.T) {
	members := []domain.Member{
		{MonthsRenewed: 0}, {MonthsRenewed: 2}, {MonthsRenewed: 8}, {MonthsRenewed: 30},
	}
	buckets := RenewalDistribution(members)
	require.Len(t, buckets, 9)
	assert.Equal(t, 1, buckets[0].Count)
	assert.Equal(t, 25.0, buckets[0].Percent)
	assert.Equal(t, 1, buckets[2].Count)
	assert.Equal(t, 2, buckets[8].Count)
	assert.Equal(t, 50.0, buckets[8].Percent)
	assert.True(t, buckets[8].OpenEnded())
	assert.False(t, buckets[7].OpenEnded())
}
