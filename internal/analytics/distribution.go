package analytics

import (
	"github.com/smallbiznis/memberhud/internal/membership/domain"
)

const (
	maxLevel         = 8
	renewalOpenEnded = 8
)

type LevelBucket struct {
	Level   int
	Count   int
	Percent float64
}

// RenewalBucket counts members by months renewed. The last bucket,
// MonthsRenewed 8, holds every member at 8 or more.
type RenewalBucket struct {
	MonthsRenewed int
	Count         int
	Percent       float64
}

func (b RenewalBucket) OpenEnded() bool { return b.MonthsRenewed >= renewalOpenEnded }

type StandingSplit struct {
	ActiveCount       int
	ActivePercent     float64
	CancellingCount   int
	CancellingPercent float64
}

// LevelDistribution histograms levels 1 through 8. Members of unknown level
// are not part of the total.
func LevelDistribution(members []domain.Member) []LevelBucket {
	counts := make([]int, maxLevel+1)
	total := 0
	for _, m := range members {
		if m.Level < 1 || m.Level > maxLevel {
			continue
		}
		counts[m.Level]++
		total++
	}
	out := make([]LevelBucket, 0, maxLevel)
	for lv := 1; lv <= maxLevel; lv++ {
		out = append(out, LevelBucket{Level: lv, Count: counts[lv], Percent: percentOf(counts[lv], total)})
	}
	return out
}

// SplitStanding counts active against cancelling members.
func SplitStanding(members []domain.Member) StandingSplit {
	var split StandingSplit
	for _, m := range members {
		switch m.Standing {
		case domain.StandingActive:
			split.ActiveCount++
		case domain.StandingCancelling:
			split.CancellingCount++
		}
	}
	split.ActivePercent = percentOf(split.ActiveCount, len(members))
	split.CancellingPercent = percentOf(split.CancellingCount, len(members))
	return split
}

// RenewalDistribution histograms months renewed into 0..7 and 8+.
func RenewalDistribution(members []domain.Member) []RenewalBucket {
	counts := make([]int, renewalOpenEnded+1)
	total := 0
	for _, m := range members {
		if m.MonthsRenewed < 0 {
			continue
		}
		idx := m.MonthsRenewed
		if idx > renewalOpenEnded {
			idx = renewalOpenEnded
		}
		counts[idx]++
		total++
	}
	out := make([]RenewalBucket, 0, len(counts))
	for i, c := range counts {
		out = append(out, RenewalBucket{MonthsRenewed: i, Count: c, Percent: percentOf(c, total)})
	}
	return out
}
