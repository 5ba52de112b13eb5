package service

import (
	"sort"
	"time"
)

// Clock returns the current time. Tests pin it.
type Clock func() time.Time

var SystemClock Clock = time.Now

func sortedIDs(ids []int64) []int64 {
	out := append([]int64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
