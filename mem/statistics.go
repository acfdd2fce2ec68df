package mem

// Statistics are the counters kept by every level. All counters only grow
// during a simulation.
type Statistics struct {
	// AccessCounter counts demand requests. Prefetches are not included.
	AccessCounter uint64 `json:"access_counter"`

	// AccessTime is the simulated time attributed to this level, excluding
	// the time spent in lower levels.
	AccessTime uint64 `json:"access_time"`

	HitCount       uint64 `json:"hit_count"`
	MissCount      uint64 `json:"miss_count"`
	BypassCount    uint64 `json:"bypass_count"`
	FetchCount     uint64 `json:"fetch_count"`
	ReplaceCount   uint64 `json:"replace_count"`
	PrefetchCount  uint64 `json:"prefetch_count"`
	WriteBackCount uint64 `json:"write_back_count"`
}

// MissRate returns the fraction of demand requests that were not served by
// the level. Bypassed requests count as misses. A level that has not been
// accessed has a miss rate of 0.
func (s Statistics) MissRate() float64 {
	if s.AccessCounter == 0 {
		return 0
	}

	return float64(s.MissCount+s.BypassCount) / float64(s.AccessCounter)
}

// HitRate returns the fraction of demand requests served by the level.
func (s Statistics) HitRate() float64 {
	if s.AccessCounter == 0 {
		return 0
	}

	return float64(s.HitCount) / float64(s.AccessCounter)
}

// AverageAccessTime returns the measured time attributed to the level per
// demand request.
func (s Statistics) AverageAccessTime() float64 {
	if s.AccessCounter == 0 {
		return 0
	}

	return float64(s.AccessTime) / float64(s.AccessCounter)
}

// AMAT computes the average memory access time of a hierarchy, given its
// levels from the top to the bottom. The last level is treated as always
// hitting.
//
//	AMAT(last) = bus + hit
//	AMAT(i)    = bus + hit + missRate(i) * AMAT(i+1)
func AMAT(levels []Storage) float64 {
	amat := 0.0

	for i := len(levels) - 1; i >= 0; i-- {
		latency := float64(levels[i].Latency().Total())
		if i == len(levels)-1 {
			amat = latency
			continue
		}

		amat = latency + levels[i].Stats().MissRate()*amat
	}

	return amat
}
