package simulation

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sarchlab/cachesim/mem"
)

// A LevelReport summarizes the statistics of one level.
type LevelReport struct {
	Name              string         `json:"name"`
	Stats             mem.Statistics `json:"stats"`
	MissRate          float64        `json:"miss_rate"`
	HitRate           float64        `json:"hit_rate"`
	AverageAccessTime float64        `json:"average_access_time"`
	AMAT              float64        `json:"amat"`
}

// Report returns one row per level, from the top down to the memory. The
// AMAT of a level covers that level and everything below it.
func (s *Simulation) Report() []LevelReport {
	s.lock.Lock()
	defer s.lock.Unlock()

	levels := s.Levels()
	report := make([]LevelReport, 0, len(levels))

	for i, l := range levels {
		stats := l.Stats()
		report = append(report, LevelReport{
			Name:              l.Name(),
			Stats:             stats,
			MissRate:          stats.MissRate(),
			HitRate:           stats.HitRate(),
			AverageAccessTime: stats.AverageAccessTime(),
			AMAT:              mem.AMAT(levels[i:]),
		})
	}

	return report
}

type levelStatsEntry struct {
	RunID          string
	Level          string
	AccessCounter  uint64
	AccessTime     uint64
	HitCount       uint64
	MissCount      uint64
	BypassCount    uint64
	FetchCount     uint64
	ReplaceCount   uint64
	PrefetchCount  uint64
	WriteBackCount uint64
	MissRate       float64
	AMAT           float64
}

// RecordStats writes the report into the level_stats table of the data
// recorder. It does nothing without a recorder.
func (s *Simulation) RecordStats() {
	if s.recorder == nil {
		return
	}

	s.recorder.CreateTable(StatsTable, levelStatsEntry{})

	for _, r := range s.Report() {
		s.recorder.InsertData(StatsTable, levelStatsEntry{
			RunID:          s.id,
			Level:          r.Name,
			AccessCounter:  r.Stats.AccessCounter,
			AccessTime:     r.Stats.AccessTime,
			HitCount:       r.Stats.HitCount,
			MissCount:      r.Stats.MissCount,
			BypassCount:    r.Stats.BypassCount,
			FetchCount:     r.Stats.FetchCount,
			ReplaceCount:   r.Stats.ReplaceCount,
			PrefetchCount:  r.Stats.PrefetchCount,
			WriteBackCount: r.Stats.WriteBackCount,
			MissRate:       r.MissRate,
			AMAT:           r.AMAT,
		})
	}

	s.recorder.Flush()
}

// PrintReport writes the report as a table.
func PrintReport(w io.Writer, report []LevelReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintln(tw, "Level\tAccesses\tHits\tMisses\tBypasses\t"+
		"Fetches\tPrefetches\tWrite-backs\tMiss rate\tAccess time\tAMAT\t")

	for _, r := range report {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%.2f%%\t%d\t%.2f\t\n",
			r.Name,
			r.Stats.AccessCounter,
			r.Stats.HitCount,
			r.Stats.MissCount,
			r.Stats.BypassCount,
			r.Stats.FetchCount,
			r.Stats.PrefetchCount,
			r.Stats.WriteBackCount,
			r.MissRate*100,
			r.Stats.AccessTime,
			r.AMAT,
		)
	}

	return tw.Flush()
}
