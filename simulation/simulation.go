// Package simulation builds a cache hierarchy and drives it with a trace.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/idealmemcontroller"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/sarchlab/cachesim/monitoring"
	"github.com/sirupsen/logrus"
)

// StatsTable is the table that receives the statistics of each level.
const StatsTable = "level_stats"

// A Simulation owns a hierarchy of caches in front of a memory.
//
// Access and Run must be called from a single goroutine. Report can be
// called concurrently, which is what the monitor does.
type Simulation struct {
	id     string
	config Config

	lock   sync.Mutex
	caches []*cache.Comp
	memory *idealmemcontroller.Comp

	recorder     datarecording.DataRecorder
	execRecorder *datarecording.ExecRecorder
	monitor      *monitoring.Monitor
	progressBar  *monitoring.ProgressBar
	logger       logrus.FieldLogger

	skipMalformed bool
	skippedLines  int
	totalTime     uint64
}

// ID returns the unique ID of the run.
func (s *Simulation) ID() string {
	return s.id
}

// Config returns the hierarchy description.
func (s *Simulation) Config() Config {
	return s.config
}

// Levels returns the caches from the top down, followed by the memory.
func (s *Simulation) Levels() []mem.Storage {
	levels := make([]mem.Storage, 0, len(s.caches)+1)
	for _, c := range s.caches {
		levels = append(levels, c)
	}

	return append(levels, s.memory)
}

// Caches returns the caches from the top down.
func (s *Simulation) Caches() []*cache.Comp {
	return s.caches
}

// Memory returns the memory at the bottom of the hierarchy.
func (s *Simulation) Memory() *idealmemcontroller.Comp {
	return s.memory
}

// TotalTime returns the sum of the times of all the accesses so far.
func (s *Simulation) TotalTime() uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.totalTime
}

// SkippedLines returns the number of malformed lines that Run skipped.
func (s *Simulation) SkippedLines() int {
	return s.skippedLines
}

// Access sends one access to the top level. Accesses that span several
// blocks of the top level are split at the block boundaries. The access is a
// hit only if every part hits, and its time is the sum of the times of the
// parts.
func (s *Simulation) Access(isRead bool, address uint64, size int) (
	hit bool,
	time int,
) {
	if size <= 0 {
		panic(fmt.Sprintf("invalid access size %d", size))
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	top := s.caches[0]
	blockSize := uint64(top.Config().BlockSize)
	buf := make([]byte, size)

	hit = true
	done := 0

	for done < size {
		addr := address + uint64(done)
		n := int(min(uint64(size-done), blockSize-addr%blockSize))

		partHit, partTime := top.HandleRequest(addr, n, isRead, buf[done:done+n])
		hit = hit && partHit
		time += partTime
		done += n
	}

	s.totalTime += uint64(time)

	return hit, time
}

// TrackProgress shows the progress of Run on the monitor. The total is the
// number of lines of the trace.
func (s *Simulation) TrackProgress(name string, total uint64) {
	if s.monitor == nil {
		return
	}

	s.progressBar = s.monitor.CreateProgressBar(name, total)
}

const progressInterval = 1024

// Run feeds every access of the trace to the top level. It stops at the
// first malformed line, unless the simulation skips malformed lines, and
// when ctx is done.
func (s *Simulation) Run(ctx context.Context, reader *trace.Reader) error {
	s.logger.Info("simulation started")

	count := 0

	for {
		access, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if errors.Is(err, trace.ErrMalformedLine) && s.skipMalformed {
			s.logger.Warn(err)
			s.skippedLines++

			continue
		}

		if err != nil {
			return err
		}

		s.Access(access.IsRead, access.Address, access.Size)

		count++
		if count%progressInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}

			s.updateProgress(reader.Line())
		}
	}

	s.updateProgress(reader.Line())
	s.completeProgress()

	if s.config.FlushAtEnd {
		s.Flush()
	}

	s.logger.WithFields(logrus.Fields{
		"accesses":   count,
		"total_time": s.TotalTime(),
	}).Info("simulation finished")

	return nil
}

func (s *Simulation) updateProgress(line int) {
	if s.progressBar != nil {
		s.progressBar.SetFinished(uint64(line))
	}
}

func (s *Simulation) completeProgress() {
	if s.progressBar != nil {
		s.monitor.CompleteProgressBar(s.progressBar)
		s.progressBar = nil
	}
}

// Flush writes every dirty block back, from the top level down, so that the
// memory holds the final data. It returns the time spent.
func (s *Simulation) Flush() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	time := 0
	for _, c := range s.caches {
		time += c.Flush()
	}

	return time
}

// Terminate writes the execution information and releases the data
// recorder.
func (s *Simulation) Terminate() error {
	if s.recorder == nil {
		return nil
	}

	s.execRecorder.End()

	return s.recorder.Close()
}
