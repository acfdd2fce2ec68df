// Package trace reads memory access traces and records what the levels of a
// hierarchy do with them.
package trace

import (
	"fmt"
	"sync"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem"
	"github.com/sarchlab/cachesim/sim/hooking"
	"github.com/sirupsen/logrus"
)

// EventTable is the table that the DB tracer writes into.
const EventTable = "cache_events"

// eventEntry represents a cache or memory event in the database.
type eventEntry struct {
	Seq     uint64 `json:"seq"`
	Level   string `json:"level"`
	What    string `json:"what"`
	Kind    string `json:"kind"`
	IsRead  bool   `json:"is_read"`
	Address uint64 `json:"address"`
	Size    int    `json:"size"`
	Time    int    `json:"time"`
}

// A DBTracer is a hook that records every access event it sees into a data
// recorder.
type DBTracer struct {
	lock     sync.Mutex
	recorder datarecording.DataRecorder
	seq      uint64
}

// NewDBTracer creates a DBTracer and the table it writes into.
func NewDBTracer(recorder datarecording.DataRecorder) *DBTracer {
	recorder.CreateTable(EventTable, eventEntry{})

	return &DBTracer{recorder: recorder}
}

// Func records the event.
func (t *DBTracer) Func(ctx hooking.HookCtx) {
	event, ok := ctx.Item.(mem.AccessEvent)
	if !ok {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	t.seq++

	t.recorder.InsertData(EventTable, eventEntry{
		Seq:     t.seq,
		Level:   event.Level,
		What:    ctx.Pos.Name,
		Kind:    event.Kind.String(),
		IsRead:  event.IsRead,
		Address: event.Address,
		Size:    event.Size,
		Time:    event.Time,
	})
}

// A LogTracer is a hook that logs every access event at debug level.
type LogTracer struct {
	logger logrus.FieldLogger
}

// NewLogTracer creates a LogTracer that writes to logger.
func NewLogTracer(logger logrus.FieldLogger) *LogTracer {
	return &LogTracer{logger: logger}
}

// Func logs the event.
func (t *LogTracer) Func(ctx hooking.HookCtx) {
	event, ok := ctx.Item.(mem.AccessEvent)
	if !ok {
		return
	}

	t.logger.WithFields(logrus.Fields{
		"level":   event.Level,
		"kind":    event.Kind.String(),
		"read":    event.IsRead,
		"address": fmt.Sprintf("0x%x", event.Address),
		"size":    event.Size,
		"time":    event.Time,
	}).Debug(ctx.Pos.Name)
}
