package simulation

import (
	"github.com/rs/xid"
	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/idealmemcontroller"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/sarchlab/cachesim/monitoring"
	"github.com/sirupsen/logrus"
)

// Builder can be used to build a simulation.
type Builder struct {
	config        Config
	recorder      datarecording.DataRecorder
	monitor       *monitoring.Monitor
	logger        logrus.FieldLogger
	recordEvents  bool
	logEvents     bool
	skipMalformed bool
}

// MakeBuilder creates a new builder with the default hierarchy.
func MakeBuilder() Builder {
	return Builder{
		config: DefaultConfig(),
		logger: logrus.StandardLogger(),
	}
}

// WithConfig sets the hierarchy to build.
func (b Builder) WithConfig(config Config) Builder {
	b.config = config
	return b
}

// WithDataRecorder sets the recorder that receives the execution
// information and the statistics.
func (b Builder) WithDataRecorder(recorder datarecording.DataRecorder) Builder {
	b.recorder = recorder
	return b
}

// WithEventRecording makes every cache and memory event recorded. It has no
// effect without a data recorder.
func (b Builder) WithEventRecording() Builder {
	b.recordEvents = true
	return b
}

// WithEventLogging makes every cache and memory event logged at debug level.
func (b Builder) WithEventLogging() Builder {
	b.logEvents = true
	return b
}

// WithMonitor registers the levels and the statistics with the monitor.
func (b Builder) WithMonitor(monitor *monitoring.Monitor) Builder {
	b.monitor = monitor
	return b
}

// WithLogger sets the logger of the simulation.
func (b Builder) WithLogger(logger logrus.FieldLogger) Builder {
	b.logger = logger
	return b
}

// WithMalformedLinesSkipped makes Run log malformed trace lines and go on
// instead of failing.
func (b Builder) WithMalformedLinesSkipped() Builder {
	b.skipMalformed = true
	return b
}

// Build builds the simulation. It fails if the hierarchy is invalid.
func (b Builder) Build() (*Simulation, error) {
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		id:            xid.New().String(),
		config:        b.config,
		recorder:      b.recorder,
		monitor:       b.monitor,
		logger:        b.logger,
		skipMalformed: b.skipMalformed,
	}

	if err := b.buildHierarchy(s); err != nil {
		return nil, err
	}

	b.attachTracers(s)
	b.registerWithMonitor(s)

	if b.recorder != nil {
		s.execRecorder = datarecording.NewExecRecorder(b.recorder)
		s.execRecorder.Start()
		s.execRecorder.Add("Run ID", s.id)
	}

	return s, nil
}

func (b Builder) buildHierarchy(s *Simulation) error {
	memBuilder := idealmemcontroller.MakeBuilder().
		WithLatency(b.config.Memory.Latency)
	if b.config.Memory.Capacity > 0 {
		memBuilder = memBuilder.WithNewStorage(b.config.Memory.Capacity)
	}

	s.memory = memBuilder.Build("Memory")
	s.memory.SetStats(mem.Statistics{})

	var lower mem.Storage = s.memory

	s.caches = make([]*cache.Comp, len(b.config.Levels))
	for i := len(b.config.Levels) - 1; i >= 0; i-- {
		level := b.config.Levels[i]

		c, err := cache.MakeBuilder().
			WithConfig(level.Config).
			WithLatency(level.Latency).
			WithLowerLevel(lower).
			Build(level.Name)
		if err != nil {
			return err
		}

		b.logger.WithFields(logrus.Fields{
			"size":           level.Size,
			"block_size":     level.BlockSize,
			"associativity":  level.Associativity,
			"write_through":  level.WriteThrough,
			"write_allocate": level.WriteAllocate,
			"prefetch":       level.Prefetch,
			"replacement":    level.Replacement,
			"history":        level.HistoryDepth,
			"bypass":         level.BypassEnabled,
			"bus_latency":    level.Latency.BusLatency,
			"hit_latency":    level.Latency.HitLatency,
		}).Debugf("level %s configured", level.Name)

		s.caches[i] = c
		lower = c
	}

	return nil
}

func (b Builder) attachTracers(s *Simulation) {
	if b.recordEvents && b.recorder != nil {
		tracer := trace.NewDBTracer(b.recorder)
		for _, l := range s.Levels() {
			l.AcceptHook(tracer)
		}
	}

	if b.logEvents {
		tracer := trace.NewLogTracer(b.logger)
		for _, l := range s.Levels() {
			l.AcceptHook(tracer)
		}
	}
}

func (b Builder) registerWithMonitor(s *Simulation) {
	if b.monitor == nil {
		return
	}

	for _, l := range s.Levels() {
		b.monitor.RegisterLevel(l)
	}

	b.monitor.RegisterReporter(func() any { return s.Report() })
}
