package cmd

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/sarchlab/cachesim/monitoring"
	"github.com/sarchlab/cachesim/simulation"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type runOptions struct {
	configPath string
	level      simulation.LevelConfig
	memory     simulation.MemoryConfig
	flush      bool

	skipMalformed bool
	logEvents     bool

	db           string
	recordEvents bool

	monitor     bool
	monitorPort int
	openBrowser bool
}

// geometryFlags are ignored when a hierarchy file is given.
var geometryFlags = []string{
	"size", "block-size", "associativity", "write-through",
	"write-allocate", "prefetch", "replacement", "history", "bypass",
	"bus-latency", "hit-latency",
	"mem-bus-latency", "mem-latency", "mem-capacity",
}

func newRunCmd() *cobra.Command {
	defaults := simulation.DefaultConfig()
	opts := &runOptions{
		level:  defaults.Levels[0],
		memory: defaults.Memory,
	}

	runCmd := &cobra.Command{
		Use:   "run <trace>",
		Short: "Run a trace through the cache hierarchy",
		Long: `Run reads a trace with one access per line, in the form ` +
			`"<r|w> <hex address> [size]", and prints the statistics of ` +
			`every level when the trace ends. Without --config, the ` +
			`hierarchy is a single cache described by the flags.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, args[0])
		},
	}

	opts.bindFlags(runCmd)

	return runCmd
}

func (o *runOptions) bindFlags(c *cobra.Command) {
	f := c.Flags()
	var replacement string

	f.StringVar(&o.configPath, "config", "",
		"YAML file describing a multi-level hierarchy")

	f.IntVar(&o.level.Size, "size", o.level.Size, "Cache size in bytes")
	f.IntVar(&o.level.BlockSize, "block-size", o.level.BlockSize,
		"Block size in bytes")
	f.IntVar(&o.level.Associativity, "associativity",
		o.level.Associativity, "Number of ways per set")
	f.BoolVar(&o.level.WriteThrough, "write-through",
		o.level.WriteThrough, "Write through instead of write back")
	f.BoolVar(&o.level.WriteAllocate, "write-allocate",
		o.level.WriteAllocate, "Allocate a block on a write miss")
	f.IntVar(&o.level.Prefetch, "prefetch", o.level.Prefetch,
		"Number of blocks to prefetch after a miss")
	f.StringVar(&replacement, "replacement",
		string(o.level.Replacement), "Replacement policy (lru, plru)")
	f.IntVar(&o.level.HistoryDepth, "history", o.level.HistoryDepth,
		"Number of evicted tags remembered per set")
	f.BoolVar(&o.level.BypassEnabled, "bypass", o.level.BypassEnabled,
		"Bypass the cache on capacity misses")
	f.IntVar(&o.level.Latency.BusLatency, "bus-latency",
		o.level.Latency.BusLatency, "Cache bus latency in cycles")
	f.IntVar(&o.level.Latency.HitLatency, "hit-latency",
		o.level.Latency.HitLatency, "Cache hit latency in cycles")
	f.IntVar(&o.memory.Latency.BusLatency, "mem-bus-latency",
		o.memory.Latency.BusLatency, "Memory bus latency in cycles")
	f.IntVar(&o.memory.Latency.HitLatency, "mem-latency",
		o.memory.Latency.HitLatency, "Memory access latency in cycles")
	f.Uint64Var(&o.memory.Capacity, "mem-capacity", o.memory.Capacity,
		"Bytes of memory that hold data, 0 to keep no data")

	f.BoolVar(&o.flush, "flush", false,
		"Write back all dirty blocks when the trace ends")
	f.BoolVar(&o.skipMalformed, "skip-malformed", false,
		"Skip malformed trace lines instead of stopping")
	f.BoolVar(&o.logEvents, "log-events", false,
		"Log every cache event at debug level")

	f.StringVar(&o.db, "db", envString(envDB, ""),
		"Record results to a SQLite file or a clickhouse:// DSN")
	f.BoolVar(&o.recordEvents, "record-events", false,
		"Record every cache event, requires --db")

	f.BoolVar(&o.monitor, "monitor", false,
		"Serve the monitoring web page during the run")
	f.IntVar(&o.monitorPort, "monitor-port", envInt(envMonitorPort, 0),
		"Port of the monitoring server, 0 for a random port")
	f.BoolVar(&o.openBrowser, "open-browser", false,
		"Open the monitoring page in a browser")

	c.PreRunE = func(_ *cobra.Command, _ []string) error {
		o.level.Replacement = cache.ReplacementPolicy(replacement)
		return nil
	}
}

func (o *runOptions) hierarchy(c *cobra.Command) (simulation.Config, error) {
	if o.configPath == "" {
		return simulation.Config{
			Levels:     []simulation.LevelConfig{o.level},
			Memory:     o.memory,
			FlushAtEnd: o.flush,
		}, nil
	}

	for _, name := range geometryFlags {
		if c.Flags().Changed(name) {
			logrus.Warnf("--%s is ignored when --config is given", name)
		}
	}

	config, err := simulation.LoadConfig(o.configPath)
	if err != nil {
		return simulation.Config{}, err
	}

	config.FlushAtEnd = config.FlushAtEnd || o.flush

	return config, nil
}

func (o *runOptions) run(c *cobra.Command, tracePath string) error {
	config, err := o.hierarchy(c)
	if err != nil {
		return err
	}

	if err := config.Validate(); err != nil {
		return err
	}

	builder := simulation.MakeBuilder().
		WithConfig(config).
		WithLogger(logrus.StandardLogger())

	if o.skipMalformed {
		builder = builder.WithMalformedLinesSkipped()
	}

	if o.logEvents {
		builder = builder.WithEventLogging()
	}

	if o.recordEvents && o.db == "" {
		return errors.New("--record-events requires --db")
	}

	var recorder datarecording.DataRecorder
	if o.db != "" {
		recorder, err = datarecording.Open(o.db)
		if err != nil {
			return err
		}

		builder = builder.WithDataRecorder(recorder)
		if o.recordEvents {
			builder = builder.WithEventRecording()
		}
	}

	if o.monitor {
		monitor := monitoring.NewMonitor().
			WithPortNumber(o.monitorPort).
			WithOpenBrowser(o.openBrowser)

		if _, err := monitor.StartServer(); err != nil {
			return err
		}
		defer stopMonitor(monitor)

		builder = builder.WithMonitor(monitor)
	}

	sim, err := builder.Build()
	if err != nil {
		if recorder != nil {
			_ = recorder.Close()
		}

		return err
	}

	if err := o.runTrace(sim, tracePath); err != nil {
		_ = sim.Terminate()
		return err
	}

	if err := simulation.PrintReport(c.OutOrStdout(), sim.Report()); err != nil {
		return err
	}

	printSummary(c.OutOrStdout(), sim)
	sim.RecordStats()

	return sim.Terminate()
}

func printSummary(w io.Writer, sim *simulation.Simulation) {
	color.New(color.Bold).Fprintf(w, "Total time: %d cycles\n",
		sim.TotalTime())

	if n := sim.SkippedLines(); n > 0 {
		color.New(color.FgYellow).Fprintf(w,
			"Malformed lines skipped: %d\n", n)
	}
}

func (o *runOptions) runTrace(sim *simulation.Simulation, path string) error {
	if o.monitor {
		lines, err := countLines(path)
		if err != nil {
			return err
		}

		sim.TrackProgress(path, lines)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return sim.Run(ctx, trace.NewReader(f))
}

func countLines(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return countReaderLines(f)
}

func countReaderLines(r io.Reader) (uint64, error) {
	scanner := bufio.NewScanner(r)
	lines := uint64(0)

	for scanner.Scan() {
		lines++
	}

	return lines, scanner.Err()
}

func stopMonitor(m *monitoring.Monitor) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.StopServer(ctx); err != nil {
		logrus.Warnf("stopping monitor: %v", err)
	}
}
