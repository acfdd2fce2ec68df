package cmd

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
)

const smallTrace = `# two reads of the same block and a write
r 0x0
r 0x8 4
w 0x40 4
`

const hierarchyYAML = `
levels:
  - name: L1
    size: 1024
    block_size: 64
    associativity: 2
    latency: {bus: 1, hit: 2}
  - name: L2
    size: 4096
    block_size: 64
    associativity: 4
    latency: {bus: 3, hit: 10}
memory:
  latency: {bus: 6, hit: 100}
`

var _ = Describe("Command line", func() {
	var (
		dir       string
		tracePath string
		out       *bytes.Buffer
	)

	execute := func(args ...string) error {
		root := newRootCmd()
		root.SetArgs(args)
		root.SetOut(out)
		root.SetErr(out)

		return root.Execute()
	}

	reportLines := func() []string {
		return strings.Split(strings.TrimSpace(out.String()), "\n")
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		tracePath = filepath.Join(dir, "trace.txt")
		out = new(bytes.Buffer)

		Expect(os.WriteFile(tracePath, []byte(smallTrace), 0o644)).
			To(Succeed())
	})

	AfterEach(func() {
		logrus.SetLevel(logrus.InfoLevel)
	})

	It("should print the version", func() {
		Expect(execute("version")).To(Succeed())
		Expect(out.String()).To(Equal("cachesim dev\n"))
	})

	It("should reject an unknown log level", func() {
		err := execute("--log-level", "loud", "run", tracePath)

		Expect(err).To(HaveOccurred())
	})

	It("should require a trace", func() {
		Expect(execute("run")).NotTo(Succeed())
	})

	It("should run the default hierarchy", func() {
		Expect(execute("--log-level", "error", "run", tracePath)).
			To(Succeed())

		lines := reportLines()
		Expect(lines).To(HaveLen(4))
		Expect(lines[0]).To(ContainSubstring("Miss rate"))
		Expect(strings.Fields(lines[1])[:4]).
			To(Equal([]string{"L1", "3", "1", "2"}))
		Expect(strings.Fields(lines[2])[0]).To(Equal("Memory"))
		Expect(lines[3]).To(HavePrefix("Total time: "))
	})

	It("should build a single level from the flags", func() {
		Expect(execute("--log-level", "error", "run", tracePath,
			"--size", "512", "--block-size", "128", "--associativity", "2",
			"--replacement", "plru", "--write-allocate=false",
		)).To(Succeed())

		Expect(strings.Fields(reportLines()[1])[:4]).
			To(Equal([]string{"L1", "3", "2", "1"}))
	})

	It("should reject an invalid geometry", func() {
		err := execute("--log-level", "error", "run", tracePath,
			"--size", "100")

		Expect(err).To(MatchError(ContainSubstring("power of two")))
	})

	It("should reject an unknown replacement policy", func() {
		err := execute("--log-level", "error", "run", tracePath,
			"--replacement", "random")

		Expect(err).To(HaveOccurred())
	})

	It("should load a hierarchy file", func() {
		configPath := filepath.Join(dir, "hierarchy.yaml")
		Expect(os.WriteFile(configPath, []byte(hierarchyYAML), 0o644)).
			To(Succeed())

		Expect(execute("--log-level", "error", "run", tracePath,
			"--config", configPath)).To(Succeed())

		lines := reportLines()
		Expect(lines).To(HaveLen(5))
		Expect(strings.Fields(lines[1])[0]).To(Equal("L1"))
		Expect(strings.Fields(lines[2])[0]).To(Equal("L2"))
		Expect(strings.Fields(lines[3])[0]).To(Equal("Memory"))
	})

	It("should stop at a malformed line", func() {
		Expect(os.WriteFile(tracePath, []byte("r 0x0\nx 0x40\n"), 0o644)).
			To(Succeed())

		err := execute("--log-level", "error", "run", tracePath)

		Expect(err).To(MatchError(ContainSubstring("line 2")))
	})

	It("should skip malformed lines when asked", func() {
		Expect(os.WriteFile(tracePath, []byte("r 0x0\nx 0x40\n"), 0o644)).
			To(Succeed())

		Expect(execute("--log-level", "error", "run", tracePath,
			"--skip-malformed")).To(Succeed())

		lines := reportLines()
		Expect(strings.Fields(lines[1])[1]).To(Equal("1"))
		Expect(lines[len(lines)-1]).To(Equal("Malformed lines skipped: 1"))
	})

	It("should require a database to record events", func() {
		err := execute("--log-level", "error", "run", tracePath,
			"--record-events")

		Expect(err).To(MatchError(ContainSubstring("--db")))
	})

	It("should record the results", func() {
		dbPath := filepath.Join(dir, "results")

		Expect(execute("--log-level", "error", "run", tracePath,
			"--db", dbPath, "--record-events")).To(Succeed())

		db, err := sql.Open("sqlite3", dbPath+".sqlite3")
		Expect(err).NotTo(HaveOccurred())
		defer db.Close()

		var count int
		Expect(db.QueryRow("SELECT COUNT(*) FROM level_stats").
			Scan(&count)).To(Succeed())
		Expect(count).To(Equal(2))
	})

	It("should count trace lines", func() {
		lines, err := countReaderLines(strings.NewReader(smallTrace))

		Expect(err).NotTo(HaveOccurred())
		Expect(lines).To(Equal(uint64(4)))
	})
})
