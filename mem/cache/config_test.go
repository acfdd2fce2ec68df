package cache

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/cachesim/mem"
	"github.com/sarchlab/cachesim/mem/idealmemcontroller"
)

var _ = Describe("Config", func() {
	valid := func() Config {
		return Config{
			Size:          1024,
			BlockSize:     64,
			Associativity: 2,
			WriteAllocate: true,
			Replacement:   ReplacementLRU,
		}
	}

	It("should derive the number of sets", func() {
		Expect(valid().Validate()).To(Succeed())
		Expect(valid().NumSets()).To(Equal(8))
	})

	DescribeTable("should reject",
		func(modify func(c *Config)) {
			c := valid()
			modify(&c)

			err := c.Validate()

			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, ErrInvalidConfig)).To(BeTrue())
		},
		Entry("a size that is not a power of two",
			func(c *Config) { c.Size = 1000 }),
		Entry("a block size that is not a power of two",
			func(c *Config) { c.BlockSize = 48 }),
		Entry("an associativity that is not a power of two",
			func(c *Config) { c.Associativity = 3 }),
		Entry("a zero associativity",
			func(c *Config) { c.Associativity = 0 }),
		Entry("a single set",
			func(c *Config) { c.Size = 128 }),
		Entry("blocks larger than the cache",
			func(c *Config) { c.BlockSize = 2048 }),
		Entry("a negative prefetch depth",
			func(c *Config) { c.Prefetch = -1 }),
		Entry("a negative history depth",
			func(c *Config) { c.HistoryDepth = -1 }),
		Entry("an unknown replacement policy",
			func(c *Config) { c.Replacement = "fifo" }),
	)

	It("should only track history when bypass is enabled", func() {
		c := valid()
		c.HistoryDepth = 4
		Expect(c.BypassTracking()).To(BeFalse())

		c.BypassEnabled = true
		Expect(c.BypassTracking()).To(BeTrue())

		c.HistoryDepth = 0
		Expect(c.BypassTracking()).To(BeFalse())
	})

	Context("when applied to a cache", func() {
		var (
			memory *idealmemcontroller.Comp
			c      *Comp
		)

		BeforeEach(func() {
			memory = idealmemcontroller.MakeBuilder().
				WithNewStorage(4 * mem.KB).
				Build("Memory")
			c = New("L1")
			c.SetLower(memory)
			Expect(c.SetConfig(valid())).To(Succeed())
		})

		It("should return the applied configuration", func() {
			Expect(c.Config()).To(Equal(valid()))
		})

		It("should leave the cache untouched on failure", func() {
			buf := make([]byte, 4)
			c.HandleRequest(0x40, 4, true, buf)

			bad := valid()
			bad.Size = 1000
			err := c.SetConfig(bad)

			Expect(errors.Is(err, ErrInvalidConfig)).To(BeTrue())
			Expect(c.Config()).To(Equal(valid()))

			hit, _ := c.HandleRequest(0x40, 4, true, buf)
			Expect(hit).To(BeTrue())
		})

		It("should drop the content on success", func() {
			buf := make([]byte, 4)
			c.HandleRequest(0x40, 4, true, buf)

			Expect(c.SetConfig(valid())).To(Succeed())

			hit, _ := c.HandleRequest(0x40, 4, true, buf)
			Expect(hit).To(BeFalse())
		})
	})
})
