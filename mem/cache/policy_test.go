package cache

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/cachesim/mem"
	"github.com/sarchlab/cachesim/mem/idealmemcontroller"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Write Policies", func() {
	var (
		mockCtrl *gomock.Controller
		lower    *MockStorage
		c        *Comp
		data1    []byte
		data2    []byte
	)

	build := func(writeThrough, writeAllocate bool) {
		var err error
		c, err = MakeBuilder().
			WithSize(256).
			WithBlockSize(64).
			WithWayAssociativity(2).
			WithWriteThrough(writeThrough).
			WithWriteAllocate(writeAllocate).
			WithLatency(mem.Latency{BusLatency: 1, HitLatency: 2}).
			WithLowerLevel(lower).
			Build("L1")
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		lower = NewMockStorage(mockCtrl)
		data1 = []byte{1, 2, 3, 4}
		data2 = []byte{5, 6, 7, 8}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should only fetch under write-back and write-allocate", func() {
		build(false, true)
		lower.EXPECT().
			HandleRequest(uint64(0x40), 64, true, gomock.Any()).
			Return(true, 10)

		hit, time := c.HandleRequest(0x44, 4, false, data1)
		Expect(hit).To(BeFalse())
		Expect(time).To(Equal(11))

		hit, time = c.HandleRequest(0x48, 4, false, data2)
		Expect(hit).To(BeTrue())
		Expect(time).To(Equal(3))
	})

	It("should fetch on the miss and forward only the hit under "+
		"write-through and write-allocate", func() {
		build(true, true)
		gomock.InOrder(
			lower.EXPECT().
				HandleRequest(uint64(0x40), 64, true, gomock.Any()).
				Return(true, 10),
			lower.EXPECT().
				HandleRequest(uint64(0x48), 4, false, []byte{5, 6, 7, 8}).
				Return(true, 10),
		)

		hit, time := c.HandleRequest(0x44, 4, false, data1)
		Expect(hit).To(BeFalse())
		Expect(time).To(Equal(11))

		hit, time = c.HandleRequest(0x48, 4, false, data2)
		Expect(hit).To(BeTrue())
		Expect(time).To(Equal(13))
	})

	It("should install write-allocated blocks clean", func() {
		build(false, true)
		// 0x000, 0x080 and 0x100 all map to set 0.
		gomock.InOrder(
			lower.EXPECT().
				HandleRequest(uint64(0x000), 64, true, gomock.Any()).
				Return(true, 10),
			lower.EXPECT().
				HandleRequest(uint64(0x080), 64, true, gomock.Any()).
				Return(true, 10),
			lower.EXPECT().
				HandleRequest(uint64(0x100), 64, true, gomock.Any()).
				Return(true, 10),
		)

		c.HandleRequest(0x000, 4, false, data1)
		read(c, 0x080)
		_, time := c.HandleRequest(0x100, 1, true, make([]byte, 1))

		Expect(time).To(Equal(11))
		Expect(c.Stats().WriteBackCount).To(BeZero())
		Expect(c.Stats().FetchCount).To(Equal(uint64(3)))
	})

	DescribeTable("should not allocate on write misses",
		func(writeThrough bool) {
			build(writeThrough, false)
			gomock.InOrder(
				lower.EXPECT().
					HandleRequest(uint64(0x44), 4, false, []byte{1, 2, 3, 4}).
					Return(true, 10),
				lower.EXPECT().
					HandleRequest(uint64(0x48), 4, false, []byte{5, 6, 7, 8}).
					Return(true, 10),
			)

			hit, time := c.HandleRequest(0x44, 4, false, data1)
			Expect(hit).To(BeFalse())
			Expect(time).To(Equal(11))

			hit, time = c.HandleRequest(0x48, 4, false, data2)
			Expect(hit).To(BeFalse())
			Expect(time).To(Equal(11))
			Expect(c.Stats().FetchCount).To(BeZero())
		},
		Entry("write-back", false),
		Entry("write-through", true),
	)

	It("should write back the whole dirty block on eviction", func() {
		build(false, true)

		fillPattern := func(
			_ uint64, size int, _ bool, buf []byte,
		) (bool, int) {
			for i := 0; i < size; i++ {
				buf[i] = byte(i)
			}
			return true, 10
		}

		expected := make([]byte, 64)
		for i := range expected {
			expected[i] = byte(i)
		}
		copy(expected[4:], data1)

		// 0x1C0, 0x240 and 0x2C0 all map to set 1.
		gomock.InOrder(
			lower.EXPECT().
				HandleRequest(uint64(0x1C0), 64, true, gomock.Any()).
				DoAndReturn(fillPattern),
			lower.EXPECT().
				HandleRequest(uint64(0x240), 64, true, gomock.Any()).
				DoAndReturn(fillPattern),
			lower.EXPECT().
				HandleRequest(uint64(0x2C0), 64, true, gomock.Any()).
				DoAndReturn(fillPattern),
			lower.EXPECT().
				HandleRequest(uint64(0x1C0), 64, false, expected).
				Return(true, 10),
		)

		c.HandleRequest(0x1C4, 4, false, data1)
		c.HandleRequest(0x1C4, 4, false, data1)
		c.HandleRequest(0x240, 1, true, make([]byte, 1))
		_, time := c.HandleRequest(0x2C0, 1, true, make([]byte, 1))

		Expect(time).To(Equal(21))
		Expect(c.Stats().WriteBackCount).To(Equal(uint64(1)))
	})

	It("should not write back clean blocks", func() {
		build(true, true)
		lower.EXPECT().
			HandleRequest(gomock.Any(), 64, true, gomock.Any()).
			Return(true, 10).
			Times(4)
		lower.EXPECT().
			HandleRequest(uint64(0x08), 4, false, gomock.Any()).
			Return(true, 10)

		read(c, 0x000)
		c.HandleRequest(0x08, 4, false, data1)
		read(c, 0x080)
		read(c, 0x100)
		read(c, 0x180)

		Expect(c.Stats().WriteBackCount).To(BeZero())
	})
})

var _ = Describe("Bypass", func() {
	var (
		c      *Comp
		memory *idealmemcontroller.Comp
	)

	It("should bypass a block that keeps missing in a full set", func() {
		c, memory = buildHierarchy(MakeBuilder().
			WithSize(256).
			WithBlockSize(64).
			WithWayAssociativity(2).
			WithBypass(1))

		for round := 0; round < 4; round++ {
			firstRound := round == 0
			Expect(read(c, 0x000)).To(Equal(!firstRound))
			Expect(read(c, 0x080)).To(Equal(!firstRound))
			Expect(read(c, 0x100)).To(BeFalse())
		}

		stats := c.Stats()
		Expect(stats.MissCount).To(Equal(uint64(2)))
		Expect(stats.BypassCount).To(Equal(uint64(4)))
		Expect(stats.HitCount).To(Equal(uint64(6)))
		Expect(stats.ReplaceCount).To(Equal(uint64(2)))
		Expect(memory.Stats().AccessCounter).To(Equal(uint64(6)))
	})

	It("should charge the bus and the lower level for a bypass", func() {
		c, _ = buildHierarchy(MakeBuilder().
			WithSize(256).
			WithBlockSize(64).
			WithWayAssociativity(2).
			WithBypass(1))

		read(c, 0x000)
		read(c, 0x080)
		hit, time := c.HandleRequest(0x100, 1, true, make([]byte, 1))

		Expect(hit).To(BeFalse())
		Expect(time).To(Equal(3 + 106))
		Expect(c.Stats().AccessTime).To(Equal(uint64(3 * 3)))
	})

	It("should pass bypassed writes to the lower level", func() {
		c, memory = buildHierarchy(MakeBuilder().
			WithSize(256).
			WithBlockSize(64).
			WithWayAssociativity(2).
			WithBypass(1))

		read(c, 0x000)
		read(c, 0x080)
		c.HandleRequest(0x104, 2, false, []byte{9, 9})

		check := make([]byte, 2)
		Expect(memory.Storage.Read(0x104, check)).To(Succeed())
		Expect(check).To(Equal([]byte{9, 9}))
		Expect(c.Stats().BypassCount).To(Equal(uint64(1)))
	})

	It("should refill conflict misses and bypass capacity misses", func() {
		c, _ = buildHierarchy(MakeBuilder().
			WithSize(512).
			WithBlockSize(64).
			WithWayAssociativity(2).
			WithPrefetch(1).
			WithBypass(1))

		// With 4 sets, block n maps to set n%4 with tag n/4.
		for _, block := range []uint64{1, 5, 8, 1, 13, 5} {
			Expect(read(c, block*64)).To(BeFalse())
		}

		stats := c.Stats()
		Expect(stats.AccessCounter).To(Equal(uint64(6)))
		Expect(stats.MissCount).To(Equal(uint64(5)))
		Expect(stats.BypassCount).To(Equal(uint64(1)))
		Expect(stats.PrefetchCount).To(Equal(uint64(3)))
		Expect(stats.FetchCount).To(Equal(uint64(8)))

		Expect(read(c, 1*64)).To(BeTrue())
		Expect(read(c, 5*64)).To(BeTrue())
	})

	It("should install prefetched blocks even where a demand miss "+
		"would bypass", func() {
		c, _ = buildHierarchy(MakeBuilder().
			WithSize(512).
			WithBlockSize(64).
			WithWayAssociativity(2).
			WithPrefetch(1).
			WithBypass(1))

		// Four sets. Set 1 fills with 0x040 (prefetched) and 0x140.
		read(c, 0x000)
		read(c, 0x140)

		// The miss in set 0 prefetches 0x240 into the full set 1, whose
		// history is empty.
		read(c, 0x200)
		Expect(c.Stats().BypassCount).To(BeZero())
		Expect(c.Stats().PrefetchCount).To(Equal(uint64(3)))
		Expect(read(c, 0x240)).To(BeTrue())

		// A demand miss in the same set is bypassed.
		Expect(read(c, 0x340)).To(BeFalse())
		Expect(c.Stats().BypassCount).To(Equal(uint64(1)))
		Expect(read(c, 0x140)).To(BeTrue())
		Expect(read(c, 0x240)).To(BeTrue())
	})

	It("should never bypass with a zero-depth history", func() {
		c, _ = buildHierarchy(MakeBuilder().
			WithSize(256).
			WithBlockSize(64).
			WithWayAssociativity(2).
			WithBypass(0))

		for i := 0; i < 3; i++ {
			read(c, 0x000)
			read(c, 0x080)
			read(c, 0x100)
		}

		Expect(c.Stats().BypassCount).To(BeZero())
	})
})
