package monitoring

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/cachesim/mem"
	"github.com/sarchlab/cachesim/mem/idealmemcontroller"
)

var _ = ginkgo.Describe("Monitor", func() {
	var (
		m       *Monitor
		memory  *idealmemcontroller.Comp
		handler http.Handler
	)

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		return rec
	}

	ginkgo.BeforeEach(func() {
		m = NewMonitor()
		memory = idealmemcontroller.MakeBuilder().Build("Memory")
		m.RegisterLevel(memory)
		handler = m.Handler()
	})

	ginkgo.It("should ignore privileged port numbers", func() {
		m.WithPortNumber(80)
		Expect(m.portNumber).To(Equal(0))

		m.WithPortNumber(8080)
		Expect(m.portNumber).To(Equal(8080))
	})

	ginkgo.It("should list levels", func() {
		rec := get("/api/levels")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(`["Memory"]`))
	})

	ginkgo.It("should serialize a level", func() {
		rec := get("/api/level/Memory")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	ginkgo.It("should return 404 for unknown levels", func() {
		rec := get("/api/level/L3")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	ginkgo.It("should reject malformed field requests", func() {
		rec := get("/api/field/notjson")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	ginkgo.It("should serve statistics from the reporter", func() {
		rec := get("/api/stats")
		Expect(rec.Body.String()).To(MatchJSON(`[]`))

		m.RegisterReporter(func() any {
			return map[string]mem.Statistics{
				"Memory": memory.Stats(),
			}
		})
		memory.HandleRequest(0, 1, true, make([]byte, 1))

		rec = get("/api/stats")

		stats := map[string]mem.Statistics{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &stats)).To(Succeed())
		Expect(stats["Memory"].AccessCounter).To(Equal(uint64(1)))
	})

	ginkgo.It("should list and complete progress bars", func() {
		bar := m.CreateProgressBar("trace", 10)
		bar.SetFinished(4)

		rec := get("/api/progress")

		bars := []ProgressBarStatus{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Name).To(Equal("trace"))
		Expect(bars[0].Total).To(Equal(uint64(10)))
		Expect(bars[0].Finished).To(Equal(uint64(4)))

		m.CompleteProgressBar(bar)

		rec = get("/api/progress")
		Expect(rec.Body.String()).To(MatchJSON(`[]`))
	})

	ginkgo.It("should report resource usage", func() {
		rec := get("/api/resource")

		Expect(rec.Code).To(Equal(http.StatusOK))

		rsp := resourceRsp{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	ginkgo.It("should collect a CPU profile", func() {
		m.profileDuration = 10 * time.Millisecond

		rec := get("/api/profile")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).
			To(Equal("application/json"))
	})

	ginkgo.It("should serve the web page", func() {
		rec := get("/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
	})

	ginkgo.It("should serve over the network", func() {
		url, err := m.StartServer()
		Expect(err).NotTo(HaveOccurred())
		defer m.StopServer(context.Background())

		rsp, err := http.Get(url + "/api/levels")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		body, err := io.ReadAll(rsp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(MatchJSON(`["Memory"]`))
	})
})
