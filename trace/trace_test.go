package trace_test

import (
	"bytes"
	"log"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mausim/config"
	"github.com/sarchlab/mausim/lookup"
	"github.com/sarchlab/mausim/mau"
	"github.com/sarchlab/mausim/phv"
	"github.com/sarchlab/mausim/trace"
)

type memStore struct {
	tables  map[string]any
	rows    map[string][]any
	flushes int
}

func newMemStore() *memStore {
	return &memStore{
		tables: make(map[string]any),
		rows:   make(map[string][]any),
	}
}

func (s *memStore) CreateTable(name string, sample any) {
	s.tables[name] = sample
}

func (s *memStore) InsertData(name string, entry any) {
	s.rows[name] = append(s.rows[name], entry)
}

func (s *memStore) Flush() {
	s.flushes++
}

func engine() *mau.Engine {
	cfg := config.Default()
	cfg.StartTable = [2]int{config.TableID(0, 1), config.NextTableEnd}
	cfg.Stages[0].Tables = []config.TableConfig{{
		LogicalTable:  1,
		Tcam:          3,
		Key:           []config.KeyField{{Word: 0, Width: 8}},
		Layout:        lookup.DefaultLayout(),
		MissNextTable: config.NextTableEnd,
		Entries: []config.EntryConfig{
			{Value: 0x5, Mask: 0xFF, Boundary: true, Data: 0x40, NextTable: config.NextTableEnd},
		},
	}}

	e, err := mau.Build(0, cfg)
	Expect(err).NotTo(HaveOccurred())

	return e
}

func execute(e *mau.Engine, word uint32) {
	p := phv.New(config.Default().PhvSize)
	p.Set(0, word)

	_, err := e.Execute(p, nil, config.TableID(0, 1), config.NextTableEnd)
	Expect(err).NotTo(HaveOccurred())
}

var _ = Describe("StepLogger", func() {
	It("should log every header step once", func() {
		buf := new(bytes.Buffer)
		e := engine()
		e.AcceptHook(trace.NewStepLogger(log.New(buf, "", 0)))

		execute(e, 0x5)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		Expect(lines).To(HaveLen(len(e.StepNames(mau.ListHeader))))
		Expect(lines[0]).To(Equal("stage 0, header, " + mau.StepPredicationStart))
		Expect(lines[len(lines)-1]).To(HaveSuffix(mau.StepSnapshotEnd))
	})
})

var _ = Describe("Recorder", func() {
	var store *memStore

	BeforeEach(func() {
		store = newMemStore()
	})

	It("should name its tables after the run", func() {
		r := trace.NewRecorder(store, true)

		Expect(r.RunID()).NotTo(BeEmpty())
		Expect(r.ResultTable()).To(HaveSuffix(r.RunID()))
		Expect(store.tables).To(HaveKey(r.ResultTable()))
		Expect(store.tables).To(HaveKey(r.StepTable()))
	})

	It("should skip the step table unless asked", func() {
		r := trace.NewRecorder(store, false)

		Expect(r.StepTable()).To(BeEmpty())
		Expect(store.tables).To(HaveLen(1))
	})

	It("should record the results of a header event", func() {
		r := trace.NewRecorder(store, false)
		e := engine()
		e.AcceptHook(r)

		execute(e, 0x5)
		r.NextPacket()
		execute(e, 0x6)

		rows := store.rows[r.ResultTable()]
		Expect(rows).To(HaveLen(2))

		hit := rows[0].(trace.ResultEntry)
		Expect(hit.Packet).To(BeZero())
		Expect(hit.LogicalTable).To(Equal(1))
		Expect(hit.Match).To(BeTrue())
		Expect(hit.Payload).To(Equal(uint64(0x40)))

		miss := rows[1].(trace.ResultEntry)
		Expect(miss.Packet).To(Equal(uint64(1)))
		Expect(miss.Match).To(BeFalse())
	})

	It("should number recorded steps within a packet", func() {
		r := trace.NewRecorder(store, true)
		e := engine()
		e.AcceptHook(r)

		execute(e, 0x5)
		r.NextPacket()
		execute(e, 0x5)

		steps := store.rows[r.StepTable()]
		n := len(e.StepNames(mau.ListHeader))
		Expect(steps).To(HaveLen(2 * n))

		first := steps[n].(trace.StepEntry)
		Expect(first.Packet).To(Equal(uint64(1)))
		Expect(first.Seq).To(BeZero())
		Expect(first.List).To(Equal("header"))
		Expect(first.Step).To(Equal(mau.StepPredicationStart))

		r.Flush()
		Expect(store.flushes).To(Equal(1))
	})
})
