package trace

import (
	"github.com/rs/xid"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mausim/mau"
)

// Store is where a Recorder writes. An akita DataRecorder is a Store.
type Store interface {
	CreateTable(tableName string, sampleEntry any)
	InsertData(tableName string, entry any)
	Flush()
}

// ResultEntry is one recorded lookup result.
type ResultEntry struct {
	Packet         uint64
	Stage          int
	LogicalTable   int
	Active         bool
	Match          bool
	GatewayMatch   bool
	GatewayInhibit bool
	HitEntry       int
	HitIndex       int
	NextTable      int
	Payload        uint64
	Instr          int
}

// StepEntry is one recorded step.
type StepEntry struct {
	Packet uint64
	Seq    uint64
	Stage  int
	List   string
	Step   string
}

// Recorder is a hook that writes the lookup results of every header event,
// and optionally every step, into a Store. Table names carry a run id so
// several runs can share a database.
type Recorder struct {
	store       Store
	runID       string
	resultTable string
	stepTable   string
	steps       bool

	packet uint64
	seq    uint64
}

// NewRecorder creates the tables of a run.
func NewRecorder(store Store, recordSteps bool) *Recorder {
	r := &Recorder{
		store: store,
		runID: xid.New().String(),
		steps: recordSteps,
	}

	r.resultTable = "mau_results_" + r.runID
	store.CreateTable(r.resultTable, ResultEntry{})

	if recordSteps {
		r.stepTable = "mau_steps_" + r.runID
		store.CreateTable(r.stepTable, StepEntry{})
	}

	return r
}

// RunID returns the id of the run.
func (r *Recorder) RunID() string {
	return r.runID
}

// ResultTable returns the name of the result table.
func (r *Recorder) ResultTable() string {
	return r.resultTable
}

// StepTable returns the name of the step table, empty when steps are not
// recorded.
func (r *Recorder) StepTable() string {
	return r.stepTable
}

// NextPacket starts numbering entries for the next packet.
func (r *Recorder) NextPacket() {
	r.packet++
	r.seq = 0
}

// Func records snapshots and steps.
func (r *Recorder) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case mau.HookPosSnapshot:
		item, ok := ctx.Item.(mau.SnapshotItem)
		if ok {
			r.recordSnapshot(item)
		}
	case mau.HookPosStepStart:
		detail, ok := ctx.Detail.(mau.StepHookDetail)
		step, named := ctx.Item.(string)
		if ok && named && r.steps {
			r.recordStep(step, detail)
		}
	}
}

func (r *Recorder) recordSnapshot(item mau.SnapshotItem) {
	for _, s := range item.Results {
		r.store.InsertData(r.resultTable, ResultEntry{
			Packet:         r.packet,
			Stage:          item.Stage,
			LogicalTable:   s.LogicalTable,
			Active:         s.Active,
			Match:          s.Match,
			GatewayMatch:   s.GatewayMatch,
			GatewayInhibit: s.GatewayInhibit,
			HitEntry:       s.HitEntry,
			HitIndex:       s.HitIndex,
			NextTable:      s.NextTable,
			Payload:        s.Payload,
			Instr:          s.Instr,
		})
	}
}

func (r *Recorder) recordStep(step string, detail mau.StepHookDetail) {
	r.store.InsertData(r.stepTable, StepEntry{
		Packet: r.packet,
		Seq:    r.seq,
		Stage:  detail.Stage,
		List:   detail.List.String(),
		Step:   step,
	})
	r.seq++
}

// Flush writes buffered entries.
func (r *Recorder) Flush() {
	r.store.Flush()
}
