package mau

import (
	"github.com/sarchlab/mausim/lookup"
	"github.com/sarchlab/mausim/phv"
)

// NumAlus is the number of meter/stateful ALUs of a stage.
const NumAlus = phv.NumAlus

// AluState carries the time and random inputs of one ALU for one step.
type AluState struct {
	ALU      int
	TickTime uint64
	Random   uint64
}

// Eop is an end-of-packet event. It carries the deferred meter and stats
// addresses per ALU.
type Eop struct {
	Egress      bool
	MeterAddr   [NumAlus]uint32
	MeterEnable [NumAlus]bool
	StatsAddr   [NumAlus]uint32
	StatsEnable [NumAlus]bool
	TickTime    [NumAlus]uint64
	Random      [NumAlus]uint64
}

// Teop is a threaded end-of-packet event. It completes byte-count stats
// once the packet length is known.
type Teop struct {
	Egress      bool
	ByteLen     uint32
	StatsAddr   [NumAlus]uint32
	StatsEnable [NumAlus]bool
	TickTime    [NumAlus]uint64
}

// PbusRequest is an indirect register-bus access to one SRAM word. Rows
// store what they read in ReadData and write Data.
type PbusRequest struct {
	Row      int
	Col      int
	Index    int
	Read     bool
	Write    bool
	Lock     bool
	Reset    bool
	Data     [2]uint64
	ReadData [2]uint64
}

// SweepRequest is a periodic meter or idle-time sweep of one ALU. Rows
// report the outcome in Status.
type SweepRequest struct {
	ALU    int
	Time   uint64
	Status int
}

// StatefulClearRequest clears the stateful memory behind one ALU.
type StatefulClearRequest struct {
	ALU  int
	Time uint64
}

// RowContext is what a step passes to the row-level collaborators. Exactly
// one of the request fields is set outside header time.
type RowContext struct {
	List    ListKind
	Ingress *phv.Phv
	Egress  *phv.Phv
	Addrs   *Addresses
	Bus     *ActionBus

	Eop   *Eop
	Teop  *Teop
	Pbus  *PbusRequest
	Sweep *SweepRequest
	Clear *StatefulClearRequest
}

// SramRow is the row-level memory and ALU logic of one logical row.
type SramRow interface {
	FetchAddresses(ctx *RowContext)
	ClaimAddrs(ctx *RowContext)
	RunRead(ctx *RowContext)
	RunSelectorRead(ctx *RowContext)
	RunSelectorALUWithState(ctx *RowContext, state AluState)
	RunCmpALUsWithState(ctx *RowContext, state AluState)
	RunALUsWithState(ctx *RowContext, state AluState)
	RunActionRead(ctx *RowContext)
	RunWrite(ctx *RowContext)
	DriveActionOutputHV(ctx *RowContext)
}

// QueueFlusher is implemented by rows that buffer work across events.
type QueueFlusher interface {
	FlushQueues()
}

// Mapram is a map RAM holding meter colors or idle-time state.
type Mapram interface {
	RunColorRead(ctx *RowContext)
}

// Table is a logical table.
type Table interface {
	Egress() bool
	Layout() *lookup.Layout
	// Lookup runs the match paths of the table and records the outcome.
	Lookup(p *phv.Phv, res *lookup.Result)
}

// Predication decides which logical tables run and where a gress continues.
type Predication interface {
	// Start receives the incoming next table ids, ingress first.
	Start(next [2]int)
	// Lookup reports whether a logical table is looked up this event.
	Lookup(logicalTable int) bool
	// End resolves active tables from the results. The final pass also
	// fixes the predicated next table.
	End(results []*lookup.Result, final bool) error
	// NextTable returns where a gress continues after this stage.
	NextTable(egress bool) int
}

// ActionProcessor applies the actions of the active tables to the output
// register files.
type ActionProcessor interface {
	ProcessAction(results []*lookup.Result, bus *ActionBus, out [2]*phv.Phv)
}

// DependencyTracker is notified when the dynamic features of a gress
// change.
type DependencyTracker interface {
	DynamicFeaturesChanged(stage int, egress bool, features uint32)
}
