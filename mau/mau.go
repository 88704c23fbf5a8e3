// Package mau implements the execution engine of one match-action stage.
//
// An Engine owns the fixed per-stage topology (logical tables, SRAM rows,
// TCAMs, map RAMs) and processes every event kind a stage sees by running
// an ordered list of named steps over that topology. The header list runs
// lookup, predication, address distribution, memory access and action
// processing for one packet. The other lists reuse the row-level steps to
// serve end-of-packet events, register bus accesses, sweeps and stateful
// clears.
package mau

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mausim/config"
	"github.com/sarchlab/mausim/lookup"
	"github.com/sarchlab/mausim/phv"
	"github.com/sarchlab/mausim/tcam"
)

const (
	// NumLogicalTables is the number of logical tables of a stage.
	NumLogicalTables = config.MaxLogicalTables
	// NumLogicalRows is the number of logical SRAM rows of a stage.
	NumLogicalRows = 16
	// NumSramCols is the number of SRAM columns per row.
	NumSramCols = 12
	// NumMaprams is the number of map RAMs of a stage.
	NumMaprams = 48

	rowsPerAlu = NumLogicalRows / NumAlus
)

var (
	// HookPosStepStart marks the start of a step.
	HookPosStepStart = &sim.HookPos{Name: "MAU Step Start"}
	// HookPosStepEnd marks the end of a step.
	HookPosStepEnd = &sim.HookPos{Name: "MAU Step End"}
	// HookPosSnapshot carries the results of a finished header event.
	HookPosSnapshot = &sim.HookPos{Name: "MAU Snapshot"}
)

// StepHookDetail is the Detail of step hooks.
type StepHookDetail struct {
	Stage int
	List  ListKind
}

// SnapshotItem is the Item of snapshot hooks.
type SnapshotItem struct {
	Stage   int
	Results []lookup.Snapshot
	Next    [2]int
}

// Output is what a stage hands to the next one for a packet.
type Output struct {
	Ingress     *phv.Phv
	Egress      *phv.Phv
	IngressNext int
	EgressNext  int
}

// event is the per-event state threaded through the steps.
type event struct {
	list ListKind
	ctx  RowContext
	next [2]int
	in   [2]*phv.Phv
	out  [2]*phv.Phv
	err  error
}

func gressIndex(egress bool) int {
	if egress {
		return 1
	}

	return 0
}

// Engine processes the events of one match-action stage.
type Engine struct {
	*sim.HookableBase

	stage int
	cfg   *config.Config

	tables  [NumLogicalTables]Table
	results [NumLogicalTables]*lookup.Result
	rows    [NumLogicalRows]SramRow
	tcams   []*tcam.Array
	maprams [NumMaprams]Mapram

	pred   Predication
	action ActionProcessor
	deps   DependencyTracker

	lists [numLists][]Step

	// resourceMu serializes events against resource reconfiguration.
	resourceMu sync.Mutex
	powered    *bitset.BitSet
	addrs      Addresses
	bus        ActionBus

	mu        sync.Mutex
	features  [2]DynamicFeatureTracker
	dataOflo  [NumLogicalRows]uint16
	ofloCount int
}

// An EngineOption customizes an Engine.
type EngineOption func(e *Engine)

// WithPredication replaces the serial predication.
func WithPredication(p Predication) EngineOption {
	return func(e *Engine) {
		e.pred = p
	}
}

// WithActionProcessor sets the action processor.
func WithActionProcessor(a ActionProcessor) EngineOption {
	return func(e *Engine) {
		e.action = a
	}
}

// WithDependencyTracker sets who is told about dynamic feature changes.
func WithDependencyTracker(d DependencyTracker) EngineOption {
	return func(e *Engine) {
		e.deps = d
	}
}

// New creates an engine for a stage with an empty topology.
func New(stage int, cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	if stage < 0 || stage >= config.MaxStages {
		return nil, fatalf("stage %d out of range", stage)
	}

	e := &Engine{
		HookableBase: sim.NewHookableBase(),
		stage:        stage,
		cfg:          cfg,
		tcams:        make([]*tcam.Array, cfg.NumTcams),
		powered:      bitset.New(uint(cfg.NumTcams)),
		lists:        newStepLists(),
	}

	for lt := range e.results {
		e.results[lt] = lookup.NewResult()
	}

	e.pred = NewSerialPredication(stage, e)

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Stage returns the stage number.
func (e *Engine) Stage() int {
	return e.stage
}

// Config returns the pipe configuration.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// StepNames returns the step names of a list in order.
func (e *Engine) StepNames(kind ListKind) []string {
	if kind < 0 || kind >= numLists {
		return nil
	}

	names := make([]string, len(e.lists[kind]))
	for i, s := range e.lists[kind] {
		names[i] = s.Name
	}

	return names
}

// SetTable installs a logical table.
func (e *Engine) SetTable(lt int, t Table) error {
	if lt < 0 || lt >= NumLogicalTables {
		return fatalf("logical table %d out of range", lt)
	}

	e.tables[lt] = t
	if t != nil {
		e.results[lt].Init(lt, t.Egress(), t.Layout())
	}

	return nil
}

// Table returns a logical table or nil.
func (e *Engine) Table(lt int) Table {
	if lt < 0 || lt >= NumLogicalTables {
		return nil
	}

	return e.tables[lt]
}

// Result returns the lookup result of a logical table.
func (e *Engine) Result(lt int) *lookup.Result {
	if lt < 0 || lt >= NumLogicalTables {
		return nil
	}

	return e.results[lt]
}

// SetRow installs a logical row.
func (e *Engine) SetRow(r int, row SramRow) error {
	if r < 0 || r >= NumLogicalRows {
		return fatalf("row %d out of range", r)
	}

	e.rows[r] = row

	return nil
}

// Row returns a logical row or nil.
func (e *Engine) Row(r int) SramRow {
	if r < 0 || r >= NumLogicalRows {
		return nil
	}

	return e.rows[r]
}

// SetTcam installs a TCAM.
func (e *Engine) SetTcam(i int, a *tcam.Array) error {
	if i < 0 || i >= len(e.tcams) {
		return fatalf("tcam %d out of range", i)
	}

	e.tcams[i] = a

	return nil
}

// Tcam returns a TCAM or nil.
func (e *Engine) Tcam(i int) *tcam.Array {
	if i < 0 || i >= len(e.tcams) {
		return nil
	}

	return e.tcams[i]
}

// SetMapram installs a map RAM.
func (e *Engine) SetMapram(i int, m Mapram) error {
	if i < 0 || i >= NumMaprams {
		return fatalf("mapram %d out of range", i)
	}

	e.maprams[i] = m

	return nil
}

// Addresses returns the addresses distributed by the last header event.
func (e *Engine) Addresses() Addresses {
	return e.addrs
}

// PoweredTcams returns the TCAMs searched since the last resource reset.
func (e *Engine) PoweredTcams() *bitset.BitSet {
	return e.powered.Clone()
}

func (e *Engine) run(ev *event) error {
	ev.ctx.List = ev.list
	detail := StepHookDetail{Stage: e.stage, List: ev.list}

	for i := range e.lists[ev.list] {
		step := &e.lists[ev.list][i]

		e.hook(HookPosStepStart, step.Name, detail)
		step.apply(e, ev)
		e.hook(HookPosStepEnd, step.Name, detail)

		if ev.err != nil {
			return ev.err
		}
	}

	return nil
}

func (e *Engine) hook(pos *sim.HookPos, item, detail any) {
	e.InvokeHook(sim.HookCtx{
		Domain: e,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}

// targetRows returns the installed rows a row step runs on. Register bus
// accesses touch one row; sweeps and clears touch the row of their ALU.
func (e *Engine) targetRows(ev *event) []int {
	only := -1

	switch {
	case ev.ctx.Pbus != nil:
		only = ev.ctx.Pbus.Row
	case ev.ctx.Sweep != nil:
		only = aluRow(ev.ctx.Sweep.ALU)
	case ev.ctx.Clear != nil:
		only = aluRow(ev.ctx.Clear.ALU)
	}

	if only >= 0 {
		if e.rows[only] == nil {
			return nil
		}

		return []int{only}
	}

	rows := make([]int, 0, NumLogicalRows)
	for r, row := range e.rows {
		if row != nil {
			rows = append(rows, r)
		}
	}

	return rows
}

func aluRow(alu int) int {
	return alu*rowsPerAlu + rowsPerAlu - 1
}

func (e *Engine) aluState(ev *event, r int) AluState {
	alu := r / rowsPerAlu
	state := AluState{ALU: alu}

	switch {
	case ev.ctx.Eop != nil:
		state.TickTime = ev.ctx.Eop.TickTime[alu]
		state.Random = ev.ctx.Eop.Random[alu]
	case ev.ctx.Teop != nil:
		state.TickTime = ev.ctx.Teop.TickTime[alu]
	case ev.ctx.Sweep != nil:
		state.TickTime = ev.ctx.Sweep.Time
	case ev.ctx.Clear != nil:
		state.TickTime = ev.ctx.Clear.Time
	default:
		p := ev.in[0]
		if p == nil {
			p = ev.in[1]
		}
		if p != nil {
			t := p.TimeInfo()
			state.TickTime = t.MeterTick[alu]
			state.Random = t.Random[alu]
		}
	}

	return state
}

// Execute processes one packet header through the stage. Either Phv may be
// nil when only one gress carries a packet.
func (e *Engine) Execute(
	iphv, ephv *phv.Phv,
	ingressNext, egressNext int,
) (Output, error) {
	e.resourceMu.Lock()
	defer e.resourceMu.Unlock()

	e.addrs.Reset()
	e.bus.Reset()

	ev := &event{
		list: ListHeader,
		in:   [2]*phv.Phv{iphv, ephv},
		ctx: RowContext{
			Ingress: iphv,
			Egress:  ephv,
			Addrs:   &e.addrs,
			Bus:     &e.bus,
		},
	}

	ev.next = [2]int{ingressNext, egressNext}
	for g, p := range ev.in {
		if p == nil {
			ev.next[g] = config.NextTableEnd
		}
	}

	if err := e.run(ev); err != nil {
		return Output{}, err
	}

	out := Output{
		Ingress:     ev.out[0],
		Egress:      ev.out[1],
		IngressNext: ingressNext,
		EgressNext:  egressNext,
	}

	if iphv != nil {
		out.IngressNext = e.pred.NextTable(false)
	}
	if ephv != nil {
		out.EgressNext = e.pred.NextTable(true)
	}

	return out, nil
}

// HandleEop processes an end-of-packet event.
func (e *Engine) HandleEop(eop Eop) error {
	e.resourceMu.Lock()
	defer e.resourceMu.Unlock()

	return e.run(&event{list: ListEop, ctx: RowContext{Eop: &eop}})
}

// HandleTeop processes a threaded end-of-packet event.
func (e *Engine) HandleTeop(teop Teop) error {
	e.resourceMu.Lock()
	defer e.resourceMu.Unlock()

	return e.run(&event{list: ListTeop, ctx: RowContext{Teop: &teop}})
}

func checkAlu(alu int) error {
	if alu < 0 || alu >= NumAlus {
		return fatalf("alu %d out of range", alu)
	}

	return nil
}

// DoSweep sweeps the memory behind an ALU and returns the status the rows
// reported.
func (e *Engine) DoSweep(alu int, sweepTime uint64) (int, error) {
	if err := checkAlu(alu); err != nil {
		return 0, err
	}

	e.resourceMu.Lock()
	defer e.resourceMu.Unlock()

	req := &SweepRequest{ALU: alu, Time: sweepTime}
	if err := e.run(&event{list: ListSweep, ctx: RowContext{Sweep: req}}); err != nil {
		return 0, err
	}

	return req.Status, nil
}

// StatefulClear clears the stateful memory behind an ALU.
func (e *Engine) StatefulClear(alu int, clearTime uint64) error {
	if err := checkAlu(alu); err != nil {
		return err
	}

	e.resourceMu.Lock()
	defer e.resourceMu.Unlock()

	req := &StatefulClearRequest{ALU: alu, Time: clearTime}

	return e.run(&event{list: ListStatefulClear, ctx: RowContext{Clear: req}})
}

func checkPbus(row, col int) error {
	if row < 0 || row >= NumLogicalRows {
		return fatalf("pbus row %d out of range", row)
	}
	if col < 0 || col >= NumSramCols {
		return fatalf("pbus col %d out of range", col)
	}

	return nil
}

func (e *Engine) pbus(kind ListKind, req *PbusRequest) error {
	if err := checkPbus(req.Row, req.Col); err != nil {
		return err
	}

	e.resourceMu.Lock()
	defer e.resourceMu.Unlock()

	return e.run(&event{list: kind, ctx: RowContext{Pbus: req}})
}

// PbusRead reads one SRAM word. Lock holds the word against concurrent
// ALU updates; reset clears it after the read.
func (e *Engine) PbusRead(row, col, index int, lock, reset bool) ([2]uint64, error) {
	req := &PbusRequest{
		Row: row, Col: col, Index: index,
		Read: true, Lock: lock, Reset: reset,
	}
	if err := e.pbus(ListPbusRead, req); err != nil {
		return [2]uint64{}, err
	}

	return req.ReadData, nil
}

// PbusWrite writes one SRAM word.
func (e *Engine) PbusWrite(row, col, index int, data [2]uint64) error {
	req := &PbusRequest{
		Row: row, Col: col, Index: index,
		Write: true, Data: data,
	}

	return e.pbus(ListPbusWrite, req)
}

// PbusReadWrite reads one SRAM word and then writes data to it. It returns
// the data read.
func (e *Engine) PbusReadWrite(
	row, col, index int,
	data [2]uint64,
	lock, reset bool,
) ([2]uint64, error) {
	req := &PbusRequest{
		Row: row, Col: col, Index: index,
		Read: true, Write: true, Lock: lock, Reset: reset,
		Data: data,
	}
	if err := e.pbus(ListPbusReadWrite, req); err != nil {
		return [2]uint64{}, err
	}

	return req.ReadData, nil
}
