package mau

import (
	"fmt"
	"log"
)

// ListKind identifies one of the step lists of an engine.
type ListKind int

// The event kinds an engine processes, each with its own step list.
const (
	ListHeader ListKind = iota
	ListEop
	ListTeop
	ListPbusRead
	ListPbusWrite
	ListPbusReadWrite
	ListSweep
	ListStatefulClear
	numLists
)

var listNames = [numLists]string{
	"header", "eop", "teop", "pbus_read", "pbus_write", "pbus_read_write",
	"sweep", "stateful_clear",
}

func (k ListKind) String() string {
	if k < 0 || k >= numLists {
		return fmt.Sprintf("list(%d)", int(k))
	}

	return listNames[k]
}

// ListKinds returns every list kind in order.
func ListKinds() []ListKind {
	kinds := make([]ListKind, numLists)
	for i := range kinds {
		kinds[i] = ListKind(i)
	}

	return kinds
}

// StepKind tells how a step is applied.
type StepKind uint8

const (
	// StepFunc runs once per event.
	StepFunc StepKind = iota
	// StepTable runs once per logical table.
	StepTable
	// StepRow runs on each targeted row.
	StepRow
	// StepRowWithState runs on each targeted row with the ALU state of
	// that row.
	StepRowWithState
)

// Step names. The same name may appear in several lists.
const (
	StepPredicationStart     = "Predication Start"
	StepLookup               = "Lookup"
	StepPredicationEndFirst  = "Predication End (first)"
	StepDistribActionStats   = "Distrib ActionData Idletime Stats Addrs"
	StepFinalizeStats        = "Finalize Stats Addrs"
	StepFetchAddrs           = "Fetch Addrs"
	StepColourMapramRead     = "Colour Mapram Read"
	StepDistribMeter         = "Distrib Meter Addrs"
	StepFinalizeMeter        = "Finalize Meter Addrs"
	StepImmDataOutput        = "Imm Data Output"
	StepUpdateNextTable      = "Update Next Table"
	StepPredicationEndFinal  = "Predication End (final)"
	StepClaimAddrs           = "Claim Addrs"
	StepSelectorRead         = "Selector Read"
	StepSelectorALU          = "Selector ALU"
	StepOtherSramRead        = "Other SRAM Read"
	StepRunStatefulCmpALUs   = "Run Stateful Cmp ALUs"
	StepRunALUs              = "Run ALUs"
	StepActionRead           = "Action Read"
	StepWrite                = "Write"
	StepDriveActionOutputHV  = "Drive Action Output HV"
	StepProcessAction        = "Process Action"
	StepSnapshotEnd          = "Snapshot End"
	StepSramRead             = "SRAM Read"
)

// Step is one named unit of per-event work. Exactly one of the function
// fields is set, matching Kind.
type Step struct {
	Name string
	Kind StepKind
	// HeaderTimeOnly steps only make sense while a packet header is in the
	// stage.
	HeaderTimeOnly bool

	fn       func(e *Engine, ev *event)
	table    func(e *Engine, ev *event, lt int)
	row      func(r SramRow, ctx *RowContext)
	rowState func(r SramRow, ctx *RowContext, state AluState)
}

func funcStep(name string, headerOnly bool, fn func(*Engine, *event)) Step {
	return Step{Name: name, Kind: StepFunc, HeaderTimeOnly: headerOnly, fn: fn}
}

func tableStep(name string, fn func(*Engine, *event, int)) Step {
	return Step{Name: name, Kind: StepTable, HeaderTimeOnly: true, table: fn}
}

func rowStep(name string, headerOnly bool, fn func(SramRow, *RowContext)) Step {
	return Step{Name: name, Kind: StepRow, HeaderTimeOnly: headerOnly, row: fn}
}

func rowStateStep(
	name string,
	headerOnly bool,
	fn func(SramRow, *RowContext, AluState),
) Step {
	return Step{
		Name:           name,
		Kind:           StepRowWithState,
		HeaderTimeOnly: headerOnly,
		rowState:       fn,
	}
}

func (s *Step) apply(e *Engine, ev *event) {
	switch s.Kind {
	case StepFunc:
		s.fn(e, ev)
	case StepTable:
		for lt := range e.tables {
			s.table(e, ev, lt)
		}
	case StepRow:
		for _, r := range e.targetRows(ev) {
			s.row(e.rows[r], &ev.ctx)
		}
	case StepRowWithState:
		for _, r := range e.targetRows(ev) {
			s.rowState(e.rows[r], &ev.ctx, e.aluState(ev, r))
		}
	}
}

var (
	fetchStep = rowStep(StepFetchAddrs, false, SramRow.FetchAddresses)
	claimStep = rowStep(StepClaimAddrs, false, SramRow.ClaimAddrs)
	readStep  = rowStep(StepSramRead, false, SramRow.RunRead)
	writeStep = rowStep(StepWrite, false, SramRow.RunWrite)
	cmpStep   = rowStateStep(
		StepRunStatefulCmpALUs, false, SramRow.RunCmpALUsWithState)
	aluStep = rowStateStep(StepRunALUs, false, SramRow.RunALUsWithState)
)

func headerSteps() []Step {
	return []Step{
		funcStep(StepPredicationStart, true, (*Engine).predicationStart),
		tableStep(StepLookup, (*Engine).lookupTable),
		funcStep(StepPredicationEndFirst, true, (*Engine).predicationEndFirst),
		tableStep(StepDistribActionStats, (*Engine).distribActionStats),
		tableStep(StepFinalizeStats, (*Engine).finalizeStats),
		fetchStep,
		funcStep(StepColourMapramRead, true, (*Engine).colourMapramRead),
		tableStep(StepDistribMeter, (*Engine).distribMeter),
		tableStep(StepFinalizeMeter, (*Engine).finalizeMeter),
		tableStep(StepImmDataOutput, (*Engine).immDataOutput),
		tableStep(StepUpdateNextTable, (*Engine).updateNextTable),
		funcStep(StepPredicationEndFinal, true, (*Engine).predicationEndFinal),
		fetchStep,
		claimStep,
		rowStep(StepSelectorRead, true, SramRow.RunSelectorRead),
		rowStateStep(StepSelectorALU, true, SramRow.RunSelectorALUWithState),
		rowStep(StepOtherSramRead, true, SramRow.RunRead),
		cmpStep,
		aluStep,
		rowStep(StepActionRead, true, SramRow.RunActionRead),
		writeStep,
		rowStep(StepDriveActionOutputHV, true, SramRow.DriveActionOutputHV),
		funcStep(StepProcessAction, true, (*Engine).processAction),
		funcStep(StepSnapshotEnd, true, (*Engine).snapshotEnd),
	}
}

func newStepLists() [numLists][]Step {
	var lists [numLists][]Step

	lists[ListHeader] = headerSteps()
	lists[ListEop] = []Step{fetchStep, claimStep, readStep, cmpStep, aluStep, writeStep}
	lists[ListTeop] = []Step{fetchStep, claimStep, readStep, writeStep}
	lists[ListPbusRead] = []Step{fetchStep, claimStep, readStep}
	lists[ListPbusWrite] = []Step{fetchStep, claimStep, writeStep}
	lists[ListPbusReadWrite] = []Step{fetchStep, claimStep, readStep, writeStep}
	lists[ListSweep] = []Step{fetchStep, claimStep, readStep, aluStep, writeStep}
	lists[ListStatefulClear] = []Step{
		fetchStep, claimStep, readStep, cmpStep, aluStep, writeStep,
	}

	for k := range lists {
		if err := CheckStepOrder(ListKind(k), lists[k]); err != nil {
			log.Panicf("bad %s step list: %v", ListKind(k), err)
		}
	}

	return lists
}

// CheckStepOrder verifies the ordering rules every step list obeys.
// Stateful compare ALUs run before the ALUs that consume their outputs,
// addresses are fetched before they are claimed, and end-of-packet lists
// hold no header-time steps.
func CheckStepOrder(kind ListKind, steps []Step) error {
	fetched := false
	aluSeen := false

	for i, s := range steps {
		switch s.Name {
		case StepFetchAddrs:
			fetched = true
		case StepClaimAddrs:
			if !fetched {
				return fmt.Errorf("step %d %q precedes any %q",
					i, s.Name, StepFetchAddrs)
			}
		case StepRunALUs:
			aluSeen = true
		case StepRunStatefulCmpALUs:
			if aluSeen {
				return fmt.Errorf("step %d %q follows %q",
					i, s.Name, StepRunALUs)
			}
		}

		if s.HeaderTimeOnly && (kind == ListEop || kind == ListTeop) {
			return fmt.Errorf("step %d %q is header-time only", i, s.Name)
		}
	}

	return nil
}
