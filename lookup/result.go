// Package lookup holds the per logical table outcome of one match.
package lookup

// Invalid marks location and addressing fields that hold no value.
const Invalid = -1

// HashSource provides the hash outputs computed for a logical table.
type HashSource interface {
	HashOutput(logicalTable int) uint64
}

type nextTableSource uint8

const (
	nextTableFromOrig nextTableSource = iota
	nextTableFromMask
	nextTableFromForm
)

// Result aggregates the match outcome of one logical table for one packet
// event.
type Result struct {
	valid           bool
	active          bool
	match           bool
	exactMatch      bool
	ternaryMatch    bool
	ternaryIndirect bool
	gatewayMatch    bool
	gatewayInhibit  bool
	stash           bool
	err             bool

	row          int
	col          int
	outbus       int
	hitIndex     int
	hitEntry     int
	logicalTable int

	nextTableOrig int
	nextTableMask int
	nextTableForm int
	nextTablePred int
	nextTableSel  nextTableSource

	payload uint64
	instr   int

	gatewayPayloadDisabled bool

	// Bound by Init and BindHashSource, never copied.
	layout  *Layout
	egress  bool
	hashSrc HashSource
}

// NewResult creates an invalid result.
func NewResult() *Result {
	r := &Result{}
	r.Invalidate()

	return r
}

// Init binds the result to its logical table, gress and bus layout.
func (r *Result) Init(logicalTable int, egress bool, layout *Layout) {
	r.logicalTable = logicalTable
	r.egress = egress
	r.layout = layout
}

// BindHashSource binds the register file that hashes are read from.
func (r *Result) BindHashSource(src HashSource) {
	r.hashSrc = src
}

func (r *Result) clearLocation() {
	r.row = Invalid
	r.col = Invalid
	r.outbus = Invalid
	r.hitIndex = Invalid
	r.hitEntry = Invalid
	r.nextTableOrig = Invalid
	r.nextTableMask = Invalid
	r.nextTableForm = Invalid
	r.nextTablePred = Invalid
	r.nextTableSel = nextTableFromOrig
	r.payload = 0
	r.instr = Invalid
}

func (r *Result) clearStatus() {
	r.active = false
	r.match = false
	r.exactMatch = false
	r.ternaryMatch = false
	r.ternaryIndirect = false
	r.gatewayMatch = false
	r.gatewayInhibit = false
	r.stash = false
	r.gatewayPayloadDisabled = false
}

// Reset prepares the result for a new packet event: valid, no match,
// addressing invalid. The error flag is kept.
func (r *Result) Reset() {
	r.clearStatus()
	r.clearLocation()
	r.valid = true
}

// Invalidate marks the result unused for the current event.
func (r *Result) Invalidate() {
	r.clearStatus()
	r.clearLocation()
	r.valid = false
}

// CopyFrom copies every status, location and addressing field of other.
// Bindings made by Init and BindHashSource are not copied.
func (r *Result) CopyFrom(other *Result) {
	layout, egress, hashSrc := r.layout, r.egress, r.hashSrc
	*r = *other
	r.layout, r.egress, r.hashSrc = layout, egress, hashSrc
}

// Valid reports whether the result is in use.
func (r *Result) Valid() bool { return r.valid }

// Active reports whether predication enabled the table.
func (r *Result) Active() bool { return r.active }

// SetActive is used by predication.
func (r *Result) SetActive(active bool) { r.active = active }

// Match reports whether any match path hit.
func (r *Result) Match() bool { return r.match }

// SetMatch sets the generic match bit.
func (r *Result) SetMatch(match bool) { r.match = match }

// ExactMatch reports an exact match hit.
func (r *Result) ExactMatch() bool { return r.exactMatch }

// SetExactMatch records an exact match hit.
func (r *Result) SetExactMatch(hit bool) {
	r.exactMatch = hit
	r.match = r.match || hit
}

// TernaryMatch reports a ternary match hit.
func (r *Result) TernaryMatch() bool { return r.ternaryMatch }

// SetTernaryMatch records a ternary match hit.
func (r *Result) SetTernaryMatch(hit bool) {
	r.ternaryMatch = hit
	r.match = r.match || hit
}

// TernaryIndirect reports whether the ternary hit reads an indirection word.
func (r *Result) TernaryIndirect() bool { return r.ternaryIndirect }

// SetTernaryIndirect marks the ternary hit as indirected.
func (r *Result) SetTernaryIndirect(v bool) { r.ternaryIndirect = v }

// GatewayMatch reports a gateway hit.
func (r *Result) GatewayMatch() bool { return r.gatewayMatch }

// SetGatewayMatch records a gateway hit.
func (r *Result) SetGatewayMatch(hit bool) { r.gatewayMatch = hit }

// GatewayInhibit reports whether the gateway inhibited the table.
func (r *Result) GatewayInhibit() bool { return r.gatewayInhibit }

// SetGatewayInhibit records a gateway inhibit.
func (r *Result) SetGatewayInhibit(v bool) { r.gatewayInhibit = v }

// Stash reports a stash hit.
func (r *Result) Stash() bool { return r.stash }

// SetStash records a stash hit.
func (r *Result) SetStash(hit bool) {
	r.stash = hit
	r.match = r.match || hit
}

// Error reports the sticky error flag.
func (r *Result) Error() bool { return r.err }

// SetError raises the error flag.
func (r *Result) SetError() { r.err = true }

// ClearError clears the error flag.
func (r *Result) ClearError() { r.err = false }

// GatewayPayloadDisabled reports whether the normal match path may write
// hit entry and next table.
func (r *Result) GatewayPayloadDisabled() bool { return r.gatewayPayloadDisabled }

// SetGatewayPayloadDisabled locks hit entry and next table to the gateway
// setters.
func (r *Result) SetGatewayPayloadDisabled(v bool) { r.gatewayPayloadDisabled = v }

// Row returns the physical row of the hit.
func (r *Result) Row() int { return r.row }

// SetRow sets the physical row of the hit.
func (r *Result) SetRow(row int) { r.row = row }

// Col returns the physical column of the hit.
func (r *Result) Col() int { return r.col }

// SetCol sets the physical column of the hit.
func (r *Result) SetCol(col int) { r.col = col }

// Outbus returns the result bus the hit is driven on.
func (r *Result) Outbus() int { return r.outbus }

// SetOutbus sets the result bus.
func (r *Result) SetOutbus(bus int) { r.outbus = bus }

// HitIndex returns the index of the hit within its memory.
func (r *Result) HitIndex() int { return r.hitIndex }

// SetHitIndex sets the hit index.
func (r *Result) SetHitIndex(index int) { r.hitIndex = index }

// HitEntry returns the entry number of the hit.
func (r *Result) HitEntry() int { return r.hitEntry }

// SetHitEntry sets the hit entry unless the gateway owns it.
func (r *Result) SetHitEntry(entry int) {
	if r.gatewayPayloadDisabled {
		return
	}
	r.hitEntry = entry
}

// SetHitEntryGateway sets the hit entry unconditionally.
func (r *Result) SetHitEntryGateway(entry int) { r.hitEntry = entry }

// LogicalTable returns the logical table the result belongs to.
func (r *Result) LogicalTable() int { return r.logicalTable }

// Egress reports the gress of the logical table.
func (r *Result) Egress() bool { return r.egress }

// Payload returns the result bus word.
func (r *Result) Payload() uint64 { return r.payload }

// SetPayload sets the result bus word.
func (r *Result) SetPayload(payload uint64) { r.payload = payload }

// Instr returns the resolved instruction address.
func (r *Result) Instr() int { return r.instr }

// SetInstr sets the resolved instruction address.
func (r *Result) SetInstr(instr int) { r.instr = instr }

// SetNextTable sets the original next table unless the gateway owns it.
func (r *Result) SetNextTable(next int) {
	if r.gatewayPayloadDisabled {
		return
	}
	r.SetNextTableOrig(next)
}

// SetNextTableOrig sets the next table read from the match.
func (r *Result) SetNextTableOrig(next int) {
	r.nextTableOrig = next
	r.nextTableSel = nextTableFromOrig
}

// SetNextTableMask sets the next table after the next table mask.
func (r *Result) SetNextTableMask(next int) {
	r.nextTableMask = next
	r.nextTableSel = nextTableFromMask
}

// SetNextTableForm sets the next table after format conversion.
func (r *Result) SetNextTableForm(next int) {
	r.nextTableForm = next
	r.nextTableSel = nextTableFromForm
}

// SetNextTablePred sets the next table chosen by predication.
func (r *Result) SetNextTablePred(next int) { r.nextTablePred = next }

// NextTableOrig returns the original next table.
func (r *Result) NextTableOrig() int { return r.nextTableOrig }

// NextTableMask returns the masked next table.
func (r *Result) NextTableMask() int { return r.nextTableMask }

// NextTableForm returns the formatted next table.
func (r *Result) NextTableForm() int { return r.nextTableForm }

// NextTablePred returns the predicated next table.
func (r *Result) NextTablePred() int { return r.nextTablePred }

// NextTable returns whichever of orig, mask and form was set last.
func (r *Result) NextTable() int {
	switch r.nextTableSel {
	case nextTableFromMask:
		return r.nextTableMask
	case nextTableFromForm:
		return r.nextTableForm
	default:
		return r.nextTableOrig
	}
}

// Snapshot is a flat copy of the observable state of a Result.
type Snapshot struct {
	Valid                  bool
	Active                 bool
	Match                  bool
	ExactMatch             bool
	TernaryMatch           bool
	TernaryIndirect        bool
	GatewayMatch           bool
	GatewayInhibit         bool
	Stash                  bool
	Error                  bool
	GatewayPayloadDisabled bool
	Row                    int
	Col                    int
	Outbus                 int
	HitIndex               int
	HitEntry               int
	LogicalTable           int
	NextTable              int
	NextTablePred          int
	Payload                uint64
	Instr                  int
}

// Snapshot returns the observable state of the result.
func (r *Result) Snapshot() Snapshot {
	return Snapshot{
		Valid:                  r.valid,
		Active:                 r.active,
		Match:                  r.match,
		ExactMatch:             r.exactMatch,
		TernaryMatch:           r.ternaryMatch,
		TernaryIndirect:        r.ternaryIndirect,
		GatewayMatch:           r.gatewayMatch,
		GatewayInhibit:         r.gatewayInhibit,
		Stash:                  r.stash,
		Error:                  r.err,
		GatewayPayloadDisabled: r.gatewayPayloadDisabled,
		Row:                    r.row,
		Col:                    r.col,
		Outbus:                 r.outbus,
		HitIndex:               r.hitIndex,
		HitEntry:               r.hitEntry,
		LogicalTable:           r.logicalTable,
		NextTable:              r.NextTable(),
		NextTablePred:          r.nextTablePred,
		Payload:                r.payload,
		Instr:                  r.instr,
	}
}
