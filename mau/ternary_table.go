package mau

import (
	"github.com/sarchlab/mausim/config"
	"github.com/sarchlab/mausim/lookup"
	"github.com/sarchlab/mausim/phv"
	"github.com/sarchlab/mausim/tcam"
)

// TCAMs are laid out in columns of tcamRows.
const tcamRows = 12

// BuildKey packs Phv fields into a search key, least significant field
// first.
func BuildKey(p *phv.Phv, fields []config.KeyField) uint64 {
	var key uint64
	var shift uint

	for _, f := range fields {
		v := uint64(p.Get(f.Word)>>f.Lsb) & (uint64(1)<<f.Width - 1)
		key |= v << shift
		shift += f.Width
	}

	return key
}

// GatewayTable is a small condition check evaluated ahead of a table. Rows
// are searched in order through a TCAM of their own.
type GatewayTable struct {
	key   []config.KeyField
	rows  []config.GatewayRow
	array *tcam.Array
}

// NewGatewayTable programs a gateway.
func NewGatewayTable(cfg config.GatewayConfig, width uint) *GatewayTable {
	n := len(cfg.Rows)
	if n == 0 {
		n = 1
	}

	array := tcam.New(tcam.Config{
		Entries:         n,
		Width:           width,
		LockGranularity: n,
		LookupReturnPri: true,
	})

	for i, row := range cfg.Rows {
		array.SetValueMaskValid(array.Physical(i), row.Value, row.Mask, true)
	}

	return &GatewayTable{key: cfg.Key, rows: cfg.Rows, array: array}
}

// Apply evaluates the gateway. A hit on an inhibiting row takes over the
// next table and hit entry of the result and disables the payload.
func (g *GatewayTable) Apply(p *phv.Phv, res *lookup.Result) {
	key := BuildKey(p, g.key)
	s0, s1 := g.array.ExpandSearch(key)

	row := g.array.LookupWith(s0, s1, 0, g.array.Size()-1, g.array.Head(), false)
	if row == tcam.NoMatch || row >= len(g.rows) {
		return
	}

	res.SetGatewayMatch(true)
	if !g.rows[row].Inhibit {
		return
	}

	res.SetGatewayInhibit(true)
	res.SetGatewayPayloadDisabled(true)
	res.SetHitEntryGateway(row)
	res.SetNextTableOrig(g.rows[row].NextTable)
}

// TernaryTable is a logical table matched in one TCAM. Each entry carries
// a ternary indirection word that is driven on the result bus when the
// entry hits.
type TernaryTable struct {
	lt        int
	egress    bool
	tcamIndex int
	array     *tcam.Array
	key       []config.KeyField
	layout    lookup.Layout
	missNext  int
	data      []uint64
	next      []int
	gateway   *GatewayTable
}

// NewTernaryTable programs a table into a TCAM. Entry i is written at
// priority i.
func NewTernaryTable(
	cfg config.TableConfig,
	array *tcam.Array,
) *TernaryTable {
	t := &TernaryTable{
		lt:        cfg.LogicalTable,
		egress:    cfg.Egress,
		tcamIndex: cfg.Tcam,
		array:     array,
		key:       cfg.Key,
		layout:    cfg.Layout,
		missNext:  cfg.MissNextTable,
		data:      make([]uint64, len(cfg.Entries)),
		next:      make([]int, len(cfg.Entries)),
	}

	array.Invalidate()
	for i, mode := range cfg.Bytemap {
		array.SetBytemapConfig(i, mode)
	}

	for i, e := range cfg.Entries {
		phys := array.Physical(i)
		array.SetValueMaskValid(phys, e.Value, e.Mask, true)
		array.SetBoundary(phys, e.Boundary)
		array.SetPayload(phys, e.Payload0, e.Payload1)

		t.data[i] = e.Data
		t.next[i] = e.NextTable
	}

	if cfg.Gateway != nil {
		t.gateway = NewGatewayTable(*cfg.Gateway, array.Width())
	}

	return t
}

// Egress reports the gress of the table.
func (t *TernaryTable) Egress() bool {
	return t.egress
}

// Layout returns the result bus layout.
func (t *TernaryTable) Layout() *lookup.Layout {
	return &t.layout
}

// Tcams returns the TCAM the table searches.
func (t *TernaryTable) Tcams() []int {
	return []int{t.tcamIndex}
}

// Lookup runs the gateway and then the ternary match.
func (t *TernaryTable) Lookup(p *phv.Phv, res *lookup.Result) {
	res.SetOutbus(t.lt)

	if t.gateway != nil {
		t.gateway.Apply(p, res)
	}

	hit := t.array.LookupKey(BuildKey(p, t.key))
	if hit == tcam.NoMatch {
		res.SetNextTable(t.missNext)
		return
	}

	pri, phys := hit, hit
	if t.array.Config().LookupReturnPri {
		phys = t.array.Physical(hit)
	} else {
		pri = t.array.Priority(hit)
	}

	res.SetTernaryMatch(true)
	res.SetTernaryIndirect(true)
	res.SetHitIndex(phys)
	res.SetRow(t.tcamIndex % tcamRows)
	res.SetCol(t.tcamIndex / tcamRows)
	res.SetHitEntry(pri)

	if pri < len(t.data) {
		if !res.GatewayPayloadDisabled() {
			res.SetPayload(t.data[pri])
		}
		res.SetNextTable(t.next[pri])
	} else {
		res.SetNextTable(t.missNext)
	}
}
