package mau

import "github.com/sarchlab/mausim/lookup"

// Addresses holds the addresses distributed to the rows for one event,
// indexed by logical table.
type Addresses struct {
	ActionData    [NumLogicalTables]uint32
	Idletime      [NumLogicalTables]uint32
	Stats         [NumLogicalTables]uint32
	StatsValid    [NumLogicalTables]bool
	Meter         [NumLogicalTables]uint32
	MeterValid    [NumLogicalTables]bool
	SelectorValid [NumLogicalTables]bool
}

// Reset clears every address.
func (a *Addresses) Reset() {
	*a = Addresses{}
}

func (a *Addresses) distribActionIdleStats(lt int, res *lookup.Result) {
	a.ActionData[lt] = res.ExtractActionDataAddr()
	a.Idletime[lt] = res.ExtractIdletimeAddr()
	a.Stats[lt] = res.ExtractStatsAddr()

	if res.SelectorLength() != 0 {
		a.ActionData[lt] = res.SelectorActionAddress()
	}
}

func (a *Addresses) distribMeter(lt int, res *lookup.Result) {
	if res.SelectorLength() != 0 {
		a.Meter[lt] = res.SelectorAddress()
		a.SelectorValid[lt] = true

		return
	}

	a.Meter[lt] = res.ExtractMeterAddr()
}

// ActionBus carries the instruction addresses and immediate data of the
// active tables to action processing.
type ActionBus struct {
	InstrAddr [NumLogicalTables]uint32
	ImmData   [NumLogicalTables]uint32
	Valid     [NumLogicalTables]bool
}

// Reset clears the bus.
func (b *ActionBus) Reset() {
	*b = ActionBus{}
}
