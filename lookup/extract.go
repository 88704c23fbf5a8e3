package lookup

var zeroLayout Layout

func (r *Result) busLayout() *Layout {
	if r.layout == nil {
		return &zeroLayout
	}

	return r.layout
}

func (r *Result) hit() bool {
	return r.valid && r.match
}

// ExtractActionInstrAddr returns the action instruction address. The low
// bits go through the instruction map when it is enabled, and the gress bit
// is overwritten unless the table uses bitmask ops.
func (r *Result) ExtractActionInstrAddr() uint32 {
	l := r.busLayout()
	addr := l.ActionInstr.Extract(r.payload, r.hit())

	if l.InstrMapEnable {
		addr = (addr &^ 7) | uint32(l.InstrMap[addr&7]&7)
	}

	if !l.BitmaskOps {
		addr &^= 1 << InstrGressBit
		if r.egress {
			addr |= 1 << InstrGressBit
		}
	}

	return addr
}

// ExtractImmData returns the immediate data field.
func (r *Result) ExtractImmData() uint32 {
	return r.busLayout().ImmData.Extract(r.payload, r.hit())
}

// ExtractActionDataAddr returns the action data address.
func (r *Result) ExtractActionDataAddr() uint32 {
	return r.busLayout().ActionData.Extract(r.payload, r.hit())
}

// ExtractStatsAddr returns the stats address.
func (r *Result) ExtractStatsAddr() uint32 {
	return r.busLayout().Stats.Extract(r.payload, r.hit())
}

// ExtractMeterAddr returns the meter, stateful or selector address.
func (r *Result) ExtractMeterAddr() uint32 {
	return r.busLayout().Meter.Extract(r.payload, r.hit())
}

// ExtractIdletimeAddr returns the idle time address.
func (r *Result) ExtractIdletimeAddr() uint32 {
	return r.busLayout().Idletime.Extract(r.payload, r.hit())
}

// ExtractSelectorLen returns the selector length in words.
func (r *Result) ExtractSelectorLen() uint32 {
	return r.busLayout().SelectorLen.Extract(r.payload, r.hit())
}

func (r *Result) selectorHash() uint64 {
	if r.hashSrc == nil {
		return 0
	}

	return r.hashSrc.HashOutput(r.logicalTable) >> r.busLayout().SelectorHashShift
}

// SelectorLength returns the number of selector words of the hit.
func (r *Result) SelectorLength() uint32 {
	return r.ExtractSelectorLen()
}

// SelectorAddress returns the address of the selector word picked by the
// hash. Without a selector length the meter address is returned unchanged.
func (r *Result) SelectorAddress() uint32 {
	base := r.ExtractMeterAddr()
	words := r.SelectorLength()
	if words == 0 {
		return base
	}

	offset := uint32(r.selectorHash() % uint64(words))

	return base + offset<<r.busLayout().SelectorWordShift
}

// SelectorActionAddress returns the action data address of the member
// picked by the hash.
func (r *Result) SelectorActionAddress() uint32 {
	base := r.ExtractActionDataAddr()
	l := r.busLayout()

	members := r.SelectorLength() * l.SelectorMembersPerWord
	if members == 0 {
		return base
	}

	offset := uint32(r.selectorHash() % uint64(members))

	return base + offset<<l.SelectorActionShift
}
