package lookup

const (
	// InstrPfeBit is the per-flow-enable bit of an action instruction
	// address.
	InstrPfeBit = 6
	// InstrGressBit carries the ingress/egress discriminator of an action
	// instruction address. It is set for egress.
	InstrGressBit = InstrPfeBit + 1
)

// Field describes where one address field sits on a result bus and how it is
// post-processed.
type Field struct {
	// Shift is the bit position of the field on the bus.
	Shift uint `json:"shift"`
	// Width is the number of bits extracted. A zero width reads nothing.
	Width uint `json:"width"`
	// Mask is applied to the extracted value. Zero means no masking.
	Mask uint32 `json:"mask"`
	// Default is OR-ed into the value when DefaultEnable is set.
	Default       uint32 `json:"default"`
	DefaultEnable bool   `json:"default_enable"`
	// DefaultAfterMask applies the default after the mask instead of
	// before it.
	DefaultAfterMask bool `json:"default_after_mask"`
	// Lshift converts the field into an address.
	Lshift uint `json:"lshift"`
}

func (f Field) mask() uint32 {
	if f.Mask == 0 {
		return ^uint32(0)
	}

	return f.Mask
}

// Extract reads the field from a bus word. On a miss the raw value is zero,
// so only the default can contribute.
func (f Field) Extract(bus uint64, hit bool) uint32 {
	var raw uint32
	if hit && f.Width > 0 {
		width := f.Width
		if width > 32 {
			width = 32
		}
		raw = uint32((bus >> f.Shift) & ((uint64(1) << width) - 1))
	}

	var v uint32
	switch {
	case !f.DefaultEnable:
		v = raw & f.mask()
	case f.DefaultAfterMask:
		v = (raw & f.mask()) | f.Default
	default:
		v = (raw | f.Default) & f.mask()
	}

	return v << f.Lshift
}

// Layout is the result bus layout of one logical table.
type Layout struct {
	ActionInstr Field `json:"action_instr"`
	ImmData     Field `json:"imm_data"`
	ActionData  Field `json:"action_data"`
	Stats       Field `json:"stats"`
	Meter       Field `json:"meter"`
	Idletime    Field `json:"idletime"`
	SelectorLen Field `json:"selector_len"`

	// InstrMap remaps the low 3 bits of the instruction address when
	// InstrMapEnable is set.
	InstrMap       [8]uint8 `json:"instr_map"`
	InstrMapEnable bool     `json:"instr_map_enable"`
	// BitmaskOps tables keep the gress bit of the instruction address.
	BitmaskOps bool `json:"bitmask_ops"`

	// SelectorHashShift drops low hash bits before selection.
	SelectorHashShift uint `json:"selector_hash_shift"`
	// SelectorWordShift converts a selector word offset into an address.
	SelectorWordShift uint `json:"selector_word_shift"`
	// SelectorMembersPerWord is the number of members one selector word
	// holds.
	SelectorMembersPerWord uint32 `json:"selector_members_per_word"`
	// SelectorActionShift converts a member offset into an action data
	// address.
	SelectorActionShift uint `json:"selector_action_shift"`
}

// DefaultLayout returns a layout with the fields packed at fixed offsets of
// a 64-bit bus: instruction [6:0], immediate data [31:8], action data
// [47:32], stats [55:48], meter [63:56].
func DefaultLayout() Layout {
	return Layout{
		ActionInstr:            Field{Shift: 0, Width: 7},
		ImmData:                Field{Shift: 8, Width: 24},
		ActionData:             Field{Shift: 32, Width: 16},
		Stats:                  Field{Shift: 48, Width: 8},
		Meter:                  Field{Shift: 56, Width: 8},
		Idletime:               Field{},
		SelectorLen:            Field{},
		SelectorWordShift:      0,
		SelectorMembersPerWord: 120,
	}
}
