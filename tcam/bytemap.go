package tcam

import "fmt"

// ByteMode selects how one byte of a search key is turned into search words.
type ByteMode uint8

const (
	// ByteIdentity searches the byte as is.
	ByteIdentity ByteMode = iota
	// ByteOneHot2 encodes every 2-bit group of the byte as a one-hot value
	// over 2 bits of word0 and 2 bits of word1.
	ByteOneHot2
	// ByteOneHot4Lo encodes the low nibble as a one-hot value over the 8
	// bits of word0 and the 8 bits of word1.
	ByteOneHot4Lo
	// ByteOneHot4Hi is ByteOneHot4Lo applied to the high nibble.
	ByteOneHot4Hi
)

var byteModeNames = [...]string{"identity", "onehot2", "onehot4lo", "onehot4hi"}

func (m ByteMode) String() string {
	if int(m) < len(byteModeNames) {
		return byteModeNames[m]
	}

	return fmt.Sprintf("ByteMode(%d)", uint8(m))
}

// MarshalText encodes the mode by name.
func (m ByteMode) MarshalText() ([]byte, error) {
	if int(m) >= len(byteModeNames) {
		return nil, fmt.Errorf("unknown byte mode %d", uint8(m))
	}

	return []byte(byteModeNames[m]), nil
}

// UnmarshalText decodes a mode name.
func (m *ByteMode) UnmarshalText(text []byte) error {
	for i, name := range byteModeNames {
		if name == string(text) {
			*m = ByteMode(i)
			return nil
		}
	}

	return fmt.Errorf("unknown byte mode %q", text)
}

// SetBytemapConfig selects the search mode of one key byte. Out of range
// bytes and unknown modes are ignored.
func (a *Array) SetBytemapConfig(byteIndex int, mode ByteMode) {
	if byteIndex < 0 || byteIndex >= len(a.bytemap) || mode > ByteOneHot4Hi {
		return
	}

	a.bytemap[byteIndex] = mode
}

// BytemapConfig returns the search mode of one key byte.
func (a *Array) BytemapConfig(byteIndex int) ByteMode {
	if byteIndex < 0 || byteIndex >= len(a.bytemap) {
		return ByteIdentity
	}

	return a.bytemap[byteIndex]
}

// ExpandSearch converts a raw search key into the two search words.
func (a *Array) ExpandSearch(key uint64) (s0, s1 uint64) {
	for i, mode := range a.bytemap {
		shift := uint(i) * 8
		b0, b1 := expandByte(uint8(key>>shift), mode)
		s0 |= uint64(b0) << shift
		s1 |= uint64(b1) << shift
	}

	return s0 & a.widthMask, s1 & a.widthMask
}

func expandByte(b uint8, mode ByteMode) (s0, s1 uint8) {
	switch mode {
	case ByteOneHot2:
		for g := uint(0); g < 4; g++ {
			hot := uint8(1) << ((b >> (2 * g)) & 3)
			s0 |= (hot & 3) << (2 * g)
			s1 |= (hot >> 2) << (2 * g)
		}
		return s0, s1
	case ByteOneHot4Lo:
		return oneHotNibble(b & 0xF)
	case ByteOneHot4Hi:
		return oneHotNibble(b >> 4)
	default:
		return ^b, b
	}
}

func oneHotNibble(nibble uint8) (s0, s1 uint8) {
	hot := uint16(1) << nibble

	return uint8(hot), uint8(hot >> 8)
}
