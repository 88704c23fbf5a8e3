// Package phv provides the register-file snapshot a packet carries through
// the match-action stages.
package phv

import (
	"github.com/bits-and-blooms/bitset"
)

// NumAlus is the number of meter/stateful ALUs that receive time
// information.
const NumAlus = 4

// TimeInfo holds the per-ALU tick times and random values used by meters,
// LPFs and stateful ALUs.
type TimeInfo struct {
	MeterTick [NumAlus]uint64
	Random    [NumAlus]uint64
}

// Phv is a vector of 32-bit words with per-word validity, plus the hash
// outputs computed for each logical table.
type Phv struct {
	words []uint32
	valid *bitset.BitSet
	time  TimeInfo
	hash  map[int]uint64
}

// New creates a Phv of the given size with every word invalid.
func New(size int) *Phv {
	return &Phv{
		words: make([]uint32, size),
		valid: bitset.New(uint(size)),
		hash:  make(map[int]uint64),
	}
}

// Size returns the number of words.
func (p *Phv) Size() int {
	return len(p.words)
}

// Get returns a word. Out of range indices read as zero.
func (p *Phv) Get(i int) uint32 {
	if i < 0 || i >= len(p.words) {
		return 0
	}

	return p.words[i]
}

// Set writes a word and marks it valid. Out of range indices are ignored.
func (p *Phv) Set(i int, v uint32) {
	if i < 0 || i >= len(p.words) {
		return
	}

	p.words[i] = v
	p.valid.Set(uint(i))
}

// IsValid reports whether a word has been written.
func (p *Phv) IsValid(i int) bool {
	if i < 0 || i >= len(p.words) {
		return false
	}

	return p.valid.Test(uint(i))
}

// SetValid changes the validity of a word.
func (p *Phv) SetValid(i int, valid bool) {
	if i < 0 || i >= len(p.words) {
		return
	}

	p.valid.SetTo(uint(i), valid)
}

// TimeInfo returns the time information.
func (p *Phv) TimeInfo() TimeInfo {
	return p.time
}

// SetTimeInfo replaces the time information.
func (p *Phv) SetTimeInfo(t TimeInfo) {
	p.time = t
}

// HashOutput returns the hash computed for a logical table.
func (p *Phv) HashOutput(logicalTable int) uint64 {
	return p.hash[logicalTable]
}

// SetHashOutput records the hash computed for a logical table.
func (p *Phv) SetHashOutput(logicalTable int, hash uint64) {
	p.hash[logicalTable] = hash
}

// Clone returns a deep copy.
func (p *Phv) Clone() *Phv {
	c := &Phv{
		words: make([]uint32, len(p.words)),
		valid: p.valid.Clone(),
		time:  p.time,
		hash:  make(map[int]uint64, len(p.hash)),
	}

	copy(c.words, p.words)
	for k, v := range p.hash {
		c.hash[k] = v
	}

	return c
}
