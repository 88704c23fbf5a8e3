// Package tcam models a ternary content-addressable memory array.
//
// Entries are stored as two ternary words. A bit position where both words
// are 1 matches any search bit, a position where exactly one word is 1 matches
// only that search value, and a position where both are 0 never matches.
// Entries are ordered by priority, priority 0 being the highest. The physical
// index of a priority is the priority rotated by the array head.
package tcam

import (
	"log"
	"sync"
)

// NoMatch is returned by lookups that do not hit any entry.
const NoMatch = -1

// Config holds the parameters of a ternary array.
type Config struct {
	// Entries is the number of entries in the array.
	Entries int
	// Width is the width of a ternary word in bits (at most 64).
	Width uint
	// MaxRangeSeparation bounds how far a hit may be promoted towards the
	// edge of its range.
	MaxRangeSeparation int
	// LockGranularity is the number of entries guarded by one lock.
	LockGranularity int
	// LookupReturnPri makes lookups return priorities instead of physical
	// indices.
	LookupReturnPri bool
}

// DefaultConfig returns the configuration of a 512 x 44 bit array.
func DefaultConfig() Config {
	return Config{
		Entries:            512,
		Width:              44,
		MaxRangeSeparation: 4,
		LockGranularity:    64,
		LookupReturnPri:    false,
	}
}

// Entry is one ternary entry.
type Entry struct {
	Word0 uint64
	Word1 uint64
	Valid bool
	// Boundary forbids a range spanning this entry and the entry of the next
	// lower priority.
	Boundary bool
	// Payload0 is 4 bits wide.
	Payload0 uint8
	Payload1 uint8
}

// Array is a fixed capacity array of ternary entries.
type Array struct {
	config    Config
	entries   []Entry
	locks     []sync.RWMutex
	widthMask uint64
	bytemap   []ByteMode

	headMu sync.RWMutex
	head   int
}

// New creates an array with all entries invalid.
func New(config Config) *Array {
	if config.Entries <= 0 {
		log.Panicf("tcam: invalid entry count %d", config.Entries)
	}
	if config.Width == 0 || config.Width > 64 {
		log.Panicf("tcam: invalid width %d", config.Width)
	}
	if config.LockGranularity <= 0 {
		config.LockGranularity = config.Entries
	}
	if config.MaxRangeSeparation < 0 {
		config.MaxRangeSeparation = 0
	}

	numLocks := (config.Entries + config.LockGranularity - 1) /
		config.LockGranularity

	a := &Array{
		config:  config,
		entries: make([]Entry, config.Entries),
		locks:   make([]sync.RWMutex, numLocks),
		bytemap: make([]ByteMode, (config.Width+7)/8),
	}

	if config.Width == 64 {
		a.widthMask = ^uint64(0)
	} else {
		a.widthMask = (uint64(1) << config.Width) - 1
	}

	return a
}

// Config returns the array configuration.
func (a *Array) Config() Config {
	return a.config
}

// Size returns the number of entries.
func (a *Array) Size() int {
	return len(a.entries)
}

// Width returns the ternary word width in bits.
func (a *Array) Width() uint {
	return a.config.Width
}

// SetLookupReturnPri selects whether lookups return priorities or physical
// indices.
func (a *Array) SetLookupReturnPri(returnPri bool) {
	a.config.LookupReturnPri = returnPri
}

// Head returns the physical index of priority 0.
func (a *Array) Head() int {
	a.headMu.RLock()
	defer a.headMu.RUnlock()

	return a.head
}

// SetHead relocates the start of the array. Out of range values are ignored.
func (a *Array) SetHead(head int) {
	if !a.inRange(head) {
		return
	}

	a.headMu.Lock()
	a.head = head
	a.headMu.Unlock()
}

func (a *Array) inRange(index int) bool {
	return index >= 0 && index < len(a.entries)
}

func (a *Array) lock(index int) *sync.RWMutex {
	return &a.locks[index/a.config.LockGranularity]
}

func (a *Array) read(index int) Entry {
	l := a.lock(index)
	l.RLock()
	e := a.entries[index]
	l.RUnlock()

	return e
}

func (a *Array) update(index int, f func(e *Entry)) {
	if !a.inRange(index) {
		return
	}

	l := a.lock(index)
	l.Lock()
	f(&a.entries[index])
	l.Unlock()
}

// Encode converts a value/mask pair into the two stored ternary words.
// Mask bits that are 0 become don't care.
func (a *Array) Encode(value, mask uint64) (word0, word1 uint64) {
	value &= a.widthMask
	mask &= a.widthMask
	dontCare := ^mask & a.widthMask

	word0 = (^value & mask) | dontCare
	word1 = (value & mask) | dontCare

	return word0, word1
}

// SetValueMask writes a valid entry. Out of range indices are ignored.
func (a *Array) SetValueMask(index int, value, mask uint64) {
	a.SetValueMaskValid(index, value, mask, true)
}

// SetValueMaskValid writes an entry with the given validity.
func (a *Array) SetValueMaskValid(index int, value, mask uint64, valid bool) {
	word0, word1 := a.Encode(value, mask)
	a.SetWords(index, word0, word1, valid)
}

// SetWords writes the raw ternary words of an entry. It is used to program
// entries searched through one-hot byte modes.
func (a *Array) SetWords(index int, word0, word1 uint64, valid bool) {
	a.update(index, func(e *Entry) {
		e.Word0 = word0 & a.widthMask
		e.Word1 = word1 & a.widthMask
		e.Valid = valid
	})
}

// SetValid changes the validity of an entry.
func (a *Array) SetValid(index int, valid bool) {
	a.update(index, func(e *Entry) { e.Valid = valid })
}

// SetBoundary changes the range boundary flag of an entry.
func (a *Array) SetBoundary(index int, boundary bool) {
	a.update(index, func(e *Entry) { e.Boundary = boundary })
}

// SetPayload writes the payload bits of an entry.
func (a *Array) SetPayload(index int, payload0, payload1 uint8) {
	a.update(index, func(e *Entry) {
		e.Payload0 = payload0 & 0xF
		e.Payload1 = payload1
	})
}

// Get returns the stored words and payloads of an entry. Out of range
// indices read as zero.
func (a *Array) Get(index int) (word0, word1 uint64, payload0, payload1 uint8) {
	if !a.inRange(index) {
		return 0, 0, 0, 0
	}

	e := a.read(index)

	return e.Word0, e.Word1, e.Payload0, e.Payload1
}

// Entry returns a copy of an entry.
func (a *Array) Entry(index int) (Entry, bool) {
	if !a.inRange(index) {
		return Entry{}, false
	}

	return a.read(index), true
}

// ValueMask decodes an entry back into a value/mask pair. Positions where
// neither word is set are reported as cared-for bits of value 0.
func (a *Array) ValueMask(index int) (value, mask uint64) {
	word0, word1, _, _ := a.Get(index)
	mask = ^(word0 & word1) & a.widthMask
	value = word1 & mask

	return value, mask
}

// Invalidate marks every entry invalid.
func (a *Array) Invalidate() {
	for i := range a.entries {
		a.SetValid(i, false)
	}
}

func (a *Array) physical(pri, head int) int {
	idx := pri + head
	if idx >= len(a.entries) {
		idx -= len(a.entries)
	}
	if !a.inRange(idx) {
		log.Panicf("tcam: priority %d head %d maps outside array", pri, head)
	}

	return idx
}

// Physical returns the physical index of a priority under the current head,
// or NoMatch for out of range priorities.
func (a *Array) Physical(pri int) int {
	if !a.inRange(pri) {
		return NoMatch
	}

	return a.physical(pri, a.Head())
}

// Priority returns the priority of a physical index under the current head.
func (a *Array) Priority(index int) int {
	if !a.inRange(index) {
		return NoMatch
	}

	pri := index - a.Head()
	if pri < 0 {
		pri += len(a.entries)
	}

	return pri
}

func (a *Array) normHead(head int) int {
	n := len(a.entries)

	return ((head % n) + n) % n
}
