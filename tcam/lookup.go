package tcam

import (
	"github.com/bits-and-blooms/bitset"
)

// ternaryMatch reports whether a search word pair matches a stored word
// pair. A search bit set in s1 needs word1 set, a bit set in s0 needs word0
// set.
func ternaryMatch(word0, word1, s0, s1 uint64) bool {
	return (s0&^word0)|(s1&^word1) == 0
}

// Match reports whether the entry at a physical index is valid and matches
// the search words.
func (a *Array) Match(s0, s1 uint64, index int) bool {
	if !a.inRange(index) {
		return false
	}

	e := a.read(index)
	if !e.Valid {
		return false
	}

	return ternaryMatch(e.Word0, e.Word1, s0&a.widthMask, s1&a.widthMask)
}

func (a *Array) matchPri(s0, s1 uint64, pri, head int) bool {
	return a.Match(s0, s1, a.physical(pri, head))
}

// linked reports whether the entries at priorities pri and pri+1 may belong
// to the same range.
func (a *Array) linked(pri, head int) bool {
	if pri < 0 || pri+1 >= len(a.entries) {
		return false
	}

	upper := a.read(a.physical(pri, head))
	lower := a.read(a.physical(pri+1, head))

	return upper.Valid && lower.Valid && !upper.Boundary
}

func (a *Array) report(pri, head int) int {
	if a.config.LookupReturnPri {
		return pri
	}

	return a.physical(pri, head)
}

// Lookup searches priorities [hiPri, loPri] with the current head and range
// promotion enabled.
func (a *Array) Lookup(s0, s1 uint64, hiPri, loPri int) int {
	return a.LookupWith(s0, s1, hiPri, loPri, a.Head(), true)
}

// LookupKey expands a raw search key through the bytemap configuration and
// searches the whole array.
func (a *Array) LookupKey(key uint64) int {
	s0, s1 := a.ExpandSearch(key)

	return a.Lookup(s0, s1, 0, len(a.entries)-1)
}

// LookupWith searches priorities [hiPri, loPri] and returns the priority or
// physical index of the hit, or NoMatch.
//
// With promoteHits set, a hit on an entry that is part of a multi-entry
// range is reported at the top of that range, clipped to the window. Ranges
// that start above the window and reach into it are reported at hiPri, and
// ranges that start inside the window only below loPri are reported at
// loPri. Ranges never cross a boundary or an invalid entry, and never extend
// further than MaxRangeSeparation entries from a hit.
func (a *Array) LookupWith(
	s0, s1 uint64,
	hiPri, loPri, head int,
	promoteHits bool,
) int {
	n := len(a.entries)
	if hiPri < 0 || loPri >= n || hiPri > loPri {
		return NoMatch
	}

	head = a.normHead(head)
	sep := a.config.MaxRangeSeparation

	if promoteHits {
		for p := hiPri - 1; p >= 0 && hiPri-p <= sep; p-- {
			if !a.linked(p, head) {
				break
			}
			if a.matchPri(s0, s1, p, head) {
				return a.report(hiPri, head)
			}
		}
	}

	for p := hiPri; p <= loPri; p++ {
		if !a.matchPri(s0, s1, p, head) {
			continue
		}

		if !promoteHits {
			return a.report(p, head)
		}

		top, _ := a.FindRange(p, hiPri, loPri, head)

		return a.report(top, head)
	}

	if promoteHits {
		for p := loPri + 1; p < n && p-loPri <= sep; p++ {
			if !a.linked(p-1, head) {
				break
			}
			if a.matchPri(s0, s1, p, head) {
				return a.report(loPri, head)
			}
		}
	}

	return NoMatch
}

// FindRange grows a range outward from a hit priority, within the limits
// [hiLimit, loLimit], over linked entries no further than
// MaxRangeSeparation from the hit. It returns the top and bottom priorities
// of the range, or NoMatch for both if the hit is out of range.
func (a *Array) FindRange(hitPri, hiLimit, loLimit, head int) (top, bottom int) {
	if !a.inRange(hitPri) {
		return NoMatch, NoMatch
	}

	if hiLimit < 0 {
		hiLimit = 0
	}
	if loLimit >= len(a.entries) {
		loLimit = len(a.entries) - 1
	}

	head = a.normHead(head)
	sep := a.config.MaxRangeSeparation

	top, bottom = hitPri, hitPri
	for top > hiLimit && hitPri-(top-1) <= sep && a.linked(top-1, head) {
		top--
	}
	for bottom < loLimit && (bottom+1)-hitPri <= sep && a.linked(bottom, head) {
		bottom++
	}

	return top, bottom
}

// LookupBulk returns the subset of candidate priorities whose entries match
// the search words. No promotion is applied.
func (a *Array) LookupBulk(
	s0, s1 uint64,
	candidates *bitset.BitSet,
	head int,
) *bitset.BitSet {
	hits := bitset.New(uint(len(a.entries)))
	head = a.normHead(head)

	for i, ok := candidates.NextSet(0); ok; i, ok = candidates.NextSet(i + 1) {
		if int(i) >= len(a.entries) {
			break
		}
		if a.matchPri(s0, s1, int(i), head) {
			hits.Set(i)
		}
	}

	return hits
}

// FindRangeBulk promotes every hit priority to the top of its range within
// [hiPri, loPri] and returns the set of promoted priorities.
func (a *Array) FindRangeBulk(
	hits *bitset.BitSet,
	hiPri, loPri, head int,
) *bitset.BitSet {
	promoted := bitset.New(uint(len(a.entries)))

	for i, ok := hits.NextSet(0); ok; i, ok = hits.NextSet(i + 1) {
		pri := int(i)
		if pri < hiPri || pri > loPri || pri >= len(a.entries) {
			continue
		}

		top, _ := a.FindRange(pri, hiPri, loPri, head)
		promoted.Set(uint(top))
	}

	return promoted
}
