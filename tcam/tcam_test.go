package tcam_test

import (
	"github.com/bits-and-blooms/bitset"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mausim/tcam"
)

func newArray(entries int, returnPri bool) *tcam.Array {
	return tcam.New(tcam.Config{
		Entries:            entries,
		Width:              8,
		MaxRangeSeparation: 4,
		LockGranularity:    2,
		LookupReturnPri:    returnPri,
	})
}

var _ = Describe("Array", func() {
	var a *tcam.Array

	Describe("entry storage", func() {
		BeforeEach(func() {
			a = newArray(4, true)
		})

		It("should round-trip value and mask", func() {
			a.SetValueMask(1, 0xA5, 0xF0)

			value, mask := a.ValueMask(1)
			Expect(value).To(Equal(uint64(0xA0)))
			Expect(mask).To(Equal(uint64(0xF0)))
		})

		It("should store don't care bits as ones in both words", func() {
			a.SetValueMask(0, 0x0A, 0x0F)

			w0, w1, _, _ := a.Get(0)
			Expect(w0 & 0xF0).To(Equal(uint64(0xF0)))
			Expect(w1 & 0xF0).To(Equal(uint64(0xF0)))
			Expect(w0 & 0x0F).To(Equal(uint64(0x05)))
			Expect(w1 & 0x0F).To(Equal(uint64(0x0A)))
		})

		It("should round-trip payloads", func() {
			a.SetPayload(2, 0x1F, 0xAB)

			_, _, p0, p1 := a.Get(2)
			Expect(p0).To(Equal(uint8(0xF)))
			Expect(p1).To(Equal(uint8(0xAB)))
		})

		It("should ignore out of range writes", func() {
			a.SetValueMask(4, 0xFF, 0xFF)
			a.SetValueMask(-1, 0xFF, 0xFF)
			a.SetBoundary(9, true)

			w0, w1, p0, p1 := a.Get(4)
			Expect(w0).To(BeZero())
			Expect(w1).To(BeZero())
			Expect(p0).To(BeZero())
			Expect(p1).To(BeZero())

			_, ok := a.Entry(4)
			Expect(ok).To(BeFalse())
		})

		It("should keep an entry invalid when asked to", func() {
			a.SetValueMaskValid(3, 0x0A, 0xFF, false)

			s0, s1 := a.ExpandSearch(0x0A)
			Expect(a.Match(s0, s1, 3)).To(BeFalse())

			a.SetValid(3, true)
			Expect(a.Match(s0, s1, 3)).To(BeTrue())
		})
	})

	Describe("Match", func() {
		BeforeEach(func() {
			a = newArray(4, true)
		})

		It("should match wildcard bits against any search value", func() {
			a.SetValueMask(0, 0xA5, 0xF0)

			for key := uint64(0xA0); key <= 0xAF; key++ {
				s0, s1 := a.ExpandSearch(key)
				Expect(a.Match(s0, s1, 0)).To(BeTrue())
			}

			s0, s1 := a.ExpandSearch(0xB5)
			Expect(a.Match(s0, s1, 0)).To(BeFalse())
		})

		It("should never match an invalid entry", func() {
			s0, s1 := a.ExpandSearch(0)
			Expect(a.Match(s0, s1, 1)).To(BeFalse())
		})
	})

	Describe("Lookup", func() {
		Context("with a single entry", func() {
			BeforeEach(func() {
				a = newArray(4, true)
				a.SetValueMask(3, 0x0A, 0xFF)
			})

			It("should return the priority of the hit", func() {
				Expect(a.LookupKey(0x0A)).To(Equal(3))
			})

			It("should return no match on a miss", func() {
				Expect(a.LookupKey(0x0B)).To(Equal(tcam.NoMatch))
			})

			It("should return no match for an inverted window", func() {
				s0, s1 := a.ExpandSearch(0x0A)
				Expect(a.Lookup(s0, s1, 3, 2)).To(Equal(tcam.NoMatch))
				Expect(a.Lookup(s0, s1, -1, 3)).To(Equal(tcam.NoMatch))
				Expect(a.Lookup(s0, s1, 0, 4)).To(Equal(tcam.NoMatch))
			})
		})

		Context("with several matching entries", func() {
			BeforeEach(func() {
				a = newArray(8, true)
				a.SetValueMask(2, 0x40, 0xF0)
				a.SetValueMask(5, 0x44, 0xFF)
			})

			It("should resolve to the highest priority", func() {
				Expect(a.LookupKey(0x44)).To(Equal(2))
			})

			It("should resolve to the lower entry outside the window", func() {
				s0, s1 := a.ExpandSearch(0x44)
				Expect(a.Lookup(s0, s1, 3, 7)).To(Equal(5))
			})
		})

		Context("with ranges", func() {
			var s0, s1 uint64

			BeforeEach(func() {
				a = newArray(8, true)
				s0, s1 = a.ExpandSearch(0x22)
			})

			It("should promote a hit to the top of the window", func() {
				a.SetValueMask(2, 0x11, 0xFF)
				a.SetValueMask(3, 0x22, 0xFF)

				Expect(a.Lookup(s0, s1, 2, 6)).To(Equal(2))
			})

			It("should report the exact hit without promotion", func() {
				a.SetValueMask(2, 0x11, 0xFF)
				a.SetValueMask(3, 0x22, 0xFF)

				Expect(a.LookupWith(s0, s1, 2, 6, 0, false)).To(Equal(3))
			})

			It("should stop promotion at a boundary", func() {
				a.SetValueMask(2, 0x11, 0xFF)
				a.SetValueMask(3, 0x22, 0xFF)
				a.SetValueMask(4, 0x22, 0xFF)
				Expect(a.Lookup(s0, s1, 2, 6)).To(Equal(2))

				a.SetBoundary(2, true)
				Expect(a.Lookup(s0, s1, 2, 6)).To(Equal(3))
			})

			It("should stop promotion at an invalid entry", func() {
				a.SetValueMask(3, 0x22, 0xFF)

				Expect(a.Lookup(s0, s1, 2, 6)).To(Equal(3))
			})

			It("should report a range reaching in from above at the top", func() {
				a.SetValueMask(1, 0x22, 0xFF)
				a.SetValueMask(2, 0x11, 0xFF)
				a.SetValueMask(3, 0x11, 0xFF)

				Expect(a.Lookup(s0, s1, 3, 6)).To(Equal(3))

				a.SetBoundary(2, true)
				Expect(a.Lookup(s0, s1, 3, 6)).To(Equal(tcam.NoMatch))
			})

			It("should report a range reaching in from below at the bottom", func() {
				a.SetValueMask(3, 0x11, 0xFF)
				a.SetValueMask(4, 0x22, 0xFF)

				Expect(a.Lookup(s0, s1, 1, 3)).To(Equal(3))

				a.SetBoundary(3, true)
				Expect(a.Lookup(s0, s1, 1, 3)).To(Equal(tcam.NoMatch))
			})

			It("should not promote further than the range separation", func() {
				for i := 0; i < 8; i++ {
					a.SetValueMask(i, 0x11, 0xFF)
				}
				a.SetValueMask(6, 0x22, 0xFF)

				Expect(a.Lookup(s0, s1, 0, 7)).To(Equal(2))

				top, bottom := a.FindRange(6, 0, 7, 0)
				Expect(top).To(Equal(2))
				Expect(bottom).To(Equal(7))
			})
		})

		Context("with a relocated head", func() {
			BeforeEach(func() {
				a = newArray(4, false)
				a.SetHead(2)
			})

			It("should map priority 0 onto the head", func() {
				Expect(a.Physical(0)).To(Equal(2))
				Expect(a.Physical(3)).To(Equal(1))
				Expect(a.Priority(1)).To(Equal(3))
			})

			It("should return physical indices", func() {
				a.SetValueMask(a.Physical(3), 0x0A, 0xFF)

				Expect(a.LookupKey(0x0A)).To(Equal(1))

				a.SetLookupReturnPri(true)
				Expect(a.LookupKey(0x0A)).To(Equal(3))
			})

			It("should ignore an out of range head", func() {
				a.SetHead(4)
				Expect(a.Head()).To(Equal(2))
			})
		})
	})

	Describe("bulk variants", func() {
		BeforeEach(func() {
			a = newArray(4, true)
			for i := 0; i < 4; i++ {
				a.SetValueMask(i, 0x11, 0xFF)
			}
			a.SetValueMask(1, 0x22, 0xFF)
			a.SetValueMask(3, 0x20, 0xF0)
		})

		It("should return the matching candidates", func() {
			s0, s1 := a.ExpandSearch(0x22)
			candidates := bitset.New(4).Set(0).Set(1).Set(3)

			hits := a.LookupBulk(s0, s1, candidates, 0)

			Expect(hits.Test(1)).To(BeTrue())
			Expect(hits.Test(3)).To(BeTrue())
			Expect(hits.Count()).To(Equal(uint(2)))
		})

		It("should skip candidates that are not set", func() {
			s0, s1 := a.ExpandSearch(0x22)
			candidates := bitset.New(4).Set(3)

			hits := a.LookupBulk(s0, s1, candidates, 0)

			Expect(hits.Test(1)).To(BeFalse())
			Expect(hits.Count()).To(Equal(uint(1)))
		})

		It("should promote every hit to the top of its range", func() {
			hits := bitset.New(4).Set(1).Set(3)

			Expect(a.FindRangeBulk(hits, 0, 3, 0).Count()).To(Equal(uint(1)))

			a.SetBoundary(1, true)
			promoted := a.FindRangeBulk(hits, 0, 3, 0)
			Expect(promoted.Test(0)).To(BeTrue())
			Expect(promoted.Test(2)).To(BeTrue())
			Expect(promoted.Count()).To(Equal(uint(2)))
		})
	})
})
