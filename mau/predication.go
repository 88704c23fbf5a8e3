package mau

import (
	"github.com/sarchlab/mausim/config"
	"github.com/sarchlab/mausim/lookup"
)

// TableSource gives access to the logical tables of a stage.
type TableSource interface {
	Table(lt int) Table
}

// SerialPredication runs the logical tables of a gress as a chain. Every
// table at or after the incoming next table is looked up; the chain then
// follows the next table of each table through the stage, and the tables
// on it become active.
type SerialPredication struct {
	stage  int
	tables TableSource

	start  [2]int
	next   [2]int
	lookup [NumLogicalTables]bool
}

// NewSerialPredication creates the predication of a stage.
func NewSerialPredication(stage int, tables TableSource) *SerialPredication {
	return &SerialPredication{
		stage:  stage,
		tables: tables,
		start:  [2]int{config.NextTableEnd, config.NextTableEnd},
		next:   [2]int{config.NextTableEnd, config.NextTableEnd},
	}
}

func (p *SerialPredication) inStage(id int) bool {
	return id != config.NextTableEnd && config.TableStage(id) == p.stage
}

// Start records the incoming next tables and selects the tables to look up.
func (p *SerialPredication) Start(next [2]int) {
	p.start = next
	p.next = next

	for lt := range p.lookup {
		p.lookup[lt] = false

		t := p.tables.Table(lt)
		if t == nil {
			continue
		}

		n := next[gressIndex(t.Egress())]
		p.lookup[lt] = p.inStage(n) && lt >= config.TableLogical(n)
	}
}

// Lookup reports whether a logical table is looked up.
func (p *SerialPredication) Lookup(lt int) bool {
	if lt < 0 || lt >= NumLogicalTables {
		return false
	}

	return p.lookup[lt]
}

// End walks the chain of each gress and marks its tables active. The final
// pass records where each chain leaves the stage on its last table.
func (p *SerialPredication) End(results []*lookup.Result, final bool) error {
	for _, res := range results {
		if res != nil {
			res.SetActive(false)
		}
	}

	for g := range p.start {
		out, last, err := p.walk(results, g == 1)
		if err != nil {
			return err
		}

		p.next[g] = out
		if final && last != nil {
			last.SetNextTablePred(out)
		}
	}

	return nil
}

func (p *SerialPredication) walk(
	results []*lookup.Result,
	egress bool,
) (int, *lookup.Result, error) {
	var last *lookup.Result

	n := p.start[gressIndex(egress)]
	for p.inStage(n) {
		lt := config.TableLogical(n)
		if lt >= len(results) || !p.lookup[lt] {
			return 0, nil, fatalf("next table %#x is not programmed", n)
		}

		res := results[lt]
		if res == nil || !res.Valid() || res.Egress() != egress {
			return 0, nil, fatalf("next table %#x is not programmed", n)
		}

		res.SetActive(true)
		last = res

		next := res.NextTable()
		if next == lookup.Invalid {
			next = config.NextTableEnd
		}
		if p.inStage(next) && config.TableLogical(next) <= lt {
			return 0, nil, fatalf("table %#x loops back to %#x", n, next)
		}

		n = next
	}

	return n, last, nil
}

// NextTable returns where a gress continues after the stage.
func (p *SerialPredication) NextTable(egress bool) int {
	return p.next[gressIndex(egress)]
}
