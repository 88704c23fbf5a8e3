package mau

import (
	"github.com/sarchlab/mausim/config"
	"github.com/sarchlab/mausim/lookup"
	"github.com/sarchlab/mausim/phv"
)

// TcamUser is implemented by tables that search TCAMs of the stage.
type TcamUser interface {
	Tcams() []int
}

func (e *Engine) predicationStart(ev *event) {
	e.pred.Start(ev.next)
}

func (e *Engine) lookupTable(ev *event, lt int) {
	t := e.tables[lt]
	res := e.results[lt]

	if t == nil {
		res.Invalidate()
		return
	}

	p := ev.in[gressIndex(t.Egress())]
	if p == nil || !e.pred.Lookup(lt) {
		res.Invalidate()
		return
	}

	res.Reset()
	res.BindHashSource(p)
	t.Lookup(p, res)

	if u, ok := t.(TcamUser); ok {
		for _, i := range u.Tcams() {
			if i >= 0 && i < len(e.tcams) {
				e.powered.Set(uint(i))
			}
		}
	}
}

func (e *Engine) predicationEndFirst(ev *event) {
	if err := e.pred.End(e.results[:], false); err != nil {
		ev.err = err
	}
}

func (e *Engine) predicationEndFinal(ev *event) {
	if err := e.pred.End(e.results[:], true); err != nil {
		ev.err = err
	}
}

// used reports whether a logical table takes part in the current event.
func (e *Engine) used(lt int) bool {
	res := e.results[lt]
	return e.tables[lt] != nil && res.Valid() && res.Active()
}

func (e *Engine) distribActionStats(_ *event, lt int) {
	if !e.used(lt) {
		return
	}

	e.addrs.distribActionIdleStats(lt, e.results[lt])
}

// finalizeStats keeps a stats address for hits, and for misses only when the
// table supplies a default address.
func (e *Engine) finalizeStats(_ *event, lt int) {
	if !e.used(lt) {
		return
	}

	res := e.results[lt]
	e.addrs.StatsValid[lt] = res.Match() || e.tables[lt].Layout().Stats.DefaultEnable
	if !e.addrs.StatsValid[lt] {
		e.addrs.Stats[lt] = 0
	}
}

func (e *Engine) colourMapramRead(ev *event) {
	for _, m := range e.maprams {
		if m != nil {
			m.RunColorRead(&ev.ctx)
		}
	}
}

func (e *Engine) distribMeter(_ *event, lt int) {
	if !e.used(lt) {
		return
	}

	e.addrs.distribMeter(lt, e.results[lt])
}

func (e *Engine) finalizeMeter(_ *event, lt int) {
	if !e.used(lt) {
		return
	}

	res := e.results[lt]
	e.addrs.MeterValid[lt] = e.addrs.SelectorValid[lt] || res.Match() ||
		e.tables[lt].Layout().Meter.DefaultEnable
	if !e.addrs.MeterValid[lt] {
		e.addrs.Meter[lt] = 0
	}
}

func (e *Engine) immDataOutput(_ *event, lt int) {
	if !e.used(lt) {
		return
	}

	res := e.results[lt]
	instr := res.ExtractActionInstrAddr()

	res.SetInstr(int(instr))
	e.bus.InstrAddr[lt] = instr
	e.bus.ImmData[lt] = res.ExtractImmData()
	e.bus.Valid[lt] = true
}

// updateNextTable resolves the next table of each active table into the
// table id the pipe continues at.
func (e *Engine) updateNextTable(ev *event, lt int) {
	if !e.used(lt) {
		return
	}

	res := e.results[lt]
	next := res.NextTable()
	if next == lookup.Invalid {
		next = config.NextTableEnd
	}

	resolved, err := e.FindNextTable(
		res.Egress(), config.TableID(e.stage, lt), next)
	if err != nil {
		res.SetError()
		ev.err = err

		return
	}

	res.SetNextTableForm(resolved)
}

func (e *Engine) processAction(ev *event) {
	for g, p := range ev.in {
		if p != nil {
			ev.out[g] = p.Clone()
		}
	}

	if e.action != nil {
		e.action.ProcessAction(e.results[:], &e.bus, ev.out)
	}
}

func (e *Engine) snapshotEnd(ev *event) {
	item := SnapshotItem{Stage: e.stage, Results: make([]lookup.Snapshot, 0, NumLogicalTables)}
	for lt, res := range e.results {
		if e.tables[lt] != nil && res.Valid() {
			item.Results = append(item.Results, res.Snapshot())
		}
	}

	for g, p := range ev.in {
		item.Next[g] = config.NextTableEnd
		if p != nil {
			item.Next[g] = e.pred.NextTable(g == 1)
		}
	}

	e.hook(HookPosSnapshot, item, StepHookDetail{Stage: e.stage, List: ev.list})
}

// ImmDataWriter is the default action processor. It writes the immediate
// data of each active hit into a configured Phv word. Tables inhibited by
// their gateway write nothing.
type ImmDataWriter struct {
	words map[int]int
}

// NewImmDataWriter creates an ImmDataWriter with no destinations.
func NewImmDataWriter() *ImmDataWriter {
	return &ImmDataWriter{words: make(map[int]int)}
}

// SetDestination routes the immediate data of a logical table to a word.
func (w *ImmDataWriter) SetDestination(lt, word int) {
	w.words[lt] = word
}

// ProcessAction writes immediate data of the active hits.
func (w *ImmDataWriter) ProcessAction(
	results []*lookup.Result,
	bus *ActionBus,
	out [2]*phv.Phv,
) {
	for lt, res := range results {
		word, ok := w.words[lt]
		if !ok || !bus.Valid[lt] || !res.Active() || !res.Match() ||
			res.GatewayInhibit() {
			continue
		}

		p := out[gressIndex(res.Egress())]
		if p != nil {
			p.Set(word, bus.ImmData[lt])
		}
	}
}
