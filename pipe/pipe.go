// Package pipe chains the match-action stages of one pipe.
// It wraps the per-stage engines to provide a packet-level interface.
package pipe

import (
	"fmt"

	"github.com/sarchlab/mausim/config"
	"github.com/sarchlab/mausim/mau"
	"github.com/sarchlab/mausim/phv"
)

// Stats holds statistics for the pipe.
type Stats struct {
	// Packets is the number of packets processed.
	Packets uint64
	// StageVisits is the number of stage executions.
	StageVisits uint64
	// Hits is the number of active tables that matched.
	Hits uint64
	// OfloEvents is the number of stage executions with a data overflow.
	OfloEvents uint64
}

// Hop records where each gress continued after a stage.
type Hop struct {
	Stage       int
	IngressNext int
	EgressNext  int
}

// Result is the outcome of one packet.
type Result struct {
	Ingress *phv.Phv
	Egress  *phv.Phv
	Hops    []Hop
}

// Pipe runs packets through a sequence of stages.
type Pipe struct {
	cfg    *config.Config
	stages []*mau.Engine
	stats  Stats
}

// New builds every configured stage of a pipe.
func New(cfg *config.Config, opts ...mau.EngineOption) (*Pipe, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	p := &Pipe{cfg: cfg}
	for s := range cfg.Stages {
		e, err := mau.Build(s, cfg, opts...)
		if err != nil {
			return nil, err
		}
		p.stages = append(p.stages, e)
	}

	return p, nil
}

// NumStages returns the number of stages.
func (p *Pipe) NumStages() int {
	return len(p.stages)
}

// Stage returns the engine of a stage.
func (p *Pipe) Stage(s int) *mau.Engine {
	return p.stages[s]
}

// Stats returns statistics for the pipe.
func (p *Pipe) Stats() Stats {
	return p.stats
}

// Process runs one packet through the stages. Either Phv may be nil.
func (p *Pipe) Process(iphv, ephv *phv.Phv) (Result, error) {
	res := Result{Ingress: iphv, Egress: ephv}
	if len(p.stages) == 0 {
		return res, nil
	}

	next := [2]int{config.NextTableEnd, config.NextTableEnd}
	if iphv != nil {
		next[0] = p.stages[0].FindFirstTable(false)
	}
	if ephv != nil {
		next[1] = p.stages[0].FindFirstTable(true)
	}

	p.stats.Packets++

	for _, e := range p.stages {
		if next[0] == config.NextTableEnd && next[1] == config.NextTableEnd {
			break
		}

		e.ResetResources()

		out, err := e.Execute(res.Ingress, res.Egress, next[0], next[1])
		if err != nil {
			return res, fmt.Errorf("stage %d: %w", e.Stage(), err)
		}

		p.stats.StageVisits++
		p.countHits(e)

		oflo, err := e.CheckDataOfloRows()
		if oflo {
			p.stats.OfloEvents++
		}
		if err != nil {
			return res, fmt.Errorf("stage %d: %w", e.Stage(), err)
		}

		res.Ingress, res.Egress = out.Ingress, out.Egress
		next = [2]int{out.IngressNext, out.EgressNext}
		res.Hops = append(res.Hops, Hop{
			Stage:       e.Stage(),
			IngressNext: next[0],
			EgressNext:  next[1],
		})
	}

	return res, nil
}

func (p *Pipe) countHits(e *mau.Engine) {
	for lt := 0; lt < mau.NumLogicalTables; lt++ {
		r := e.Result(lt)
		if r.Valid() && r.Active() && r.Match() {
			p.stats.Hits++
		}
	}
}

// HandleEop delivers an end-of-packet event to every stage.
func (p *Pipe) HandleEop(eop mau.Eop) error {
	for _, e := range p.stages {
		if err := e.HandleEop(eop); err != nil {
			return fmt.Errorf("stage %d: %w", e.Stage(), err)
		}
	}

	return nil
}

// Reset clears the per-event state of every stage and the statistics.
func (p *Pipe) Reset() {
	for _, e := range p.stages {
		e.ResetResources()
	}
	p.stats = Stats{}
}
