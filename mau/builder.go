package mau

import (
	"fmt"

	"github.com/sarchlab/mausim/config"
	"github.com/sarchlab/mausim/tcam"
)

// Build creates the engine of a stage and programs the tables configured
// for it. Without an action processor option, immediate data is written
// by an ImmDataWriter.
func Build(stage int, cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	e, err := New(stage, cfg, opts...)
	if err != nil {
		return nil, err
	}

	if stage >= len(cfg.Stages) {
		return e, nil
	}

	writer := NewImmDataWriter()
	used := make(map[int]int)

	for _, tc := range cfg.Stages[stage].Tables {
		if other, ok := used[tc.Tcam]; ok {
			return nil, fmt.Errorf("stage %d: tables %d and %d share tcam %d",
				stage, other, tc.LogicalTable, tc.Tcam)
		}
		used[tc.Tcam] = tc.LogicalTable

		array := tcam.New(cfg.TcamConfig())
		if err := e.SetTcam(tc.Tcam, array); err != nil {
			return nil, err
		}

		if err := e.SetTable(tc.LogicalTable, NewTernaryTable(tc, array)); err != nil {
			return nil, err
		}

		e.SetTcamDynamicFeatures(tc.Egress, true)
		e.SetTindDynamicFeatures(tc.Egress, true)

		if tc.ImmDataEnable {
			writer.SetDestination(tc.LogicalTable, tc.ImmDataWord)
		}
	}

	if e.action == nil {
		e.action = writer
	}

	return e, nil
}
