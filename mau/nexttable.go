package mau

import "github.com/sarchlab/mausim/config"

// FindFirstTable returns the table a gress starts at in this stage. Stages
// that ignore the pipe start table start at their first table of the gress.
func (e *Engine) FindFirstTable(egress bool) int {
	g := gressIndex(egress)

	if !e.cfg.Features(e.stage).IgnoresStartTable[g] {
		return e.cfg.StartTable[g]
	}

	lt := e.cfg.FirstTable(e.stage, egress)
	if lt < 0 {
		return config.NextTableEnd
	}

	return config.TableID(e.stage, lt)
}

// FindNextTable resolves where a gress goes after table curr chose next.
// A next table that would skip a stage that must be match dependent is
// redirected to the first table of that stage. Next tables that go
// backwards are fatal.
func (e *Engine) FindNextTable(egress bool, curr, next int) (int, error) {
	if next == config.NextTableEnd {
		return next, nil
	}

	if next < 0 || config.TableStage(next) >= config.MaxStages {
		return 0, fatalf("next table %#x is not a table id", next)
	}

	stage := config.TableStage(next)
	if stage < e.stage {
		return 0, fatalf("next table %#x precedes stage %d", next, e.stage)
	}

	if stage == e.stage && config.TableStage(curr) == e.stage &&
		config.TableLogical(next) <= config.TableLogical(curr) {
		return 0, fatalf("next table %#x does not follow table %#x", next, curr)
	}

	for s := e.stage + 1; s < stage; s++ {
		if !e.cfg.Features(s).MustBeMatchDependent {
			continue
		}

		if lt := e.cfg.FirstTable(s, egress); lt >= 0 {
			return config.TableID(s, lt), nil
		}
	}

	return next, nil
}
