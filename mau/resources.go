package mau

import "log"

// ResetResources clears the per-event resource state: the powered TCAM
// bitmap, the distributed addresses, the action bus, the data overflow
// flags and every lookup result.
func (e *Engine) ResetResources() {
	e.resourceMu.Lock()
	e.powered.ClearAll()
	e.addrs.Reset()
	e.bus.Reset()
	for _, res := range e.results {
		res.Invalidate()
	}
	e.resourceMu.Unlock()

	e.mu.Lock()
	e.dataOflo = [NumLogicalRows]uint16{}
	e.mu.Unlock()
}

// LockResources holds off every event until UnlockResources. Callers use it
// to reconfigure the topology while other goroutines drive the engine.
func (e *Engine) LockResources() {
	e.resourceMu.Lock()
}

// UnlockResources releases LockResources.
func (e *Engine) UnlockResources() {
	e.resourceMu.Unlock()
}

// FlushQueues drains the queues of every row that buffers work.
func (e *Engine) FlushQueues() {
	e.resourceMu.Lock()
	defer e.resourceMu.Unlock()

	for _, row := range e.rows {
		if f, ok := row.(QueueFlusher); ok {
			f.FlushQueues()
		}
	}
}

// SetDataOflo flags a data overflow on a column of a row. Rows call it from
// their steps.
func (e *Engine) SetDataOflo(row, col int) error {
	if row < 0 || row >= NumLogicalRows {
		return fatalf("oflo row %d out of range", row)
	}
	if col < 0 || col >= NumSramCols {
		return fatalf("oflo col %d out of range", col)
	}

	e.mu.Lock()
	e.dataOflo[row] |= 1 << col
	e.mu.Unlock()

	return nil
}

// DataOfloRows returns the overflow bitmap of each row.
func (e *Engine) DataOfloRows() [NumLogicalRows]uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.dataOflo
}

// CheckDataOfloRows consumes the overflow flags of the last event. It
// reports whether any row overflowed, and fails once overflow has been
// seen on more consecutive events than the configured threshold.
func (e *Engine) CheckDataOfloRows() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	oflo := false
	for r, bits := range e.dataOflo {
		if bits != 0 {
			oflo = true
			log.Printf("stage %d: data overflow on row %d cols %#x",
				e.stage, r, bits)
		}
	}
	e.dataOflo = [NumLogicalRows]uint16{}

	if !oflo {
		e.ofloCount = 0
		return false, nil
	}

	e.ofloCount++
	if e.ofloCount > e.cfg.DataOfloThreshold {
		return true, fatalf("data overflow on %d consecutive events",
			e.ofloCount)
	}

	return true, nil
}
