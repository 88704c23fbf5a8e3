package mau

// Dynamic feature bits of a gress.
const (
	FeatureHash uint32 = 1 << iota
	FeatureTcam
	FeatureTind
	// FeatureAlu0 is the bit of ALU 0; ALU n uses FeatureAlu0 << n.
	FeatureAlu0
)

// DynamicFeatureTracker coalesces the dynamic features of one gress into
// a word and remembers the last word reported.
type DynamicFeatureTracker struct {
	hash     bool
	tcam     bool
	tind     bool
	alus     uint32
	reported uint32
}

// Features returns the current feature word.
func (t *DynamicFeatureTracker) Features() uint32 {
	var f uint32
	if t.hash {
		f |= FeatureHash
	}
	if t.tcam {
		f |= FeatureTcam
	}
	if t.tind {
		f |= FeatureTind
	}

	return f | t.alus*FeatureAlu0
}

// Reported returns the last feature word that was reported.
func (t *DynamicFeatureTracker) Reported() uint32 {
	return t.reported
}

// changed reports whether the feature word differs from the last one
// reported, and marks it reported.
func (t *DynamicFeatureTracker) changed() (uint32, bool) {
	f := t.Features()
	if f == t.reported {
		return f, false
	}

	t.reported = f

	return f, true
}

func (e *Engine) updateFeatures(egress bool, set func(t *DynamicFeatureTracker)) {
	e.mu.Lock()
	t := &e.features[gressIndex(egress)]
	set(t)
	f, changed := t.changed()
	e.mu.Unlock()

	if changed && e.deps != nil {
		e.deps.DynamicFeaturesChanged(e.stage, egress, f)
	}
}

// SetHashDynamicFeatures records whether a gress uses hash distribution.
func (e *Engine) SetHashDynamicFeatures(egress, on bool) {
	e.updateFeatures(egress, func(t *DynamicFeatureTracker) { t.hash = on })
}

// SetTcamDynamicFeatures records whether a gress searches TCAMs.
func (e *Engine) SetTcamDynamicFeatures(egress, on bool) {
	e.updateFeatures(egress, func(t *DynamicFeatureTracker) { t.tcam = on })
}

// SetTindDynamicFeatures records whether a gress reads ternary indirection.
func (e *Engine) SetTindDynamicFeatures(egress, on bool) {
	e.updateFeatures(egress, func(t *DynamicFeatureTracker) { t.tind = on })
}

// SetAluDynamicFeatures records whether a gress uses an ALU.
func (e *Engine) SetAluDynamicFeatures(egress bool, alu int, on bool) error {
	if err := checkAlu(alu); err != nil {
		return err
	}

	e.updateFeatures(egress, func(t *DynamicFeatureTracker) {
		if on {
			t.alus |= 1 << alu
		} else {
			t.alus &^= 1 << alu
		}
	})

	return nil
}

// DynamicFeatures returns the current feature word of a gress.
func (e *Engine) DynamicFeatures(egress bool) uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.features[gressIndex(egress)].Features()
}
