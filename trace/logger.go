// Package trace observes match-action engines through their hooks.
package trace

import (
	"log"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mausim/mau"
)

// StepLogger is a hook that logs every step an engine runs.
type StepLogger struct {
	sim.LogHookBase
}

// NewStepLogger returns a StepLogger that writes into the logger.
func NewStepLogger(logger *log.Logger) *StepLogger {
	h := new(StepLogger)
	h.Logger = logger

	return h
}

// Func logs the start of a step.
func (h *StepLogger) Func(ctx sim.HookCtx) {
	if ctx.Pos != mau.HookPosStepStart {
		return
	}

	step, ok := ctx.Item.(string)
	if !ok {
		return
	}

	detail, _ := ctx.Detail.(mau.StepHookDetail)
	h.Logger.Printf("stage %d, %s, %s\n", detail.Stage, detail.List, step)
}
