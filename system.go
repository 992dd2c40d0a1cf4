package ecs

import "github.com/zeusync/ecs/internal/core/system"

// SystemHandle identifies a registered system and controls it.
type SystemHandle struct {
	w    *World
	inst *system.Instance
}

// MakeSystem registers fn as a system. The parameter list selects the
// components: a leading ID receives the entity id, T reads, *T writes,
// Not[T] filters out entities carrying T, and Parent switches the system
// into hierarchy mode. Systems run in declaration order within their
// pipeline.
func MakeSystem(w *World, fn any, opts ...Option) (*SystemHandle, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	inst, err := system.New(len(w.systems), fn, w.reg, opts...)
	if err != nil {
		return nil, err
	}
	w.systems = append(w.systems, inst)
	w.schedDirty = true
	return &SystemHandle{w: w, inst: inst}, nil
}

// ID returns the unique id of the system.
func (h *SystemHandle) ID() string {
	return h.inst.ID()
}

// Enable includes the system in subsequent runs.
func (h *SystemHandle) Enable() {
	h.inst.SetEnabled(true)
}

// Disable excludes the system from subsequent runs; its argument cache
// is kept.
func (h *SystemHandle) Disable() {
	h.inst.SetEnabled(false)
}

// Enabled reports whether the system will run.
func (h *SystemHandle) Enabled() bool {
	return h.inst.Enabled()
}

// Run executes just this system once, outside the schedule.
func (h *SystemHandle) Run() error {
	return h.inst.Run(h.w.workers)
}
