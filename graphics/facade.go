// Package graphics defines the GraphicsFacade contract this codebase
// treats as an external collaborator: its internals (actual command
// recording, actual GPU fence values) are out of scope, but the
// begin_frame/end_frame/present_surfaces lifecycle it exposes to the
// orchestrator is specified here, along with a simulated implementation
// used by tests and the reference CLI harness.
package graphics

import (
	"github.com/lixenwraith/frameorc/constant"
	"github.com/lixenwraith/frameorc/descriptor"
	"github.com/lixenwraith/frameorc/reclaim"
	"github.com/lixenwraith/frameorc/registry"
)

// Facade is the contract the core depends on. begin_frame polls
// GPU/simulated completion and drives reclamation; end_frame marks
// commands submitted; present_surfaces performs the actual present call
// on an external collaborator whose internals are not specified here.
type Facade interface {
	BeginFrame(frameIndex uint64)
	EndFrame()
	PresentSurfaces(surfaces []string)
	ResourceRegistry() *registry.Registry
	DescriptorAllocator() *descriptor.Table
	DeferredReclaimer() *reclaim.Reclaimer
	CompletedFrame() uint64
}

// Simulated is a Facade that simulates GPU completion as
// max(0, current_frame - safety_delay), per the design's completion
// model. It owns the registry, descriptor table, and reclaimer the core
// requires a GraphicsFacade to own.
type Simulated struct {
	safetyDelay uint64

	currentFrame   uint64
	completedFrame uint64

	reg  *registry.Registry
	desc *descriptor.Table
	rec  *reclaim.Reclaimer

	presented [][]string

	// OnRetire, if set, receives every entry retired by the most recent
	// BeginFrame's reclamation pass. The caller uses it to destroy the
	// underlying resources.
	OnRetire func([]reclaim.Entry)
}

// NewSimulated constructs a Simulated facade with the given safety delay
// (constant.SafetyDelay if zero).
func NewSimulated(safetyDelay uint64) *Simulated {
	if safetyDelay == 0 {
		safetyDelay = constant.SafetyDelay
	}
	return &Simulated{
		safetyDelay: safetyDelay,
		reg:         registry.New(),
		desc:        descriptor.New(),
		rec:         reclaim.New(),
	}
}

// BeginFrame updates current_frame, derives completed_frame via the
// simulated completion model, and drives reclamation for the newly
// completed frame.
func (s *Simulated) BeginFrame(frameIndex uint64) {
	s.currentFrame = frameIndex
	if frameIndex < s.safetyDelay {
		s.completedFrame = 0
		return
	}
	s.completedFrame = frameIndex - s.safetyDelay
	retired := s.rec.ProcessCompletedFrame(s.completedFrame)
	if len(retired) > 0 && s.OnRetire != nil {
		s.OnRetire(retired)
	}
}

// EndFrame is a no-op marker that commands were submitted; real GPU
// completion is observed on a later BeginFrame.
func (s *Simulated) EndFrame() {}

// PresentSurfaces records the set of surfaces presented this frame, in
// the order given (deterministic registration order, enforced by the
// caller).
func (s *Simulated) PresentSurfaces(surfaces []string) {
	cp := make([]string, len(surfaces))
	copy(cp, surfaces)
	s.presented = append(s.presented, cp)
}

// PresentedHistory returns every PresentSurfaces call's argument, in
// order — used by tests to assert presentation ordering.
func (s *Simulated) PresentedHistory() [][]string { return s.presented }

func (s *Simulated) ResourceRegistry() *registry.Registry    { return s.reg }
func (s *Simulated) DescriptorAllocator() *descriptor.Table  { return s.desc }
func (s *Simulated) DeferredReclaimer() *reclaim.Reclaimer   { return s.rec }
func (s *Simulated) CompletedFrame() uint64                  { return s.completedFrame }
