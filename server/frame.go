package server

import (
	"deedles.dev/oxyde/scene"
	"github.com/sirupsen/logrus"
)

// Backend presents frames on outputs.
type Backend interface {
	// Outputs returns the outputs that exist when the server starts.
	Outputs() []*scene.Output

	// Attach gives the back-end the sink through which it reports
	// frame timing and failures. It is called once by New.
	Attach(sink FrameSink)

	// ScheduleFrame asks for FrameReady to be called for o when the
	// back-end is ready for its next frame. It must not block.
	ScheduleFrame(o *scene.Output)

	// Present shows a frame plan. It is called on the reactor, and the
	// plan's buffers may only be read until it returns.
	Present(plan *scene.FramePlan) error
}

// FrameSink receives notifications from a Backend. Its methods are
// safe to call from any goroutine.
type FrameSink interface {
	FrameReady(o *scene.Output)
	BackendLost(err error)
}

// FrameReady implements FrameSink.
func (s *Server) FrameReady(o *scene.Output) {
	s.post(func() error {
		return s.frameReady(o)
	})
}

// BackendLost implements FrameSink. It shuts the server down.
func (s *Server) BackendLost(err error) {
	s.post(func() error {
		return BackendError{Err: err}
	})
}

// Dirty implements scene.Listener.
func (s *Server) Dirty(o *scene.Output) {
	s.arm(o)
}

func (s *Server) arm(o *scene.Output) {
	if s.stopped || s.armed.Has(o) {
		return
	}
	if _, ok := s.outputs[o]; !ok {
		return
	}

	s.armed.Add(o)
	s.backend.ScheduleFrame(o)
}

func (s *Server) frameReady(o *scene.Output) error {
	s.armed.Delete(o)
	if _, ok := s.outputs[o]; !ok {
		return nil
	}
	if !s.scene.NeedsFrame(o) {
		return nil
	}

	plan := s.scene.NextFrame(o)
	err := s.backend.Present(plan)
	if err != nil {
		s.scene.FrameDropped(plan)
		logrus.WithError(err).WithField("output", o.Name).Error("present frame")
		return BackendError{Err: err}
	}
	s.scene.FramePresented(plan, s.now())

	if s.scene.NeedsFrame(o) {
		s.arm(o)
	}
	return nil
}
