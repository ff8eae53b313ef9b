// Package headless implements a back-end without any real display. It
// paces frames with a timer per output and can composite frame plans
// in memory, which makes it useful for tests and for running shells
// without a screen.
package headless

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"deedles.dev/oxyde/internal/cq"
	"deedles.dev/oxyde/scene"
	"deedles.dev/oxyde/server"
	"github.com/sirupsen/logrus"
	"github.com/thejerf/suture/v4"
	"golang.org/x/image/colornames"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// DefaultRefresh is the refresh rate, in mHz, of outputs that don't
// specify one.
const DefaultRefresh = 60000

// ErrFailed is returned by Present after Fail has been called.
var ErrFailed = errors.New("back-end failed")

type Options struct {
	Outputs []*scene.Output

	// Background fills the parts of composited frames that no surface
	// covers. It defaults to black.
	Background color.Color

	// Composite enables drawing of presented frames. Without it,
	// Present only counts frames.
	Composite bool
}

// Backend is a headless back-end. Its frame clock is a suture.Service
// that must be running for frames to be signalled.
type Backend struct {
	outputs   []*scene.Output
	bg        *image.Uniform
	composite bool
	schedule  *cq.Queue[*scene.Output]
	fail      chan error

	m         sync.Mutex
	sink      server.FrameSink
	failed    error
	frames    map[*scene.Output]*image.RGBA
	presented map[*scene.Output]int
}

// New creates a back-end for the given outputs. It fails if the
// outputs couldn't be driven by a real display.
func New(opts Options) (*Backend, error) {
	if len(opts.Outputs) == 0 {
		return nil, errors.New("no outputs")
	}

	names := make(map[string]struct{}, len(opts.Outputs))
	for _, o := range opts.Outputs {
		if o.Name == "" {
			return nil, errors.New("output has no name")
		}
		if _, ok := names[o.Name]; ok {
			return nil, fmt.Errorf("duplicate output %q", o.Name)
		}
		names[o.Name] = struct{}{}

		if (o.Mode.X <= 0) || (o.Mode.Y <= 0) {
			return nil, fmt.Errorf("output %q: invalid mode %v", o.Name, o.Mode)
		}
		if !o.Transform.Valid() {
			return nil, fmt.Errorf("output %q: invalid transform %v", o.Name, o.Transform)
		}
		if o.Refresh <= 0 {
			o.Refresh = DefaultRefresh
		}
	}

	bg := opts.Background
	if bg == nil {
		bg = colornames.Black
	}

	return &Backend{
		outputs:   opts.Outputs,
		bg:        image.NewUniform(bg),
		composite: opts.Composite,
		schedule:  cq.New[*scene.Output](),
		fail:      make(chan error, 1),
		frames:    make(map[*scene.Output]*image.RGBA),
		presented: make(map[*scene.Output]int),
	}, nil
}

func (b *Backend) Outputs() []*scene.Output {
	return b.outputs
}

func (b *Backend) Attach(sink server.FrameSink) {
	b.m.Lock()
	defer b.m.Unlock()

	b.sink = sink
}

func (b *Backend) getSink() server.FrameSink {
	b.m.Lock()
	defer b.m.Unlock()

	return b.sink
}

func (b *Backend) ScheduleFrame(o *scene.Output) {
	b.schedule.Post(o)
}

// Fail simulates the loss of the display. The sink is told about it
// by the frame clock, which then stops.
func (b *Backend) Fail(err error) {
	b.m.Lock()
	if b.failed == nil {
		b.failed = err
	}
	b.m.Unlock()

	select {
	case b.fail <- err:
	default:
	}
}

// Serve runs the frame clock. Each output signals at most one frame per
// refresh interval.
func (b *Backend) Serve(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	pending := make(map[*scene.Output]time.Time)
	last := make(map[*scene.Output]time.Time)
	reset := func() {
		timer.Stop()
		var next time.Time
		for _, due := range pending {
			if next.IsZero() || due.Before(next) {
				next = due
			}
		}
		if !next.IsZero() {
			timer.Reset(max(time.Until(next), 0))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-b.fail:
			logrus.WithError(err).Error("headless back-end lost")
			if sink := b.getSink(); sink != nil {
				sink.BackendLost(err)
			}
			return fmt.Errorf("%w: %w", suture.ErrDoNotRestart, err)

		case <-b.schedule.Done():
			return suture.ErrDoNotRestart

		case batch := <-b.schedule.Get():
			now := time.Now()
			for _, o := range batch {
				if _, ok := pending[o]; ok {
					continue
				}
				due := now
				if t, ok := last[o]; ok {
					due = t.Add(interval(o))
				}
				pending[o] = due
			}
			reset()

		case now := <-timer.C:
			sink := b.getSink()
			for o, due := range pending {
				if due.After(now) || (sink == nil) {
					continue
				}
				delete(pending, o)
				last[o] = now
				sink.FrameReady(o)
			}
			if sink == nil {
				for o := range pending {
					pending[o] = now.Add(interval(o))
				}
			}
			reset()
		}
	}
}

// Stop makes Serve return. The back-end can't be restarted.
func (b *Backend) Stop() {
	b.schedule.Stop()
}

func (b *Backend) String() string {
	return "headless"
}

func interval(o *scene.Output) time.Duration {
	return time.Duration(int64(time.Second) * 1000 / int64(o.Refresh))
}

func (b *Backend) Present(plan *scene.FramePlan) error {
	b.m.Lock()
	defer b.m.Unlock()

	if b.failed != nil {
		return fmt.Errorf("%w: %w", ErrFailed, b.failed)
	}

	b.presented[plan.Output]++
	if b.composite {
		b.draw(plan)
	}
	return nil
}

// Presented returns the number of frames that have been presented on
// the named output.
func (b *Backend) Presented(name string) int {
	b.m.Lock()
	defer b.m.Unlock()

	for o, n := range b.presented {
		if o.Name == name {
			return n
		}
	}
	return 0
}

// Frame returns a copy of the latest composited frame of the named
// output, or nil if compositing is disabled or nothing has been
// presented.
func (b *Backend) Frame(name string) image.Image {
	b.m.Lock()
	defer b.m.Unlock()

	for o, frame := range b.frames {
		if o.Name == name {
			c := image.NewRGBA(frame.Rect)
			copy(c.Pix, frame.Pix)
			return c
		}
	}
	return nil
}

func (b *Backend) draw(plan *scene.FramePlan) {
	o := plan.Output
	scale := max(o.Scale, 1)
	size := o.Transform.Size(o.Mode)

	frame := b.frames[o]
	if (frame == nil) || (frame.Rect.Size() != size) {
		frame = image.NewRGBA(image.Rectangle{Max: size})
		draw.Draw(frame, frame.Rect, b.bg, image.Point{}, draw.Src)
		b.frames[o] = frame
	}

	for _, dr := range plan.Damage.Rects() {
		clip := image.Rectangle{Min: dr.Min.Mul(scale), Max: dr.Max.Mul(scale)}.Intersect(frame.Rect)
		if clip.Empty() {
			continue
		}
		dst := frame.SubImage(clip).(*image.RGBA)
		draw.Draw(dst, clip, b.bg, image.Point{}, draw.Src)

		for _, e := range plan.Elements {
			r := image.Rectangle{Min: e.Rect.Min.Mul(scale), Max: e.Rect.Max.Mul(scale)}
			if !r.Overlaps(clip) {
				continue
			}

			src, err := e.Buffer.Source.Image()
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"output":  o.Name,
					"surface": e.Surface.Handle(),
				}).WithError(err).Warn("read buffer")
				continue
			}
			draw.ApproxBiLinear.Transform(dst, affine(e.Transform, src.Bounds().Size(), r), src, src.Bounds(), draw.Over, nil)
		}
	}
}

// affine returns the matrix that maps buffer coordinates to frame
// coordinates for a buffer of the given size, shown with transform t
// in dst.
func affine(t scene.Transform, size image.Point, dst image.Rectangle) f64.Aff3 {
	W, H := float64(size.X), float64(size.Y)

	// Buffers are shown through the inverse of their transform.
	var m [6]float64
	switch t.Invert() {
	case scene.Transform90:
		m = [6]float64{0, -1, H, 1, 0, 0}
	case scene.Transform180:
		m = [6]float64{-1, 0, W, 0, -1, H}
	case scene.Transform270:
		m = [6]float64{0, 1, 0, -1, 0, W}
	case scene.TransformFlipped:
		m = [6]float64{-1, 0, W, 0, 1, 0}
	case scene.TransformFlipped90:
		m = [6]float64{0, 1, 0, 1, 0, 0}
	case scene.TransformFlipped180:
		m = [6]float64{1, 0, 0, 0, -1, H}
	case scene.TransformFlipped270:
		m = [6]float64{0, -1, H, -1, 0, W}
	default:
		m = [6]float64{1, 0, 0, 0, 1, 0}
	}

	ts := t.Size(size)
	sx := float64(dst.Dx()) / float64(max(ts.X, 1))
	sy := float64(dst.Dy()) / float64(max(ts.Y, 1))
	return f64.Aff3{
		m[0] * sx, m[1] * sx, m[2]*sx + float64(dst.Min.X),
		m[3] * sy, m[4] * sy, m[5]*sy + float64(dst.Min.Y),
	}
}
