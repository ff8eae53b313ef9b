package headless

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"deedles.dev/oxyde/region"
	"deedles.dev/oxyde/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/colornames"
)

type sink struct {
	ready chan *scene.Output
	lost  chan error
}

func newSink() *sink {
	return &sink{
		ready: make(chan *scene.Output, 16),
		lost:  make(chan error, 1),
	}
}

func (s *sink) FrameReady(o *scene.Output) { s.ready <- o }
func (s *sink) BackendLost(err error)      { s.lost <- err }

type uniform struct {
	c    color.Color
	size image.Point
}

func (u uniform) Image() (image.Image, error) {
	img := image.NewRGBA(image.Rectangle{Max: u.size})
	for y := range u.size.Y {
		for x := range u.size.X {
			img.Set(x, y, u.c)
		}
	}
	return img, nil
}

func testOutput() *scene.Output {
	return &scene.Output{
		Name:    "HEADLESS-1",
		Mode:    image.Pt(64, 48),
		Refresh: 1000000,
		Scale:   1,
	}
}

func serve(t *testing.T, b *Backend) <-chan error {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	done := make(chan error, 1)
	go func() { done <- b.Serve(ctx) }()
	return done
}

func TestNewValidation(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	_, err = New(Options{Outputs: []*scene.Output{{Name: "A", Mode: image.Pt(0, 10)}}})
	assert.Error(t, err)

	_, err = New(Options{Outputs: []*scene.Output{
		{Name: "A", Mode: image.Pt(10, 10)},
		{Name: "A", Mode: image.Pt(10, 10)},
	}})
	assert.Error(t, err)

	o := &scene.Output{Name: "A", Mode: image.Pt(10, 10)}
	_, err = New(Options{Outputs: []*scene.Output{o}})
	require.NoError(t, err)
	assert.Equal(t, DefaultRefresh, o.Refresh)
}

func TestFrameClock(t *testing.T) {
	o := testOutput()
	o.Refresh = 10000
	b, err := New(Options{Outputs: []*scene.Output{o}})
	require.NoError(t, err)

	// Scheduling before a sink is attached must not lose the frame.
	b.ScheduleFrame(o)
	serve(t, b)

	s := newSink()
	b.Attach(s)

	select {
	case got := <-s.ready:
		assert.Equal(t, o, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no frame signalled")
	}

	b.ScheduleFrame(o)
	b.ScheduleFrame(o)
	select {
	case <-s.ready:
	case <-time.After(5 * time.Second):
		t.Fatal("no second frame signalled")
	}
	select {
	case <-s.ready:
		t.Fatal("duplicate schedule signalled twice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFail(t *testing.T) {
	o := testOutput()
	b, err := New(Options{Outputs: []*scene.Output{o}})
	require.NoError(t, err)

	s := newSink()
	b.Attach(s)
	done := serve(t, b)

	boom := errors.New("boom")
	b.Fail(boom)

	select {
	case err := <-s.lost:
		assert.ErrorIs(t, err, boom)
	case <-time.After(5 * time.Second):
		t.Fatal("back-end loss not reported")
	}
	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
	case <-time.After(5 * time.Second):
		t.Fatal("frame clock did not stop")
	}

	err = b.Present(&scene.FramePlan{Output: o})
	assert.ErrorIs(t, err, ErrFailed)
}

func TestComposite(t *testing.T) {
	o := testOutput()
	b, err := New(Options{
		Outputs:    []*scene.Output{o},
		Background: colornames.Navy,
		Composite:  true,
	})
	require.NoError(t, err)

	buf := scene.NewBuffer(image.Pt(10, 10), 0, uniform{c: colornames.Red, size: image.Pt(10, 10)})
	plan := scene.FramePlan{
		Output: o,
		Elements: []scene.Element{{
			Buffer: buf,
			Rect:   image.Rect(5, 5, 15, 15),
			Scale:  1,
		}},
		Damage: region.Rect(o.Bounds()),
	}
	require.NoError(t, b.Present(&plan))
	assert.Equal(t, 1, b.Presented(o.Name))

	frame := b.Frame(o.Name)
	require.NotNil(t, frame)
	assert.Equal(t, image.Rect(0, 0, 64, 48), frame.Bounds())

	r, g, bl, _ := frame.At(10, 10).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0, 0}, [3]uint32{r, g, bl})
	r, g, bl, _ = frame.At(40, 40).RGBA()
	nr, ng, nb, _ := colornames.Navy.RGBA()
	assert.Equal(t, [3]uint32{nr, ng, nb}, [3]uint32{r, g, bl})
}

func TestAffine(t *testing.T) {
	size := image.Pt(4, 2)
	dst := image.Rect(10, 10, 12, 14)

	m := affine(scene.Transform90, size, dst)
	apply := func(x, y float64) (float64, float64) {
		return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
	}

	// The buffer's corners must land on the corners of dst.
	for _, c := range [][2]float64{{0, 0}, {4, 0}, {0, 2}, {4, 2}} {
		x, y := apply(c[0], c[1])
		assert.Contains(t, []float64{10, 12}, x)
		assert.Contains(t, []float64{10, 14}, y)
	}

	m = affine(scene.TransformNormal, size, image.Rect(0, 0, 8, 4))
	x, y := m[0]*4+m[1]*2+m[2], m[3]*4+m[4]*2+m[5]
	assert.Equal(t, [2]float64{8, 4}, [2]float64{x, y})
}
