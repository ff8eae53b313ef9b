package scene

import (
	"image"

	"deedles.dev/oxyde/region"
)

// Output is a display that surfaces can be shown on.
type Output struct {
	Name        string
	Description string
	Make        string
	Model       string

	// Position is the location of the output's top-left corner in the
	// global compositor space.
	Position image.Point

	// Mode is the size of the output in physical pixels.
	Mode image.Point

	// Refresh is the refresh rate in mHz.
	Refresh int

	// PhysicalSize is the size of the display in millimeters.
	PhysicalSize image.Point

	Scale     int
	Transform Transform

	damage   region.Region
	inflight *FramePlan
	onScreen *FramePlan
}

// Bounds returns the area of the global compositor space covered by
// the output.
func (o *Output) Bounds() image.Rectangle {
	scale := max(o.Scale, 1)
	size := o.Transform.Size(o.Mode).Div(scale)
	return image.Rectangle{Min: o.Position, Max: o.Position.Add(size)}
}

// Damage returns the damage that has accumulated on o since the last
// frame plan was taken, in output-local coordinates.
func (o *Output) Damage() region.Region {
	return o.damage
}

func (o *Output) addDamage(global region.Region) {
	b := o.Bounds()
	d := global.Clip(b)
	if d.Empty() {
		return
	}
	o.damage = o.damage.Union(d.Translate(b.Min.Mul(-1)))
}
