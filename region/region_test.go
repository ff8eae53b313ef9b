package region

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnion(t *testing.T) {
	a := XYWH(0, 0, 10, 10)
	b := XYWH(5, 5, 10, 10)

	u := a.Union(b)
	assert.Equal(t, []image.Rectangle{
		image.Rect(0, 0, 10, 5),
		image.Rect(0, 5, 15, 10),
		image.Rect(5, 10, 15, 15),
	}, u.Rects())
	assert.Equal(t, image.Rect(0, 0, 15, 15), u.Bounds())

	assert.True(t, u.Equal(b.Union(a)), "commutative")
	assert.True(t, u.Equal(u.Union(a)), "idempotent")
	assert.True(t, u.Equal(u.Union(u)), "idempotent")
}

func TestCanonical(t *testing.T) {
	halves := New(image.Rect(0, 0, 5, 10), image.Rect(5, 0, 10, 10))
	whole := XYWH(0, 0, 10, 10)
	assert.True(t, halves.Equal(whole))

	stacked := New(image.Rect(0, 0, 10, 5), image.Rect(0, 5, 10, 10))
	assert.True(t, stacked.Equal(whole))
}

func TestSubtract(t *testing.T) {
	r := XYWH(0, 0, 10, 10).Sub(image.Rect(3, 3, 7, 7))
	assert.Len(t, r.Rects(), 4)
	assert.False(t, r.Contains(image.Pt(5, 5)))
	assert.True(t, r.Contains(image.Pt(1, 5)))
	assert.True(t, r.Contains(image.Pt(9, 9)))
	assert.False(t, r.Contains(image.Pt(10, 10)))

	assert.True(t, XYWH(0, 0, 4, 4).Subtract(XYWH(0, 0, 4, 4)).Empty())
	assert.True(t, XYWH(0, 0, 4, 4).Subtract(Region{}).Equal(XYWH(0, 0, 4, 4)))
}

func TestIntersect(t *testing.T) {
	r := XYWH(0, 0, 10, 10).Intersect(XYWH(5, 5, 10, 10))
	assert.Equal(t, []image.Rectangle{image.Rect(5, 5, 10, 10)}, r.Rects())

	assert.True(t, XYWH(0, 0, 1, 1).Intersect(XYWH(2, 2, 1, 1)).Empty())
	assert.True(t, XYWH(0, 0, 10, 10).Clip(image.Rect(0, 0, 3, 3)).Equal(XYWH(0, 0, 3, 3)))
}

func TestEmpty(t *testing.T) {
	assert.True(t, XYWH(0, 0, 0, 10).Empty())
	assert.True(t, XYWH(0, 0, -5, 10).Empty())

	var r Region
	assert.True(t, r.Empty())
	assert.True(t, r.Union(XYWH(1, 1, 1, 1)).Equal(XYWH(1, 1, 1, 1)))
	assert.Equal(t, "{}", r.String())
}

func TestTranslateMap(t *testing.T) {
	r := New(image.Rect(0, 0, 2, 2), image.Rect(4, 0, 6, 2)).Translate(image.Pt(10, 20))
	assert.Equal(t, []image.Rectangle{
		image.Rect(10, 20, 12, 22),
		image.Rect(14, 20, 16, 22),
	}, r.Rects())

	doubled := r.Map(func(rect image.Rectangle) image.Rectangle {
		return image.Rectangle{Min: rect.Min.Mul(2), Max: rect.Max.Mul(2)}
	})
	assert.Equal(t, image.Rect(20, 40, 32, 44), doubled.Bounds())
}

func TestInfinite(t *testing.T) {
	assert.True(t, Infinite().Contains(image.Pt(-100000, 100000)))
	assert.True(t, Infinite().Overlaps(image.Rect(0, 0, 1, 1)))
}
