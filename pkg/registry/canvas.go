package registry

import (
	"fmt"
	"math"

	"github.com/fountain-coach/midi2-go/pkg/jsonvalue"
	"github.com/fountain-coach/midi2-go/pkg/vendor"
)

// Zoom limits.
const (
	MinZoom = 0.1
	MaxZoom = 16.0
)

// Canvas property names.
const (
	PropZoom         = "zoom"
	PropTranslationX = "translation.x"
	PropTranslationY = "translation.y"
	PropRecording    = "recording"
)

// CanvasOption configures a Canvas.
type CanvasOption func(*Canvas)

// WithInitialZoom sets the zoom a Canvas starts with and resets to.
func WithInitialZoom(zoom float64) CanvasOption {
	return func(c *Canvas) {
		c.initial.zoom = clampZoom(zoom)
	}
}

// WithInitialTranslation sets the translation a Canvas starts with and
// resets to.
func WithInitialTranslation(x, y float64) CanvasOption {
	return func(c *Canvas) {
		c.initial.tx, c.initial.ty = x, y
	}
}

type transform struct {
	zoom   float64
	tx, ty float64
}

// Canvas is a 2D canvas transform: view = (doc + translation) * zoom.
// It is not safe for concurrent use on its own; the Registry serializes
// access.
type Canvas struct {
	initial   transform
	cur       transform
	recording bool
}

// NewCanvas returns a canvas at zoom 1 and no translation unless
// overridden by opts.
func NewCanvas(opts ...CanvasOption) *Canvas {
	c := &Canvas{initial: transform{zoom: 1}}
	for _, opt := range opts {
		opt(c)
	}
	c.cur = c.initial
	return c
}

// Zoom returns the current zoom.
func (c *Canvas) Zoom() float64 { return c.cur.zoom }

// Translation returns the current translation.
func (c *Canvas) Translation() (x, y float64) { return c.cur.tx, c.cur.ty }

// Recording reports whether rec.start was seen more recently than rec.stop.
func (c *Canvas) Recording() bool { return c.recording }

// ViewToDoc maps a view point to document space.
func (c *Canvas) ViewToDoc(x, y float64) (float64, float64) {
	return x/c.cur.zoom - c.cur.tx, y/c.cur.zoom - c.cur.ty
}

// DocToView maps a document point to view space.
func (c *Canvas) DocToView(x, y float64) (float64, float64) {
	return (x + c.cur.tx) * c.cur.zoom, (y + c.cur.ty) * c.cur.zoom
}

// PanBy moves the canvas by a view-space delta.
func (c *Canvas) PanBy(dx, dy float64) {
	c.cur.tx += dx / c.cur.zoom
	c.cur.ty += dy / c.cur.zoom
}

// ZoomAround scales by (1 + magnification) while keeping the document point
// under the view anchor in place.
func (c *Canvas) ZoomAround(ax, ay, magnification float64) {
	docX, docY := c.ViewToDoc(ax, ay)
	c.cur.zoom = clampZoom(c.cur.zoom * (1 + magnification))
	c.cur.tx = ax/c.cur.zoom - docX
	c.cur.ty = ay/c.cur.zoom - docY
}

// Reset restores the initial transform.
func (c *Canvas) Reset() {
	c.cur = c.initial
}

// HandleVendor applies canvas.reset, rec.start, rec.stop, ui.panBy, and
// ui.zoomAround. Missing numeric fields count as zero. Other topics return
// a nil snapshot.
func (c *Canvas) HandleVendor(topic string, data jsonvalue.Value) (*Snapshot, error) {
	switch vendor.ParseTopic(topic) {
	case vendor.TopicReset:
		c.Reset()
	case vendor.TopicRecordStart:
		c.recording = true
	case vendor.TopicRecordStop:
		c.recording = false
	case vendor.TopicPanBy:
		dx, _ := data.Float(vendor.FieldDX)
		dy, _ := data.Float(vendor.FieldDY)
		c.PanBy(dx, dy)
	case vendor.TopicZoomAround:
		ax, _ := data.Float(vendor.FieldAnchorX)
		ay, _ := data.Float(vendor.FieldAnchorY)
		mag, _ := data.Float(vendor.FieldMagnification)
		c.ZoomAround(ax, ay, mag)
	default:
		return nil, nil
	}
	snap := c.Snapshot()
	return &snap, nil
}

// HandlePropertySet applies zoom, translation.x, and translation.y. Zoom is
// clamped. Unknown names are ignored. Non-finite values are rejected and
// nothing is applied.
func (c *Canvas) HandlePropertySet(props map[string]float64) (*Snapshot, error) {
	for name, v := range props {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("canvas property %q: non-finite value %v", name, v)
		}
	}
	if z, ok := props[PropZoom]; ok {
		c.cur.zoom = clampZoom(z)
	}
	if x, ok := props[PropTranslationX]; ok {
		c.cur.tx = x
	}
	if y, ok := props[PropTranslationY]; ok {
		c.cur.ty = y
	}
	snap := c.Snapshot()
	return &snap, nil
}

// Snapshot returns zoom, translation.x, translation.y, and recording.
func (c *Canvas) Snapshot() Snapshot {
	var s Snapshot
	s.Set(PropZoom, c.cur.zoom)
	s.Set(PropTranslationX, c.cur.tx)
	s.Set(PropTranslationY, c.cur.ty)
	rec := 0.0
	if c.recording {
		rec = 1
	}
	s.Set(PropRecording, rec)
	return s
}

func clampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return MinZoom
	}
	return math.Min(MaxZoom, math.Max(MinZoom, z))
}

var _ Handler = (*Canvas)(nil)
