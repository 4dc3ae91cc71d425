package x11

import (
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/RedBeesRGD/consync/internal/reconciler"
	"github.com/RedBeesRGD/consync/internal/tree"
)

func shapeKind(k reconciler.ShapeKind) shape.Kind {
	if k == reconciler.ShapeInput {
		return shape.SkInput
	}
	return shape.SkBounding
}

// ShapeSupported reports whether the server carries the SHAPE extension.
func (c *Connection) ShapeSupported() bool {
	return c.shapeOK
}

// CombineShape clones the child's shape region onto the frame at the given
// offset, so the frame's visible region follows the shaped client.
func (c *Connection) CombineShape(frame, child xproto.Window, kind reconciler.ShapeKind, xOff, yOff int) {
	if !c.shapeOK {
		return
	}
	shape.Combine(c.XUtil.Conn(), shape.SoSet, shapeKind(kind), shapeKind(kind),
		frame, int16(xOff), int16(yOff), child)
}

// UnionShapeRects adds rectangles to the frame's shape region, used to keep
// decoration borders visible around a shaped client.
func (c *Connection) UnionShapeRects(frame xproto.Window, kind reconciler.ShapeKind, rects []tree.Rect) {
	if !c.shapeOK || len(rects) == 0 {
		return
	}
	xrects := make([]xproto.Rectangle, 0, len(rects))
	for _, r := range rects {
		if r.Width <= 0 || r.Height <= 0 {
			continue
		}
		xrects = append(xrects, xproto.Rectangle{
			X: int16(r.X), Y: int16(r.Y),
			Width: uint16(r.Width), Height: uint16(r.Height),
		})
	}
	if len(xrects) == 0 {
		return
	}
	shape.Rectangles(c.XUtil.Conn(), shape.SoUnion, shapeKind(kind),
		xproto.ClipOrderingUnsorted, frame, 0, 0, xrects)
}

// ResetShape restores the frame to a plain rectangle.
func (c *Connection) ResetShape(frame xproto.Window, kind reconciler.ShapeKind) {
	if !c.shapeOK {
		return
	}
	shape.Mask(c.XUtil.Conn(), shape.SoSet, shapeKind(kind),
		frame, 0, 0, xproto.PixmapNone)
}
