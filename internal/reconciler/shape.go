package reconciler

import (
	"github.com/RedBeesRGD/consync/internal/tree"
)

// shapeFrame sets the frame's clip region to the union of the client
// window's own region (offset by the border width) and the border
// rectangles.
func (r *Reconciler) shapeFrame(t *tree.Tree, id tree.NodeID, kind ShapeKind) {
	n := t.Node(id)
	r.backend.CombineShape(n.Frame, n.Window.ID, kind,
		n.WindowRect.X+n.BorderWidth, n.WindowRect.Y+n.BorderWidth)
	if rects := r.borderRectangles(t, id); len(rects) > 0 {
		r.backend.UnionShapeRects(n.Frame, kind, rects)
	}
}

// unshapeFrame resets the frame to a plain rectangular clip.
func (r *Reconciler) unshapeFrame(t *tree.Tree, id tree.NodeID, kind ShapeKind) {
	r.backend.ResetShape(t.Node(id).Frame, kind)
}

// syncShape reshapes the frame of a floating node whose client registered a
// non-default clip region, and removes the frame clip when the node stops
// floating. A backend without shape support makes this a no-op.
func (r *Reconciler) syncShape(t *tree.Tree, id tree.NodeID, needReshape bool) {
	n := t.Node(id)
	if !r.backend.ShapeSupported() || n.Window == nil {
		return
	}
	s := r.lookup(n.Frame)

	if needReshape && t.IsFloating(id) {
		if n.Window.Shaped {
			r.shapeFrame(t, id, ShapeBounding)
		}
		if n.Window.InputShaped {
			r.shapeFrame(t, id, ShapeInput)
		}
	}

	if s.wasFloating && !t.IsFloating(id) {
		if n.Window.Shaped {
			r.unshapeFrame(t, id, ShapeBounding)
		}
		if n.Window.InputShaped {
			r.unshapeFrame(t, id, ShapeInput)
		}
	}
}

// SetShapeEnabled records a client's shape change (driven by backend shape
// notifications) and applies it immediately for floating nodes.
func (r *Reconciler) SetShapeEnabled(t *tree.Tree, id tree.NodeID, kind ShapeKind, enable bool) {
	n := t.Node(id)
	if n.Window == nil {
		return
	}
	switch kind {
	case ShapeBounding:
		n.Window.Shaped = enable
	case ShapeInput:
		n.Window.InputShaped = enable
	default:
		r.logger.Error("unknown shape kind", "node", id, "kind", int(kind))
		return
	}

	if t.IsFloating(id) {
		if enable {
			r.shapeFrame(t, id, kind)
		} else {
			r.unshapeFrame(t, id, kind)
		}
		r.backend.Flush()
	}
}
