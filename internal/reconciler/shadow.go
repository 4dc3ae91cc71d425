package reconciler

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/RedBeesRGD/consync/internal/draw"
	"github.com/RedBeesRGD/consync/internal/tree"
)

// shadow records the state last committed to the backend for one bound
// node. There is exactly one shadow per live frame window.
type shadow struct {
	frame xproto.Window
	node  tree.NodeID

	mapped       bool
	childMapped  bool
	initial      bool
	unmapNow     bool
	needReparent bool
	oldFrame     xproto.Window
	wasFloating  bool

	hidden     bool
	maximizedH bool
	maximizedV bool

	rect       tree.Rect
	windowRect tree.Rect

	pendingName    string
	hasPendingName bool

	surface draw.Surface // the frame window itself
	buffer  draw.Surface // off-screen buffer, nil until first needed
}

// lookup returns the shadow for a frame the reconciler created. A miss is a
// logic error: some caller skipped Bind or used a stale handle.
func (r *Reconciler) lookup(frame xproto.Window) *shadow {
	s, ok := r.shadows[frame]
	if !ok {
		r.logger.Error("no shadow state for frame", "frame", frame)
		panic(fmt.Sprintf("reconciler: no shadow state for frame 0x%08x", frame))
	}
	return s
}

// Bind creates the backend frame for a node and registers its shadow in the
// stacking orders (top) and the bind-order list (tail). Called exactly once
// when the node first needs a backend presence.
func (r *Reconciler) Bind(t *tree.Tree, id tree.NodeID) error {
	n := t.Node(id)
	depth := r.rootDepth
	if n.Window != nil && n.Window.Depth != 0 {
		depth = n.Window.Depth
	}
	// The frame starts tiny and off-screen; the first pass moves it into
	// place before mapping.
	f, err := r.backend.CreateFrame(tree.Rect{X: -15, Y: -15, Width: 10, Height: 10}, depth)
	if err != nil {
		return fmt.Errorf("failed to create frame for node %d: %w", id, err)
	}
	n.Frame = f.Window
	n.Colormap = f.Colormap

	s := &shadow{
		frame:   f.Window,
		node:    id,
		initial: true,
		surface: f.Surface,
	}
	r.shadows[f.Window] = s
	r.stacking = append([]*shadow{s}, r.stacking...)
	r.prevStacking = append([]*shadow{s}, r.prevStacking...)
	r.bindOrder = append(r.bindOrder, s)
	r.logger.Debug("bound node", "node", id, "frame", f.Window)
	return nil
}

// Rebind resets the shadow to its initial state. Used when an empty
// container is assigned a client so the next pass pushes everything again.
func (r *Reconciler) Rebind(t *tree.Tree, id tree.NodeID) {
	s := r.lookup(t.Node(id).Frame)
	s.initial = true
	s.childMapped = false
	s.node = id
	s.windowRect = tree.Rect{}
}

// ReparentChild schedules the node's client window to be reparented out of
// oldFrame into the node's frame on the next pass (sticky moves).
func (r *Reconciler) ReparentChild(t *tree.Tree, id tree.NodeID, oldFrame xproto.Window) {
	s := r.lookup(t.Node(id).Frame)
	s.needReparent = true
	s.oldFrame = oldFrame
}

// MoveWindow transfers the committed child-window geometry from one bound
// node to another, as when a client migrates between placeholder frames.
func (r *Reconciler) MoveWindow(t *tree.Tree, src, dst tree.NodeID) {
	ss := r.lookup(t.Node(src).Frame)
	ds := r.lookup(t.Node(dst).Frame)
	if (ds.windowRect == tree.Rect{}) {
		ds.windowRect = ss.windowRect
	}
	ss.windowRect = tree.Rect{}
}

// unbind releases everything the reconciler owns for the node, leaving the
// frame window itself alive for the caller to destroy or reuse.
func (r *Reconciler) unbind(t *tree.Tree, id tree.NodeID) {
	n := t.Node(id)
	s := r.lookup(n.Frame)

	if n.Colormap != xproto.ColormapNone {
		r.backend.FreeColormap(n.Colormap)
		n.Colormap = xproto.ColormapNone
	}
	if s.surface != nil {
		s.surface.Free()
	}
	if s.buffer != nil {
		s.buffer.Free()
		s.buffer = nil
	}
	delete(r.deco, id)
	delete(r.shadows, s.frame)
	r.stacking = removeShadow(r.stacking, s)
	r.prevStacking = removeShadow(r.prevStacking, s)
	r.bindOrder = removeShadow(r.bindOrder, s)

	// Invalidate the focus record so a recycled window id focuses cleanly.
	// The record may hold either the frame or the client window handle.
	win := xproto.Window(xproto.WindowNone)
	if n.Window != nil {
		win = n.Window.ID
	}
	if s.frame == r.focusedWin || win == r.focusedWin {
		r.focusedWin = xproto.WindowNone
	}
	if s.frame == r.lastFocused || win == r.lastFocused {
		r.lastFocused = xproto.WindowNone
	}

	if r.unbindHook != nil {
		r.unbindHook.NodeUnbound(t, id)
	}
}

// Unbind tears down the node's backend binding entirely.
func (r *Reconciler) Unbind(t *tree.Tree, id tree.NodeID) {
	frame := t.Node(id).Frame
	r.unbind(t, id)
	r.backend.DestroyFrame(frame)
	t.Node(id).Frame = xproto.WindowNone
}

// Reframe replaces the node's frame window with a fresh one, without
// destroying the old window (the caller keeps it for reparenting).
func (r *Reconciler) Reframe(t *tree.Tree, id tree.NodeID) error {
	r.unbind(t, id)
	t.Node(id).Frame = xproto.WindowNone
	return r.Bind(t, id)
}

// RaiseNode moves the node to the top of the desired stacking order. The
// next pass makes the change visible.
func (r *Reconciler) RaiseNode(t *tree.Tree, id tree.NodeID) {
	s := r.lookup(t.Node(id).Frame)
	r.stacking = removeShadow(r.stacking, s)
	r.stacking = append([]*shadow{s}, r.stacking...)
}

// SetName schedules a debug name push for the node's frame.
func (r *Reconciler) SetName(t *tree.Tree, id tree.NodeID, name string) {
	s := r.lookup(t.Node(id).Frame)
	s.pendingName = name
	s.hasPendingName = true
}

// MaskEvents applies the mask to every mapped frame. Used by interactive
// resize to suppress enter notifications while geometry is in flux.
func (r *Reconciler) MaskEvents(mask EventMask) {
	for i := len(r.stacking) - 1; i >= 0; i-- {
		if r.stacking[i].mapped {
			r.backend.SetEventMask(r.stacking[i].frame, mask)
		}
	}
}

func removeShadow(s []*shadow, v *shadow) []*shadow {
	for i, e := range s {
		if e == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
