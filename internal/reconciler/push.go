package reconciler

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/RedBeesRGD/consync/internal/draw"
	"github.com/RedBeesRGD/consync/internal/tree"
)

// PushChanges runs one reconciliation pass: stacking order first (so maps
// happen with correct z-order), then the per-node geometry/visibility walk,
// decorations, focus, the deferred pointer warp, and finally the unmap
// phase. The shadow stacking order is committed at the end.
func (r *Reconciler) PushChanges(t *tree.Tree) {
	// The pointer position read-back is issued as early as possible and
	// consumed later in the same pass.
	var pointer func() (int, int, bool)
	if r.warpTo != nil {
		pointer = r.backend.StartPointerQuery()
	}

	// Keep substructure redirection only, so clients cannot have configure
	// requests applied directly while the stack is being rewritten.
	for i := len(r.stacking) - 1; i >= 0; i-- {
		if r.stacking[i].mapped {
			r.backend.SetEventMask(r.stacking[i].frame, EventsRestackGuard)
		}
	}

	stackingChanged := r.pushStacking(t)
	if stackingChanged {
		r.publishClientLists(t)
	}

	r.pushNode(t, t.Root)

	// Restore the frame masks before decoration and focus work.
	for i := len(r.stacking) - 1; i >= 0; i-- {
		if r.stacking[i].mapped {
			r.backend.SetEventMask(r.stacking[i].frame, EventsFrame)
		}
	}

	r.decoRecurse(t, t.Root)
	r.syncFocus(t)

	if r.warpTo != nil {
		r.warpPointer(pointer)
		r.warpTo = nil
	}

	r.backend.Flush()

	// Disable enter notifications on frames about to be unmapped: a sibling
	// surfacing under the cursor must not steal focus mid-switch.
	for i := len(r.stacking) - 1; i >= 0; i-- {
		if r.stacking[i].unmapNow {
			r.backend.SetEventMask(r.stacking[i].frame, EventsFrameNoEnter)
		}
	}
	r.pushUnmaps(t, t.Root)

	r.prevStacking = append(r.prevStacking[:0], r.stacking...)
	r.backend.Flush()
}

// pushStacking walks the desired order back-to-front and restacks every
// node whose predecessor changed since the last committed order. Returns
// whether any restack was issued.
func (r *Reconciler) pushStacking(t *tree.Tree) bool {
	orderChanged := false
	stackingChanged := false

	r.clientList = r.clientList[:0]
	for i := len(r.stacking) - 1; i >= 0; i-- {
		s := r.stacking[i]
		// The backend represents the stack correctly if pushed bottom to
		// top, which also builds the bottom-to-top client list for free.
		if w, ok := r.managedWindow(t, s); ok {
			r.clientList = append(r.clientList, w)
		}

		var prev *shadow
		if i > 0 {
			prev = r.stacking[i-1]
		}
		if prev != r.prevPredecessor(s) {
			orderChanged = true
		}
		if (s.initial || orderChanged) && prev != nil {
			stackingChanged = true
			r.backend.RestackAbove(prev.frame, s.frame)
		}
		s.initial = false
	}
	return stackingChanged
}

// publishClientLists republishes both client-list views: live stacking
// order (bottom-to-top) and original bind order.
func (r *Reconciler) publishClientLists(t *tree.Tree) {
	if r.observer == nil {
		return
	}
	r.logger.Debug("client list changed", "clients", len(r.clientList))
	r.observer.ClientListStacking(r.clientList)

	byBind := make([]xproto.Window, 0, len(r.clientList))
	for _, s := range r.bindOrder {
		if w, ok := r.managedWindow(t, s); ok {
			byBind = append(byBind, w)
		}
	}
	r.observer.ClientList(byBind)
}

func (r *Reconciler) prevPredecessor(s *shadow) *shadow {
	for i, e := range r.prevStacking {
		if e == s {
			if i > 0 {
				return r.prevStacking[i-1]
			}
			return nil
		}
	}
	return nil
}

func (r *Reconciler) managedWindow(t *tree.Tree, s *shadow) (xproto.Window, bool) {
	n := t.Node(s.node)
	if n.Window == nil {
		return 0, false
	}
	return n.Window.ID, true
}

// pushNode pushes geometry, visibility and state flags for one node, then
// recurses in focus order so a soon-to-be-focused descendant is mapped
// before its siblings (reduces flicker when switching workspaces). Unmaps
// are handled separately in pushUnmaps.
func (r *Reconciler) pushNode(t *tree.Tree, id tree.NodeID) {
	n := t.Node(id)
	s := r.lookup(n.Frame)
	rect := n.Rect

	if s.hasPendingName {
		r.logger.Debug("pushing frame name", "node", id, "name", s.pendingName)
		r.backend.SetFrameName(s.frame, s.pendingName)
		s.pendingName = ""
		s.hasPendingName = false
	}

	if n.Window == nil && (n.Layout == tree.LayoutStacked || n.Layout == tree.LayoutTabbed) {
		// The frame of a stacked/tabbed container is exactly tall enough
		// for the decorations drawn onto it.
		maxY, maxHeight := 0, 0
		for _, c := range n.Children {
			dr := t.Node(c).DecoRect
			if dr.Y >= maxY && dr.Height >= maxHeight {
				maxY, maxHeight = dr.Y, dr.Height
			}
		}
		rect.Height = maxY + maxHeight
		if rect.Height == 0 {
			n.Mapped = false
		}
	} else if n.Window == nil {
		// Plain split containers have no visible frame of their own.
		n.Mapped = false
	}

	needReshape := false

	if s.needReparent && n.Window != nil {
		r.logger.Debug("reparenting child window", "node", id)
		// Mask both windows so the reparent does not surface as an
		// UnmapNotify that would close the container.
		r.backend.SetEventMask(s.oldFrame, EventsNone)
		r.backend.SetEventMask(n.Window.ID, EventsNone)
		r.backend.ReparentWindow(n.Window.ID, s.frame)
		r.backend.SetEventMask(s.oldFrame, EventsFrame)
		r.backend.SetEventMask(n.Window.ID, EventsChild)
		s.oldFrame = xproto.WindowNone
		s.needReparent = false
		t.IgnoreUnmap(id)
		needReshape = true
	}

	needReshape = needReshape ||
		s.rect.Width != rect.Width || s.rect.Height != rect.Height ||
		s.windowRect.Width != n.WindowRect.Width || s.windowRect.Height != n.WindowRect.Height
	needReshape = needReshape || (t.IsFloating(id) && !s.wasFloating)

	// A borderless leaf has no use for an off-screen buffer except as a
	// titlebar canvas inside a stack or tabs.
	bufferNeeded := (t.IsLeaf(id) && n.BorderStyle != tree.BorderNone) ||
		n.Layout == tree.LayoutStacked || n.Layout == tree.LayoutTabbed
	if n.Kind == tree.KindRoot || n.Kind == tree.KindOutput {
		// Root and output frames may be ridiculously large; never buffer
		// them.
		bufferNeeded = false
	}

	fakeNotify := false
	if (bufferNeeded && s.buffer == nil) || (s.rect != rect && rect.Height > 0) {
		rectChanged := s.rect != rect

		if !bufferNeeded && s.buffer != nil {
			// Left over from previously having a border or titlebar.
			s.buffer.Free()
			s.buffer = nil
		}

		if bufferNeeded && (rectChanged || s.buffer == nil) {
			if s.buffer != nil {
				s.buffer.Free()
			}
			depth := r.rootDepth
			if n.Window != nil && n.Window.Depth != 0 {
				depth = n.Window.Depth
			}
			w, h := max(rect.Width, 1), max(rect.Height, 1)
			buf, err := r.backend.CreateBuffer(s.frame, depth, w, h)
			if err != nil {
				// Shadow state would no longer match the backend if we
				// continued without the buffer.
				r.logger.Error("failed to allocate frame buffer", "node", id, "error", err)
				panic("reconciler: frame buffer allocation failed")
			}
			s.buffer = buf
			s.buffer.Clear(draw.Black)
			s.surface.SetSize(w, h)
			n.PixmapRecreated = true

			// Render now so the correct decoration is visible from the
			// very first moment, except for stack children that are not on
			// top anyway.
			parent := n.Parent
			if parent == tree.None ||
				t.Node(parent).Layout != tree.LayoutStacked ||
				(len(t.Node(parent).FocusOrder) > 0 && t.Node(parent).FocusOrder[0] == id) {
				r.decoRecurse(t, id)
			}
		}

		r.logger.Debug("setting frame rect", "node", id,
			"x", rect.X, "y", rect.Y, "width", rect.Width, "height", rect.Height)
		// A window's contents are lost while it resizes; flush so the
		// resize and the buffer copy land back to back.
		r.backend.Flush()
		r.backend.SetWindowRect(s.frame, rect)
		if s.buffer != nil {
			s.buffer.CopyTo(s.surface, rect.Width, rect.Height)
		}
		r.backend.Flush()

		s.rect = rect
		fakeNotify = true
	}

	if n.Window != nil && s.windowRect != n.WindowRect {
		r.backend.SetWindowRect(n.Window.ID, n.WindowRect)
		s.windowRect = n.WindowRect
		fakeNotify = true
	}

	r.syncShape(t, id, needReshape)

	// Map when the desired state became mapped, or when a fresh client
	// window appeared under an already-mapped frame.
	if (s.mapped != n.Mapped || (n.Window != nil && !s.childMapped)) && n.Mapped {
		if n.Window != nil {
			// WM_STATE normal: GTK refuses drag & drop without it, and
			// property inspection tools need it.
			r.backend.SetWithdrawn(n.Window.ID, false)
		}
		if n.Window != nil && !s.childMapped {
			r.backend.MapWindow(n.Window.ID)
			r.backend.SetEventMask(n.Window.ID, EventsChild)
			s.childMapped = true
		}
		r.backend.MapWindow(s.frame)
		r.backend.SetEventMask(s.frame, EventsFrame)
		if s.buffer != nil {
			s.buffer.CopyTo(s.surface, rect.Width, rect.Height)
		}
		r.backend.Flush()
		r.logger.Debug("mapped frame", "node", id, "frame", s.frame)
		s.mapped = n.Mapped
	}

	s.unmapNow = s.mapped != n.Mapped && !n.Mapped
	s.wasFloating = t.IsFloating(id)

	if fakeNotify && n.Window != nil {
		abs := tree.Rect{
			X:      n.Rect.X + n.WindowRect.X,
			Y:      n.Rect.Y + n.WindowRect.Y,
			Width:  n.WindowRect.Width,
			Height: n.WindowRect.Height,
		}
		r.backend.SendConfigureNotify(n.Window.ID, abs, n.BorderWidth)
	}

	r.syncHidden(t, id)
	r.syncMaximized(t, id)

	for _, c := range n.FocusOrder {
		r.pushNode(t, c)
	}
}

// pushUnmaps is the second half of the visibility protocol. It runs after
// focus has been resolved for the whole tree, so the backend cannot shift
// pointer focus to a sibling that is about to disappear.
func (r *Reconciler) pushUnmaps(t *tree.Tree, id tree.NodeID) {
	n := t.Node(id)
	s := r.lookup(n.Frame)

	if s.unmapNow {
		if n.Window != nil {
			// WM_STATE withdrawn, some toolkits require it on unmap.
			r.backend.SetWithdrawn(n.Window.ID, true)
		}
		r.backend.UnmapWindow(s.frame)
		r.logger.Debug("unmapped frame", "node", id, "frame", s.frame)
		if n.Window != nil {
			t.IgnoreUnmap(id)
		}
		s.mapped = n.Mapped
		s.unmapNow = false
	}

	for _, c := range n.Children {
		r.pushUnmaps(t, c)
	}
	for _, c := range n.Floating {
		r.pushUnmaps(t, c)
	}
}

// syncHidden mirrors stack/tab invisibility to the backend once per change.
func (r *Reconciler) syncHidden(t *tree.Tree, id tree.NodeID) {
	n := t.Node(id)
	if n.Window == nil {
		return
	}
	s := r.lookup(n.Frame)
	hidden := t.IsHidden(id)
	if hidden == s.hidden {
		return
	}
	r.logger.Debug("hidden state changed", "node", id, "hidden", hidden)
	r.backend.SetHidden(n.Window.ID, hidden)
	s.hidden = hidden
	n.Hidden = hidden
}

// syncMaximized mirrors the two maximize axes to the backend. The two flag
// updates are independent; they run right after the shape update and before
// the unmap phase.
func (r *Reconciler) syncMaximized(t *tree.Tree, id tree.NodeID) {
	n := t.Node(id)
	if n.Window == nil {
		return
	}
	s := r.lookup(n.Frame)

	if horz := t.IsMaximized(id, true); horz != s.maximizedH {
		r.backend.SetMaximizedHorz(n.Window.ID, horz)
		s.maximizedH = horz
		n.MaximizedH = horz
	}
	if vert := t.IsMaximized(id, false); vert != s.maximizedV {
		r.backend.SetMaximizedVert(n.Window.ID, vert)
		s.maximizedV = vert
		n.MaximizedV = vert
	}
}

// warpPointer executes the deferred warp if the target midpoint lies on a
// different output than the pointer. Notifications from the warp itself are
// suppressed by narrowing the root event mask for the duration.
func (r *Reconciler) warpPointer(pointer func() (int, int, bool)) {
	x, y, ok := pointer()
	if !ok {
		r.logger.Debug("could not query pointer position, not warping")
		return
	}
	midX, midY := r.warpTo.Mid()
	if r.outputs != nil && r.outputs.OutputAt(x, y) == r.outputs.OutputAt(midX, midY) {
		return
	}
	r.backend.SetRootEventMask(EventsRestackGuard)
	r.backend.WarpPointer(midX, midY)
	r.backend.SetRootEventMask(EventsRoot)
}
