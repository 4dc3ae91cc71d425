package reconciler

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/RedBeesRGD/consync/internal/draw"
	"github.com/RedBeesRGD/consync/internal/tree"
)

// EventMask selects which notifications a window generates. The constants
// are backend-agnostic; the X11 implementation maps them onto real event
// mask bits.
type EventMask int

const (
	// EventsNone disables all notifications.
	EventsNone EventMask = iota
	// EventsFrame is the normal mask for decoration frame windows.
	EventsFrame
	// EventsFrameNoEnter is EventsFrame without enter notifications, used
	// around unmaps and interactive resizes so pointer crossings caused by
	// the engine itself do not steal focus.
	EventsFrameNoEnter
	// EventsChild is the normal mask for managed client windows.
	EventsChild
	// EventsChildNoFocus is EventsChild without focus-change notifications,
	// used while the engine assigns focus itself.
	EventsChildNoFocus
	// EventsRestackGuard keeps only substructure redirection, so clients
	// cannot slip configure requests past the engine mid-restack.
	EventsRestackGuard
	// EventsRoot is the normal root window mask.
	EventsRoot
)

// ShapeKind selects which clip region of a frame is being changed.
type ShapeKind int

const (
	ShapeBounding ShapeKind = iota
	ShapeInput
)

// Frame is the result of creating a backend frame window.
type Frame struct {
	Window   xproto.Window
	Colormap xproto.Colormap // zero when the default colormap is used
	Surface  draw.Surface
}

// Backend is the stateful windowing backend the reconciler pushes to. All
// calls are fire-and-forget; ordering within one reconciliation pass is
// significant and preserved by the implementation.
type Backend interface {
	// CreateFrame creates an override-redirect decoration frame.
	CreateFrame(r tree.Rect, depth uint8) (Frame, error)
	// DestroyFrame destroys the frame window.
	DestroyFrame(w xproto.Window)
	// FreeColormap releases a private colormap created for a frame.
	FreeColormap(cm xproto.Colormap)
	// CreateBuffer allocates the off-screen buffer for a frame. Failure is
	// a fatal resource error, not a refusal.
	CreateBuffer(frame xproto.Window, depth uint8, w, h int) (draw.Surface, error)

	SetFrameName(w xproto.Window, name string)
	SetWindowRect(w xproto.Window, r tree.Rect)
	// SendConfigureNotify tells a client its absolute geometry after the
	// engine moved the frame around it.
	SendConfigureNotify(win xproto.Window, absolute tree.Rect, borderWidth int)
	ReparentWindow(win, frame xproto.Window)
	SetEventMask(w xproto.Window, mask EventMask)
	SetRootEventMask(mask EventMask)

	MapWindow(w xproto.Window)
	UnmapWindow(w xproto.Window)
	// RestackAbove places w immediately above sibling.
	RestackAbove(w, sibling xproto.Window)

	// SetWithdrawn pushes the ICCCM WM_STATE lifecycle marker.
	SetWithdrawn(win xproto.Window, withdrawn bool)
	SetHidden(win xproto.Window, hidden bool)
	SetMaximizedHorz(win xproto.Window, on bool)
	SetMaximizedVert(win xproto.Window, on bool)

	// ShapeSupported reports whether the backend supports non-rectangular
	// clip regions. When false, all shape calls are no-ops.
	ShapeSupported() bool
	CombineShape(frame, child xproto.Window, kind ShapeKind, xOff, yOff int)
	UnionShapeRects(frame xproto.Window, kind ShapeKind, rects []tree.Rect)
	ResetShape(frame xproto.Window, kind ShapeKind)

	SetInputFocus(w xproto.Window)
	SendTakeFocus(w xproto.Window)
	SetActiveWindow(w xproto.Window)
	SetFocusedState(w xproto.Window, focused bool)

	// StartPointerQuery issues the pointer position read immediately and
	// returns a resolver consumed later in the same pass.
	StartPointerQuery() func() (x, y int, ok bool)
	WarpPointer(x, y int)

	Flush()
}

// Outputs supplies monitor geometry for pointer-warp decisions.
type Outputs interface {
	// OutputAt returns an identifier for the output containing the point,
	// or -1 when no output contains it.
	OutputAt(x, y int) int
}

// Observer receives focus and client-list events derived from a pass.
type Observer interface {
	FocusChanged(t *tree.Tree, id tree.NodeID)
	// ClientListStacking publishes managed windows bottom-to-top in live
	// stacking order.
	ClientListStacking(wins []xproto.Window)
	// ClientList publishes managed windows in original bind order.
	ClientList(wins []xproto.Window)
}

// UnbindHook lets the tree model react when a node's backend binding is
// torn down (scratchpad cleanup and similar).
type UnbindHook interface {
	NodeUnbound(t *tree.Tree, id tree.NodeID)
}
