// Package tree holds the container tree the reconciler synchronizes to X11.
//
// Nodes live in an arena and reference each other by NodeID, never by
// pointer. The layout engine owns the tree shape and geometry; the
// reconciler only reads it, except for a small set of backend-derived
// fields (Frame, Colormap, Hidden, MaximizedH, MaximizedV, DecoDirty).
package tree

import (
	"time"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/RedBeesRGD/consync/internal/draw"
)

// NodeID addresses a node in the arena. None (zero) is never a valid node.
type NodeID int32

// None is the null node handle.
const None NodeID = 0

// Kind describes what a node represents.
type Kind int

const (
	KindRoot Kind = iota
	KindOutput
	KindCon
	KindWorkspace
	KindFloating
	KindDock
)

// Layout describes how a split container arranges its children.
type Layout int

const (
	LayoutDefault Layout = iota
	LayoutSplitH
	LayoutSplitV
	LayoutStacked
	LayoutTabbed
	LayoutDock
	LayoutOutput
)

// BorderStyle selects the decoration style around a leaf window.
type BorderStyle int

const (
	BorderNone BorderStyle = iota
	BorderPixel
	BorderNormal
)

// Adjacency is a bitmask of screen edges a container touches.
type Adjacency int

const (
	AdjNone  Adjacency = 0
	AdjLeft  Adjacency = 1 << 0
	AdjRight Adjacency = 1 << 1
	AdjUpper Adjacency = 1 << 2
	AdjLower Adjacency = 1 << 3
)

// Rect is a rectangle in pixels. X and Y are relative to the parent frame
// except for Node.Rect, which is absolute.
type Rect struct {
	X, Y, Width, Height int
}

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Mid returns the midpoint of the rectangle.
func (r Rect) Mid() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Window describes a managed client window attached to a leaf node.
type Window struct {
	ID    xproto.Window
	Depth uint8

	Title        string
	TitleChanged bool
	Icon         *draw.IconImage

	// Shape extension state, maintained by the event layer.
	Shaped      bool
	InputShaped bool

	// WM_TAKE_FOCUS negotiation. A window that advertises the protocol but
	// does not accept direct input focus gets the polite request instead of
	// a SetInputFocus call.
	TakeFocus    bool
	AcceptsFocus bool
}

// Node is one container. All cross-references are NodeIDs into the arena.
type Node struct {
	Parent     NodeID
	Children   []NodeID // tiling children, layout order
	Floating   []NodeID // floating children (workspaces only)
	FocusOrder []NodeID // all children; head receives focus first

	Kind        Kind
	Layout      Layout
	Name        string
	Rect        Rect // absolute
	WindowRect  Rect // child window, relative to the frame
	DecoRect    Rect // decoration, relative to the parent frame
	BorderStyle BorderStyle
	BorderWidth int
	Mapped      bool
	Urgent      bool

	Marks       []string
	MarkChanged bool

	Window *Window

	// Backend-derived fields, written only by the reconciler.
	Frame           xproto.Window
	Colormap        xproto.Colormap
	Hidden          bool
	MaximizedH      bool
	MaximizedV      bool
	PixmapRecreated bool
	DecoDirty       bool

	ignoreUnmap   int
	ignoreUnmapAt time.Time
}

// Bound reports whether the node's backend frame window has been created.
func (n *Node) Bound() bool {
	return n.Frame != xproto.WindowNone
}

// Tree is the arena. Index 0 is reserved so that None never resolves.
type Tree struct {
	nodes []Node
	free  []NodeID

	Root    NodeID
	Focused NodeID
}

// New returns a tree containing only a root node.
func New() *Tree {
	t := &Tree{nodes: make([]Node, 1, 16)}
	t.Root = t.NewNode(None, KindRoot)
	t.Focused = t.Root
	return t
}

// NewNode allocates a node and attaches it to parent (appended to both the
// layout order and the tail of the focus order). Kind KindFloating children
// are attached to the floating list instead of the tiling list.
func (t *Tree) NewNode(parent NodeID, kind Kind) NodeID {
	var id NodeID
	if n := len(t.free); n > 0 {
		id = t.free[n-1]
		t.free = t.free[:n-1]
		t.nodes[id] = Node{}
	} else {
		t.nodes = append(t.nodes, Node{})
		id = NodeID(len(t.nodes) - 1)
	}
	n := t.Node(id)
	n.Parent = parent
	n.Kind = kind
	n.Mapped = false
	if parent != None {
		p := t.Node(parent)
		if kind == KindFloating {
			p.Floating = append(p.Floating, id)
		} else {
			p.Children = append(p.Children, id)
		}
		p.FocusOrder = append(p.FocusOrder, id)
	}
	return id
}

// Node returns the node for the given id. The id must be valid.
func (t *Tree) Node(id NodeID) *Node {
	return &t.nodes[id]
}

// Detach removes id from its parent's child, floating and focus lists. The
// node stays allocated; callers unbind and Free it separately.
func (t *Tree) Detach(id NodeID) {
	n := t.Node(id)
	if n.Parent == None {
		return
	}
	p := t.Node(n.Parent)
	p.Children = removeID(p.Children, id)
	p.Floating = removeID(p.Floating, id)
	p.FocusOrder = removeID(p.FocusOrder, id)
	n.Parent = None
}

// Free returns a detached node to the arena.
func (t *Tree) Free(id NodeID) {
	t.Detach(id)
	t.nodes[id] = Node{}
	t.free = append(t.free, id)
}

// SetFocus marks id as the globally focused node and promotes it to the
// head of the focus order in every ancestor.
func (t *Tree) SetFocus(id NodeID) {
	t.Focused = id
	for cur := id; cur != None; {
		parent := t.Node(cur).Parent
		if parent == None {
			break
		}
		p := t.Node(parent)
		p.FocusOrder = removeID(p.FocusOrder, cur)
		p.FocusOrder = append([]NodeID{cur}, p.FocusOrder...)
		cur = parent
	}
}

// IsLeaf reports whether the node has no children at all.
func (t *Tree) IsLeaf(id NodeID) bool {
	n := t.Node(id)
	return len(n.Children) == 0 && len(n.Floating) == 0
}

// IsFloating reports whether the node floats (it is a floating wrapper or
// the direct child of one).
func (t *Tree) IsFloating(id NodeID) bool {
	n := t.Node(id)
	if n.Kind == KindFloating {
		return true
	}
	return n.Parent != None && t.Node(n.Parent).Kind == KindFloating
}

// IsAttached reports whether the node is currently linked into its parent.
func (t *Tree) IsAttached(id NodeID) bool {
	n := t.Node(id)
	if n.Parent == None {
		return false
	}
	p := t.Node(n.Parent)
	return containsID(p.Children, id) || containsID(p.Floating, id)
}

// InsideFocused reports whether the node lives underneath the focused
// container (and therefore shares its focus colors).
func (t *Tree) InsideFocused(id NodeID) bool {
	for cur := t.Node(id).Parent; cur != None; cur = t.Node(cur).Parent {
		if cur == t.Focused {
			return true
		}
	}
	return false
}

// DescendFocused follows the focus order down to the node that would
// receive focus inside id.
func (t *Tree) DescendFocused(id NodeID) NodeID {
	cur := id
	for {
		n := t.Node(cur)
		if len(n.FocusOrder) == 0 {
			return cur
		}
		cur = n.FocusOrder[0]
	}
}

// IsHidden reports whether the node is invisible because some ancestor is a
// stacked/tabbed container showing a different child.
func (t *Tree) IsHidden(id NodeID) bool {
	cur := id
	for {
		n := t.Node(cur)
		parent := n.Parent
		if parent == None {
			return false
		}
		p := t.Node(parent)
		if (p.Layout == LayoutStacked || p.Layout == LayoutTabbed) &&
			len(p.FocusOrder) > 0 && p.FocusOrder[0] != cur {
			return true
		}
		cur = parent
	}
}

// IsMaximized reports whether the node spans its workspace in the given
// axis. Floating nodes are never maximized.
func (t *Tree) IsMaximized(id NodeID, horizontal bool) bool {
	if t.IsFloating(id) {
		return false
	}
	ws := t.workspaceOf(id)
	if ws == None || ws == id {
		return false
	}
	n, w := t.Node(id), t.Node(ws)
	if horizontal {
		return n.Rect.Width == w.Rect.Width
	}
	return n.Rect.Height == w.Rect.Height
}

// AdjacentBorders returns the output edges the node touches.
func (t *Tree) AdjacentBorders(id NodeID) Adjacency {
	out := t.outputOf(id)
	if out == None {
		return AdjNone
	}
	r, o := t.Node(id).Rect, t.Node(out).Rect
	adj := AdjNone
	if r.X == o.X {
		adj |= AdjLeft
	}
	if r.X+r.Width == o.X+o.Width {
		adj |= AdjRight
	}
	if r.Y == o.Y {
		adj |= AdjUpper
	}
	if r.Y+r.Height == o.Y+o.Height {
		adj |= AdjLower
	}
	return adj
}

// BorderStyleRect returns the border inset rectangle. Width and Height are
// negative offsets from the outer rect, matching the border rectangle math
// in the decoration renderer.
func (t *Tree) BorderStyleRect(id NodeID) Rect {
	n := t.Node(id)
	if n.BorderStyle == BorderNone {
		return Rect{}
	}
	bw := n.BorderWidth
	return Rect{X: bw, Y: bw, Width: -2 * bw, Height: -2 * bw}
}

// ignoreUnmapWindow bounds how long a self-caused unmap may be attributed
// to the engine before the counter is considered stale.
const ignoreUnmapWindow = 2 * time.Second

// IgnoreUnmap records that the next UnmapNotify for this node's window is
// self-caused and must not be treated as the client going away.
func (t *Tree) IgnoreUnmap(id NodeID) {
	n := t.Node(id)
	n.ignoreUnmap++
	n.ignoreUnmapAt = time.Now()
}

// ConsumeIgnoreUnmap consumes one pending self-caused unmap. Stale counters
// are dropped rather than consumed.
func (t *Tree) ConsumeIgnoreUnmap(id NodeID) bool {
	n := t.Node(id)
	if n.ignoreUnmap == 0 {
		return false
	}
	if time.Since(n.ignoreUnmapAt) > ignoreUnmapWindow {
		n.ignoreUnmap = 0
		return false
	}
	n.ignoreUnmap--
	return true
}

func (t *Tree) workspaceOf(id NodeID) NodeID {
	for cur := id; cur != None; cur = t.Node(cur).Parent {
		if t.Node(cur).Kind == KindWorkspace {
			return cur
		}
	}
	return None
}

func (t *Tree) outputOf(id NodeID) NodeID {
	for cur := id; cur != None; cur = t.Node(cur).Parent {
		if k := t.Node(cur).Kind; k == KindOutput || k == KindRoot {
			return cur
		}
	}
	return None
}

func removeID(s []NodeID, id NodeID) []NodeID {
	for i, v := range s {
		if v == id {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

func containsID(s []NodeID, id NodeID) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}
