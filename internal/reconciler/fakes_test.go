package reconciler

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/RedBeesRGD/consync/internal/config"
	"github.com/RedBeesRGD/consync/internal/draw"
	"github.com/RedBeesRGD/consync/internal/tree"
)

// fakeSurface counts drawing calls so tests can tell a repaint from a plain
// buffer blit.
type fakeSurface struct {
	valid     bool
	w, h      int
	clears    int
	fills     int
	gradients int
	texts     int
	images    int
	copies    int
}

func newFakeSurface(w, h int) *fakeSurface {
	return &fakeSurface{valid: true, w: w, h: h}
}

func (s *fakeSurface) Valid() bool { return s.valid }
func (s *fakeSurface) Clear(draw.Color) {
	s.clears++
}
func (s *fakeSurface) FillRect(c draw.Color, x, y, w, h int) {
	if w > 0 && h > 0 {
		s.fills++
	}
}
func (s *fakeSurface) FillGradient(start, end draw.Color, x, y, w, h int, opts draw.GradientOptions) {
	s.gradients++
}
func (s *fakeSurface) Text(text string, fg, bg draw.Color, x, y, maxWidth int) {
	s.texts++
}
func (s *fakeSurface) Image(icon *draw.IconImage, x, y, w, h int) {
	s.images++
}
func (s *fakeSurface) CopyTo(dst draw.Surface, w, h int) {
	s.copies++
}
func (s *fakeSurface) SetSize(w, h int) { s.w, s.h = w, h }
func (s *fakeSurface) Free()            { s.valid = false }

// fakeBackend records every instruction as a readable op string.
type fakeBackend struct {
	nextFrame xproto.Window
	ops       []string

	shapeOK            bool
	pointerX, pointerY int
	pointerOK          bool

	buffers map[xproto.Window]*fakeSurface
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		nextFrame: 1,
		shapeOK:   true,
		pointerOK: true,
		buffers:   make(map[xproto.Window]*fakeSurface),
	}
}

func (b *fakeBackend) record(format string, args ...any) {
	b.ops = append(b.ops, fmt.Sprintf(format, args...))
}

func (b *fakeBackend) reset() { b.ops = nil }

func (b *fakeBackend) count(prefix string) int {
	n := 0
	for _, op := range b.ops {
		if strings.HasPrefix(op, prefix) {
			n++
		}
	}
	return n
}

// indexOfOp returns the position of the first op starting with prefix, or -1.
func (b *fakeBackend) indexOfOp(prefix string) int {
	for i, op := range b.ops {
		if strings.HasPrefix(op, prefix) {
			return i
		}
	}
	return -1
}

func itoa(w xproto.Window) string {
	return strconv.FormatUint(uint64(w), 10)
}

func (b *fakeBackend) CreateFrame(r tree.Rect, depth uint8) (Frame, error) {
	w := b.nextFrame
	b.nextFrame++
	b.record("create-frame %d", w)
	return Frame{Window: w, Surface: newFakeSurface(r.Width, r.Height)}, nil
}

func (b *fakeBackend) DestroyFrame(w xproto.Window) { b.record("destroy-frame %d", w) }
func (b *fakeBackend) FreeColormap(cm xproto.Colormap) {
	b.record("free-colormap %d", cm)
}

func (b *fakeBackend) CreateBuffer(frame xproto.Window, depth uint8, w, h int) (draw.Surface, error) {
	b.record("create-buffer %d", frame)
	s := newFakeSurface(w, h)
	b.buffers[frame] = s
	return s, nil
}

func (b *fakeBackend) SetFrameName(w xproto.Window, name string) {
	b.record("frame-name %d %s", w, name)
}
func (b *fakeBackend) SetWindowRect(w xproto.Window, r tree.Rect) {
	b.record("set-rect %d %dx%d+%d+%d", w, r.Width, r.Height, r.X, r.Y)
}
func (b *fakeBackend) SendConfigureNotify(win xproto.Window, r tree.Rect, bw int) {
	b.record("configure-notify %d", win)
}
func (b *fakeBackend) ReparentWindow(win, frame xproto.Window) {
	b.record("reparent %d into %d", win, frame)
}
func (b *fakeBackend) SetEventMask(w xproto.Window, mask EventMask) {
	b.record("event-mask %d %d", w, mask)
}
func (b *fakeBackend) SetRootEventMask(mask EventMask) { b.record("root-event-mask %d", mask) }

func (b *fakeBackend) MapWindow(w xproto.Window)   { b.record("map %d", w) }
func (b *fakeBackend) UnmapWindow(w xproto.Window) { b.record("unmap %d", w) }
func (b *fakeBackend) RestackAbove(w, sibling xproto.Window) {
	b.record("restack %d above %d", w, sibling)
}

func (b *fakeBackend) SetWithdrawn(win xproto.Window, withdrawn bool) {
	b.record("withdrawn %d %v", win, withdrawn)
}
func (b *fakeBackend) SetHidden(win xproto.Window, hidden bool) {
	b.record("hidden %d %v", win, hidden)
}
func (b *fakeBackend) SetMaximizedHorz(win xproto.Window, on bool) {
	b.record("maximized-h %d %v", win, on)
}
func (b *fakeBackend) SetMaximizedVert(win xproto.Window, on bool) {
	b.record("maximized-v %d %v", win, on)
}

func (b *fakeBackend) ShapeSupported() bool { return b.shapeOK }
func (b *fakeBackend) CombineShape(frame, child xproto.Window, kind ShapeKind, xOff, yOff int) {
	b.record("shape-combine %d %d", frame, kind)
}
func (b *fakeBackend) UnionShapeRects(frame xproto.Window, kind ShapeKind, rects []tree.Rect) {
	b.record("shape-union %d %d", frame, kind)
}
func (b *fakeBackend) ResetShape(frame xproto.Window, kind ShapeKind) {
	b.record("shape-reset %d %d", frame, kind)
}

func (b *fakeBackend) SetInputFocus(w xproto.Window) { b.record("set-input-focus %d", w) }
func (b *fakeBackend) SendTakeFocus(w xproto.Window) { b.record("take-focus %d", w) }
func (b *fakeBackend) SetActiveWindow(w xproto.Window) {
	b.record("active-window %d", w)
}
func (b *fakeBackend) SetFocusedState(w xproto.Window, focused bool) {
	b.record("focused-state %d %v", w, focused)
}

func (b *fakeBackend) StartPointerQuery() func() (int, int, bool) {
	b.record("query-pointer")
	return func() (int, int, bool) { return b.pointerX, b.pointerY, b.pointerOK }
}
func (b *fakeBackend) WarpPointer(x, y int) { b.record("warp %d,%d", x, y) }

func (b *fakeBackend) Flush() {}

// fakeOutputs is a fixed monitor layout.
type fakeOutputs struct {
	rects []tree.Rect
}

func (o *fakeOutputs) OutputAt(x, y int) int {
	for i, r := range o.rects {
		if r.Contains(x, y) {
			return i
		}
	}
	return -1
}

// fakeObserver records published focus changes and client lists.
type fakeObserver struct {
	focusChanges []tree.NodeID
	stackingPubs [][]xproto.Window
	bindPubs     [][]xproto.Window
}

func (o *fakeObserver) FocusChanged(t *tree.Tree, id tree.NodeID) {
	o.focusChanges = append(o.focusChanges, id)
}
func (o *fakeObserver) ClientListStacking(wins []xproto.Window) {
	o.stackingPubs = append(o.stackingPubs, append([]xproto.Window(nil), wins...))
}
func (o *fakeObserver) ClientList(wins []xproto.Window) {
	o.bindPubs = append(o.bindPubs, append([]xproto.Window(nil), wins...))
}

// fakeFont has deterministic metrics.
type fakeFont struct{}

func (fakeFont) TextWidth(s string) int { return 7 * len(s) }
func (fakeFont) Height() int            { return 12 }

const (
	rigDecoHeight = 17
	rigBorder     = 2
	rigFocusSink  = xproto.Window(0x7fff)
)

// rig is a bound root/output/workspace skeleton plus helpers for attaching
// windows, mirroring how the daemon drives the reconciler.
type rig struct {
	t       *testing.T
	back    *fakeBackend
	obs     *fakeObserver
	tree    *tree.Tree
	rec     *Reconciler
	out     tree.NodeID
	ws      tree.NodeID
	nextWin xproto.Window
}

func newRig(t *testing.T) *rig {
	t.Helper()
	back := newFakeBackend()
	obs := &fakeObserver{}
	cfg := config.Default()

	rec := New(Options{
		Backend:   back,
		Outputs:   &fakeOutputs{rects: []tree.Rect{{Width: 800, Height: 600}}},
		Observer:  obs,
		Font:      fakeFont{},
		Config:    cfg,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		RootDepth: 24,
		FocusSink: rigFocusSink,
	})

	tr := tree.New()
	rg := &rig{
		t:       t,
		back:    back,
		obs:     obs,
		tree:    tr,
		rec:     rec,
		nextWin: 0x8000,
	}
	rg.bind(tr.Root)

	rg.out = tr.NewNode(tr.Root, tree.KindOutput)
	on := tr.Node(rg.out)
	on.Layout = tree.LayoutOutput
	on.Rect = tree.Rect{Width: 800, Height: 600}
	rg.bind(rg.out)

	rg.ws = tr.NewNode(rg.out, tree.KindWorkspace)
	wn := tr.Node(rg.ws)
	wn.Layout = tree.LayoutSplitH
	wn.Rect = on.Rect
	rg.bind(rg.ws)

	tr.SetFocus(rg.ws)
	return rg
}

func (rg *rig) bind(id tree.NodeID) {
	rg.t.Helper()
	if err := rg.rec.Bind(rg.tree, id); err != nil {
		rg.t.Fatalf("Bind(%d): %v", id, err)
	}
}

// addWindow attaches a mapped, decorated client window to the workspace and
// re-splits the workspace evenly.
func (rg *rig) addWindow(title string) tree.NodeID {
	rg.t.Helper()
	t := rg.tree

	id := t.NewNode(rg.ws, tree.KindCon)
	n := t.Node(id)
	n.Name = title
	n.Window = &tree.Window{
		ID:           rg.nextWin,
		Depth:        24,
		Title:        title,
		AcceptsFocus: true,
	}
	rg.nextWin++
	n.BorderStyle = tree.BorderNormal
	n.BorderWidth = rigBorder
	n.Mapped = true

	rg.bind(id)
	rg.arrange()
	return id
}

// arrange splits the workspace evenly, the way the daemon does.
func (rg *rig) arrange() {
	t := rg.tree
	ws := t.Node(rg.ws)
	count := len(ws.Children)
	if count == 0 {
		return
	}
	width := ws.Rect.Width / count
	for i, c := range ws.Children {
		n := t.Node(c)
		n.Rect = tree.Rect{
			X:      ws.Rect.X + i*width,
			Y:      ws.Rect.Y,
			Width:  width,
			Height: ws.Rect.Height,
		}
		n.DecoRect = tree.Rect{Width: width, Height: rigDecoHeight}
		n.WindowRect = tree.Rect{
			X:      rigBorder,
			Y:      rigDecoHeight,
			Width:  width - 2*rigBorder,
			Height: ws.Rect.Height - rigDecoHeight - rigBorder,
		}
	}
}

// buffer returns the off-screen buffer the backend created for the node.
func (rg *rig) buffer(id tree.NodeID) *fakeSurface {
	rg.t.Helper()
	s := rg.back.buffers[rg.tree.Node(id).Frame]
	if s == nil {
		rg.t.Fatalf("node %d has no buffer", id)
	}
	return s
}

func (rg *rig) window(id tree.NodeID) xproto.Window {
	return rg.tree.Node(id).Window.ID
}

func (rg *rig) frame(id tree.NodeID) xproto.Window {
	return rg.tree.Node(id).Frame
}
