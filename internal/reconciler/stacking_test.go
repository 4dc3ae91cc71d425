package reconciler

import (
	"io"
	"log/slog"
	"testing"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/RedBeesRGD/consync/internal/config"
	"github.com/RedBeesRGD/consync/internal/tree"
)

// stackRig binds three window-bearing nodes and nothing else, so stacking
// instructions can be observed without skeleton frames in the order.
func stackRig(t *testing.T) (*Reconciler, *fakeBackend, *tree.Tree, [3]tree.NodeID) {
	t.Helper()
	back := newFakeBackend()
	rec := New(Options{
		Backend:   back,
		Font:      fakeFont{},
		Config:    config.Default(),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		RootDepth: 24,
		FocusSink: rigFocusSink,
	})

	tr := tree.New()
	var ids [3]tree.NodeID
	win := xproto.Window(0x8000)
	for i := range ids {
		id := tr.NewNode(tr.Root, tree.KindCon)
		tr.Node(id).Window = &tree.Window{ID: win, Depth: 24}
		win++
		if err := rec.Bind(tr, id); err != nil {
			t.Fatalf("Bind(%d): %v", id, err)
		}
		ids[i] = id
	}

	// Commit the initial order.
	rec.pushStacking(tr)
	rec.prevStacking = append(rec.prevStacking[:0], rec.stacking...)
	back.reset()
	return rec, back, tr, ids
}

func TestStackingUnchangedIssuesNoRestacks(t *testing.T) {
	rec, back, tr, _ := stackRig(t)

	rec.pushStacking(tr)

	if got := back.count("restack"); got != 0 {
		t.Errorf("restack instructions = %d, want 0\nops: %v", got, back.ops)
	}
}

func TestRaiseOfBottomNodeIssuesOneRestack(t *testing.T) {
	rec, back, tr, ids := stackRig(t)

	// ids[0] was bound first, so its shadow sits at the bottom. Raising it
	// to the top changes exactly one predecessor in the committed order: the
	// old top now sits directly below it.
	rec.RaiseNode(tr, ids[0])
	rec.pushStacking(tr)

	if got := back.count("restack"); got != 1 {
		t.Fatalf("restack instructions = %d, want exactly 1\nops: %v", got, back.ops)
	}
	want := "restack " + itoa(tr.Node(ids[0]).Frame) + " above " + itoa(tr.Node(ids[2]).Frame)
	got := back.ops[back.indexOfOp("restack")]
	if got != want {
		t.Errorf("restack = %q, want %q", got, want)
	}
}

func TestRaiseRestacksAboveTheDivergencePoint(t *testing.T) {
	rec, back, tr, ids := stackRig(t)

	// Raising a mid-stack node restacks every shadow from the point where
	// the committed order diverges up to the top, once each.
	rec.RaiseNode(tr, ids[1])
	rec.pushStacking(tr)

	if got := back.count("restack"); got != 2 {
		t.Errorf("restack instructions = %d, want 2\nops: %v", got, back.ops)
	}

	// A fresh run against the committed result is quiet again.
	rec.prevStacking = append(rec.prevStacking[:0], rec.stacking...)
	back.reset()
	rec.pushStacking(tr)
	if got := back.count("restack"); got != 0 {
		t.Errorf("restack instructions after commit = %d, want 0", got)
	}
}

func TestClientListsPublishedInBothOrders(t *testing.T) {
	rg := newRig(t)
	a := rg.addWindow("first")
	b := rg.addWindow("second")
	rg.tree.SetFocus(b)
	rg.rec.PushChanges(rg.tree)

	if len(rg.obs.stackingPubs) == 0 || len(rg.obs.bindPubs) == 0 {
		t.Fatal("client lists not published")
	}

	// Live stacking order is bottom-to-top; b was bound last and sits on
	// top, so it comes second there too. Bind order lists a first.
	wantStacking := []xproto.Window{rg.window(a), rg.window(b)}
	gotStacking := rg.obs.stackingPubs[len(rg.obs.stackingPubs)-1]
	if !windowsEqual(gotStacking, wantStacking) {
		t.Errorf("stacking list = %v, want %v", gotStacking, wantStacking)
	}
	wantBind := []xproto.Window{rg.window(a), rg.window(b)}
	gotBind := rg.obs.bindPubs[len(rg.obs.bindPubs)-1]
	if !windowsEqual(gotBind, wantBind) {
		t.Errorf("bind-order list = %v, want %v", gotBind, wantBind)
	}

	// Raising a reverses the live order but not the bind order.
	rg.rec.RaiseNode(rg.tree, a)
	rg.rec.PushChanges(rg.tree)
	wantStacking = []xproto.Window{rg.window(b), rg.window(a)}
	gotStacking = rg.obs.stackingPubs[len(rg.obs.stackingPubs)-1]
	if !windowsEqual(gotStacking, wantStacking) {
		t.Errorf("stacking list after raise = %v, want %v", gotStacking, wantStacking)
	}
	gotBind = rg.obs.bindPubs[len(rg.obs.bindPubs)-1]
	if !windowsEqual(gotBind, wantBind) {
		t.Errorf("bind-order list after raise = %v, want %v", gotBind, wantBind)
	}
}

func windowsEqual(a, b []xproto.Window) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
