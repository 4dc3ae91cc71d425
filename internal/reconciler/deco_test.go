package reconciler

import "testing"

func TestTitleChangeRepaintsOnlyThatDecoration(t *testing.T) {
	rg := newRig(t)
	a := rg.addWindow("left")
	b := rg.addWindow("right")
	rg.tree.SetFocus(b)
	rg.rec.PushChanges(rg.tree)

	aBefore := rg.buffer(a).gradients
	bBefore := rg.buffer(b).gradients

	n := rg.tree.Node(b)
	n.Window.Title = "right, renamed"
	n.Window.TitleChanged = true
	rg.rec.PushChanges(rg.tree)

	if got := rg.buffer(b).gradients - bBefore; got != 1 {
		t.Errorf("renamed window repainted %d times, want 1", got)
	}
	if got := rg.buffer(a).gradients - aBefore; got != 0 {
		t.Errorf("unrelated window repainted %d times, want 0", got)
	}
}

func TestFocusMoveRepaintsBothDecorations(t *testing.T) {
	rg := newRig(t)
	a := rg.addWindow("left")
	b := rg.addWindow("right")
	rg.tree.SetFocus(b)
	rg.rec.PushChanges(rg.tree)

	aBefore := rg.buffer(a).gradients
	bBefore := rg.buffer(b).gradients
	rg.back.reset()

	rg.tree.SetFocus(a)
	rg.rec.PushChanges(rg.tree)

	// The newly focused and the newly unfocused decoration both change
	// color, and each is painted exactly once.
	if got := rg.buffer(a).gradients - aBefore; got != 1 {
		t.Errorf("focused window repainted %d times, want 1", got)
	}
	if got := rg.buffer(b).gradients - bBefore; got != 1 {
		t.Errorf("unfocused window repainted %d times, want 1", got)
	}
	if got := rg.back.count("set-input-focus " + itoa(rg.window(a))); got != 1 {
		t.Errorf("focus instructions for new target = %d, want 1", got)
	}
}

func TestRepaintInvalidatesLaterSiblings(t *testing.T) {
	rg := newRig(t)
	a := rg.addWindow("left")
	b := rg.addWindow("right")
	rg.tree.SetFocus(b)
	rg.rec.PushChanges(rg.tree)

	bBefore := rg.buffer(b).gradients

	// Renaming the first sibling forces the later sibling to be painted
	// again as well, even though none of its own parameters changed.
	n := rg.tree.Node(a)
	n.Window.Title = "left, renamed"
	n.Window.TitleChanged = true
	rg.rec.PushChanges(rg.tree)

	if got := rg.buffer(b).gradients - bBefore; got != 1 {
		t.Errorf("later sibling repainted %d times, want 1", got)
	}
}

func TestSolidTitlebarWhenGradientsDisabled(t *testing.T) {
	rg := newRig(t)
	rg.rec.cfg.Client.Gradients = false
	a := rg.addWindow("solid")
	rg.tree.SetFocus(a)
	rg.rec.PushChanges(rg.tree)

	buf := rg.buffer(a)
	if buf.gradients != 0 {
		t.Errorf("gradient fills = %d, want 0 with gradients disabled", buf.gradients)
	}
	if buf.fills == 0 {
		t.Error("titlebar was not painted with a solid fill")
	}
	if buf.texts != 1 {
		t.Errorf("title draws = %d, want 1", buf.texts)
	}
}
