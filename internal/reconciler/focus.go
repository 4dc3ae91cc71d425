package reconciler

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/RedBeesRGD/consync/internal/tree"
)

// syncFocus runs once per pass after all geometry and visibility pushes. It
// moves backend input focus to the globally focused node, choosing between
// the polite WM_TAKE_FOCUS request and direct assignment, and mirrors the
// change to the external focus-state attributes.
func (r *Reconciler) syncFocus(t *tree.Tree) {
	if t.Focused == tree.None {
		if r.focusedWin != r.focusSink {
			r.focusFallback()
		}
		return
	}
	n := t.Node(t.Focused)
	toFocus := n.Frame
	if n.Window != nil {
		toFocus = n.Window.ID
	}

	if r.focusedWin != toFocus {
		if !n.Mapped {
			// Never focus something invisible; clear the committed handle
			// so a later map of the same window focuses cleanly.
			r.logger.Debug("not updating focus, focused node is unmapped", "node", t.Focused)
			r.focusedWin = xproto.WindowNone
		} else {
			managed := xproto.Window(xproto.WindowNone)
			if n.Window != nil {
				managed = n.Window.ID
			}

			if n.Window != nil && n.Window.TakeFocus && !n.Window.AcceptsFocus {
				r.logger.Debug("sending take-focus request", "node", t.Focused, "window", toFocus)
				r.backend.SendTakeFocus(toFocus)
				r.mirrorFocus(managed, r.lastFocused)
				if toFocus != r.lastFocused && t.IsAttached(t.Focused) && r.observer != nil {
					r.observer.FocusChanged(t, t.Focused)
				}
			} else {
				r.logger.Debug("assigning input focus", "node", t.Focused, "window", toFocus)
				// Drop focus-change notifications on the target so only
				// client-caused focus events reach the event layer.
				if n.Window != nil {
					r.backend.SetEventMask(n.Window.ID, EventsChildNoFocus)
				}
				r.backend.SetInputFocus(toFocus)
				if n.Window != nil {
					r.backend.SetEventMask(n.Window.ID, EventsChild)
				}
				r.mirrorFocus(managed, r.lastFocused)
				if toFocus != xproto.WindowNone && toFocus != r.lastFocused &&
					n.Window != nil && t.IsAttached(t.Focused) && r.observer != nil {
					r.observer.FocusChanged(t, t.Focused)
				}
			}

			r.focusedWin = toFocus
			r.lastFocused = toFocus
		}
	}

	if r.focusedWin == xproto.WindowNone {
		r.focusFallback()
	}
}

// focusFallback parks input focus on the always-present sink window rather
// than leaving it unset, which would trigger the backend's default-focus
// fallback and its ghosting side effects.
func (r *Reconciler) focusFallback() {
	r.logger.Debug("no window to focus, focusing sink window", "sink", r.focusSink)
	r.backend.SetInputFocus(r.focusSink)
	r.mirrorFocus(xproto.WindowNone, r.lastFocused)
	r.focusedWin = r.focusSink
	r.lastFocused = xproto.WindowNone
}

// mirrorFocus reflects the focus change into the externally visible focus
// attributes of the old and new window.
func (r *Reconciler) mirrorFocus(newFocus, oldFocus xproto.Window) {
	if newFocus == oldFocus {
		return
	}
	r.backend.SetActiveWindow(newFocus)
	if newFocus != xproto.WindowNone {
		r.backend.SetFocusedState(newFocus, true)
	}
	if oldFocus != xproto.WindowNone {
		r.backend.SetFocusedState(oldFocus, false)
	}
}
