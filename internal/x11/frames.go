package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"

	"github.com/RedBeesRGD/consync/internal/reconciler"
	"github.com/RedBeesRGD/consync/internal/tree"
)

const (
	frameEventMask = xproto.EventMaskButtonPress |
		xproto.EventMaskButtonRelease |
		xproto.EventMaskPointerMotion |
		xproto.EventMaskExposure |
		xproto.EventMaskStructureNotify |
		xproto.EventMaskSubstructureRedirect |
		xproto.EventMaskSubstructureNotify |
		xproto.EventMaskEnterWindow

	childEventMask = xproto.EventMaskPropertyChange |
		xproto.EventMaskStructureNotify |
		xproto.EventMaskFocusChange

	rootEventMask = xproto.EventMaskSubstructureRedirect |
		xproto.EventMaskSubstructureNotify |
		xproto.EventMaskStructureNotify |
		xproto.EventMaskPropertyChange
)

func maskBits(m reconciler.EventMask) uint32 {
	switch m {
	case reconciler.EventsFrame:
		return frameEventMask
	case reconciler.EventsFrameNoEnter:
		return frameEventMask &^ xproto.EventMaskEnterWindow
	case reconciler.EventsChild:
		return childEventMask
	case reconciler.EventsChildNoFocus:
		return childEventMask &^ xproto.EventMaskFocusChange
	case reconciler.EventsRestackGuard:
		return xproto.EventMaskSubstructureRedirect
	case reconciler.EventsRoot:
		return rootEventMask
	default:
		return xproto.EventMaskNoEvent
	}
}

// CreateFrame creates an override-redirect decoration frame at the given
// geometry. Frames of non-root depth get their own colormap, since their
// visual differs from the root visual.
func (c *Connection) CreateFrame(r tree.Rect, depth uint8) (reconciler.Frame, error) {
	conn := c.XUtil.Conn()

	win, err := xproto.NewWindowId(conn)
	if err != nil {
		return reconciler.Frame{}, err
	}

	visual := c.visualForDepth(depth)
	var colormap xproto.Colormap
	mask := uint32(xproto.CwOverrideRedirect)
	values := []uint32{}

	if depth != c.screen.RootDepth {
		colormap, err = xproto.NewColormapId(conn)
		if err != nil {
			return reconciler.Frame{}, err
		}
		xproto.CreateColormap(conn, xproto.ColormapAllocNone, colormap, c.Root, visual)
		// A non-default visual needs explicit border pixel and colormap or
		// window creation fails with a Match error.
		mask = xproto.CwBackPixel | xproto.CwBorderPixel |
			xproto.CwOverrideRedirect | xproto.CwColormap
		values = []uint32{0, 0, 1, uint32(colormap)}
	} else {
		values = []uint32{1}
	}

	err = xproto.CreateWindowChecked(conn, depth, win, c.Root,
		int16(r.X), int16(r.Y), uint16(r.Width), uint16(r.Height), 0,
		xproto.WindowClassInputOutput, visual, mask, values).Check()
	if err != nil {
		if colormap != 0 {
			xproto.FreeColormap(conn, colormap)
		}
		return reconciler.Frame{}, err
	}

	// Tag the frame so other tools can tell it apart from client windows.
	class := "consync-frame\x00consync-frame\x00"
	xproto.ChangeProperty(conn, xproto.PropModeReplace, win,
		xproto.AtomWmClass, xproto.AtomString, 8,
		uint32(len(class)), []byte(class))

	surface, err := c.newSurface(xproto.Drawable(win), depth, r.Width, r.Height, false)
	if err != nil {
		xproto.DestroyWindow(conn, win)
		if colormap != 0 {
			xproto.FreeColormap(conn, colormap)
		}
		return reconciler.Frame{}, err
	}

	return reconciler.Frame{Window: win, Colormap: colormap, Surface: surface}, nil
}

func (c *Connection) DestroyFrame(w xproto.Window) {
	xproto.DestroyWindow(c.XUtil.Conn(), w)
}

func (c *Connection) FreeColormap(cm xproto.Colormap) {
	xproto.FreeColormap(c.XUtil.Conn(), cm)
}

func (c *Connection) SetFrameName(w xproto.Window, name string) {
	conn := c.XUtil.Conn()
	xproto.ChangeProperty(conn, xproto.PropModeReplace, w,
		xproto.AtomWmName, xproto.AtomString, 8,
		uint32(len(name)), []byte(name))
	if atom, err := xprop.Atm(c.XUtil, "_NET_WM_NAME"); err == nil {
		if utf8, err := xprop.Atm(c.XUtil, "UTF8_STRING"); err == nil {
			xproto.ChangeProperty(conn, xproto.PropModeReplace, w,
				atom, utf8, 8, uint32(len(name)), []byte(name))
		}
	}
}

func (c *Connection) SetWindowRect(w xproto.Window, r tree.Rect) {
	xproto.ConfigureWindow(c.XUtil.Conn(), w,
		xproto.ConfigWindowX|xproto.ConfigWindowY|
			xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{
			uint32(int32(r.X)), uint32(int32(r.Y)),
			uint32(r.Width), uint32(r.Height),
		})
}

// SendConfigureNotify fakes a ConfigureNotify with the client's absolute
// geometry. Clients that position popups relative to themselves need this
// after the engine moved the frame around them.
func (c *Connection) SendConfigureNotify(win xproto.Window, absolute tree.Rect, borderWidth int) {
	ev := xproto.ConfigureNotifyEvent{
		Event:            win,
		Window:           win,
		AboveSibling:     xproto.WindowNone,
		X:                int16(absolute.X),
		Y:                int16(absolute.Y),
		Width:            uint16(absolute.Width),
		Height:           uint16(absolute.Height),
		BorderWidth:      uint16(borderWidth),
		OverrideRedirect: false,
	}
	xproto.SendEvent(c.XUtil.Conn(), false, win,
		xproto.EventMaskStructureNotify, string(ev.Bytes()))
}

func (c *Connection) ReparentWindow(win, frame xproto.Window) {
	xproto.ReparentWindow(c.XUtil.Conn(), win, frame, 0, 0)
}

func (c *Connection) SetEventMask(w xproto.Window, mask reconciler.EventMask) {
	xproto.ChangeWindowAttributes(c.XUtil.Conn(), w,
		xproto.CwEventMask, []uint32{maskBits(mask)})
}

func (c *Connection) SetRootEventMask(mask reconciler.EventMask) {
	c.SetEventMask(c.Root, mask)
}

func (c *Connection) MapWindow(w xproto.Window) {
	xproto.MapWindow(c.XUtil.Conn(), w)
}

func (c *Connection) UnmapWindow(w xproto.Window) {
	xproto.UnmapWindow(c.XUtil.Conn(), w)
}

func (c *Connection) RestackAbove(w, sibling xproto.Window) {
	xproto.ConfigureWindow(c.XUtil.Conn(), w,
		xproto.ConfigWindowSibling|xproto.ConfigWindowStackMode,
		[]uint32{uint32(sibling), xproto.StackModeAbove})
}

func (c *Connection) SetWithdrawn(win xproto.Window, withdrawn bool) {
	state := uint(icccm.StateNormal)
	if withdrawn {
		state = icccm.StateWithdrawn
	}
	icccm.WmStateSet(c.XUtil, win, &icccm.WmState{State: state})
}

func (c *Connection) SetHidden(win xproto.Window, hidden bool) {
	c.setNetWMState(win, "_NET_WM_STATE_HIDDEN", hidden)
}

func (c *Connection) SetMaximizedHorz(win xproto.Window, on bool) {
	c.setNetWMState(win, "_NET_WM_STATE_MAXIMIZED_HORZ", on)
}

func (c *Connection) SetMaximizedVert(win xproto.Window, on bool) {
	c.setNetWMState(win, "_NET_WM_STATE_MAXIMIZED_VERT", on)
}

// setNetWMState adds or removes a single atom from a window's _NET_WM_STATE.
func (c *Connection) setNetWMState(win xproto.Window, name string, on bool) {
	current, _ := ewmh.WmStateGet(c.XUtil, win)
	next := make([]string, 0, len(current)+1)
	for _, s := range current {
		if s != name {
			next = append(next, s)
		}
	}
	if on {
		next = append(next, name)
	}
	ewmh.WmStateSet(c.XUtil, win, next)
}

// KillWindow asks the client to close, falling back to a hard kill when it
// does not participate in WM_DELETE_WINDOW.
func (c *Connection) KillWindow(win xproto.Window) {
	protos, err := icccm.WmProtocolsGet(c.XUtil, win)
	if err == nil {
		for _, p := range protos {
			if p != "WM_DELETE_WINDOW" {
				continue
			}
			ev := xproto.ClientMessageEvent{
				Format: 32,
				Window: win,
				Type:   c.wmProtocols,
				Data: xproto.ClientMessageDataUnionData32New([]uint32{
					uint32(c.wmDelete), uint32(xproto.TimeCurrentTime), 0, 0, 0,
				}),
			}
			xproto.SendEvent(c.XUtil.Conn(), false, win,
				xproto.EventMaskNoEvent, string(ev.Bytes()))
			return
		}
	}
	xproto.KillClient(c.XUtil.Conn(), uint32(win))
}
