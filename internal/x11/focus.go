package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

func (c *Connection) SetInputFocus(w xproto.Window) {
	xproto.SetInputFocus(c.XUtil.Conn(),
		xproto.InputFocusPointerRoot, w, xproto.TimeCurrentTime)
}

// SendTakeFocus asks a WM_TAKE_FOCUS client to assign focus to itself.
func (c *Connection) SendTakeFocus(w xproto.Window) {
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: w,
		Type:   c.wmProtocols,
		Data: xproto.ClientMessageDataUnionData32New([]uint32{
			uint32(c.wmTakeFocus), uint32(xproto.TimeCurrentTime), 0, 0, 0,
		}),
	}
	xproto.SendEvent(c.XUtil.Conn(), false, w,
		xproto.EventMaskNoEvent, string(ev.Bytes()))
}

func (c *Connection) SetActiveWindow(w xproto.Window) {
	ewmh.ActiveWindowSet(c.XUtil, w)
}

func (c *Connection) SetFocusedState(w xproto.Window, focused bool) {
	c.setNetWMState(w, "_NET_WM_STATE_FOCUSED", focused)
}

// StartPointerQuery issues the pointer read immediately and returns a
// resolver that blocks on the reply when called. Issuing early hides the
// round-trip behind the rest of the pass.
func (c *Connection) StartPointerQuery() func() (x, y int, ok bool) {
	cookie := xproto.QueryPointer(c.XUtil.Conn(), c.Root)
	return func() (int, int, bool) {
		reply, err := cookie.Reply()
		if err != nil || reply == nil {
			return 0, 0, false
		}
		return int(reply.RootX), int(reply.RootY), true
	}
}

func (c *Connection) WarpPointer(x, y int) {
	xproto.WarpPointer(c.XUtil.Conn(), xproto.WindowNone, c.Root,
		0, 0, 0, 0, int16(x), int16(y))
}
