package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window

	screen    *xproto.ScreenInfo
	shapeOK   bool
	focusSink xproto.Window
	font      *XFont

	wmProtocols xproto.Atom
	wmTakeFocus xproto.Atom
	wmDelete    xproto.Atom
}

// NewConnection establishes a connection to the X11 server and initializes required extensions
func NewConnection() (*Connection, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, err
	}

	c := &Connection{
		XUtil:  xu,
		Root:   xu.RootWin(),
		screen: xu.Screen(),
	}

	// The SHAPE extension is optional; without it shaped clients simply
	// keep rectangular frames.
	if err := shape.Init(xu.Conn()); err == nil {
		c.shapeOK = true
	}

	for _, a := range []struct {
		name string
		dst  *xproto.Atom
	}{
		{"WM_PROTOCOLS", &c.wmProtocols},
		{"WM_TAKE_FOCUS", &c.wmTakeFocus},
		{"WM_DELETE_WINDOW", &c.wmDelete},
	} {
		atom, err := xprop.Atm(xu, a.name)
		if err != nil {
			return nil, fmt.Errorf("interning %s: %w", a.name, err)
		}
		*a.dst = atom
	}

	if err := c.createFocusSink(); err != nil {
		return nil, fmt.Errorf("creating focus sink: %w", err)
	}

	return c, nil
}

// createFocusSink creates the always-mapped 1x1 helper window that receives
// input focus whenever no client is focused. Focusing it instead of the root
// keeps key events from leaking to whatever window happens to be under the
// pointer.
func (c *Connection) createFocusSink() error {
	win, err := xproto.NewWindowId(c.XUtil.Conn())
	if err != nil {
		return err
	}
	err = xproto.CreateWindowChecked(c.XUtil.Conn(),
		0, win, c.Root,
		-1, -1, 1, 1, 0,
		xproto.WindowClassInputOnly, c.screen.RootVisual,
		xproto.CwOverrideRedirect, []uint32{1}).Check()
	if err != nil {
		return err
	}
	xproto.MapWindow(c.XUtil.Conn(), win)
	c.focusSink = win
	return nil
}

// FocusSink returns the helper window used as the focus fallback target.
func (c *Connection) FocusSink() xproto.Window {
	return c.focusSink
}

// RootDepth returns the depth of the root window.
func (c *Connection) RootDepth() uint8 {
	return c.screen.RootDepth
}

// EventLoop starts the main X11 event loop (blocking)
func (c *Connection) EventLoop() {
	xevent.Main(c.XUtil)
}

// Flush forces all buffered requests out to the server.
func (c *Connection) Flush() {
	c.XUtil.Conn().Sync()
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}

// visualForDepth returns a visual of the given depth, falling back to the
// root visual when the screen offers none.
func (c *Connection) visualForDepth(depth uint8) xproto.Visualid {
	if depth == c.screen.RootDepth {
		return c.screen.RootVisual
	}
	for _, d := range c.screen.AllowedDepths {
		if d.Depth != depth {
			continue
		}
		for _, v := range d.Visuals {
			if v.Class == xproto.VisualClassTrueColor {
				return v.VisualId
			}
		}
	}
	return c.screen.RootVisual
}
