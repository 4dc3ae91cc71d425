package x11

import (
	"log/slog"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"

	"github.com/RedBeesRGD/consync/internal/tree"
)

// EWMHObserver mirrors client-list changes into root window properties, so
// pagers and taskbars stay in sync with the engine. The active-window
// property is maintained by the focus push itself; the observer only covers
// the derived lists.
type EWMHObserver struct {
	conn   *Connection
	logger *slog.Logger
}

func NewEWMHObserver(c *Connection, logger *slog.Logger) *EWMHObserver {
	return &EWMHObserver{conn: c, logger: logger}
}

func (o *EWMHObserver) FocusChanged(t *tree.Tree, id tree.NodeID) {
	if id == tree.None {
		return
	}
	o.logger.Debug("focus changed", "node", id, "name", t.Node(id).Name)
}

func (o *EWMHObserver) ClientListStacking(wins []xproto.Window) {
	ewmh.ClientListStackingSet(o.conn.XUtil, wins)
}

func (o *EWMHObserver) ClientList(wins []xproto.Window) {
	ewmh.ClientListSet(o.conn.XUtil, wins)
}
