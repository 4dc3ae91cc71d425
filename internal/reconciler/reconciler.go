// Package reconciler makes the X11 backend reflect the container tree:
// window existence, geometry, visibility, decoration pixels, stacking
// order, shape and input focus. It keeps a shadow copy of everything it has
// already told the backend and pushes only the difference, in an order that
// avoids visual flicker and spurious focus events.
package reconciler

import (
	"log/slog"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/RedBeesRGD/consync/internal/config"
	"github.com/RedBeesRGD/consync/internal/draw"
	"github.com/RedBeesRGD/consync/internal/tree"
)

// Options configures a Reconciler.
type Options struct {
	Backend  Backend
	Outputs  Outputs
	Observer Observer
	Font     draw.Font
	Config   *config.Config
	Logger   *slog.Logger

	// RootDepth is the depth frames use unless their client differs.
	RootDepth uint8
	// FocusSink is an always-present window that receives input focus when
	// no node can legally hold it, avoiding the backend's default-focus
	// fallback side effects.
	FocusSink xproto.Window

	// UnbindHook, if set, is invoked whenever a node's binding is torn
	// down.
	UnbindHook UnbindHook
}

// Reconciler owns all shadow state and decoration caches. It is not safe
// for concurrent use; one pass runs to completion at a time.
type Reconciler struct {
	backend    Backend
	outputs    Outputs
	observer   Observer
	font       draw.Font
	cfg        *config.Config
	logger     *slog.Logger
	rootDepth  uint8
	focusSink  xproto.Window
	unbindHook UnbindHook

	shadows      map[xproto.Window]*shadow
	stacking     []*shadow // desired order, index 0 = top
	prevStacking []*shadow // order as committed by the previous pass
	bindOrder    []*shadow // original bind order, tail = newest

	deco map[tree.NodeID]*decoParams

	// focusedWin is the handle last told to the backend; lastFocused is
	// latched separately so externally-forced focus resets can still be
	// told apart from real changes.
	focusedWin  xproto.Window
	lastFocused xproto.Window

	warpTo *tree.Rect

	clientList []xproto.Window
}

// New creates a reconciler. The options' Backend, Config and Logger are
// required.
func New(opts Options) *Reconciler {
	return &Reconciler{
		backend:    opts.Backend,
		outputs:    opts.Outputs,
		observer:   opts.Observer,
		font:       opts.Font,
		cfg:        opts.Config,
		logger:     opts.Logger,
		rootDepth:  opts.RootDepth,
		focusSink:  opts.FocusSink,
		unbindHook: opts.UnbindHook,
		shadows:    make(map[xproto.Window]*shadow),
		deco:       make(map[tree.NodeID]*decoParams),
	}
}

// SetWarpTarget requests a pointer warp to the midpoint of rect on the next
// pass. At most one target is pending; later calls replace earlier ones.
// Ignored when pointer warping is disabled by policy.
func (r *Reconciler) SetWarpTarget(rect tree.Rect) {
	if r.cfg.MouseWarping == config.WarpNone {
		return
	}
	r.warpTo = &rect
}
