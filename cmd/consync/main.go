package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"golang.org/x/term"

	"github.com/RedBeesRGD/consync/internal/config"
	"github.com/RedBeesRGD/consync/internal/reconciler"
	"github.com/RedBeesRGD/consync/internal/tree"
	"github.com/RedBeesRGD/consync/internal/x11"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: consync <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the consync daemon (foreground)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Daemon options:")
	fmt.Fprintln(w, "  -config <path>      Configuration file (default ~/.config/consync/config.yaml)")
	fmt.Fprintln(w, "  -debug              Enable debug logging")
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	// Structured JSON when stderr is redirected to a file or journal; plain
	// text when a human is watching.
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ExitOnError)
	configPath := fs.String("config", "", "configuration file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Parse(args)

	logger := newLogger(*debug)

	// Load configuration
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromPath(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to display server
	conn, err := x11.NewConnection()
	if err != nil {
		log.Fatalf("Failed to connect to display: %v", err)
	}
	defer conn.Close()

	font, err := conn.LoadFont("fixed")
	if err != nil {
		log.Fatalf("Failed to load font: %v", err)
	}

	outputs, err := x11.NewOutputs(conn)
	if err != nil {
		log.Fatalf("Failed to query outputs: %v", err)
	}

	rec := reconciler.New(reconciler.Options{
		Backend:   conn,
		Outputs:   outputs,
		Observer:  x11.NewEWMHObserver(conn, logger),
		Font:      font,
		Config:    cfg,
		Logger:    logger,
		RootDepth: conn.RootDepth(),
		FocusSink: conn.FocusSink(),
	})

	d := &daemon{
		conn:    conn,
		cfg:     cfg,
		logger:  logger,
		rec:     rec,
		tree:    tree.New(),
		clients: make(map[xproto.Window]tree.NodeID),
		// Titlebar height follows the font with room for the border lines.
		decoHeight: font.Height() + 5,
	}
	if err := d.buildSkeleton(); err != nil {
		log.Fatalf("Failed to initialize container tree: %v", err)
	}

	conn.SetRootEventMask(reconciler.EventsRoot)
	d.connectHandlers()
	d.adoptExisting()
	rec.PushChanges(d.tree)

	// Shut the event loop down cleanly on SIGINT/SIGTERM.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		xevent.Quit(conn.XUtil)
	}()

	logger.Info("consync daemon started", "root", conn.Root)
	conn.EventLoop()
	logger.Info("consync daemon stopped")
	return 0
}

// daemon owns the container tree and translates X events into tree changes
// followed by a reconciliation pass.
type daemon struct {
	conn    *x11.Connection
	cfg     *config.Config
	logger  *slog.Logger
	rec     *reconciler.Reconciler
	tree    *tree.Tree
	clients map[xproto.Window]tree.NodeID

	workspace  tree.NodeID
	decoHeight int
}

// buildSkeleton binds the root, one output node per monitor and a single
// workspace on the first output. Every tree node needs a binding before the
// first reconciliation pass.
func (d *daemon) buildSkeleton() error {
	t := d.tree
	if err := d.rec.Bind(t, t.Root); err != nil {
		return err
	}

	monitors, err := d.conn.GetMonitors()
	if err != nil {
		return err
	}
	for _, mon := range monitors {
		out := t.NewNode(t.Root, tree.KindOutput)
		n := t.Node(out)
		n.Layout = tree.LayoutOutput
		n.Name = mon.Name
		n.Rect = tree.Rect{X: mon.X, Y: mon.Y, Width: mon.Width, Height: mon.Height}
		if err := d.rec.Bind(t, out); err != nil {
			return err
		}

		ws := t.NewNode(out, tree.KindWorkspace)
		wn := t.Node(ws)
		wn.Layout = tree.LayoutSplitH
		wn.Name = fmt.Sprintf("%d", len(t.Node(t.Root).Children))
		wn.Rect = n.Rect
		wn.Mapped = true
		if err := d.rec.Bind(t, ws); err != nil {
			return err
		}
		if d.workspace == tree.None {
			d.workspace = ws
			t.SetFocus(ws)
		}
	}
	if d.workspace == tree.None {
		return fmt.Errorf("no usable output found")
	}
	return nil
}

func (d *daemon) connectHandlers() {
	xu := d.conn.XUtil

	xevent.MapRequestFun(func(_ *xgbutil.XUtil, ev xevent.MapRequestEvent) {
		d.manage(ev.Window)
	}).Connect(xu, d.conn.Root)

	xevent.ConfigureRequestFun(func(_ *xgbutil.XUtil, ev xevent.ConfigureRequestEvent) {
		d.configureRequest(ev.ConfigureRequestEvent)
	}).Connect(xu, d.conn.Root)
}

// connectClientHandlers subscribes to the per-window notifications of one
// managed client. xgbutil dispatches these on the client window itself.
func (d *daemon) connectClientHandlers(win xproto.Window) {
	xu := d.conn.XUtil

	xevent.UnmapNotifyFun(func(_ *xgbutil.XUtil, ev xevent.UnmapNotifyEvent) {
		id, ok := d.clients[ev.Window]
		if !ok {
			return
		}
		if d.tree.ConsumeIgnoreUnmap(id) {
			d.logger.Debug("ignoring self-caused unmap", "window", ev.Window)
			return
		}
		d.unmanage(ev.Window)
	}).Connect(xu, win)

	xevent.DestroyNotifyFun(func(_ *xgbutil.XUtil, ev xevent.DestroyNotifyEvent) {
		d.unmanage(ev.Window)
	}).Connect(xu, win)

	xevent.PropertyNotifyFun(func(_ *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		d.propertyChanged(ev.Window, ev.Atom)
	}).Connect(xu, win)

	// Pagers close windows by sending _NET_CLOSE_WINDOW with the target
	// client in the window field, which is what xgbutil dispatches on.
	xevent.ClientMessageFun(func(_ *xgbutil.XUtil, ev xevent.ClientMessageEvent) {
		name, err := xprop.AtomName(xu, ev.Type)
		if err != nil || name != "_NET_CLOSE_WINDOW" {
			return
		}
		if _, ok := d.clients[ev.Window]; !ok {
			return
		}
		d.logger.Debug("close requested", "window", ev.Window)
		d.conn.KillWindow(ev.Window)
	}).Connect(xu, win)
}

// adoptExisting manages windows that were already mapped when the daemon
// started.
func (d *daemon) adoptExisting() {
	reply, err := xproto.QueryTree(d.conn.XUtil.Conn(), d.conn.Root).Reply()
	if err != nil {
		d.logger.Error("could not list existing windows", "error", err)
		return
	}
	for _, win := range reply.Children {
		attrs, err := xproto.GetWindowAttributes(d.conn.XUtil.Conn(), win).Reply()
		if err != nil || attrs.OverrideRedirect ||
			attrs.MapState != xproto.MapStateViewable {
			continue
		}
		d.manage(win)
	}
}

func (d *daemon) manage(win xproto.Window) {
	if _, ok := d.clients[win]; ok {
		return
	}
	xu := d.conn.XUtil

	attrs, err := xproto.GetWindowAttributes(xu.Conn(), win).Reply()
	if err != nil || attrs.OverrideRedirect {
		return
	}
	geom, err := xproto.GetGeometry(xu.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return
	}

	w := &tree.Window{ID: win, Depth: geom.Depth, AcceptsFocus: true}
	if title, err := ewmh.WmNameGet(xu, win); err == nil && title != "" {
		w.Title = title
	} else if title, err := icccm.WmNameGet(xu, win); err == nil {
		w.Title = title
	}
	if protos, err := icccm.WmProtocolsGet(xu, win); err == nil {
		for _, p := range protos {
			if p == "WM_TAKE_FOCUS" {
				w.TakeFocus = true
			}
		}
	}
	if hints, err := icccm.WmHintsGet(xu, win); err == nil &&
		hints.Flags&icccm.HintInput > 0 {
		w.AcceptsFocus = hints.Input == 1
	}

	t := d.tree
	id := t.NewNode(d.workspace, tree.KindCon)
	n := t.Node(id)
	n.Name = w.Title
	n.Window = w
	n.BorderStyle = tree.BorderNormal
	n.BorderWidth = 2
	n.Mapped = true

	if err := d.rec.Bind(t, id); err != nil {
		d.logger.Error("could not bind window", "window", win, "error", err)
		t.Free(id)
		return
	}
	d.clients[win] = id
	d.connectClientHandlers(win)
	t.SetFocus(id)
	d.rec.SetName(t, id, fmt.Sprintf("consync: %s", w.Title))

	d.arrange()
	d.rec.PushChanges(t)
	d.logger.Info("managed window", "window", win, "title", w.Title)
}

func (d *daemon) unmanage(win xproto.Window) {
	id, ok := d.clients[win]
	if !ok {
		return
	}
	t := d.tree
	delete(d.clients, win)
	xevent.Detach(d.conn.XUtil, win)
	d.rec.Unbind(t, id)
	t.Free(id)

	// Refocus whatever is now first in the workspace's focus order.
	ws := t.Node(d.workspace)
	if len(ws.FocusOrder) > 0 {
		t.SetFocus(ws.FocusOrder[0])
	} else {
		t.SetFocus(d.workspace)
	}

	d.arrange()
	d.rec.PushChanges(t)
	d.logger.Info("unmanaged window", "window", win)
}

// arrange splits the workspace evenly between its tiling children. This is
// deliberately the simplest placement that exercises the full decoration
// geometry; the tree model supports arbitrary layouts.
func (d *daemon) arrange() {
	t := d.tree
	ws := t.Node(d.workspace)
	count := len(ws.Children)
	if count == 0 {
		return
	}
	width := ws.Rect.Width / count
	for i, c := range ws.Children {
		n := t.Node(c)
		bw := n.BorderWidth
		n.Rect = tree.Rect{
			X:      ws.Rect.X + i*width,
			Y:      ws.Rect.Y,
			Width:  width,
			Height: ws.Rect.Height,
		}
		n.DecoRect = tree.Rect{X: 0, Y: 0, Width: width, Height: d.decoHeight}
		n.WindowRect = tree.Rect{
			X:      bw,
			Y:      d.decoHeight,
			Width:  width - 2*bw,
			Height: ws.Rect.Height - d.decoHeight - bw,
		}
	}
}

func (d *daemon) configureRequest(ev *xproto.ConfigureRequestEvent) {
	if id, ok := d.clients[ev.Window]; ok {
		// Managed windows do not get to move themselves; answer with the
		// geometry they actually have.
		n := d.tree.Node(id)
		abs := tree.Rect{
			X:      n.Rect.X + n.WindowRect.X,
			Y:      n.Rect.Y + n.WindowRect.Y,
			Width:  n.WindowRect.Width,
			Height: n.WindowRect.Height,
		}
		d.conn.SendConfigureNotify(ev.Window, abs, n.BorderWidth)
		return
	}

	// Unmanaged windows get their request applied verbatim.
	mask := uint16(ev.ValueMask) &^ (xproto.ConfigWindowSibling | xproto.ConfigWindowStackMode)
	var values []uint32
	for _, f := range []struct {
		bit uint16
		val uint32
	}{
		{xproto.ConfigWindowX, uint32(int32(ev.X))},
		{xproto.ConfigWindowY, uint32(int32(ev.Y))},
		{xproto.ConfigWindowWidth, uint32(ev.Width)},
		{xproto.ConfigWindowHeight, uint32(ev.Height)},
		{xproto.ConfigWindowBorderWidth, uint32(ev.BorderWidth)},
	} {
		if mask&f.bit != 0 {
			values = append(values, f.val)
		}
	}
	xproto.ConfigureWindow(d.conn.XUtil.Conn(), ev.Window, mask, values)
}

func (d *daemon) propertyChanged(win xproto.Window, atom xproto.Atom) {
	id, ok := d.clients[win]
	if !ok {
		return
	}
	name, err := xprop.AtomName(d.conn.XUtil, atom)
	if err != nil {
		return
	}
	switch name {
	case "WM_NAME", "_NET_WM_NAME":
		t := d.tree
		n := t.Node(id)
		title := n.Window.Title
		if s, err := ewmh.WmNameGet(d.conn.XUtil, win); err == nil && s != "" {
			title = s
		} else if s, err := icccm.WmNameGet(d.conn.XUtil, win); err == nil {
			title = s
		}
		if title == n.Window.Title {
			return
		}
		n.Window.Title = title
		n.Window.TitleChanged = true
		n.Name = title
		d.rec.SetName(t, id, fmt.Sprintf("consync: %s", title))
		d.rec.PushChanges(t)
	}
}
