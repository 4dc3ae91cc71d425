package reconciler

import (
	"strings"

	"github.com/RedBeesRGD/consync/internal/config"
	"github.com/RedBeesRGD/consync/internal/draw"
	"github.com/RedBeesRGD/consync/internal/tree"
)

const titlePadding = 2

// widthHeight strips the position out of a rect for cache comparison.
type widthHeight struct {
	w, h int
}

// decoParams is the memoized snapshot of everything that affects the
// rendered decoration pixels. It must stay comparable: maybeRedraw decides
// whether to repaint with a plain == against the cached value.
type decoParams struct {
	color        config.Colors
	borderStyle  tree.BorderStyle
	conRect      widthHeight
	windowRect   widthHeight
	decoRect     tree.Rect
	background   draw.Color
	leaf         bool
	hasMarks     bool
	parentLayout tree.Layout

	gradients     bool
	dithering     bool
	ditherNoise   float64
	gradientStart draw.Color
	gradientEnd   draw.Color
	offsetStart   float64
	offsetEnd     float64
}

// colorClass picks the decoration color class for a node, in precedence
// order: urgent, focused, focused-tab-title, focused-inactive, unfocused.
// The second result is whether the unfocused gradient stops apply.
func (r *Reconciler) colorClass(t *tree.Tree, id tree.NodeID) (config.Colors, bool) {
	n := t.Node(id)
	c := &r.cfg.Client
	switch {
	case n.Urgent:
		return c.Urgent, false
	case id == t.Focused || t.InsideFocused(id):
		return c.Focused, false
	case n.Parent != tree.None && len(t.Node(n.Parent).FocusOrder) > 0 &&
		t.Node(n.Parent).FocusOrder[0] == id:
		if c.GotFocusedTabTitle && !t.IsLeaf(id) && t.DescendFocused(id) == t.Focused {
			// Stacked/tabbed parent of the focused container.
			return c.FocusedTabTitle, false
		}
		return c.FocusedInactive, true
	default:
		return c.Unfocused, true
	}
}

// borderRectangles returns the rectangles of the border around the child
// window, relative to the frame. Edges adjacent to a screen edge are hidden
// per the configured policy.
func (r *Reconciler) borderRectangles(t *tree.Tree, id tree.NodeID) []tree.Rect {
	n := t.Node(id)
	if n.BorderStyle == tree.BorderNone || !t.IsLeaf(id) {
		return nil
	}
	hide := t.AdjacentBorders(id) & r.cfg.HideEdgeBorders
	br := t.BorderStyleRect(id)
	rect := n.Rect

	var rects []tree.Rect
	if hide&tree.AdjLeft == 0 {
		rects = append(rects, tree.Rect{X: 0, Y: 0, Width: br.X, Height: rect.Height})
	}
	if hide&tree.AdjRight == 0 {
		rects = append(rects, tree.Rect{
			X: rect.Width + br.Width + br.X, Y: 0,
			Width: -(br.Width + br.X), Height: rect.Height,
		})
	}
	if hide&tree.AdjLower == 0 {
		rects = append(rects, tree.Rect{
			X: br.X, Y: rect.Height + br.Height + br.Y,
			Width: rect.Width + br.Width, Height: -(br.Height + br.Y),
		})
	}
	// Pixel borders have an additional line at the top; for normal borders
	// the titlebar covers it.
	if n.BorderStyle == tree.BorderPixel && hide&tree.AdjUpper == 0 {
		rects = append(rects, tree.Rect{
			X: br.X, Y: 0,
			Width: rect.Width + br.Width, Height: br.Y,
		})
	}
	return rects
}

// drawsOwnDecoration reports whether the node's decoration lands on its own
// buffer rather than the parent's (titlebars inside stacks and tabs are
// drawn onto the parent frame).
func (r *Reconciler) drawsOwnDecoration(t *tree.Tree, id tree.NodeID) bool {
	n := t.Node(id)
	if !t.IsLeaf(id) || n.BorderStyle != tree.BorderNormal {
		return false
	}
	if n.Parent == tree.None {
		return true
	}
	pl := t.Node(n.Parent).Layout
	return pl != tree.LayoutStacked && pl != tree.LayoutTabbed
}

// maybeRedraw draws the decoration of the node if its parameters changed,
// and in any case refreshes the visible surface from the off-screen buffer.
func (r *Reconciler) maybeRedraw(t *tree.Tree, id tree.NodeID) {
	n := t.Node(id)
	leaf := t.IsLeaf(id)
	parent := n.Parent

	// Decorations exist for leaves and for non-leaf containers inside a
	// stacked/tabbed parent; not for direct children of outputs/docks and
	// not for floating wrappers.
	if parent == tree.None {
		return
	}
	p := t.Node(parent)
	if (!leaf && p.Layout != tree.LayoutStacked && p.Layout != tree.LayoutTabbed) ||
		p.Kind == tree.KindOutput || p.Kind == tree.KindDock ||
		n.Kind == tree.KindFloating {
		return
	}
	if n.Rect.Height == 0 {
		return
	}
	s := r.lookup(n.Frame)
	if leaf && s.buffer == nil {
		// Buffer not created yet; a later pass paints this node.
		return
	}

	c := &r.cfg.Client
	params := decoParams{
		borderStyle:  n.BorderStyle,
		conRect:      widthHeight{n.Rect.Width, n.Rect.Height},
		windowRect:   widthHeight{n.WindowRect.Width, n.WindowRect.Height},
		decoRect:     n.DecoRect,
		background:   c.Background,
		leaf:         leaf,
		hasMarks:     len(visibleMarks(n)) > 0,
		parentLayout: p.Layout,

		gradients:     c.Gradients,
		dithering:     c.Dithering,
		ditherNoise:   c.DitherNoise,
		gradientStart: c.GradientStart,
		gradientEnd:   c.GradientEnd,
		offsetStart:   c.GradientOffsetStart,
		offsetEnd:     c.GradientOffsetEnd,
	}
	var unfocused bool
	params.color, unfocused = r.colorClass(t, id)
	if params.gradients && unfocused {
		params.gradientStart = c.GradientUnfocusedStart
		params.gradientEnd = c.GradientUnfocusedEnd
	}

	cached := r.deco[id]
	dirty := n.DecoDirty || n.MarkChanged || n.PixmapRecreated || p.PixmapRecreated ||
		(n.Window != nil && n.Window.TitleChanged)
	if cached != nil && !dirty && *cached == params {
		r.copyDecoration(t, id, s)
		return
	}

	// A preceding sibling's layout feeds into later renders in stacked and
	// tabbed containers; conservatively mark them all dirty.
	if i := indexOf(p.Children, id); i >= 0 {
		for _, sib := range p.Children[i+1:] {
			t.Node(sib).DecoDirty = true
		}
	}

	r.deco[id] = &params
	if n.Window != nil {
		n.Window.TitleChanged = false
	}
	p.PixmapRecreated = false
	n.PixmapRecreated = false
	n.MarkChanged = false
	n.DecoDirty = false

	r.renderDecoration(t, id, s, &params)
	r.copyDecoration(t, id, s)
}

func (r *Reconciler) renderDecoration(t *tree.Tree, id tree.NodeID, s *shadow, params *decoParams) {
	n := t.Node(id)
	rect, wr := n.Rect, n.WindowRect

	// Background fill around the child window.
	if n.Window != nil && s.buffer != nil {
		s.buffer.Clear(draw.Black)
		bg := params.background
		s.buffer.FillRect(bg, 0, 0, rect.Width, wr.Y)
		s.buffer.FillRect(bg, 0, wr.Y+wr.Height, rect.Width, rect.Height-(wr.Y+wr.Height))
		s.buffer.FillRect(bg, 0, 0, wr.X, rect.Height)
		s.buffer.FillRect(bg, wr.X+wr.Width, 0, rect.Width-(wr.X+wr.Width), rect.Height)
	}

	// Border around the child. Filled per edge so fixed-size clients keep
	// their background visible in the slack.
	if params.borderStyle != tree.BorderNone && params.leaf && s.buffer != nil {
		for _, br := range r.borderRectangles(t, id) {
			s.buffer.FillRect(params.color.ChildBorder, br.X, br.Y, br.Width, br.Height)
		}

		// A lone window in a split container is indistinguishable from one
		// outside it; highlight the side where the next window opens.
		br := t.BorderStyleRect(id)
		parent := t.Node(n.Parent)
		if len(parent.Children) == 1 && parent.Kind != tree.KindFloating {
			if params.parentLayout == tree.LayoutSplitH {
				s.buffer.FillRect(params.color.Indicator,
					rect.Width+br.Width+br.X, br.Y, -(br.Width + br.X), rect.Height+br.Height)
			} else if params.parentLayout == tree.LayoutSplitV {
				s.buffer.FillRect(params.color.Indicator,
					br.X, rect.Height+br.Height+br.Y, rect.Width+br.Width, -(br.Height + br.Y))
			}
		}
	}

	dest := s.buffer
	if !r.drawsOwnDecoration(t, id) {
		dest = r.lookup(t.Node(n.Parent).Frame).buffer
	}
	if dest == nil || !dest.Valid() {
		// Parent not set up yet; skip the decoration for now.
		return
	}

	// The first child clears the parent's cache so no garbage survives on
	// a transparent parent buffer.
	parent := t.Node(n.Parent)
	if len(parent.Children) > 0 && parent.Children[0] == id {
		delete(r.deco, n.Parent)
	}

	// Borderless and pixel-border windows have no titlebar to render.
	if params.borderStyle != tree.BorderNormal {
		return
	}

	dr := n.DecoRect
	if params.gradients {
		dest.FillGradient(params.gradientStart, params.gradientEnd,
			dr.X, dr.Y, dr.Width, dr.Height, draw.GradientOptions{
				Dither:      params.dithering,
				NoiseGain:   params.ditherNoise,
				OffsetStart: params.offsetStart,
				OffsetEnd:   params.offsetEnd,
			})
	} else {
		dest.FillRect(params.color.Background, dr.X, dr.Y, dr.Width, dr.Height)
	}

	r.drawTitleBorder(n, params, dest)
	r.drawTitleContent(t, id, params, dest)
	r.drawAfterTitle(n, params, dest)
}

// drawTitleContent lays out and paints marks, icon and title text without
// letting any of them escape the decoration's horizontal bounds.
func (r *Reconciler) drawTitleContent(t *tree.Tree, id tree.NodeID, params *decoParams, dest draw.Surface) {
	n := t.Node(id)
	dr := n.DecoRect
	decoWidth := dr.Width
	textOffsetY := (dr.Height - r.font.Height()) / 2

	markWidth := 0
	if r.cfg.ShowMarks {
		if marks := visibleMarks(n); len(marks) > 0 {
			formatted := "[" + strings.Join(marks, "][") + "]"
			markWidth = r.font.TextWidth(formatted)
			markOffsetX := decoWidth - markWidth - titlePadding
			if r.cfg.TitleAlign == config.AlignRight {
				markOffsetX = titlePadding
			}
			dest.Text(formatted, params.color.Text, params.color.Background,
				dr.X+markOffsetX, dr.Y+textOffsetY, markWidth)
			markWidth += titlePadding
		}
	}

	title := n.Name
	if n.Window != nil {
		title = n.Window.Title
	}
	if title == "" {
		return
	}
	titleWidth := r.font.TextWidth(title)

	// The icon always uses all available vertical space; padding applies
	// horizontally only.
	iconSize := max(0, dr.Height-2)
	iconPadding := max(1, r.cfg.WindowIconPadding)
	totalIconSpace := iconSize + 2*iconPadding
	hasIcon := r.cfg.WindowIconPadding > -1 && n.Window != nil &&
		n.Window.Icon != nil && totalIconSpace < decoWidth
	if !hasIcon {
		iconSize, iconPadding, totalIconSpace = 0, 0, 0
	}

	var iconOffsetX, titleOffsetX int
	switch r.cfg.TitleAlign {
	case config.AlignLeft:
		iconOffsetX = iconPadding
		titleOffsetX = titlePadding + totalIconSpace
	case config.AlignCenter:
		// Whitespace before the icon is half of what the icon, its
		// padding, the text and the marks leave free.
		iconOffsetX = max(iconPadding,
			(decoWidth-iconPadding-iconSize-titleWidth-titlePadding-markWidth)/2)
		titleOffsetX = max(titlePadding, iconOffsetX+iconPadding+iconSize)
	case config.AlignRight:
		titleOffsetX = max(titlePadding+markWidth,
			decoWidth-titlePadding-titleWidth-totalIconSpace)
		// Keep the icon inside the title boundaries.
		iconOffsetX = min(decoWidth-iconSize-iconPadding-titlePadding,
			titleOffsetX+titleWidth+iconPadding)
	}

	dest.Text(title, params.color.Text, params.color.Background,
		dr.X+titleOffsetX, dr.Y+textOffsetY,
		decoWidth-markWidth-2*titlePadding-totalIconSpace)
	if hasIcon {
		dest.Image(n.Window.Icon, dr.X+iconOffsetX, dr.Y+1, iconSize, iconSize)
	}
}

func (r *Reconciler) drawTitleBorder(n *tree.Node, params *decoParams, dest draw.Surface) {
	dr := n.DecoRect
	dest.FillRect(params.color.Border, dr.X, dr.Y, 1, dr.Height)
	dest.FillRect(params.color.Border, dr.X+dr.Width-1, dr.Y, 1, dr.Height)
	dest.FillRect(params.color.Border, dr.X, dr.Y, dr.Width, 1)
	dest.FillRect(params.color.Border, dr.X, dr.Y+dr.Height-1, dr.Width, 1)
}

// drawAfterTitle cuts off text that ran past the right edge and restores
// the border on top of it.
func (r *Reconciler) drawAfterTitle(n *tree.Node, params *decoParams, dest draw.Surface) {
	dr := n.DecoRect
	dest.FillRect(params.color.Background, dr.X+dr.Width-2*titlePadding, dr.Y,
		2*titlePadding, dr.Height)
	r.drawTitleBorder(n, params, dest)
}

func (r *Reconciler) copyDecoration(t *tree.Tree, id tree.NodeID, s *shadow) {
	n := t.Node(id)
	if s.buffer != nil && s.buffer.Valid() {
		s.buffer.CopyTo(s.surface, n.Rect.Width, n.Rect.Height)
	}
}

// decoRecurse redraws decorations bottom-up in layout order. This cannot
// ride along pushNode because pushNode recurses in focus order while
// drawing depends on the actual sibling order.
func (r *Reconciler) decoRecurse(t *tree.Tree, id tree.NodeID) {
	n := t.Node(id)
	leaf := t.IsLeaf(id)
	s := r.lookup(n.Frame)

	if !leaf {
		for _, c := range n.Children {
			r.decoRecurse(t, c)
		}
		for _, c := range n.Floating {
			r.decoRecurse(t, c)
		}
		if s.mapped {
			r.copyDecoration(t, id, s)
		}
	}

	if n.Kind != tree.KindRoot && n.Kind != tree.KindOutput && (!leaf || n.Mapped) {
		r.maybeRedraw(t, id)
	}
}

func visibleMarks(n *tree.Node) []string {
	var marks []string
	for _, m := range n.Marks {
		if strings.HasPrefix(m, "_") {
			continue
		}
		marks = append(marks, m)
	}
	return marks
}

func indexOf(s []tree.NodeID, id tree.NodeID) int {
	for i, v := range s {
		if v == id {
			return i
		}
	}
	return -1
}
