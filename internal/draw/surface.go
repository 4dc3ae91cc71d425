package draw

// Surface is one drawable target: a frame window or its off-screen buffer.
// Implementations must treat every call as fire-and-forget; a surface whose
// backing drawable is gone simply ignores draws.
type Surface interface {
	// Valid reports whether the surface has a live backing drawable.
	Valid() bool
	// Clear fills the whole surface with the given color.
	Clear(c Color)
	// FillRect fills a rectangle. Negative or zero extents are ignored.
	FillRect(c Color, x, y, w, h int)
	// FillGradient fills a rectangle with a horizontal gradient. When
	// dithering resources cannot be allocated the implementation falls back
	// to the plain gradient.
	FillGradient(start, end Color, x, y, w, h int, opts GradientOptions)
	// Text draws a single line, clipped to maxWidth pixels.
	Text(text string, fg, bg Color, x, y, maxWidth int)
	// Image draws an ARGB icon scaled into the given box.
	Image(icon *IconImage, x, y, w, h int)
	// CopyTo copies the top-left w×h region onto dst at the origin.
	CopyTo(dst Surface, w, h int)
	// SetSize resizes the surface's notion of its drawable.
	SetSize(w, h int)
	// Free releases backend resources. The surface is invalid afterwards.
	Free()
}

// IconImage is a decoded window icon in ARGB order, row-major.
type IconImage struct {
	Width, Height int
	Pixels        []uint32
}

// Font measures text for decoration layout.
type Font interface {
	// TextWidth predicts the rendered width of a string in pixels.
	TextWidth(s string) int
	// Height is the line height of the font in pixels.
	Height() int
}
