package x11

import (
	"encoding/binary"
	"fmt"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/RedBeesRGD/consync/internal/draw"
)

// Surface wraps an X drawable (a frame window or an off-screen pixmap)
// together with a graphics context. All drawing is fire-and-forget.
type Surface struct {
	conn     *Connection
	drawable xproto.Drawable
	gc       xproto.Gcontext
	font     *XFont
	depth    uint8
	width    int
	height   int
	isPixmap bool
	valid    bool
}

func (c *Connection) newSurface(d xproto.Drawable, depth uint8, w, h int, isPixmap bool) (*Surface, error) {
	conn := c.XUtil.Conn()

	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		return nil, err
	}
	mask := uint32(xproto.GcGraphicsExposures)
	values := []uint32{0}
	if c.font != nil {
		// Value list order follows the mask bit order.
		mask = xproto.GcFont | xproto.GcGraphicsExposures
		values = []uint32{uint32(c.font.id), 0}
	}
	if err := xproto.CreateGCChecked(conn, gc, d, mask, values).Check(); err != nil {
		return nil, fmt.Errorf("creating gc: %w", err)
	}

	return &Surface{
		conn:     c,
		drawable: d,
		gc:       gc,
		font:     c.font,
		depth:    depth,
		width:    w,
		height:   h,
		isPixmap: isPixmap,
		valid:    true,
	}, nil
}

// CreateBuffer allocates the off-screen pixmap backing a frame's decoration.
func (c *Connection) CreateBuffer(frame xproto.Window, depth uint8, w, h int) (draw.Surface, error) {
	conn := c.XUtil.Conn()

	pid, err := xproto.NewPixmapId(conn)
	if err != nil {
		return nil, err
	}
	err = xproto.CreatePixmapChecked(conn, depth, pid,
		xproto.Drawable(frame), uint16(w), uint16(h)).Check()
	if err != nil {
		return nil, fmt.Errorf("creating %dx%d pixmap: %w", w, h, err)
	}
	return c.newSurface(xproto.Drawable(pid), depth, w, h, true)
}

func (s *Surface) Valid() bool {
	return s != nil && s.valid
}

func (s *Surface) setForeground(c draw.Color) {
	xproto.ChangeGC(s.conn.XUtil.Conn(), s.gc,
		xproto.GcForeground, []uint32{c.Pixel()})
}

func (s *Surface) Clear(c draw.Color) {
	s.FillRect(c, 0, 0, s.width, s.height)
}

func (s *Surface) FillRect(c draw.Color, x, y, w, h int) {
	if !s.Valid() || w <= 0 || h <= 0 {
		return
	}
	s.setForeground(c)
	xproto.PolyFillRectangle(s.conn.XUtil.Conn(), s.drawable, s.gc,
		[]xproto.Rectangle{{
			X: int16(x), Y: int16(y),
			Width: uint16(w), Height: uint16(h),
		}})
}

func (s *Surface) FillGradient(start, end draw.Color, x, y, w, h int, opts draw.GradientOptions) {
	if !s.Valid() || w <= 0 || h <= 0 {
		return
	}
	s.putPixels(x, y, w, h, draw.GradientPixels(w, h, start, end, opts))
}

// putPixels uploads a row-major ARGB pixel block, split into row chunks so
// no single request exceeds the core protocol size limit.
func (s *Surface) putPixels(x, y, w, h int, pixels []uint32) {
	conn := s.conn.XUtil.Conn()
	rowBytes := w * 4
	rowsPerChunk := (1 << 16) / rowBytes
	if rowsPerChunk < 1 {
		rowsPerChunk = 1
	}
	for row := 0; row < h; row += rowsPerChunk {
		rows := rowsPerChunk
		if row+rows > h {
			rows = h - row
		}
		data := make([]byte, rows*rowBytes)
		for i, px := range pixels[row*w : (row+rows)*w] {
			binary.LittleEndian.PutUint32(data[i*4:], px)
		}
		xproto.PutImage(conn, xproto.ImageFormatZPixmap, s.drawable, s.gc,
			uint16(w), uint16(rows), int16(x), int16(y+row), 0, s.depth, data)
	}
}

func (s *Surface) Text(text string, fg, bg draw.Color, x, y, maxWidth int) {
	if !s.Valid() || s.font == nil || maxWidth <= 0 || text == "" {
		return
	}
	conn := s.conn.XUtil.Conn()

	// ImageText8 carries at most 255 glyphs per request.
	if len(text) > 255 {
		text = text[:255]
	}

	xproto.SetClipRectangles(conn, xproto.ClipOrderingUnsorted, s.gc, 0, 0,
		[]xproto.Rectangle{{
			X: int16(x), Y: int16(y),
			Width: uint16(maxWidth), Height: uint16(s.font.Height()),
		}})
	xproto.ChangeGC(conn, s.gc,
		xproto.GcForeground|xproto.GcBackground,
		[]uint32{fg.Pixel(), bg.Pixel()})
	xproto.ImageText8(conn, byte(len(text)), s.drawable, s.gc,
		int16(x), int16(y+s.font.ascent), text)
	xproto.ChangeGC(conn, s.gc,
		xproto.GcClipMask, []uint32{xproto.PixmapNone})
}

func (s *Surface) Image(icon *draw.IconImage, x, y, w, h int) {
	if !s.Valid() || icon == nil || w <= 0 || h <= 0 {
		return
	}
	if icon.Width <= 0 || icon.Height <= 0 {
		return
	}
	// Nearest-neighbor scale into the destination box.
	scaled := make([]uint32, w*h)
	for dy := 0; dy < h; dy++ {
		sy := dy * icon.Height / h
		for dx := 0; dx < w; dx++ {
			sx := dx * icon.Width / w
			scaled[dy*w+dx] = icon.Pixels[sy*icon.Width+sx]
		}
	}
	s.putPixels(x, y, w, h, scaled)
}

func (s *Surface) CopyTo(dst draw.Surface, w, h int) {
	d, ok := dst.(*Surface)
	if !ok || !s.Valid() || !d.Valid() || w <= 0 || h <= 0 {
		return
	}
	xproto.CopyArea(s.conn.XUtil.Conn(), s.drawable, d.drawable, d.gc,
		0, 0, 0, 0, uint16(w), uint16(h))
}

func (s *Surface) SetSize(w, h int) {
	s.width, s.height = w, h
}

func (s *Surface) Free() {
	if !s.Valid() {
		return
	}
	conn := s.conn.XUtil.Conn()
	xproto.FreeGC(conn, s.gc)
	if s.isPixmap {
		xproto.FreePixmap(conn, xproto.Pixmap(s.drawable))
	}
	s.valid = false
}
