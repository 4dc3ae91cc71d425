package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
)

// XFont is a core X font with its metrics table cached client-side, so text
// width prediction during decoration layout needs no server round-trips.
type XFont struct {
	id      xproto.Font
	ascent  int
	descent int

	minChar      uint16
	maxChar      uint16
	widths       []int
	defaultWidth int
}

// LoadFont opens a core font by name and caches its metrics on the
// connection. Decoration surfaces created afterwards render text with it.
func (c *Connection) LoadFont(name string) (*XFont, error) {
	conn := c.XUtil.Conn()

	fid, err := xproto.NewFontId(conn)
	if err != nil {
		return nil, err
	}
	if err := xproto.OpenFontChecked(conn, fid, uint16(len(name)), name).Check(); err != nil {
		return nil, fmt.Errorf("opening font %q: %w", name, err)
	}
	reply, err := xproto.QueryFont(conn, xproto.Fontable(fid)).Reply()
	if err != nil {
		return nil, fmt.Errorf("querying font %q: %w", name, err)
	}

	f := &XFont{
		id:           fid,
		ascent:       int(reply.FontAscent),
		descent:      int(reply.FontDescent),
		minChar:      reply.MinCharOrByte2,
		maxChar:      reply.MaxCharOrByte2,
		defaultWidth: int(reply.MaxBounds.CharacterWidth),
	}
	f.widths = make([]int, 0, len(reply.CharInfos))
	for _, ci := range reply.CharInfos {
		f.widths = append(f.widths, int(ci.CharacterWidth))
	}

	c.font = f
	return f, nil
}

// TextWidth predicts the rendered width of a string in pixels.
func (f *XFont) TextWidth(s string) int {
	total := 0
	for i := 0; i < len(s); i++ {
		ch := uint16(s[i])
		if ch < f.minChar || ch > f.maxChar {
			total += f.defaultWidth
			continue
		}
		idx := int(ch - f.minChar)
		if idx < len(f.widths) {
			total += f.widths[idx]
		} else {
			total += f.defaultWidth
		}
	}
	return total
}

// Height is the line height of the font in pixels.
func (f *XFont) Height() int {
	return f.ascent + f.descent
}
